package database

import (
	"context"
	"errors"
	"testing"

	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func testRemittance(code string) models.Remittance {
	return models.Remittance{
		Code:             code,
		SenderName:       "John Doe",
		SenderPhone:      "+13055550100",
		BeneficiaryName:  "Ana Perez",
		BeneficiaryPhone: "+5355500002",
		DeliveryType:     models.DeliveryUSD,
		AmountSent:       decimal.RequireFromString("100"),
		Rate:             decimal.NewFromInt(1),
		AmountDelivery:   decimal.RequireFromString("100"),
		DeliveryCurrency: models.CurrencyUSD,
		FeePercent:       decimal.RequireFromString("5"),
		FeeTotal:         decimal.RequireFromString("5"),
		TotalCharged:     decimal.RequireFromString("105"),
		Status:           models.StatusPending,
	}
}

func TestCreateRemittance_RecordsFeeIncome(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	created, err := service.CreateRemittance(ctx, store.CreateRemittanceParams{
		Remittance:      testRemittance("REM-AAAA0001"),
		RecordFeeIncome: true,
	})
	if err != nil {
		t.Fatalf("CreateRemittance failed: %v", err)
	}
	if created.Id == "" {
		t.Fatal("Expected generated id")
	}

	entries, err := service.ListJournal(ctx, created.CreatedAt.AddDate(0, 0, -1), created.CreatedAt.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ListJournal failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 journal entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Kind != models.JournalIncome {
		t.Errorf("Expected kind ingreso, got %s", entry.Kind)
	}
	if !entry.Amount.Equal(decimal.RequireFromString("5")) {
		t.Errorf("Expected journal amount 5, got %s", entry.Amount)
	}
	if entry.RemittanceId != created.Id {
		t.Errorf("Expected journal linked to remittance %s, got %s", created.Id, entry.RemittanceId)
	}
}

func TestCreateRemittance_DuplicateCode(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := service.CreateRemittance(ctx, store.CreateRemittanceParams{Remittance: testRemittance("REM-AAAA0001")}); err != nil {
		t.Fatalf("CreateRemittance failed: %v", err)
	}
	_, err := service.CreateRemittance(ctx, store.CreateRemittanceParams{Remittance: testRemittance("REM-AAAA0001")})
	if !errors.Is(err, store.ErrDuplicateCode) {
		t.Fatalf("Expected ErrDuplicateCode, got %v", err)
	}
}

func TestCreateRemittance_AccruesResellerOwed(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	reseller, err := service.CreateUser(ctx, store.CreateUserParams{
		Username:          "revendedor1",
		Name:              "Reseller One",
		Role:              models.RoleReseller,
		CommissionPercent: decimal.RequireFromString("2"),
		UsesLogistics:     true,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	rem := testRemittance("REM-AAAA0001")
	rem.ResellerId = reseller.Id
	rem.PlatformFee = decimal.RequireFromString("2")

	// With logistics, the reseller owes the amount plus the platform fee.
	if _, err := service.CreateRemittance(ctx, store.CreateRemittanceParams{
		Remittance: rem,
		AccrueOwed: decimal.RequireFromString("102"),
	}); err != nil {
		t.Fatalf("CreateRemittance failed: %v", err)
	}

	balance, err := service.GetResellerBalance(ctx, reseller.Id)
	if err != nil {
		t.Fatalf("GetResellerBalance failed: %v", err)
	}
	if !balance.Owed.Equal(decimal.RequireFromString("102")) {
		t.Errorf("Expected owed 102, got %s", balance.Owed)
	}
	if balance.RemittanceCount != 1 {
		t.Errorf("Expected 1 remittance, got %d", balance.RemittanceCount)
	}
}

func TestApproveRequest_RecomputesFromSnapshot(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	rem := testRemittance("REM-AAAA0001")
	rem.Status = models.StatusRequested
	rem.IsRequest = true
	created, err := service.CreateRemittance(ctx, store.CreateRemittanceParams{Remittance: rem})
	if err != nil {
		t.Fatalf("CreateRemittance failed: %v", err)
	}

	// Approving with a different amount recomputes against the stored
	// fee snapshot, not the current rule set.
	newAmount := decimal.RequireFromString("200")
	approved, err := service.ApproveRequest(ctx, store.ApproveRequestParams{
		RemittanceId: created.Id,
		AmountSent:   &newAmount,
		ApprovedBy:   "admin1",
	})
	if err != nil {
		t.Fatalf("ApproveRequest failed: %v", err)
	}

	if approved.Status != models.StatusPending {
		t.Errorf("Expected status pendiente, got %s", approved.Status)
	}
	if !approved.AmountSent.Equal(newAmount) {
		t.Errorf("Expected amount_sent 200, got %s", approved.AmountSent)
	}
	if !approved.FeeTotal.Equal(decimal.RequireFromString("10")) {
		t.Errorf("Expected fee_total 10, got %s", approved.FeeTotal)
	}
	if !approved.AmountDelivery.Equal(decimal.RequireFromString("190")) {
		t.Errorf("Expected amount_delivery 190, got %s", approved.AmountDelivery)
	}
	if !approved.TotalCharged.Equal(decimal.RequireFromString("210")) {
		t.Errorf("Expected total_charged 210, got %s", approved.TotalCharged)
	}
	if approved.ApprovedAt == nil {
		t.Error("Expected approved_at to be set")
	}
}

func TestApproveRequest_WithCourierGoesInTransit(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	courier := createTestCourier(t, service, "carlos")

	rem := testRemittance("REM-AAAA0001")
	rem.Status = models.StatusRequested
	rem.IsRequest = true
	created, err := service.CreateRemittance(ctx, store.CreateRemittanceParams{Remittance: rem})
	if err != nil {
		t.Fatalf("CreateRemittance failed: %v", err)
	}

	approved, err := service.ApproveRequest(ctx, store.ApproveRequestParams{
		RemittanceId: created.Id,
		CourierId:    courier.Id,
		ApprovedBy:   "admin1",
	})
	if err != nil {
		t.Fatalf("ApproveRequest failed: %v", err)
	}
	if approved.Status != models.StatusInTransit {
		t.Errorf("Expected status en_proceso, got %s", approved.Status)
	}
	if approved.CourierId != courier.Id {
		t.Errorf("Expected courier %s, got %s", courier.Id, approved.CourierId)
	}
}

func TestApproveRequest_RejectsNonRequest(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	created, err := service.CreateRemittance(ctx, store.CreateRemittanceParams{Remittance: testRemittance("REM-AAAA0001")})
	if err != nil {
		t.Fatalf("CreateRemittance failed: %v", err)
	}

	_, err = service.ApproveRequest(ctx, store.ApproveRequestParams{RemittanceId: created.Id})
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestMarkDelivered_DebitsCourierCash(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	courier := createTestCourier(t, service, "carlos")

	if _, err := service.AssignCash(ctx, store.CashOpParams{
		CourierId: courier.Id,
		Currency:  models.CurrencyUSD,
		Amount:    decimal.RequireFromString("60"),
	}); err != nil {
		t.Fatalf("AssignCash failed: %v", err)
	}

	rem := testRemittance("REM-AAAA0001")
	rem.Status = models.StatusInTransit
	rem.CourierId = courier.Id
	created, err := service.CreateRemittance(ctx, store.CreateRemittanceParams{Remittance: rem})
	if err != nil {
		t.Fatalf("CreateRemittance failed: %v", err)
	}

	delivered, movement, err := service.MarkDelivered(ctx, store.MarkDeliveredParams{
		RemittanceId: created.Id,
		RecordedBy:   courier.Id,
		Photo:        "entrega.jpg",
	})
	if err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	if delivered.Status != models.StatusDelivered {
		t.Errorf("Expected status entregada, got %s", delivered.Status)
	}
	if delivered.DeliveredAt == nil {
		t.Error("Expected delivered_at to be set")
	}
	if delivered.DeliveryPhoto != "entrega.jpg" {
		t.Errorf("Expected delivery photo stored, got %q", delivered.DeliveryPhoto)
	}
	if movement.Kind != models.MovementDelivery {
		t.Errorf("Expected kind entrega, got %s", movement.Kind)
	}

	// Handing out 100 USD with only 60 on hand: the balance may go
	// negative, the courier simply owes the difference.
	if !movement.BalanceAfter.Equal(decimal.RequireFromString("-40")) {
		t.Errorf("Expected balance_after -40, got %s", movement.BalanceAfter)
	}
}

func TestMarkDelivered_WithoutCourierSkipsDebit(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	// A walk-in pickup at the office: pendiente with no courier. The
	// delivery flips the status but there is no street cash to debit.
	rem := testRemittance("REM-AAAA0001")
	created, err := service.CreateRemittance(ctx, store.CreateRemittanceParams{Remittance: rem})
	if err != nil {
		t.Fatalf("CreateRemittance failed: %v", err)
	}

	delivered, movement, err := service.MarkDelivered(ctx, store.MarkDeliveredParams{RemittanceId: created.Id})
	if err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	if delivered.Status != models.StatusDelivered {
		t.Errorf("Expected entregada, got %s", delivered.Status)
	}
	if delivered.DeliveredAt == nil {
		t.Error("Expected delivered_at to be set")
	}
	if movement != nil {
		t.Errorf("Expected no cash movement without a courier, got %+v", movement)
	}
}

func TestCancelRemittance_TerminalIsFinal(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	created, err := service.CreateRemittance(ctx, store.CreateRemittanceParams{Remittance: testRemittance("REM-AAAA0001")})
	if err != nil {
		t.Fatalf("CreateRemittance failed: %v", err)
	}

	cancelled, err := service.CancelRemittance(ctx, created.Id, "sender changed their mind")
	if err != nil {
		t.Fatalf("CancelRemittance failed: %v", err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Errorf("Expected status cancelada, got %s", cancelled.Status)
	}

	if _, err := service.CancelRemittance(ctx, created.Id, "again"); !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition on double cancel, got %v", err)
	}
	if _, err := service.MarkInTransit(ctx, created.Id); !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition after cancel, got %v", err)
	}
}

func TestUpdateRemittanceFields_TerminalAllowsNotesOnly(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	courier := createTestCourier(t, service, "carlos")

	rem := testRemittance("REM-AAAA0001")
	rem.Status = models.StatusInTransit
	rem.CourierId = courier.Id
	created, err := service.CreateRemittance(ctx, store.CreateRemittanceParams{Remittance: rem})
	if err != nil {
		t.Fatalf("CreateRemittance failed: %v", err)
	}
	if _, _, err := service.MarkDelivered(ctx, store.MarkDeliveredParams{RemittanceId: created.Id, RecordedBy: courier.Id}); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}

	notes := "delivered to the neighbor"
	if err := service.UpdateRemittanceFields(ctx, created.Id, store.RemittanceEdits{Notes: &notes}); err != nil {
		t.Fatalf("Notes-only edit on delivered remittance failed: %v", err)
	}

	name := "Other Name"
	err = service.UpdateRemittanceFields(ctx, created.Id, store.RemittanceEdits{BeneficiaryName: &name})
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("Expected ErrInvalidTransition for non-notes edit, got %v", err)
	}
}

func TestListRemittances_Filters(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	first := testRemittance("REM-AAAA0001")
	second := testRemittance("REM-BBBB0002")
	second.SenderName = "Pedro Gomez"
	second.Status = models.StatusInTransit
	second.CourierId = uuid.New().String()

	for _, rem := range []models.Remittance{first, second} {
		if _, err := service.CreateRemittance(ctx, store.CreateRemittanceParams{Remittance: rem}); err != nil {
			t.Fatalf("CreateRemittance failed: %v", err)
		}
	}

	pending, err := service.ListRemittances(ctx, store.RemittanceFilter{Status: models.StatusPending})
	if err != nil {
		t.Fatalf("ListRemittances failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Code != "REM-AAAA0001" {
		t.Errorf("Expected only REM-AAAA0001 pending, got %d rows", len(pending))
	}

	byName, err := service.ListRemittances(ctx, store.RemittanceFilter{Search: "pedro"})
	if err != nil {
		t.Fatalf("ListRemittances search failed: %v", err)
	}
	if len(byName) != 1 || byName[0].Code != "REM-BBBB0002" {
		t.Errorf("Expected search to find REM-BBBB0002, got %d rows", len(byName))
	}
}

func TestPurgeRemittance_RemovesLinkedRows(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	courier := createTestCourier(t, service, "carlos")

	rem := testRemittance("REM-AAAA0001")
	rem.Status = models.StatusInTransit
	rem.CourierId = courier.Id
	created, err := service.CreateRemittance(ctx, store.CreateRemittanceParams{
		Remittance:      rem,
		RecordFeeIncome: true,
	})
	if err != nil {
		t.Fatalf("CreateRemittance failed: %v", err)
	}
	if _, _, err := service.MarkDelivered(ctx, store.MarkDeliveredParams{RemittanceId: created.Id, RecordedBy: courier.Id}); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}

	if err := service.PurgeRemittance(ctx, "REM-AAAA0001"); err != nil {
		t.Fatalf("PurgeRemittance failed: %v", err)
	}

	if _, err := service.GetRemittanceByCode(ctx, "REM-AAAA0001"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after purge, got %v", err)
	}

	movements, err := service.CashMovements(ctx, courier.Id, 10, 0)
	if err != nil {
		t.Fatalf("CashMovements failed: %v", err)
	}
	if len(movements) != 0 {
		t.Errorf("Expected movements purged, got %d", len(movements))
	}

	entries, err := service.ListJournal(ctx, created.CreatedAt.AddDate(0, 0, -1), created.CreatedAt.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ListJournal failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected journal purged, got %d entries", len(entries))
	}
}
