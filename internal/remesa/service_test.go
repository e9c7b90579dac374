package remesa

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"remesitas-go/internal/common"
	"remesitas-go/internal/database"
	"remesitas-go/internal/fees"
	"remesitas-go/internal/models"
	"remesitas-go/internal/notify"
	"remesitas-go/internal/rates"
	"remesitas-go/internal/store"

	"github.com/shopspring/decimal"
)

type testFixture struct {
	service  *Service
	store    store.Store
	admin    *models.User
	courier  *models.User
	reseller *models.User
}

func newTestFixture(t *testing.T) *testFixture {
	ctx := context.Background()

	// Single connection keeps every statement on the same in-memory
	// database.
	dbService, err := database.NewService(ctx, models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(dbService.Close)

	// Tiered 5% rule for the admin path.
	if _, err := dbService.CreateFeeRule(ctx, models.FeeRule{
		Name:    "standard",
		Min:     decimal.Zero,
		Percent: decimal.RequireFromString("5"),
		Active:  true,
	}); err != nil {
		t.Fatalf("Failed to create fee rule: %v", err)
	}
	if _, err := dbService.SetRate(ctx, models.CurrencyUSD, decimal.RequireFromString("435")); err != nil {
		t.Fatalf("Failed to set rate: %v", err)
	}

	currencies := []common.Currency{{
		Symbol:   models.CurrencyUSD,
		Fallback: decimal.RequireFromString("435"),
		MinRate:  decimal.RequireFromString("300"),
		MaxRate:  decimal.RequireFromString("600"),
	}}
	provider := rates.NewProvider(dbService, currencies)
	calculator := fees.NewCalculator(dbService)
	notifier := notify.NewService(models.NotifyConfig{}) // manual links only

	f := &testFixture{
		service: NewService(dbService, calculator, provider, notifier),
		store:   dbService,
	}

	f.admin = f.createUser(t, dbService, "admin1", models.RoleAdmin, "0", false)
	f.courier = f.createUser(t, dbService, "carlos", models.RoleCourier, "0", false)
	f.reseller = f.createUser(t, dbService, "revendedor1", models.RoleReseller, "2", true)
	return f
}

func (f *testFixture) createUser(t *testing.T, st store.Store, username string, role models.Role, commission string, logistics bool) *models.User {
	user, err := st.CreateUser(context.Background(), store.CreateUserParams{
		Username:          username,
		Name:              "User " + username,
		Phone:             "+5355500001",
		Role:              role,
		CommissionPercent: decimal.RequireFromString(commission),
		UsesLogistics:     logistics,
	})
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return user
}

func testParties() PartyDetails {
	return PartyDetails{
		SenderName:       "John Doe",
		SenderPhone:      "+13055550100",
		BeneficiaryName:  "Ana Perez",
		BeneficiaryPhone: "+5355500002",
	}
}

func TestCreateByAdmin_USDSnapshotsTieredFee(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	rem, err := f.service.CreateByAdmin(ctx, AdminCreateParams{
		PartyDetails: testParties(),
		DeliveryType: models.DeliveryUSD,
		Amount:       decimal.RequireFromString("100"),
		ActorId:      f.admin.Id,
	})
	if err != nil {
		t.Fatalf("CreateByAdmin failed: %v", err)
	}

	if !rem.FeeTotal.Equal(decimal.RequireFromString("5")) {
		t.Errorf("Expected fee 5, got %s", rem.FeeTotal)
	}
	if !rem.AmountDelivery.Equal(decimal.RequireFromString("100")) {
		t.Errorf("Expected delivery 100 USD, got %s", rem.AmountDelivery)
	}
	if !rem.TotalCharged.Equal(decimal.RequireFromString("105")) {
		t.Errorf("Expected total 105, got %s", rem.TotalCharged)
	}
	if rem.Status != models.StatusPending {
		t.Errorf("Expected status pendiente, got %s", rem.Status)
	}
	if rem.CreatedBy != f.admin.Id {
		t.Errorf("Expected created_by %s, got %s", f.admin.Id, rem.CreatedBy)
	}
}

func TestCreateByAdmin_MNUsesMarketRate(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	rem, err := f.service.CreateByAdmin(ctx, AdminCreateParams{
		PartyDetails: testParties(),
		DeliveryType: models.DeliveryLocal,
		Amount:       decimal.RequireFromString("50"),
		ActorId:      f.admin.Id,
	})
	if err != nil {
		t.Fatalf("CreateByAdmin failed: %v", err)
	}

	if !rem.Rate.Equal(decimal.RequireFromString("435")) {
		t.Errorf("Expected rate 435, got %s", rem.Rate)
	}
	if !rem.AmountDelivery.Equal(decimal.RequireFromString("21750")) {
		t.Errorf("Expected delivery 21750 CUP, got %s", rem.AmountDelivery)
	}
	if rem.DeliveryCurrency != models.CurrencyCUP {
		t.Errorf("Expected CUP, got %s", rem.DeliveryCurrency)
	}
}

func TestCreateByAdmin_CourierAssignmentSkipsPending(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	rem, err := f.service.CreateByAdmin(ctx, AdminCreateParams{
		PartyDetails: testParties(),
		DeliveryType: models.DeliveryUSD,
		Amount:       decimal.RequireFromString("100"),
		CourierId:    f.courier.Id,
		ActorId:      f.admin.Id,
	})
	if err != nil {
		t.Fatalf("CreateByAdmin failed: %v", err)
	}
	if rem.Status != models.StatusInTransit {
		t.Errorf("Expected status en_proceso with courier, got %s", rem.Status)
	}
}

func TestCreateByAdmin_RequiresAdminRole(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateByAdmin(ctx, AdminCreateParams{
		PartyDetails: testParties(),
		DeliveryType: models.DeliveryUSD,
		Amount:       decimal.RequireFromString("100"),
		ActorId:      f.courier.Id,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("Expected ErrForbidden for courier actor, got %v", err)
	}
}

func TestCreateRequest_USDFlatFivePercent(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	rem, err := f.service.CreateRequest(ctx, RequestParams{
		PartyDetails: testParties(),
		DeliveryType: models.DeliveryUSD,
		Amount:       decimal.RequireFromString("100"),
	})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	if rem.Status != models.StatusRequested || !rem.IsRequest {
		t.Errorf("Expected solicitud request, got status=%s is_request=%t", rem.Status, rem.IsRequest)
	}
	if !rem.FeeTotal.Equal(decimal.RequireFromString("5")) {
		t.Errorf("Expected fee 5, got %s", rem.FeeTotal)
	}
	if !rem.AmountDelivery.Equal(decimal.RequireFromString("95")) {
		t.Errorf("Expected delivery 95 USD (amount minus fee), got %s", rem.AmountDelivery)
	}
	if !rem.TotalCharged.Equal(decimal.RequireFromString("105")) {
		t.Errorf("Expected total 105, got %s", rem.TotalCharged)
	}
}

func TestCreateRequest_MNStreetDiscount(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	rem, err := f.service.CreateRequest(ctx, RequestParams{
		PartyDetails: testParties(),
		DeliveryType: models.DeliveryLocal,
		Amount:       decimal.RequireFromString("50"),
	})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	// Market 435 minus the 15 CUP street discount.
	if !rem.Rate.Equal(decimal.RequireFromString("420")) {
		t.Errorf("Expected rate 420, got %s", rem.Rate)
	}
	if !rem.AmountDelivery.Equal(decimal.RequireFromString("21000")) {
		t.Errorf("Expected delivery 21000 CUP, got %s", rem.AmountDelivery)
	}
	if !rem.FeeTotal.Equal(decimal.Zero) {
		t.Errorf("Expected fee_total 0 (margin lives in the rate), got %s", rem.FeeTotal)
	}
	if !rem.FeeFixed.Equal(decimal.RequireFromString("15")) {
		t.Errorf("Expected fee_fixed to record the 15 CUP discount, got %s", rem.FeeFixed)
	}
	if !rem.TotalCharged.Equal(decimal.RequireFromString("50")) {
		t.Errorf("Expected total equal to amount, got %s", rem.TotalCharged)
	}
}

func TestCreateRequest_RequiresSenderPhone(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	parties := testParties()
	parties.SenderPhone = ""
	_, err := f.service.CreateRequest(ctx, RequestParams{
		PartyDetails: parties,
		DeliveryType: models.DeliveryUSD,
		Amount:       decimal.RequireFromString("100"),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("Expected ErrValidation without sender phone, got %v", err)
	}
}

func TestCreateByReseller_AccruesCommissionAndPrincipal(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	rem, err := f.service.CreateByReseller(ctx, ResellerCreateParams{
		PartyDetails: testParties(),
		DeliveryType: models.DeliveryUSD,
		Amount:       decimal.RequireFromString("100"),
		ActorId:      f.reseller.Id,
	})
	if err != nil {
		t.Fatalf("CreateByReseller failed: %v", err)
	}

	if !rem.PlatformFee.Equal(decimal.RequireFromString("2")) {
		t.Errorf("Expected platform fee 2 (2%% of 100), got %s", rem.PlatformFee)
	}
	if !rem.TotalCharged.Equal(decimal.RequireFromString("100")) {
		t.Errorf("Expected total charged 100, got %s", rem.TotalCharged)
	}
	if rem.ResellerId != f.reseller.Id {
		t.Errorf("Expected reseller id on remittance")
	}

	// With logistics the reseller owes principal plus commission.
	balance, err := f.store.GetResellerBalance(ctx, f.reseller.Id)
	if err != nil {
		t.Fatalf("GetResellerBalance failed: %v", err)
	}
	if !balance.Owed.Equal(decimal.RequireFromString("102")) {
		t.Errorf("Expected owed 102, got %s", balance.Owed)
	}
}

func TestLifecycle_RequestToDelivered(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	request, err := f.service.CreateRequest(ctx, RequestParams{
		PartyDetails: testParties(),
		DeliveryType: models.DeliveryUSD,
		Amount:       decimal.RequireFromString("100"),
	})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	approved, err := f.service.Approve(ctx, store.ApproveRequestParams{
		RemittanceId: request.Id,
		ApprovedBy:   f.admin.Id,
	})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != models.StatusPending {
		t.Fatalf("Expected pendiente after approval, got %s", approved.Status)
	}

	if _, err := f.service.AssignCourier(ctx, f.admin.Id, request.Id, f.courier.Id); err != nil {
		t.Fatalf("AssignCourier failed: %v", err)
	}

	delivered, movement, err := f.service.MarkDelivered(ctx, store.MarkDeliveredParams{
		RemittanceId: request.Id,
		RecordedBy:   f.courier.Id,
	})
	if err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	if delivered.Status != models.StatusDelivered {
		t.Errorf("Expected entregada, got %s", delivered.Status)
	}
	if !movement.Amount.Equal(decimal.RequireFromString("-95")) {
		t.Errorf("Expected courier debit of 95 USD, got %s", movement.Amount)
	}
}

func TestMarkInTransit_OtherCourierForbidden(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()
	other := f.createUser(t, f.store, "maria", models.RoleCourier, "0", false)

	rem, err := f.service.CreateByAdmin(ctx, AdminCreateParams{
		PartyDetails: testParties(),
		DeliveryType: models.DeliveryUSD,
		Amount:       decimal.RequireFromString("100"),
		ActorId:      f.admin.Id,
	})
	if err != nil {
		t.Fatalf("CreateByAdmin failed: %v", err)
	}
	if _, err := f.service.AssignCourier(ctx, f.admin.Id, rem.Id, f.courier.Id); err != nil {
		t.Fatalf("AssignCourier failed: %v", err)
	}

	// The remittance is already en_proceso after assignment; delivery by
	// the wrong courier must be rejected before any state change.
	_, _, err = f.service.MarkDelivered(ctx, store.MarkDeliveredParams{
		RemittanceId: rem.Id,
		RecordedBy:   other.Id,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("Expected ErrForbidden for other courier, got %v", err)
	}
}

func TestAssignCourier_RejectsNonCourier(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	rem, err := f.service.CreateByAdmin(ctx, AdminCreateParams{
		PartyDetails: testParties(),
		DeliveryType: models.DeliveryUSD,
		Amount:       decimal.RequireFromString("100"),
		ActorId:      f.admin.Id,
	})
	if err != nil {
		t.Fatalf("CreateByAdmin failed: %v", err)
	}

	_, err = f.service.AssignCourier(ctx, f.admin.Id, rem.Id, f.reseller.Id)
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("Expected ErrValidation for non-courier target, got %v", err)
	}
}

func TestQuoteFor_MatchesCreationPaths(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	public, err := f.service.QuoteFor(ctx, decimal.RequireFromString("100"), models.DeliveryUSD, true)
	if err != nil {
		t.Fatalf("QuoteFor public failed: %v", err)
	}
	if !public.AmountDelivery.Equal(decimal.RequireFromString("95")) {
		t.Errorf("Expected public delivery 95, got %s", public.AmountDelivery)
	}

	admin, err := f.service.QuoteFor(ctx, decimal.RequireFromString("100"), models.DeliveryUSD, false)
	if err != nil {
		t.Fatalf("QuoteFor admin failed: %v", err)
	}
	if !admin.AmountDelivery.Equal(decimal.RequireFromString("100")) {
		t.Errorf("Expected admin delivery 100, got %s", admin.AmountDelivery)
	}
	if !admin.TotalCharged.Equal(decimal.RequireFromString("105")) {
		t.Errorf("Expected admin total 105, got %s", admin.TotalCharged)
	}
}

// collisionStore reports a duplicate tracking code for the first
// `remaining` creates, then delegates to the real store.
type collisionStore struct {
	store.Store
	remaining int
	seen      []string
}

func (c *collisionStore) CreateRemittance(ctx context.Context, params store.CreateRemittanceParams) (*models.Remittance, error) {
	c.seen = append(c.seen, params.Remittance.Code)
	if c.remaining > 0 {
		c.remaining--
		return nil, fmt.Errorf("%w: code %s already exists", store.ErrDuplicateCode, params.Remittance.Code)
	}
	return c.Store.CreateRemittance(ctx, params)
}

func (f *testFixture) withCollisions(remaining int) (*Service, *collisionStore) {
	cs := &collisionStore{Store: f.store, remaining: remaining}
	currencies := []common.Currency{{
		Symbol:   models.CurrencyUSD,
		Fallback: decimal.RequireFromString("435"),
		MinRate:  decimal.RequireFromString("300"),
		MaxRate:  decimal.RequireFromString("600"),
	}}
	service := NewService(cs, fees.NewCalculator(cs), rates.NewProvider(cs, currencies), notify.NewService(models.NotifyConfig{}))
	return service, cs
}

func TestCreateByAdmin_RetriesOnCodeCollision(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()
	service, cs := f.withCollisions(2)

	rem, err := service.CreateByAdmin(ctx, AdminCreateParams{
		PartyDetails: testParties(),
		DeliveryType: models.DeliveryUSD,
		Amount:       decimal.RequireFromString("100"),
		ActorId:      f.admin.Id,
	})
	if err != nil {
		t.Fatalf("CreateByAdmin failed after collisions: %v", err)
	}

	if len(cs.seen) != 3 {
		t.Fatalf("Expected 3 create attempts, got %d", len(cs.seen))
	}
	if cs.seen[0] == cs.seen[1] || cs.seen[1] == cs.seen[2] {
		t.Error("Expected a fresh code on each retry")
	}
	if rem.Code != cs.seen[2] {
		t.Errorf("Expected persisted code %s, got %s", cs.seen[2], rem.Code)
	}
}

func TestCreateByAdmin_CollisionRetriesExhausted(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()
	service, cs := f.withCollisions(3)

	_, err := service.CreateByAdmin(ctx, AdminCreateParams{
		PartyDetails: testParties(),
		DeliveryType: models.DeliveryUSD,
		Amount:       decimal.RequireFromString("100"),
		ActorId:      f.admin.Id,
	})
	if !errors.Is(err, store.ErrDuplicateCode) {
		t.Fatalf("Expected ErrDuplicateCode after exhausted retries, got %v", err)
	}
	if len(cs.seen) != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", len(cs.seen))
	}
}

func TestNewCode_Format(t *testing.T) {
	code := NewCode()
	if len(code) != 12 || code[:4] != "REM-" {
		t.Errorf("Unexpected code format: %s", code)
	}
	if code == NewCode() {
		t.Error("Expected unique codes")
	}
}
