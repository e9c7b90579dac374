package api

import (
	"net/http"

	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type cashOpBody struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
	Notes    string `json:"notes"`
}

func (h *Handlers) cashOpParams(w http.ResponseWriter, r *http.Request) (store.CashOpParams, bool) {
	var body cashOpBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return store.CashOpParams{}, false
	}
	amount, err := parseDecimal(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal string")
		return store.CashOpParams{}, false
	}
	return store.CashOpParams{
		CourierId:  chi.URLParam(r, "id"),
		Currency:   body.Currency,
		Amount:     amount,
		Notes:      body.Notes,
		RecordedBy: actorId(r),
	}, true
}

// AssignCash hands cash from the admin float to a courier.
func (h *Handlers) AssignCash(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	params, ok := h.cashOpParams(w, r)
	if !ok {
		return
	}
	movement, err := h.store.AssignCash(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewMovementRecord(movement))
}

// WithdrawCash takes cash back from a courier.
func (h *Handlers) WithdrawCash(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	params, ok := h.cashOpParams(w, r)
	if !ok {
		return
	}
	movement, err := h.store.WithdrawCash(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewMovementRecord(movement))
}

// PickupCash records cash a courier collected in the field. Admins and the
// courier themself may record it.
func (h *Handlers) PickupCash(w http.ResponseWriter, r *http.Request) {
	if !h.allowCourierAccess(w, r, chi.URLParam(r, "id")) {
		return
	}
	params, ok := h.cashOpParams(w, r)
	if !ok {
		return
	}
	movement, err := h.store.PickupCash(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewMovementRecord(movement))
}

// ConvertCash sells part of a courier's USD float for CUP at a given rate.
func (h *Handlers) ConvertCash(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	var body struct {
		AmountUSD string `json:"amount_usd"`
		Rate      string `json:"rate"`
		Notes     string `json:"notes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	amount, err := parseDecimal(body.AmountUSD)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount_usd must be a decimal string")
		return
	}
	rate, err := parseDecimal(body.Rate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "rate must be a decimal string")
		return
	}

	movements, err := h.store.ConvertCash(r.Context(), store.ConvertParams{
		CourierId:  chi.URLParam(r, "id"),
		AmountUSD:  amount,
		Rate:       rate,
		Notes:      body.Notes,
		RecordedBy: actorId(r),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	records := make([]models.MovementRecord, 0, len(movements))
	for i := range movements {
		records = append(records, models.NewMovementRecord(&movements[i]))
	}
	writeJSON(w, http.StatusCreated, records)
}

// ReconcileCash recomputes a courier's hot balance from the movement log.
func (h *Handlers) ReconcileCash(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	var body struct {
		Currency string `json:"currency"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	courierId := chi.URLParam(r, "id")
	if err := h.store.ReconcileCashBalance(r.Context(), courierId, body.Currency); err != nil {
		writeServiceError(w, err)
		return
	}
	balance, err := h.store.CashBalance(r.Context(), courierId, body.Currency)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
}

func (h *Handlers) CashBalances(w http.ResponseWriter, r *http.Request) {
	courierId := chi.URLParam(r, "id")
	if !h.allowCourierAccess(w, r, courierId) {
		return
	}
	balances, err := h.store.CashBalances(r.Context(), courierId)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	records := make([]models.BalanceRecord, 0, len(balances))
	for i := range balances {
		records = append(records, models.NewBalanceRecord(&balances[i]))
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handlers) CashMovements(w http.ResponseWriter, r *http.Request) {
	courierId := chi.URLParam(r, "id")
	if !h.allowCourierAccess(w, r, courierId) {
		return
	}
	q := r.URL.Query()
	limit := parseIntDefault(q.Get("limit"), 50)
	offset := 0
	if v := parseIntDefault(q.Get("offset"), 0); v > 0 {
		offset = v
	}

	movements, err := h.store.CashMovements(r.Context(), courierId, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	records := make([]models.MovementRecord, 0, len(movements))
	for i := range movements {
		records = append(records, models.NewMovementRecord(&movements[i]))
	}
	writeJSON(w, http.StatusOK, records)
}

// CashTotals sums all courier cash holdings per currency.
func (h *Handlers) CashTotals(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	totals, err := h.store.CashTotals(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// --- Reseller ledger ---

// allowResellerAccess permits admins and the reseller themself.
func (h *Handlers) allowResellerAccess(w http.ResponseWriter, r *http.Request, resellerId string) bool {
	id := actorId(r)
	if id == "" {
		writeError(w, http.StatusForbidden, "missing "+actorHeader+" header")
		return false
	}
	actor, err := h.store.GetUserById(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return false
	}
	if !actor.Active {
		writeError(w, http.StatusForbidden, "account is disabled")
		return false
	}
	if actor.Role.IsAdmin() || (actor.Role.IsReseller() && actor.Id == resellerId) {
		return true
	}
	writeError(w, http.StatusForbidden, "not allowed for this reseller")
	return false
}

func (h *Handlers) ResellerBalance(w http.ResponseWriter, r *http.Request) {
	resellerId := chi.URLParam(r, "id")
	if !h.allowResellerAccess(w, r, resellerId) {
		return
	}
	balance, err := h.store.GetResellerBalance(r.Context(), resellerId)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reseller_id":      resellerId,
		"owed":             balance.Owed,
		"total_paid":       balance.TotalPaid,
		"total_commission": balance.TotalCommission,
		"remittance_count": balance.RemittanceCount,
		"total_sent":       balance.TotalSent,
	})
}

func (h *Handlers) ListResellerPayments(w http.ResponseWriter, r *http.Request) {
	resellerId := chi.URLParam(r, "id")
	if !h.allowResellerAccess(w, r, resellerId) {
		return
	}
	payments, err := h.store.ListResellerPayments(r.Context(), resellerId)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	records := make([]models.PaymentRecord, 0, len(payments))
	for i := range payments {
		records = append(records, models.NewPaymentRecord(&payments[i]))
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handlers) RecordResellerPayment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	var body struct {
		Amount    string `json:"amount"`
		Method    string `json:"method"`
		Reference string `json:"reference"`
		Notes     string `json:"notes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	amount, err := parseDecimal(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal string")
		return
	}

	payment, err := h.store.RecordResellerPayment(r.Context(), store.ResellerPaymentParams{
		ResellerId: chi.URLParam(r, "id"),
		Amount:     amount,
		Method:     body.Method,
		Reference:  body.Reference,
		Notes:      body.Notes,
		RecordedBy: actorId(r),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewPaymentRecord(payment))
}

func (h *Handlers) ResellerRemittances(w http.ResponseWriter, r *http.Request) {
	resellerId := chi.URLParam(r, "id")
	if !h.allowResellerAccess(w, r, resellerId) {
		return
	}
	status := models.Status(r.URL.Query().Get("status"))
	list, err := h.store.ListResellerRemittances(r.Context(), resellerId, status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, remittanceRecords(list))
}
