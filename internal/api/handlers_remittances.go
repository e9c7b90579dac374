package api

import (
	"net/http"
	"strconv"
	"strings"

	"remesitas-go/internal/models"
	"remesitas-go/internal/rates"
	"remesitas-go/internal/remesa"
	"remesitas-go/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func remittanceRecords(list []models.Remittance) []models.RemittanceRecord {
	records := make([]models.RemittanceRecord, 0, len(list))
	for i := range list {
		records = append(records, models.NewRemittanceRecord(&list[i]))
	}
	return records
}

func trackingRecords(list []models.Remittance) []models.TrackingRecord {
	records := make([]models.TrackingRecord, 0, len(list))
	for i := range list {
		records = append(records, models.NewTrackingRecord(&list[i]))
	}
	return records
}

// --- Public endpoints ---

type publicRequestBody struct {
	SenderName         string `json:"sender_name"`
	SenderPhone        string `json:"sender_phone"`
	BeneficiaryName    string `json:"beneficiary_name"`
	BeneficiaryPhone   string `json:"beneficiary_phone"`
	BeneficiaryAddress string `json:"beneficiary_address"`
	DeliveryType       string `json:"delivery_type"`
	Amount             string `json:"amount"`
	Notes              string `json:"notes"`
}

// CreateRequest records an unauthenticated remittance request (solicitud).
func (h *Handlers) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body publicRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	amount, err := parseDecimal(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal string")
		return
	}

	created, err := h.remesas.CreateRequest(r.Context(), remesa.RequestParams{
		PartyDetails: remesa.PartyDetails{
			SenderName:         body.SenderName,
			SenderPhone:        body.SenderPhone,
			BeneficiaryName:    body.BeneficiaryName,
			BeneficiaryPhone:   body.BeneficiaryPhone,
			BeneficiaryAddress: body.BeneficiaryAddress,
		},
		DeliveryType: models.DeliveryType(body.DeliveryType),
		Amount:       amount,
		Notes:        body.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewRemittanceRecord(created))
}

// TrackRemittance exposes a reduced view of a remittance by its public code.
func (h *Handlers) TrackRemittance(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	rem, err := h.store.GetRemittanceByCode(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewTrackingRecord(rem))
}

// SenderHistory lists a sender's remittances by phone number.
func (h *Handlers) SenderHistory(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone query parameter is required")
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), 20)
	list, err := h.store.ListRemittancesBySenderPhone(r.Context(), phone, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trackingRecords(list))
}

// PublicRates returns the current rate per tracked currency. Currencies
// without a stored or fallback rate are omitted.
func (h *Handlers) PublicRates(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]decimal.Decimal)
	for _, symbol := range []string{rates.SymbolUSD, rates.SymbolEUR, rates.SymbolMLC} {
		rate, err := h.rates.Current(r.Context(), symbol)
		if err != nil {
			continue
		}
		out[symbol] = rate
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Admin remittance lifecycle ---

type createRemittanceBody struct {
	publicRequestBody
	Rate      string `json:"rate"` // optional override for MN deliveries
	CourierId string `json:"courier_id"`
}

func (h *Handlers) CreateRemittance(w http.ResponseWriter, r *http.Request) {
	var body createRemittanceBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	amount, err := parseDecimal(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal string")
		return
	}

	params := remesa.AdminCreateParams{
		PartyDetails: remesa.PartyDetails{
			SenderName:         body.SenderName,
			SenderPhone:        body.SenderPhone,
			BeneficiaryName:    body.BeneficiaryName,
			BeneficiaryPhone:   body.BeneficiaryPhone,
			BeneficiaryAddress: body.BeneficiaryAddress,
		},
		DeliveryType: models.DeliveryType(body.DeliveryType),
		Amount:       amount,
		CourierId:    body.CourierId,
		Notes:        body.Notes,
		ActorId:      actorId(r),
	}
	if body.Rate != "" {
		rate, err := decimal.NewFromString(body.Rate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "rate must be a decimal string")
			return
		}
		params.RateOverride = &rate
	}

	created, err := h.remesas.CreateByAdmin(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewRemittanceRecord(created))
}

func (h *Handlers) ListRemittances(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}

	q := r.URL.Query()
	filter := store.RemittanceFilter{
		Status: models.Status(q.Get("status")),
		Search: q.Get("search"),
		Limit:  parseIntDefault(q.Get("limit"), 100),
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		filter.Offset = v
	}
	if v := q.Get("invoiced"); v != "" {
		invoiced := v == "true" || v == "1"
		filter.Invoiced = &invoiced
	}

	list, err := h.store.ListRemittances(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, remittanceRecords(list))
}

func (h *Handlers) GetRemittance(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	rem, err := h.store.GetRemittanceById(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewRemittanceRecord(rem))
}

type updateRemittanceBody struct {
	SenderName         *string `json:"sender_name"`
	SenderPhone        *string `json:"sender_phone"`
	BeneficiaryName    *string `json:"beneficiary_name"`
	BeneficiaryPhone   *string `json:"beneficiary_phone"`
	BeneficiaryAddress *string `json:"beneficiary_address"`
	Notes              *string `json:"notes"`
}

func (h *Handlers) UpdateRemittance(w http.ResponseWriter, r *http.Request) {
	var body updateRemittanceBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	err := h.remesas.Update(r.Context(), actorId(r), id, store.RemittanceEdits{
		SenderName:         body.SenderName,
		SenderPhone:        body.SenderPhone,
		BeneficiaryName:    body.BeneficiaryName,
		BeneficiaryPhone:   body.BeneficiaryPhone,
		BeneficiaryAddress: body.BeneficiaryAddress,
		Notes:              body.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	rem, err := h.store.GetRemittanceById(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewRemittanceRecord(rem))
}

type approveRequestBody struct {
	AmountSent         string  `json:"amount_sent"`
	AmountDelivery     string  `json:"amount_delivery"`
	BeneficiaryAddress *string `json:"beneficiary_address"`
	CourierId          string  `json:"courier_id"`
}

func (h *Handlers) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	var body approveRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	params := store.ApproveRequestParams{
		RemittanceId:       chi.URLParam(r, "id"),
		BeneficiaryAddress: body.BeneficiaryAddress,
		CourierId:          body.CourierId,
		ApprovedBy:         actorId(r),
	}
	if body.AmountSent != "" {
		amount, err := decimal.NewFromString(body.AmountSent)
		if err != nil {
			writeError(w, http.StatusBadRequest, "amount_sent must be a decimal string")
			return
		}
		params.AmountSent = &amount
	}
	if body.AmountDelivery != "" {
		amount, err := decimal.NewFromString(body.AmountDelivery)
		if err != nil {
			writeError(w, http.StatusBadRequest, "amount_delivery must be a decimal string")
			return
		}
		params.AmountDelivery = &amount
	}

	rem, err := h.remesas.Approve(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewRemittanceRecord(rem))
}

type reasonBody struct {
	Reason string `json:"reason"`
}

func (h *Handlers) RejectRequest(w http.ResponseWriter, r *http.Request) {
	var body reasonBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rem, err := h.remesas.Reject(r.Context(), actorId(r), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewRemittanceRecord(rem))
}

func (h *Handlers) AssignCourier(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CourierId string `json:"courier_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rem, err := h.remesas.AssignCourier(r.Context(), actorId(r), chi.URLParam(r, "id"), body.CourierId)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewRemittanceRecord(rem))
}

func (h *Handlers) MarkInTransit(w http.ResponseWriter, r *http.Request) {
	rem, err := h.remesas.MarkInTransit(r.Context(), actorId(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewRemittanceRecord(rem))
}

func (h *Handlers) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Photo string `json:"photo"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rem, movement, err := h.remesas.MarkDelivered(r.Context(), store.MarkDeliveredParams{
		RemittanceId: chi.URLParam(r, "id"),
		RecordedBy:   actorId(r),
		Photo:        body.Photo,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := map[string]any{"remittance": models.NewRemittanceRecord(rem)}
	if movement != nil {
		resp["cash_movement"] = models.NewMovementRecord(movement)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) CancelRemittance(w http.ResponseWriter, r *http.Request) {
	var body reasonBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rem, err := h.remesas.Cancel(r.Context(), actorId(r), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewRemittanceRecord(rem))
}

func (h *Handlers) SetInvoiced(w http.ResponseWriter, r *http.Request) {
	h.setInvoiced(w, r, true)
}

func (h *Handlers) ClearInvoiced(w http.ResponseWriter, r *http.Request) {
	h.setInvoiced(w, r, false)
}

func (h *Handlers) setInvoiced(w http.ResponseWriter, r *http.Request, invoiced bool) {
	id := chi.URLParam(r, "id")
	if err := h.remesas.SetInvoiced(r.Context(), actorId(r), id, invoiced); err != nil {
		writeServiceError(w, err)
		return
	}
	rem, err := h.store.GetRemittanceById(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewRemittanceRecord(rem))
}

// PurgeRemittances permanently removes remittances and their journal and
// movement rows by code.
func (h *Handlers) PurgeRemittances(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Codes []string `json:"codes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(body.Codes) == 0 {
		writeError(w, http.StatusBadRequest, "codes must not be empty")
		return
	}
	if err := h.remesas.Purge(r.Context(), actorId(r), body.Codes); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"purged": len(body.Codes)})
}

func (h *Handlers) ListOpenRequests(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	list, err := h.store.ListOpenRequests(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, remittanceRecords(list))
}

// CreateResellerRemittance creates a confirmed remittance on the acting
// reseller's account, accruing their owed balance.
func (h *Handlers) CreateResellerRemittance(w http.ResponseWriter, r *http.Request) {
	var body publicRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	amount, err := parseDecimal(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal string")
		return
	}

	created, err := h.remesas.CreateByReseller(r.Context(), remesa.ResellerCreateParams{
		PartyDetails: remesa.PartyDetails{
			SenderName:         body.SenderName,
			SenderPhone:        body.SenderPhone,
			BeneficiaryName:    body.BeneficiaryName,
			BeneficiaryPhone:   body.BeneficiaryPhone,
			BeneficiaryAddress: body.BeneficiaryAddress,
		},
		DeliveryType: models.DeliveryType(body.DeliveryType),
		Amount:       amount,
		Notes:        body.Notes,
		ActorId:      actorId(r),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewRemittanceRecord(created))
}

// CourierRemittances lists the remittances assigned to a courier. Admins
// may query any courier; couriers only their own.
func (h *Handlers) CourierRemittances(w http.ResponseWriter, r *http.Request) {
	courierId := chi.URLParam(r, "id")
	if !h.allowCourierAccess(w, r, courierId) {
		return
	}

	var statuses []models.Status
	if raw := r.URL.Query().Get("statuses"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, models.Status(strings.TrimSpace(s)))
		}
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), 100)

	list, err := h.store.ListCourierRemittances(r.Context(), courierId, statuses, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, remittanceRecords(list))
}

// allowCourierAccess permits admins and the courier themself.
func (h *Handlers) allowCourierAccess(w http.ResponseWriter, r *http.Request, courierId string) bool {
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
	if actor.Role.IsAdmin() || (actor.Role.IsCourier() && actor.Id == courierId) {
		return true
	}
	writeError(w, http.StatusForbidden, "not allowed for this courier")
	return false
}
