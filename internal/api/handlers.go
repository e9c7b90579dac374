package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"remesitas-go/internal/models"
	"remesitas-go/internal/remesa"
	"remesitas-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// actorHeader carries the acting user's id. Authentication itself happens
// upstream; handlers only resolve and authorize the role.
const actorHeader = "X-Actor-Id"

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps sentinel errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrDuplicateCode), errors.Is(err, store.ErrDuplicateUsername):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, remesa.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		zap.L().Error("Unhandled service error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func actorId(r *http.Request) string {
	return r.Header.Get(actorHeader)
}

// requireActorRole resolves the actor header and checks the role.
func (h *Handlers) requireActorRole(w http.ResponseWriter, r *http.Request, role models.Role) (*models.User, bool) {
	id := actorId(r)
	if id == "" {
		writeError(w, http.StatusForbidden, "missing "+actorHeader+" header")
		return nil, false
	}
	actor, err := h.store.GetUserById(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	if !actor.Active || actor.Role != role {
		writeError(w, http.StatusForbidden, "requires active "+string(role)+" role")
		return nil, false
	}
	return actor, true
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, errors.New("missing amount")
	}
	return decimal.NewFromString(s)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// parseDateRange reads from/to query params (YYYY-MM-DD or RFC3339).
// from defaults to 30 days ago, to defaults to tomorrow.
func parseDateRange(r *http.Request) (time.Time, time.Time) {
	parse := func(s string, def time.Time) time.Time {
		if s == "" {
			return def
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t
		}
		return def
	}

	now := time.Now().UTC()
	from := parse(r.URL.Query().Get("from"), now.AddDate(0, 0, -30))
	to := parse(r.URL.Query().Get("to"), now.AddDate(0, 0, 1))
	return from, to
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.HealthCheck(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Calculate ---

type calcRequest struct {
	Amount       string `json:"amount"`
	DeliveryType string `json:"delivery_type"`
	Channel      string `json:"channel"` // "admin" or "public"
}

type calcResponse struct {
	AmountSent     decimal.Decimal `json:"amount_sent"`
	Rate           decimal.Decimal `json:"rate"`
	AmountDelivery decimal.Decimal `json:"amount_delivery"`
	Currency       string          `json:"currency"`
	FeePercent     decimal.Decimal `json:"fee_percent"`
	FeeTotal       decimal.Decimal `json:"fee_total"`
	TotalCharged   decimal.Decimal `json:"total_charged"`
}

// Calculate quotes a remittance without creating it, using the same fee
// and rate logic as the creation paths.
func (h *Handlers) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calcRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	amount, err := parseDecimal(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be a positive decimal")
		return
	}

	deliveryType := models.DeliveryType(req.DeliveryType)
	if !deliveryType.Valid() {
		writeError(w, http.StatusBadRequest, "delivery_type must be MN or USD")
		return
	}

	quote, err := h.remesas.QuoteFor(r.Context(), amount, deliveryType, req.Channel == "public")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, calcResponse{
		AmountSent:     amount,
		Rate:           quote.Rate,
		AmountDelivery: quote.AmountDelivery,
		Currency:       deliveryType.Currency(),
		FeePercent:     quote.FeePercent,
		FeeTotal:       quote.FeeTotal,
		TotalCharged:   quote.TotalCharged,
	})
}
