package api

import (
	"net/http"
	"time"

	"remesitas-go/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// --- Exchange rates ---

func (h *Handlers) ListRates(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	list, err := h.rates.History(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	records := make([]models.RateRecord, 0, len(list))
	for i := range list {
		records = append(records, models.NewRateRecord(&list[i]))
	}
	writeJSON(w, http.StatusOK, records)
}

// CurrentRates returns only the active rate rows.
func (h *Handlers) CurrentRates(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	list, err := h.rates.History(r.Context(), 100)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	records := make([]models.RateRecord, 0, len(list))
	for i := range list {
		if list[i].Active {
			records = append(records, models.NewRateRecord(&list[i]))
		}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handlers) SetRate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	var body struct {
		Rate string `json:"rate"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rate, err := parseDecimal(body.Rate)
	if err != nil || !rate.IsPositive() {
		writeError(w, http.StatusBadRequest, "rate must be a positive decimal")
		return
	}

	set, err := h.rates.Set(r.Context(), chi.URLParam(r, "source"), rate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewRateRecord(set))
}

// SyncRates runs one scrape cycle on demand and stores any changed rates.
func (h *Handlers) SyncRates(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	if h.fetcher == nil {
		writeError(w, http.StatusNotImplemented, "rate sync is not configured")
		return
	}

	result, err := h.fetcher.Fetch(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	updated := make(map[string]decimal.Decimal, len(result.Rates))
	for symbol, rate := range result.Rates {
		if _, err := h.rates.Set(r.Context(), symbol, rate); err != nil {
			writeServiceError(w, err)
			return
		}
		updated[symbol] = rate
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":     result.Source,
		"fetched_at": result.FetchedAt,
		"rates":      updated,
	})
}

// --- Fee rules ---

type feeRuleBody struct {
	Name    string  `json:"name"`
	Min     string  `json:"range_min"`
	Max     *string `json:"range_max"`
	Percent string  `json:"percent"`
	Fixed   string  `json:"fixed_amount"`
	Active  *bool   `json:"active"`
}

func (b feeRuleBody) toRule(id string) (models.FeeRule, error) {
	rule := models.FeeRule{Id: id, Name: b.Name, Active: true}
	if b.Active != nil {
		rule.Active = *b.Active
	}

	var err error
	if rule.Min, err = decimal.NewFromString(b.Min); err != nil {
		return rule, err
	}
	if b.Max != nil {
		max, err := decimal.NewFromString(*b.Max)
		if err != nil {
			return rule, err
		}
		rule.Max = &max
	}
	if rule.Percent, err = decimal.NewFromString(b.Percent); err != nil {
		return rule, err
	}
	if b.Fixed != "" {
		if rule.Fixed, err = decimal.NewFromString(b.Fixed); err != nil {
			return rule, err
		}
	}
	return rule, nil
}

func (h *Handlers) ListFeeRules(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	rules, err := h.store.ListFeeRules(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	records := make([]models.FeeRuleRecord, 0, len(rules))
	for i := range rules {
		records = append(records, models.NewFeeRuleRecord(&rules[i]))
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handlers) CreateFeeRule(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	var body feeRuleBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rule, err := body.toRule("")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid decimal field: "+err.Error())
		return
	}

	created, err := h.store.CreateFeeRule(r.Context(), rule)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewFeeRuleRecord(created))
}

func (h *Handlers) UpdateFeeRule(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	var body feeRuleBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rule, err := body.toRule(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid decimal field: "+err.Error())
		return
	}

	if err := h.store.UpdateFeeRule(r.Context(), rule); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewFeeRuleRecord(&rule))
}

func (h *Handlers) DeleteFeeRule(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	if err := h.store.DeleteFeeRule(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Accounting journal ---

func (h *Handlers) ListJournal(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	from, to := parseDateRange(r)
	entries, err := h.store.ListJournal(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	records := make([]models.JournalRecord, 0, len(entries))
	for i := range entries {
		records = append(records, models.NewJournalRecord(&entries[i]))
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handlers) AddJournalEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActorRole(w, r, models.RoleAdmin)
	if !ok {
		return
	}
	var body struct {
		Kind         string `json:"kind"`
		Concept      string `json:"concept"`
		Amount       string `json:"amount"`
		RemittanceId string `json:"remittance_id"`
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

	entry, err := h.store.AddJournalEntry(r.Context(), models.JournalEntry{
		Kind:         models.JournalKind(body.Kind),
		Concept:      body.Concept,
		Amount:       amount,
		RemittanceId: body.RemittanceId,
		UserId:       actor.Id,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewJournalRecord(entry))
}

func (h *Handlers) JournalTotals(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	from, to := parseDateRange(r)
	totals, err := h.store.GetJournalTotals(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{
		"income":  totals.Income,
		"expense": totals.Expense,
		"net":     totals.Income.Sub(totals.Expense),
	})
}

// --- Reports ---

func (h *Handlers) PeriodReport(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	from, to := parseDateRange(r)
	report, err := h.store.GetPeriodReport(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) CourierStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	from, to := parseDateRange(r)
	stats, err := h.store.GetCourierStats(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	stats, err := h.store.GetDashboardStats(r.Context(), time.Now().UTC())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
