package api

import (
	"net/http"

	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	var body struct {
		Username          string `json:"username"`
		Password          string `json:"password"`
		Name              string `json:"name"`
		Phone             string `json:"phone"`
		Role              string `json:"role"`
		CommissionPercent string `json:"commission_percent"`
		UsesLogistics     bool   `json:"uses_logistics"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	params := store.CreateUserParams{
		Username:      body.Username,
		Password:      body.Password,
		Name:          body.Name,
		Phone:         body.Phone,
		Role:          models.Role(body.Role),
		UsesLogistics: body.UsesLogistics,
	}
	if body.CommissionPercent != "" {
		pct, err := decimal.NewFromString(body.CommissionPercent)
		if err != nil {
			writeError(w, http.StatusBadRequest, "commission_percent must be a decimal string")
			return
		}
		params.CommissionPercent = pct
	}

	user, err := h.store.CreateUser(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewUserRecord(user))
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	role := models.Role(r.URL.Query().Get("role"))
	users, err := h.store.ListUsers(r.Context(), role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	records := make([]models.UserRecord, 0, len(users))
	for i := range users {
		records = append(records, models.NewUserRecord(&users[i]))
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handlers) SetUserPassword(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	var body struct {
		Password   string `json:"password"`
		MustChange bool   `json:"must_change"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.Password == "" {
		writeError(w, http.StatusBadRequest, "password must not be empty")
		return
	}
	if err := h.store.SetUserPassword(r.Context(), chi.URLParam(r, "id"), body.Password, body.MustChange); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SetUserActive(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActorRole(w, r, models.RoleAdmin); !ok {
		return
	}
	var body struct {
		Active bool `json:"active"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.store.SetUserActive(r.Context(), chi.URLParam(r, "id"), body.Active); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
