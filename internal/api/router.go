package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates the chi router with all API routes mounted.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Public (no actor header).
		r.Route("/public", func(r chi.Router) {
			r.Post("/requests", h.CreateRequest)
			r.Get("/remittances/{code}", h.TrackRemittance)
			r.Get("/remittances", h.SenderHistory)
			r.Get("/rates", h.PublicRates)
			r.Post("/calc", h.Calculate)
		})

		// Remittance lifecycle.
		r.Route("/remittances", func(r chi.Router) {
			r.Post("/", h.CreateRemittance)
			r.Get("/", h.ListRemittances)
			r.Delete("/", h.PurgeRemittances)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetRemittance)
				r.Patch("/", h.UpdateRemittance)
				r.Post("/approve", h.ApproveRequest)
				r.Post("/reject", h.RejectRequest)
				r.Post("/assign", h.AssignCourier)
				r.Post("/transit", h.MarkInTransit)
				r.Post("/deliver", h.MarkDelivered)
				r.Post("/cancel", h.CancelRemittance)
				r.Post("/invoice", h.SetInvoiced)
				r.Delete("/invoice", h.ClearInvoiced)
			})
		})
		r.Get("/requests", h.ListOpenRequests)
		r.Post("/reseller/remittances", h.CreateResellerRemittance)

		// Courier cash ledger.
		r.Route("/couriers/{id}", func(r chi.Router) {
			r.Get("/remittances", h.CourierRemittances)
			r.Get("/cash", h.CashBalances)
			r.Get("/cash/movements", h.CashMovements)
			r.Post("/cash/assign", h.AssignCash)
			r.Post("/cash/withdraw", h.WithdrawCash)
			r.Post("/cash/pickup", h.PickupCash)
			r.Post("/cash/convert", h.ConvertCash)
			r.Post("/cash/reconcile", h.ReconcileCash)
		})
		r.Get("/cash/totals", h.CashTotals)

		// Reseller ledger.
		r.Route("/resellers/{id}", func(r chi.Router) {
			r.Get("/balance", h.ResellerBalance)
			r.Get("/payments", h.ListResellerPayments)
			r.Post("/payments", h.RecordResellerPayment)
			r.Get("/remittances", h.ResellerRemittances)
		})

		// Rates.
		r.Route("/rates", func(r chi.Router) {
			r.Get("/", h.ListRates)
			r.Get("/current", h.CurrentRates)
			r.Put("/{source}", h.SetRate)
			r.Post("/sync", h.SyncRates)
		})

		// Fee rules.
		r.Route("/fee-rules", func(r chi.Router) {
			r.Get("/", h.ListFeeRules)
			r.Post("/", h.CreateFeeRule)
			r.Put("/{id}", h.UpdateFeeRule)
			r.Delete("/{id}", h.DeleteFeeRule)
		})

		// Journal and reports.
		r.Route("/journal", func(r chi.Router) {
			r.Get("/", h.ListJournal)
			r.Post("/", h.AddJournalEntry)
			r.Get("/totals", h.JournalTotals)
		})
		r.Get("/reports/period", h.PeriodReport)
		r.Get("/reports/couriers", h.CourierStats)
		r.Get("/dashboard", h.Dashboard)

		// Users.
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/", h.ListUsers)
			r.Post("/{id}/password", h.SetUserPassword)
			r.Post("/{id}/active", h.SetUserActive)
		})
	})

	return r
}
