package api

import (
	"context"
	"fmt"

	"remesitas-go/internal/rates"
	"remesitas-go/internal/remesa"
	"remesitas-go/internal/store"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	store   store.Store
	remesas *remesa.Service
	rates   *rates.Provider
	fetcher *rates.ExternalFetcher // nil disables /rates/sync
}

func NewHandlers(st store.Store, remesas *remesa.Service, provider *rates.Provider, fetcher *rates.ExternalFetcher) *Handlers {
	return &Handlers{
		store:   st,
		remesas: remesas,
		rates:   provider,
		fetcher: fetcher,
	}
}

// HealthCheck verifies the database responds.
func (h *Handlers) HealthCheck(ctx context.Context) error {
	if _, err := h.store.ListRates(ctx, 1); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
