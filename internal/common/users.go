package common

import (
	"context"
	"fmt"

	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"go.uber.org/zap"
)

// CourierInfo represents simplified courier information for command-line utilities
type CourierInfo struct {
	Id       string
	Name     string
	Username string
}

// InitializeCouriers retrieves couriers based on an optional username filter.
// If usernameFilter is provided, returns the single matching courier.
// If usernameFilter is empty, returns all active couriers.
func InitializeCouriers(ctx context.Context, dbService store.Store, usernameFilter string, logger *zap.Logger) ([]CourierInfo, error) {
	var couriers []CourierInfo

	if usernameFilter != "" {
		logger.Info("Looking up courier by username", zap.String("username", usernameFilter))
		user, err := dbService.GetUserByUsername(ctx, usernameFilter)
		if err != nil {
			return nil, fmt.Errorf("courier not found: %w", err)
		}
		if !user.Role.IsCourier() {
			return nil, fmt.Errorf("user %s is not a courier", usernameFilter)
		}
		couriers = append(couriers, CourierInfo{
			Id:       user.Id,
			Name:     user.Name,
			Username: user.Username,
		})
	} else {
		allCouriers, err := dbService.ListUsers(ctx, models.RoleCourier)
		if err != nil {
			return nil, fmt.Errorf("failed to get couriers: %w", err)
		}
		for _, u := range allCouriers {
			couriers = append(couriers, CourierInfo{
				Id:       u.Id,
				Name:     u.Name,
				Username: u.Username,
			})
		}
	}

	logger.Info("Retrieved couriers", zap.Int("count", len(couriers)))
	return couriers, nil
}
