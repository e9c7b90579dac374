package main

import (
	"context"
	"flag"
	"fmt"
	"regexp"
	"strings"

	"remesitas-go/internal/common"
	"remesitas-go/internal/config"
	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9._\-]{3,32}$`)

func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("invalid username format: %s (lowercase letters, digits, . _ -)", username)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func validateRole(role string) error {
	if !models.Role(role).Valid() {
		return fmt.Errorf("invalid role %q (want admin, repartidor or revendedor)", role)
	}
	return nil
}

func main() {
	usernameFlag := flag.String("username", "", "Login username (required)")
	nameFlag := flag.String("name", "", "Display name (required)")
	phoneFlag := flag.String("phone", "", "Phone number with country prefix, e.g. +5355512345")
	roleFlag := flag.String("role", "repartidor", "Role: admin, repartidor or revendedor")
	passwordFlag := flag.String("password", "", "Initial password (optional; empty disables login)")
	commissionFlag := flag.String("commission", "0", "Commission percent (resellers only)")
	logisticsFlag := flag.Bool("logistics", false, "Reseller uses our delivery logistics")
	flag.Parse()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if err := validateUsername(*usernameFlag); err != nil {
		logger.Fatal("Invalid username", zap.Error(err))
	}
	if err := validateName(*nameFlag); err != nil {
		logger.Fatal("Invalid name", zap.Error(err))
	}
	if err := validateRole(*roleFlag); err != nil {
		logger.Fatal("Invalid role", zap.Error(err))
	}

	commission, err := decimal.NewFromString(strings.TrimSpace(*commissionFlag))
	if err != nil || commission.IsNegative() {
		logger.Fatal("Invalid commission percent", zap.String("value", *commissionFlag))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	user, err := dbService.CreateUser(ctx, store.CreateUserParams{
		Username:          *usernameFlag,
		Password:          *passwordFlag,
		Name:              *nameFlag,
		Phone:             *phoneFlag,
		Role:              models.Role(*roleFlag),
		CommissionPercent: commission,
		UsesLogistics:     *logisticsFlag,
	})
	if err != nil {
		logger.Fatal("Failed to create user", zap.Error(err))
	}

	logger.Info("User created",
		zap.String("id", user.Id),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))

	fmt.Printf("\nCreated %s user %q\n", user.Role, user.Username)
	fmt.Printf("  ID:    %s\n", user.Id)
	fmt.Printf("  Name:  %s\n", user.Name)
	if user.Phone != "" {
		fmt.Printf("  Phone: %s\n", user.Phone)
	}
	if user.Role.IsReseller() {
		fmt.Printf("  Commission: %s%%, logistics: %t\n", user.CommissionPercent.String(), user.UsesLogistics)
	}
	if *passwordFlag == "" {
		fmt.Println("  No password set; the account cannot log in until one is assigned.")
	}
}
