package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"remesitas-go/internal/common"
	"remesitas-go/internal/config"
	"remesitas-go/internal/database"
	"remesitas-go/internal/models"

	"go.uber.org/zap"
)

type reportStats struct {
	totalCouriers    int
	totalBalances    int
	couriersWithCash int
}

// Box-drawing prefixes for the per-courier sections.
func boxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

func boxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

func printBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

func formatRemittanceId(id string) string {
	if id == "" {
		return "none"
	}
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}

func printBalance(balance models.CashBalance, isLast bool) {
	symbol := boxPrefix(isLast)

	fmt.Printf("%s %-4s: %18s (v%d, updated: %s)\n",
		symbol,
		balance.Currency,
		common.FormatAmount(balance.Balance, balance.Currency),
		balance.Version,
		balance.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printBalances(balances []models.CashBalance) {
	for i, balance := range balances {
		isLast := i == len(balances)-1
		printBalance(balance, isLast)
	}
}

func printCourierHeader(courier common.CourierInfo, balanceCount int) {
	fmt.Printf("\n┌─ Courier: %s (%s)\n", courier.Name, courier.Username)
	fmt.Printf("│  ID: %s\n", courier.Id)
	fmt.Printf("│  Currencies: %d\n", balanceCount)
	printBoxSeparator(78)
}

func printRecentMovements(ctx context.Context, dbService *database.Service, courierId string, limit int) error {
	movements, err := dbService.CashMovements(ctx, courierId, limit, 0)
	if err != nil {
		return fmt.Errorf("failed to get movements: %w", err)
	}
	if len(movements) == 0 {
		return nil
	}

	fmt.Println("│  Recent movements:")
	for i, m := range movements {
		isLast := i == len(movements)-1
		fmt.Printf("%s %-10s %15s %s → %s (remesa: %s, %s)\n",
			boxDetailPrefix(isLast),
			m.Kind,
			common.FormatAmount(m.Amount, m.Currency),
			m.BalanceBefore.String(),
			m.BalanceAfter.String(),
			formatRemittanceId(m.RemittanceId),
			m.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func processCourier(ctx context.Context, courier common.CourierInfo, dbService *database.Service, movements int, logger *zap.Logger) (int, error) {
	balances, err := dbService.CashBalances(ctx, courier.Id)
	if err != nil {
		return 0, fmt.Errorf("failed to get balances: %w", err)
	}

	if len(balances) == 0 {
		return 0, nil
	}

	printCourierHeader(courier, len(balances))
	printBalances(balances)

	if movements > 0 {
		if err := printRecentMovements(ctx, dbService, courier.Id, movements); err != nil {
			logger.Warn("Failed to print movements",
				zap.String("courier_id", courier.Id),
				zap.Error(err))
		}
	}

	return len(balances), nil
}

func processCouriersAndGenerateReport(ctx context.Context, couriers []common.CourierInfo, dbService *database.Service, movements int, logger *zap.Logger) reportStats {
	stats := reportStats{}

	for _, courier := range couriers {
		stats.totalCouriers++

		balanceCount, err := processCourier(ctx, courier, dbService, movements, logger)
		if err != nil {
			logger.Error("Failed to process courier",
				zap.String("courier_id", courier.Id),
				zap.String("courier_name", courier.Name),
				zap.Error(err))
			continue
		}

		if balanceCount > 0 {
			stats.couriersWithCash++
			stats.totalBalances += balanceCount
		}
	}

	return stats
}

func printTotals(ctx context.Context, dbService *database.Service) error {
	totals, err := dbService.CashTotals(ctx)
	if err != nil {
		return fmt.Errorf("failed to get cash totals: %w", err)
	}

	fmt.Println()
	common.PrintHeader("Cash in the street", 78)
	for _, currency := range []string{models.CurrencyUSD, models.CurrencyCUP} {
		if total, ok := totals[currency]; ok {
			fmt.Printf("  %-4s: %s\n", currency, common.FormatAmount(total, currency))
		}
	}
	return nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	usernameFlag := flag.String("username", "", "Filter by specific courier username (optional)")
	movementsFlag := flag.Int("movements", 0, "Show the last N cash movements per courier")
	flag.Parse()

	logger.Info("Starting cash report")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	couriers, err := common.InitializeCouriers(ctx, dbService, *usernameFlag, logger)
	if err != nil {
		logger.Fatal("Failed to list couriers", zap.Error(err))
	}
	if len(couriers) == 0 {
		fmt.Println("No couriers found.")
		return
	}

	stats := processCouriersAndGenerateReport(ctx, couriers, dbService, *movementsFlag, logger)

	if err := printTotals(ctx, dbService); err != nil {
		logger.Error("Failed to print totals", zap.Error(err))
	}

	common.PrintFooter(fmt.Sprintf("Couriers: %d, with cash: %d, balances: %d",
		stats.totalCouriers, stats.couriersWithCash, stats.totalBalances), 78)
}
