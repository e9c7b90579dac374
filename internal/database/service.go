package database

import (
	"context"
	"database/sql"
	"fmt"

	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.Store.
var _ store.Store = (*Service)(nil)

type Service struct {
	db     *sql.DB
	ledger *CashLedger
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	ledger := NewCashLedger(db)
	service := &Service{db: db, ledger: ledger}
	if err := service.initSchema(cfg.SeedDemoData); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema(seedDemoData bool) error {
	schema := `
	-- Users: admins, couriers (repartidores), resellers (revendedores)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		must_change_password BOOLEAN NOT NULL DEFAULT 0,
		commission_percent TEXT NOT NULL DEFAULT '0',
		balance_owed TEXT NOT NULL DEFAULT '0',
		uses_logistics BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
	CREATE INDEX IF NOT EXISTS idx_users_active ON users(active);

	-- Remittances: monetary fields are TEXT holding exact decimal strings
	CREATE TABLE IF NOT EXISTS remittances (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		sender_name TEXT NOT NULL,
		sender_phone TEXT NOT NULL DEFAULT '',
		beneficiary_name TEXT NOT NULL,
		beneficiary_phone TEXT NOT NULL DEFAULT '',
		beneficiary_address TEXT NOT NULL DEFAULT '',
		delivery_type TEXT NOT NULL,
		amount_sent TEXT NOT NULL,
		rate TEXT NOT NULL,
		amount_delivery TEXT NOT NULL,
		delivery_currency TEXT NOT NULL,
		fee_percent TEXT NOT NULL DEFAULT '0',
		fee_fixed TEXT NOT NULL DEFAULT '0',
		fee_total TEXT NOT NULL DEFAULT '0',
		total_charged TEXT NOT NULL,
		platform_fee TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		courier_id TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		reseller_id TEXT NOT NULL DEFAULT '',
		is_request BOOLEAN NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		delivery_photo TEXT NOT NULL DEFAULT '',
		invoiced BOOLEAN NOT NULL DEFAULT 0,
		invoiced_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		delivered_at TIMESTAMP,
		approved_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_remittances_status ON remittances(status);
	CREATE INDEX IF NOT EXISTS idx_remittances_courier ON remittances(courier_id, status);
	CREATE INDEX IF NOT EXISTS idx_remittances_reseller ON remittances(reseller_id);
	CREATE INDEX IF NOT EXISTS idx_remittances_sender_phone ON remittances(sender_phone);
	CREATE INDEX IF NOT EXISTS idx_remittances_created_at ON remittances(created_at);

	-- Courier cash balances (current state - hot data)
	CREATE TABLE IF NOT EXISTS cash_balances (
		id TEXT PRIMARY KEY,
		courier_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		last_movement_id TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(courier_id, currency)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_cash_balances_courier_currency ON cash_balances(courier_id, currency);

	-- Cash movements (audit trail - cold data)
	CREATE TABLE IF NOT EXISTS cash_movements (
		id TEXT PRIMARY KEY,
		courier_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		rate TEXT,
		remittance_id TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		recorded_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_cash_movements_courier ON cash_movements(courier_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_cash_movements_remittance ON cash_movements(remittance_id);

	-- Reseller payments against balance owed
	CREATE TABLE IF NOT EXISTS reseller_payments (
		id TEXT PRIMARY KEY,
		reseller_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		method TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		recorded_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reseller_payments_reseller ON reseller_payments(reseller_id, created_at);

	-- Accounting journal (income / expense)
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		concept TEXT NOT NULL,
		amount TEXT NOT NULL,
		remittance_id TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_journal_created_at ON journal_entries(created_at);
	CREATE INDEX IF NOT EXISTS idx_journal_kind ON journal_entries(kind);

	-- Exchange rates: one active row per source currency
	CREATE TABLE IF NOT EXISTS exchange_rates (
		id TEXT PRIMARY KEY,
		source_currency TEXT NOT NULL,
		dest_currency TEXT NOT NULL DEFAULT 'CUP',
		rate TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_exchange_rates_source_active ON exchange_rates(source_currency, active);

	-- Tiered fee rules
	CREATE TABLE IF NOT EXISTS fee_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		range_min TEXT NOT NULL,
		range_max TEXT,
		percent TEXT NOT NULL DEFAULT '0',
		fixed_amount TEXT NOT NULL DEFAULT '0',
		active BOOLEAN NOT NULL DEFAULT 1
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	if seedDemoData {
		s.seedDemoData()
	} else {
		zap.L().Info("Skipping demo data seed (SEED_DEMO_DATA=false)")
	}

	return nil
}

// seedDemoData inserts a demo courier and a default fee rule for local
// development. Failures are logged, never fatal.
func (s *Service) seedDemoData() {
	couriers := []struct {
		username string
		name     string
	}{
		{"carlos", "Carlos Delivery"},
		{"maria", "Maria Delivery"},
	}

	for _, c := range couriers {
		_, err := s.db.Exec(queryInsertUser,
			uuid.New().String(), c.username, "", c.name, "", string(models.RoleCourier), "0", false)
		if err != nil {
			zap.L().Debug("Demo courier not inserted", zap.String("username", c.username), zap.Error(err))
		} else {
			zap.L().Info("Demo courier created", zap.String("username", c.username))
		}
	}

	_, err := s.db.Exec(queryInsertFeeRule,
		uuid.New().String(), "standard", "0", nil, "5", "0", true)
	if err != nil {
		zap.L().Debug("Demo fee rule not inserted", zap.Error(err))
	}
}

// Cash ledger convenience methods

func (s *Service) CashBalance(ctx context.Context, courierId, currency string) (decimal.Decimal, error) {
	return s.ledger.GetBalance(ctx, courierId, currency)
}

func (s *Service) CashBalances(ctx context.Context, courierId string) ([]models.CashBalance, error) {
	return s.ledger.GetAllBalances(ctx, courierId)
}

func (s *Service) CashMovements(ctx context.Context, courierId string, limit, offset int) ([]models.CashMovement, error) {
	return s.ledger.GetMovements(ctx, courierId, limit, offset)
}

func (s *Service) CashTotals(ctx context.Context) (map[string]decimal.Decimal, error) {
	return s.ledger.GetTotals(ctx)
}

func (s *Service) ReconcileCashBalance(ctx context.Context, courierId, currency string) error {
	return s.ledger.ReconcileBalance(ctx, courierId, currency)
}
