package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"remesitas-go/internal/models"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	refreshInterval, err := getEnvDuration("RATEWATCH_INTERVAL", 6*time.Hour)
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := getEnvDuration("RATEWATCH_FETCH_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	notifyTimeout, err := getEnvDuration("NOTIFY_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "remesitas.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			SeedDemoData:    getEnvBool("SEED_DEMO_DATA", false),
		},
		Server: models.ServerConfig{
			Addr:            getEnvString("SERVER_ADDR", ":8080"),
			ShutdownTimeout: shutdownTimeout,
		},
		Ratewatch: models.RatewatchConfig{
			Interval:       refreshInterval,
			FetchTimeout:   fetchTimeout,
			SourceURL:      getEnvString("RATEWATCH_SOURCE_URL", "https://eltoque.com"),
			CurrenciesFile: getEnvString("CURRENCIES_FILE", "currencies.yaml"),
		},
		Notify: models.NotifyConfig{
			TwilioAccountSID:   getEnvString("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:    getEnvString("TWILIO_AUTH_TOKEN", ""),
			TwilioSMSFrom:      getEnvString("TWILIO_SMS_FROM", ""),
			TwilioWhatsAppFrom: getEnvString("TWILIO_WHATSAPP_FROM", ""),
			RequestTimeout:     notifyTimeout,
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
