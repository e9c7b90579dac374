package models

import "time"

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Ratewatch RatewatchConfig
	Notify    NotifyConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	SeedDemoData    bool
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// RatewatchConfig holds the exchange-rate refresh daemon settings
type RatewatchConfig struct {
	Interval       time.Duration
	FetchTimeout   time.Duration
	SourceURL      string
	CurrenciesFile string
}

// NotifyConfig holds outbound notification settings. When the Twilio
// credentials are empty the notifier runs in link-only mode.
type NotifyConfig struct {
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioSMSFrom      string
	TwilioWhatsAppFrom string
	RequestTimeout     time.Duration
}
