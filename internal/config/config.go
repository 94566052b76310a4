package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory  = "memory"
	DriverSQLite  = "sqlite"
	DriverMongoDB = "mongodb"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Store     StoreConfig
	MongoDB   MongoDBConfig
	Stock     StockConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// StoreConfig selects and tunes the persistent store.
type StoreConfig struct {
	Driver        string
	SQLitePath    string
	CommitTimeout time.Duration
	MaxAttempts   int
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// StockConfig tunes the stock engine policy.
type StockConfig struct {
	// SaleReserveStatuses limits which sale statuses hold finished goods.
	// Empty means every sale reserves stock.
	SaleReserveStatuses []string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken    string
	PhoneNumberID  string
	BaseURL        string
	APIVersion     string
	AlertRecipient string
}

// Enabled reports whether outbound notifications can be sent.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	ExportRange     string
	HistoryRange    string
}

// Enabled reports whether the stock export is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	AlertCronSchedule  string
	ReportCronSchedule string
	Timezone           string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// a missing .env is fine when the environment is set directly
		_ = godotenv.Load()
	}

	commitTimeout, err := time.ParseDuration(getenvWithDefault("STORE_COMMIT_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("STORE_COMMIT_TIMEOUT: %w", err)
	}
	maxAttempts, err := strconv.Atoi(getenvWithDefault("STORE_MAX_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("STORE_MAX_ATTEMPTS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(getenvWithDefault("STORE_DRIVER", DriverSQLite)),
			SQLitePath:    getenvWithDefault("SQLITE_PATH", "croptrace.db"),
			CommitTimeout: commitTimeout,
			MaxAttempts:   maxAttempts,
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "croptrace"),
		},
		Stock: StockConfig{
			SaleReserveStatuses: splitList(os.Getenv("SALE_RESERVE_STATUSES")),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:    os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID:  os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:        getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:     getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			AlertRecipient: os.Getenv("WHATSAPP_ALERT_RECIPIENT"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			ExportRange:     getenvWithDefault("SHEETS_EXPORT_RANGE", "Stock!A1"),
			HistoryRange:    getenvWithDefault("SHEETS_HISTORY_RANGE", "KPI!A:H"),
		},
		Reporting: ReportingConfig{
			AlertCronSchedule:  getenvWithDefault("ALERT_CRON_SCHEDULE", "0 7 * * *"),
			ReportCronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * 5"),
			Timezone:           getenvWithDefault("TIMEZONE", "UTC"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("SQLITE_PATH must be provided")
		}
	case DriverMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	default:
		return fmt.Errorf("STORE_DRIVER %q is not supported", c.Store.Driver)
	}

	if c.Store.CommitTimeout <= 0 {
		return errors.New("STORE_COMMIT_TIMEOUT must be positive")
	}
	if c.Store.MaxAttempts < 1 {
		return errors.New("STORE_MAX_ATTEMPTS must be at least 1")
	}

	if c.WhatsApp.Enabled() {
		if c.WhatsApp.BaseURL == "" {
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		}
		if c.WhatsApp.APIVersion == "" {
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
		if c.WhatsApp.AlertRecipient == "" {
			return errors.New("WHATSAPP_ALERT_RECIPIENT must be provided")
		}
	}

	if c.Sheets.Enabled() && c.Sheets.ExportRange == "" {
		return errors.New("SHEETS_EXPORT_RANGE must not be empty")
	}
	if c.Sheets.Enabled() && c.Sheets.HistoryRange == "" {
		return errors.New("SHEETS_HISTORY_RANGE must not be empty")
	}

	if c.Reporting.AlertCronSchedule == "" {
		return errors.New("ALERT_CRON_SCHEDULE must be provided")
	}
	if c.Reporting.ReportCronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}
	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
