package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	HTTP       HTTPConfig       `yaml:"http"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	Payment    PaymentConfig    `yaml:"payment"`
	Email      EmailConfig      `yaml:"email"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	Sync       SyncConfig       `yaml:"sync"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	PublicURL   string `yaml:"public_url"`
}

type HTTPConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	ReadTimeout    int      `yaml:"read_timeout_seconds"`
	WriteTimeout   int      `yaml:"write_timeout_seconds"`
}

type GRPCConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port"`
	Reflection bool `yaml:"reflection"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	Path     string         `yaml:"path"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	DBName         string `yaml:"dbname"`
	SSLMode        string `yaml:"sslmode"`
	MaxConnections int    `yaml:"max_connections"`
}

// DSN builds a lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type AuthConfig struct {
	// ProviderURL is the base URL of the GoTrue-compatible identity API, e.g. https://x.supabase.co/auth/v1.
	ProviderURL     string `yaml:"provider_url"`
	APIKey          string `yaml:"api_key"`
	JWTSecret       string `yaml:"jwt_secret"`
	SessionCacheTTL int    `yaml:"session_cache_ttl_seconds"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

type PaymentConfig struct {
	Provider       string            `yaml:"provider"` // function, mercadopago, razorpay
	Mock           bool              `yaml:"mock"`
	Currency       string            `yaml:"currency"`
	SuccessURL     string            `yaml:"success_url"`
	CancelURL      string            `yaml:"cancel_url"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Function       FunctionConfig    `yaml:"function"`
	MercadoPago    MercadoPagoConfig `yaml:"mercadopago"`
	Razorpay       RazorpayConfig    `yaml:"razorpay"`
}

type FunctionConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

type MercadoPagoConfig struct {
	AccessToken     string `yaml:"access_token"`
	NotificationURL string `yaml:"notification_url"`
}

type RazorpayConfig struct {
	KeyID     string `yaml:"key_id"`
	KeySecret string `yaml:"key_secret"`
}

type EmailConfig struct {
	Mode           string         `yaml:"mode"` // function, smtp, disabled
	From           string         `yaml:"from"`
	Subject        string         `yaml:"subject"`
	TimeoutSeconds int            `yaml:"timeout_seconds"`
	Function       FunctionConfig `yaml:"function"`
	SMTP           SMTPConfig     `yaml:"smtp"`
}

type SMTPConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

type TelegramConfig struct {
	BotToken     string  `yaml:"bot_token"`
	StaffChatIDs []int64 `yaml:"staff_chat_ids"`
	Debug        bool    `yaml:"debug"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	BookingSpreadSheetID  string `yaml:"bookings_spreadsheet_id"`
}

type SyncConfig struct {
	MaxRetries          int     `yaml:"max_retries"`
	InitialDelaySeconds int     `yaml:"initial_delay_seconds"`
	MaxDelaySeconds     int     `yaml:"max_delay_seconds"`
	BackoffFactor       float64 `yaml:"backoff_factor"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type RateLimitConfig struct {
	// Public is a ulule limiter rate for anonymous endpoints, e.g. "30-M".
	Public string `yaml:"public"`
	// AdminRPS and AdminBurst bound requests per admin session.
	AdminRPS   float64 `yaml:"admin_rps"`
	AdminBurst int     `yaml:"admin_burst"`
	// Submissions per user per window.
	Submissions          int `yaml:"submissions"`
	SubmissionWindowSecs int `yaml:"submission_window_seconds"`
}

func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" || c.Database.Postgres.DBName == "" {
			return errors.New("postgres host and dbname are required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("auth jwt_secret is required")
	}

	switch c.Payment.Provider {
	case "function":
		if c.Payment.Function.URL == "" && !c.Payment.Mock {
			return errors.New("payment function url is required")
		}
	case "mercadopago":
		if c.Payment.MercadoPago.AccessToken == "" && !c.Payment.Mock {
			return errors.New("mercadopago access_token is required")
		}
	case "razorpay":
		if (c.Payment.Razorpay.KeyID == "" || c.Payment.Razorpay.KeySecret == "") && !c.Payment.Mock {
			return errors.New("razorpay key_id and key_secret are required")
		}
	default:
		return fmt.Errorf("unsupported payment provider: %q", c.Payment.Provider)
	}

	switch c.Email.Mode {
	case "function":
		if c.Email.Function.URL == "" {
			return errors.New("email function url is required")
		}
	case "smtp":
		if c.Email.SMTP.Host == "" {
			return errors.New("email smtp host is required")
		}
	case "disabled":
	default:
		return fmt.Errorf("unsupported email mode: %q", c.Email.Mode)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "gentlemens-club"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 5
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 30
	}
	if c.GRPC.Port == 0 {
		c.GRPC.Port = 8081
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Postgres.Port == 0 {
		c.Database.Postgres.Port = 5432
	}
	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = "disable"
	}

	if c.Auth.SessionCacheTTL == 0 {
		c.Auth.SessionCacheTTL = 300
	}
	if c.Auth.TimeoutSeconds == 0 {
		c.Auth.TimeoutSeconds = 10
	}

	c.Payment.Provider = strings.ToLower(strings.TrimSpace(c.Payment.Provider))
	if c.Payment.Provider == "" {
		c.Payment.Provider = "function"
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "ZAR"
	}
	if c.Payment.TimeoutSeconds == 0 {
		c.Payment.TimeoutSeconds = 15
	}

	c.Email.Mode = strings.ToLower(strings.TrimSpace(c.Email.Mode))
	if c.Email.Mode == "" {
		c.Email.Mode = "disabled"
	}
	if c.Email.From == "" {
		c.Email.From = "Gentlemen's Club Barber Shop <onboarding@resend.dev>"
	}
	if c.Email.Subject == "" {
		c.Email.Subject = "Booking Confirmation - Gentlemen's Club Barber Shop"
	}
	if c.Email.TimeoutSeconds == 0 {
		c.Email.TimeoutSeconds = 10
	}
	if c.Email.SMTP.Port == 0 {
		c.Email.SMTP.Port = 587
	}

	if c.Sync.MaxRetries == 0 {
		c.Sync.MaxRetries = 5
	}
	if c.Sync.InitialDelaySeconds == 0 {
		c.Sync.InitialDelaySeconds = 2
	}
	if c.Sync.MaxDelaySeconds == 0 {
		c.Sync.MaxDelaySeconds = 60
	}
	if c.Sync.BackoffFactor == 0 {
		c.Sync.BackoffFactor = 2
	}

	if c.RateLimit.Public == "" {
		c.RateLimit.Public = "60-M"
	}
	if c.RateLimit.AdminRPS == 0 {
		c.RateLimit.AdminRPS = 10
	}
	if c.RateLimit.AdminBurst == 0 {
		c.RateLimit.AdminBurst = 20
	}
	if c.RateLimit.Submissions == 0 {
		c.RateLimit.Submissions = 5
	}
	if c.RateLimit.SubmissionWindowSecs == 0 {
		c.RateLimit.SubmissionWindowSecs = 600
	}
}

// Seconds converts a config value in seconds to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
