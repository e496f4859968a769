package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("BARBER_JWT_SECRET", "super-secret")

	yamlContent := `
database:
  path: "test.db"
auth:
  provider_url: "https://auth.example.com/auth/v1"
  jwt_secret: "${BARBER_JWT_SECRET}"
payment:
  provider: function
  function:
    url: "https://functions.example.com/create-checkout"
email:
  mode: smtp
  smtp:
    host: "smtp.example.com"
telegram:
  staff_chat_ids: [100, 200]
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Auth.JWTSecret != "super-secret" {
		t.Errorf("expected jwt secret from env, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected default driver sqlite, got %s", cfg.Database.Driver)
	}
	if cfg.Email.SMTP.Port != 587 {
		t.Errorf("expected default smtp port 587, got %d", cfg.Email.SMTP.Port)
	}
	if len(cfg.Telegram.StaffChatIDs) != 2 {
		t.Errorf("expected 2 staff chats, got %d", len(cfg.Telegram.StaffChatIDs))
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	base := func() Config {
		cfg := Config{
			Database: DatabaseConfig{Path: "path"},
			Auth:     AuthConfig{JWTSecret: "secret"},
			Payment:  PaymentConfig{Function: FunctionConfig{URL: "http://pay"}},
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "missing jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "missing sqlite path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "postgres without host", mutate: func(c *Config) { c.Database.Driver = "postgres" }, wantErr: true},
		{
			name: "postgres configured",
			mutate: func(c *Config) {
				c.Database.Driver = "postgres"
				c.Database.Postgres.Host = "db"
				c.Database.Postgres.DBName = "barber"
			},
		},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "function without url", mutate: func(c *Config) { c.Payment.Function.URL = "" }, wantErr: true},
		{name: "function mock without url", mutate: func(c *Config) { c.Payment.Function.URL = ""; c.Payment.Mock = true }},
		{name: "mercadopago without token", mutate: func(c *Config) { c.Payment.Provider = "mercadopago" }, wantErr: true},
		{name: "razorpay without keys", mutate: func(c *Config) { c.Payment.Provider = "razorpay" }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.Payment.Provider = "paypal" }, wantErr: true},
		{name: "email function without url", mutate: func(c *Config) { c.Email.Mode = "function" }, wantErr: true},
		{name: "email smtp without host", mutate: func(c *Config) { c.Email.Mode = "smtp" }, wantErr: true},
		{name: "unknown email mode", mutate: func(c *Config) { c.Email.Mode = "pigeon" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default http port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.GRPC.Port != 8081 {
		t.Errorf("expected default gRPC port 8081, got %d", cfg.GRPC.Port)
	}
	if cfg.Payment.Provider != "function" {
		t.Errorf("expected default payment provider function, got %s", cfg.Payment.Provider)
	}
	if cfg.Email.Mode != "disabled" {
		t.Errorf("expected default email mode disabled, got %s", cfg.Email.Mode)
	}
	if cfg.Email.Subject != "Booking Confirmation - Gentlemen's Club Barber Shop" {
		t.Errorf("unexpected default subject %q", cfg.Email.Subject)
	}
	if cfg.RateLimit.Public != "60-M" {
		t.Errorf("expected default public rate 60-M, got %s", cfg.RateLimit.Public)
	}
	if cfg.Sync.MaxRetries != 5 {
		t.Errorf("expected default sync retries 5, got %d", cfg.Sync.MaxRetries)
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "barber", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=barber sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
