package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port    string `yaml:"port" env:"SERVER_PORT"`
		Mode    string `yaml:"mode" env:"SERVER_MODE"`
		BaseURL string `yaml:"base_url" env:"SERVER_BASE_URL"`
	} `yaml:"server"`

	Database struct {
		// Driver is either "postgres" or "memory"
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
		TxMaxAttempts   int    `yaml:"tx_max_attempts" env:"DB_TX_MAX_ATTEMPTS"`
	} `yaml:"database"`

	JWT struct {
		Secret                 string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"JWT_REFRESH_TOKEN_EXPIRATION"`
		Issuer                 string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Identity struct {
		// Provider is either "local" or "firebase"
		Provider                string `yaml:"provider" env:"IDENTITY_PROVIDER"`
		FirebaseCredentialsFile string `yaml:"firebase_credentials_file" env:"FIREBASE_CREDENTIALS_FILE"`
		FirebaseProjectID       string `yaml:"firebase_project_id" env:"FIREBASE_PROJECT_ID"`
		ResetURL                string `yaml:"reset_url" env:"IDENTITY_RESET_URL"`
		ResetTokenExpiration    string `yaml:"reset_token_expiration" env:"IDENTITY_RESET_TOKEN_EXPIRATION"`
	} `yaml:"identity"`

	Email struct {
		// Provider is either "smtp" or "sendgrid"
		Provider       string `yaml:"provider" env:"EMAIL_PROVIDER"`
		SMTPHost       string `yaml:"smtp_host" env:"SMTP_HOST"`
		SMTPPort       int    `yaml:"smtp_port" env:"SMTP_PORT"`
		SMTPUsername   string `yaml:"smtp_username" env:"SMTP_USERNAME"`
		SMTPPassword   string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
		SendGridAPIKey string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
		FromName       string `yaml:"from_name" env:"EMAIL_FROM_NAME"`
		FromEmail      string `yaml:"from_email" env:"EMAIL_FROM_EMAIL"`
	} `yaml:"email"`

	Payments struct {
		MidtransServerKey  string `yaml:"midtrans_server_key" env:"MIDTRANS_SERVER_KEY"`
		MidtransProduction bool   `yaml:"midtrans_production" env:"MIDTRANS_PRODUCTION"`
	} `yaml:"payments"`

	Notifier struct {
		Workers        int    `yaml:"workers" env:"NOTIFIER_WORKERS"`
		QueueSize      int    `yaml:"queue_size" env:"NOTIFIER_QUEUE_SIZE"`
		MaxAttempts    int    `yaml:"max_attempts" env:"NOTIFIER_MAX_ATTEMPTS"`
		InitialBackoff string `yaml:"initial_backoff" env:"NOTIFIER_INITIAL_BACKOFF"`
		MaxBackoff     string `yaml:"max_backoff" env:"NOTIFIER_MAX_BACKOFF"`
		TaskTimeout    string `yaml:"task_timeout" env:"NOTIFIER_TASK_TIMEOUT"`
	} `yaml:"notifier"`

	Saga struct {
		ReconcileInterval string `yaml:"reconcile_interval" env:"SAGA_RECONCILE_INTERVAL"`
		GracePeriod       string `yaml:"grace_period" env:"SAGA_GRACE_PERIOD"`
		BatchSize         int    `yaml:"batch_size" env:"SAGA_BATCH_SIZE"`
	} `yaml:"saga"`

	Attendance struct {
		ScanLimit int `yaml:"scan_limit" env:"ATTENDANCE_SCAN_LIMIT"`
	} `yaml:"attendance"`

	Fees struct {
		DefaultTotal   int64 `yaml:"default_total" env:"FEES_DEFAULT_TOTAL"`
		DueAfterMonths int   `yaml:"due_after_months" env:"FEES_DUE_AFTER_MONTHS"`
	} `yaml:"fees"`

	Storage struct {
		BasePath string `yaml:"base_path" env:"STORAGE_BASE_PATH"`
		BaseURL  string `yaml:"base_url" env:"STORAGE_BASE_URL"`
	} `yaml:"storage"`

	Seed struct {
		AdminName     string `yaml:"admin_name" env:"SEED_ADMIN_NAME"`
		AdminEmail    string `yaml:"admin_email" env:"SEED_ADMIN_EMAIL"`
		AdminDOB      string `yaml:"admin_dob" env:"SEED_ADMIN_DOB"`
		AdminDept     string `yaml:"admin_department" env:"SEED_ADMIN_DEPARTMENT"`
		AdminPosition string `yaml:"admin_position" env:"SEED_ADMIN_POSITION"`
	} `yaml:"seed"`

	Logging struct {
		Level        string `yaml:"level" env:"LOG_LEVEL"`
		Format       string `yaml:"format" env:"LOG_FORMAT"`
		RollbarToken string `yaml:"rollbar_token" env:"ROLLBAR_TOKEN"`
		Version      string `yaml:"version" env:"APP_VERSION"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a .env file, a YAML file and environment variables,
// in increasing order of precedence
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.BaseURL = "http://localhost:8080"

	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "college_erp"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"
	config.Database.TxMaxAttempts = 5

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.RefreshTokenExpiration = "720h"
	config.JWT.Issuer = "college-erp"

	config.Identity.Provider = "local"
	config.Identity.ResetURL = "http://localhost:3000/reset-password"
	config.Identity.ResetTokenExpiration = "1h"

	config.Email.Provider = "smtp"
	config.Email.SMTPPort = 587
	config.Email.FromName = "College ERP"
	config.Email.FromEmail = "no-reply@college-erp.local"

	config.Notifier.Workers = 4
	config.Notifier.QueueSize = 256
	config.Notifier.MaxAttempts = 3
	config.Notifier.InitialBackoff = "500ms"
	config.Notifier.MaxBackoff = "10s"
	config.Notifier.TaskTimeout = "15s"

	config.Saga.ReconcileInterval = "1m"
	config.Saga.GracePeriod = "2m"
	config.Saga.BatchSize = 50

	config.Attendance.ScanLimit = 5000

	config.Fees.DefaultTotal = 150000
	config.Fees.DueAfterMonths = 6

	config.Storage.BasePath = "uploads"
	config.Storage.BaseURL = "http://localhost:8080/uploads"

	config.Seed.AdminName = "System Administrator"
	config.Seed.AdminDept = "Administration"
	config.Seed.AdminPosition = "Registrar"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.Database.TxMaxAttempts < 1 {
		return fmt.Errorf("database tx_max_attempts must be at least 1")
	}

	switch config.Identity.Provider {
	case "local":
		if config.JWT.Secret == "" {
			return fmt.Errorf("JWT secret is required for the local identity provider")
		}
	case "firebase":
		if config.Identity.FirebaseCredentialsFile == "" {
			return fmt.Errorf("firebase credentials file is required for the firebase identity provider")
		}
	default:
		return fmt.Errorf("unsupported identity provider %q", config.Identity.Provider)
	}

	switch config.Email.Provider {
	case "smtp", "sendgrid":
	default:
		return fmt.Errorf("unsupported email provider %q", config.Email.Provider)
	}

	durations := map[string]string{
		"JWT access token expiration":  config.JWT.AccessTokenExpiration,
		"JWT refresh token expiration": config.JWT.RefreshTokenExpiration,
		"reset token expiration":       config.Identity.ResetTokenExpiration,
		"notifier initial backoff":     config.Notifier.InitialBackoff,
		"notifier max backoff":         config.Notifier.MaxBackoff,
		"notifier task timeout":        config.Notifier.TaskTimeout,
		"saga reconcile interval":      config.Saga.ReconcileInterval,
		"saga grace period":            config.Saga.GracePeriod,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	if config.Notifier.Workers < 1 || config.Notifier.QueueSize < 1 {
		return fmt.Errorf("notifier workers and queue size must be positive")
	}

	if config.Attendance.ScanLimit < 1 {
		return fmt.Errorf("attendance scan limit must be positive")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// Duration parses a duration field that validateConfig already checked
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
