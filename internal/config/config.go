package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/staffdesk/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Backend    BackendConfig    `validate:"required"`
	Sheet      SheetConfig      `mapstructure:"sheet"`
	Relational RelationalConfig `mapstructure:"relational"`
	DocStore   DocStoreConfig   `mapstructure:"docstore"`
	Cloud      CloudConfig      `mapstructure:"cloud"`
	Session    SessionConfig    `mapstructure:"session"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

// BackendConfig selects the adapter new sessions start on
type BackendConfig struct {
	Default types.BackendKind `mapstructure:"default" validate:"required"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	// Modify config paths to ensure config.yaml is found
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/staffdesk")

	// A local .env is optional, values already in the environment win
	_ = godotenv.Load()

	// Set up environment variables support
	v.SetEnvPrefix("STAFFDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()
	setDefaults(v)

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override it even
// when no config file is present
func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("backend.default", types.BackendSheet)

	v.SetDefault("sheet.url", "")
	v.SetDefault("sheet.timeout", DefaultRequestTimeout)
	v.SetDefault("sheet.native_search", false)
	v.SetDefault("sheet.export_tab", DefaultSheetExportTab)

	v.SetDefault("relational.rest_url", "")
	v.SetDefault("relational.auth_url", "")
	v.SetDefault("relational.client_id", "")
	v.SetDefault("relational.client_secret", "")
	v.SetDefault("relational.api_key", "")
	v.SetDefault("relational.table", "employees")
	v.SetDefault("relational.dsn", "")
	v.SetDefault("relational.timeout", DefaultRequestTimeout)
	v.SetDefault("relational.supabase.url", "")
	v.SetDefault("relational.supabase.key", "")
	v.SetDefault("relational.supabase.email", "")
	v.SetDefault("relational.supabase.password", "")

	v.SetDefault("docstore.region", "us-east-1")
	v.SetDefault("docstore.table", "")
	v.SetDefault("docstore.collection", "employees")
	v.SetDefault("docstore.endpoint", "")
	v.SetDefault("docstore.access_key_id", "")
	v.SetDefault("docstore.secret_access_key", "")

	v.SetDefault("cloud.region", "us-east-1")
	v.SetDefault("cloud.bucket", "")
	v.SetDefault("cloud.key_prefix", "staffdesk")
	v.SetDefault("cloud.endpoint", "")
	v.SetDefault("cloud.access_key_id", "")
	v.SetDefault("cloud.secret_access_key", "")
	v.SetDefault("cloud.presign_expiry", "30m")
	v.SetDefault("cloud.max_image_size_mb", 5)
	v.SetDefault("cloud.list_concurrency", 8)

	v.SetDefault("session.ttl", 30*time.Minute)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "local")
	v.SetDefault("sentry.sample_rate", 1.0)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	return c.Backend.Default.Validate()
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Backend:    BackendConfig{Default: types.BackendSheet},
		Sheet:      SheetConfig{Timeout: DefaultRequestTimeout, ExportTab: DefaultSheetExportTab},
		Relational: RelationalConfig{Table: "employees", Timeout: DefaultRequestTimeout},
		DocStore:   DocStoreConfig{Region: "us-east-1", Collection: "employees"},
		Cloud:      CloudConfig{Region: "us-east-1", KeyPrefix: "staffdesk", PresignExpiry: "30m", MaxImageSizeMB: 5, ListConcurrency: 8},
		Session:    SessionConfig{TTL: 30 * time.Minute},
	}
}
