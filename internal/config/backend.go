package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultRequestTimeout is the per-call HTTP timeout used by the REST backends
	DefaultRequestTimeout = 30 * time.Second
	// MaxRequestTimeout caps configured per-call timeouts
	MaxRequestTimeout = 60 * time.Second
	// DefaultSheetExportTab receives spreadsheet write-backs
	DefaultSheetExportTab = "Export"
)

// SheetConfig holds configuration for the script-backed spreadsheet backend.
// An empty URL puts the backend in mock mode.
type SheetConfig struct {
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	NativeSearch bool          `mapstructure:"native_search"`
	// ExportTab is the tab that write-back fills. The employee rows are never touched by an export.
	ExportTab string `mapstructure:"export_tab"`
}

// IsMock reports whether the sheet backend runs against the in-process emulation
func (c SheetConfig) IsMock() bool {
	return strings.TrimSpace(c.URL) == ""
}

// RelationalConfig holds configuration for the serverless Postgres backend
type RelationalConfig struct {
	RestURL      string         `mapstructure:"rest_url"`
	AuthURL      string         `mapstructure:"auth_url"`
	ClientID     string         `mapstructure:"client_id"`
	ClientSecret string         `mapstructure:"client_secret"`
	APIKey       string         `mapstructure:"api_key"`
	Table        string         `mapstructure:"table"`
	DSN          string         `mapstructure:"dsn"`
	Timeout      time.Duration  `mapstructure:"timeout"`
	Supabase     SupabaseConfig `mapstructure:"supabase"`
}

// SupabaseConfig enables password sign-in through Supabase Auth as the token source
type SupabaseConfig struct {
	URL      string `mapstructure:"url"`
	Key      string `mapstructure:"key"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

func (c SupabaseConfig) Enabled() bool {
	return c.URL != "" && c.Email != ""
}

// Missing returns the names of required values that are not configured
func (c RelationalConfig) Missing() []string {
	var missing []string
	if c.RestURL == "" {
		missing = append(missing, "relational.rest_url")
	}
	if c.AuthURL == "" && !c.Supabase.Enabled() {
		missing = append(missing, "relational.auth_url")
	}
	if c.Table == "" {
		missing = append(missing, "relational.table")
	}
	return missing
}

// DocStoreConfig holds configuration for the DynamoDB document store backend
type DocStoreConfig struct {
	Region          string `mapstructure:"region"`
	Table           string `mapstructure:"table"`
	Collection      string `mapstructure:"collection"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

func (c DocStoreConfig) Missing() []string {
	var missing []string
	if c.Table == "" {
		missing = append(missing, "docstore.table")
	}
	if c.Collection == "" {
		missing = append(missing, "docstore.collection")
	}
	return missing
}

// CloudConfig holds configuration for the S3 compatible document and file store
type CloudConfig struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PresignExpiry   string `mapstructure:"presign_expiry"`
	MaxImageSizeMB  int    `mapstructure:"max_image_size_mb"`
	ListConcurrency int    `mapstructure:"list_concurrency"`
}

func (c CloudConfig) Missing() []string {
	var missing []string
	if c.Bucket == "" {
		missing = append(missing, "cloud.bucket")
	}
	return missing
}

// ObjectKey joins the configured prefix with the given path elements
func (c CloudConfig) ObjectKey(parts ...string) string {
	key := strings.Join(parts, "/")
	if c.KeyPrefix == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(c.KeyPrefix, "/"), key)
}

// ClampTimeout keeps per-call timeouts inside the supported window
func ClampTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultRequestTimeout
	}
	if d > MaxRequestTimeout {
		return MaxRequestTimeout
	}
	return d
}
