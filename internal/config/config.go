// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.mcpauth/config.yaml)
//  3. Default values
//
// Security: the Cognito password is never logged; MarshalJSON masks it and
// the config directory uses 0750 permissions.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingRegion indicates no AWS region is configured.
	ErrMissingRegion = errors.New("missing AWS region")

	// ErrInvalidUserPoolID indicates the Cognito user pool ID is malformed.
	ErrInvalidUserPoolID = errors.New("invalid user pool ID")

	// ErrMissingClientID indicates no Cognito app client ID is configured.
	ErrMissingClientID = errors.New("missing client ID")

	// ErrMissingCredentials indicates neither a username/password pair nor a
	// credentials secret is configured.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrInvalidRefreshBuffer indicates the refresh buffer is out of range.
	ErrInvalidRefreshBuffer = errors.New("invalid refresh buffer")

	// ErrInvalidCacheTTL indicates the credential cache TTL is out of range.
	ErrInvalidCacheTTL = errors.New("invalid cache TTL")

	// ErrMissingEndpoint indicates neither a runtime ARN nor an explicit MCP
	// endpoint is configured.
	ErrMissingEndpoint = errors.New("missing runtime ARN or endpoint")
)

const (
	// DefaultRefreshBufferSeconds is how long before expiry tokens refresh.
	DefaultRefreshBufferSeconds = 300

	// DefaultCacheTTLMinutes is how long loaded credentials stay cached.
	DefaultCacheTTLMinutes = 30

	// DefaultRequestTimeoutSeconds bounds individual MCP HTTP requests.
	DefaultRequestTimeoutSeconds = 60
)

// Config stores application configuration.
// SECURITY: the password is explicitly masked in MarshalJSON. When adding
// new sensitive fields, update MarshalJSON.
type Config struct {
	// AWS and Cognito configuration
	Region     string `mapstructure:"region" json:"region"`
	UserPoolID string `mapstructure:"user_pool_id" json:"user_pool_id"`
	ClientID   string `mapstructure:"client_id" json:"client_id"`

	// Direct credentials. Mutually optional with CredentialsSecret; one of
	// the two must be present.
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"` // SENSITIVE: masked in MarshalJSON

	// CredentialsSecret names a Secrets Manager secret holding a JSON
	// {"username": ..., "password": ...} pair.
	CredentialsSecret string `mapstructure:"credentials_secret" json:"credentials_secret"`

	// Token lifecycle configuration
	AutoRefresh          bool `mapstructure:"auto_refresh" json:"auto_refresh"`
	RefreshBufferSeconds int  `mapstructure:"refresh_buffer_seconds" json:"refresh_buffer_seconds"`
	CacheTTLMinutes      int  `mapstructure:"cache_ttl_minutes" json:"cache_ttl_minutes"`

	// MCP target: a runtime ARN (endpoint derived) or an explicit endpoint.
	// Endpoint wins when both are set.
	RuntimeARN string `mapstructure:"runtime_arn" json:"runtime_arn"`
	Endpoint   string `mapstructure:"endpoint" json:"endpoint"`

	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" json:"request_timeout_seconds"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".mcpauth")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults plus env cover it.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("region", "us-east-1")
	viper.SetDefault("auto_refresh", true)
	viper.SetDefault("refresh_buffer_seconds", DefaultRefreshBufferSeconds)
	viper.SetDefault("cache_ttl_minutes", DefaultCacheTTLMinutes)
	viper.SetDefault("request_timeout_seconds", DefaultRequestTimeoutSeconds)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables explicitly so the mapping
// stays auditable. Hardcoded keys cannot fail to bind; a panic here is a
// bug, not a runtime error.
func bindEnvVariables() {
	mustBind := func(key string, envVars ...string) {
		if err := viper.BindEnv(append([]string{key}, envVars...)...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q: %v", key, err))
		}
	}

	mustBind("region", "MCPAUTH_REGION", "AWS_REGION")
	mustBind("user_pool_id", "MCPAUTH_USER_POOL_ID")
	mustBind("client_id", "MCPAUTH_CLIENT_ID")
	mustBind("username", "MCPAUTH_USERNAME")
	mustBind("password", "MCPAUTH_PASSWORD")
	mustBind("credentials_secret", "MCPAUTH_CREDENTIALS_SECRET")
	mustBind("auto_refresh", "MCPAUTH_AUTO_REFRESH")
	mustBind("refresh_buffer_seconds", "MCPAUTH_REFRESH_BUFFER_SECONDS")
	mustBind("cache_ttl_minutes", "MCPAUTH_CACHE_TTL_MINUTES")
	mustBind("request_timeout_seconds", "MCPAUTH_REQUEST_TIMEOUT_SECONDS")
	mustBind("runtime_arn", "MCPAUTH_RUNTIME_ARN")
	mustBind("endpoint", "MCPAUTH_ENDPOINT")
	mustBind("log_level", "MCPAUTH_LOG_LEVEL")
	mustBind("log_json", "MCPAUTH_LOG_JSON")
}

// maskedValue is the placeholder for masked sensitive data. Full-width
// blocks avoid substring matches against real password characters.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 chars or
// fewer are fully masked; longer ones keep the first and last 2 chars for
// debug utility. This defends against accidental logging, nothing more.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit masking of the
// password field.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.Password = maskSecret(a.Password)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
