package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks the configuration for the fields every command needs.
// Endpoint requirements are command-specific; see RequireTarget.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.Region == "" {
		return ErrMissingRegion
	}
	if c.UserPoolID != "" && !strings.Contains(c.UserPoolID, "_") {
		return fmt.Errorf("%w: %q (expected <region>_<id>)", ErrInvalidUserPoolID, c.UserPoolID)
	}
	if c.ClientID == "" {
		return ErrMissingClientID
	}

	// Credentials come either inline or via Secrets Manager.
	hasInline := c.Username != "" && c.Password != ""
	if !hasInline && c.CredentialsSecret == "" {
		return fmt.Errorf("%w: set username/password or credentials_secret", ErrMissingCredentials)
	}

	if c.RefreshBufferSeconds < 0 {
		return fmt.Errorf("%w: %d seconds (must be >= 0)", ErrInvalidRefreshBuffer, c.RefreshBufferSeconds)
	}
	if c.CacheTTLMinutes < 0 {
		return fmt.Errorf("%w: %d minutes (must be >= 0)", ErrInvalidCacheTTL, c.CacheTTLMinutes)
	}

	return nil
}

// RequireTarget checks that an MCP target is configured. Commands that talk
// to a server call this on top of Validate; the token command does not.
func (c *Config) RequireTarget() error {
	if c.RuntimeARN == "" && c.Endpoint == "" {
		return fmt.Errorf("%w: set runtime_arn or endpoint", ErrMissingEndpoint)
	}
	return nil
}

// RefreshBuffer returns the refresh buffer as a duration.
func (c *Config) RefreshBuffer() time.Duration {
	return time.Duration(c.RefreshBufferSeconds) * time.Second
}

// CacheTTL returns the credential cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
