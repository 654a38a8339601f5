package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	switch c.Storage.Type {
	case "memory":
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			errs = append(errs, fmt.Errorf("storage.sqlite.path is required when storage.type is \"sqlite\""))
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\", \"sqlite\", or \"postgres\", got %q", c.Storage.Type))
	}

	switch c.Auth.Type {
	case "none":
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, fmt.Errorf("auth.api_keys must not be empty when auth.type is \"apikey\""))
		}
		for i, k := range c.Auth.APIKeys {
			errs = append(errs, k.validate(i)...)
		}
	case "jwt":
		if c.Auth.JWT.JWKSURL == "" {
			errs = append(errs, fmt.Errorf("auth.jwt.jwks_url is required when auth.type is \"jwt\""))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	if c.Auth.RateLimit.DefaultRPM < 0 {
		errs = append(errs, fmt.Errorf("auth.rate_limit.default_rpm must be >= 0, got %d", c.Auth.RateLimit.DefaultRPM))
	}

	if c.Site.BaseDomain == "" {
		errs = append(errs, fmt.Errorf("site.base_domain is required"))
	}

	return errors.Join(errs...)
}

func (k APIKeyConfig) validate(i int) []error {
	var errs []error
	if k.Key == "" && k.KeyFile == "" {
		errs = append(errs, fmt.Errorf("auth.api_keys[%d]: key or key_file is required", i))
	}
	if k.Subject == "" {
		errs = append(errs, fmt.Errorf("auth.api_keys[%d].subject is required", i))
	}
	switch k.Role {
	case "", "couple":
		if strings.TrimSpace(k.TenantID) == "" {
			errs = append(errs, fmt.Errorf("auth.api_keys[%d].tenant_id is required for couple keys", i))
		}
	case "admin":
		if strings.TrimSpace(k.TenantID) != "" {
			errs = append(errs, fmt.Errorf("auth.api_keys[%d].tenant_id must be empty for admin keys", i))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.api_keys[%d].role must be \"couple\" or \"admin\", got %q", i, k.Role))
	}
	return errs
}
