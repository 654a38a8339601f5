package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/altarhq/altar/pkg/auth"
	"github.com/altarhq/altar/pkg/auth/apikey"
	"github.com/altarhq/altar/pkg/auth/jwt"
	"github.com/altarhq/altar/pkg/auth/noop"
	"github.com/altarhq/altar/pkg/config"
	"github.com/altarhq/altar/pkg/storage"
	"github.com/altarhq/altar/pkg/storage/memory"
	"github.com/altarhq/altar/pkg/storage/postgres"
	"github.com/altarhq/altar/pkg/storage/sqlite"
)

// migrator is implemented by SQL backends.
type migrator interface {
	Migrate(ctx context.Context) (int, error)
}

// openStorage opens the configured backend. The returned client is
// unscoped; callers wrap it with scoped.New.
func openStorage(ctx context.Context, cfg config.StorageConfig, migrate bool) (storage.Client, error) {
	switch cfg.Type {
	case "memory":
		slog.Info("storage enabled", "type", "memory")
		return memory.New(), nil
	case "sqlite":
		s, err := sqlite.Open(ctx, sqlite.Config{
			Path:           cfg.SQLite.Path,
			MigrateOnStart: migrate && cfg.SQLite.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		slog.Info("storage enabled", "type", "sqlite", "path", cfg.SQLite.Path)
		return s, nil
	case "postgres":
		s, err := postgres.New(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			MigrateOnStart:  migrate && cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		slog.Info("storage enabled", "type", "postgres", "max_conns", cfg.Postgres.MaxConns)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// buildAuthChain creates the authenticator chain for cfg.
func buildAuthChain(cfg config.AuthConfig) (*auth.AuthChain, error) {
	switch cfg.Type {
	case "none", "":
		slog.Warn("authentication disabled: every request runs as an unscoped admin")
		return &auth.AuthChain{Authenticators: []auth.Authenticator{&noop.Authenticator{}}}, nil
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key: k.Key,
				Principal: auth.Principal{
					Subject:     k.Subject,
					Role:        k.Role,
					TenantID:    strings.TrimSpace(k.TenantID),
					ServiceTier: k.ServiceTier,
				},
			})
		}
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{apikey.New(entries)},
			DefaultDecision: auth.No,
		}, nil
	case "jwt":
		return &auth.AuthChain{
			Authenticators: []auth.Authenticator{jwt.New(jwt.Config{
				Issuer:      cfg.JWT.Issuer,
				Audience:    cfg.JWT.Audience,
				JWKSURL:     cfg.JWT.JWKSURL,
				UserClaim:   cfg.JWT.UserClaim,
				RoleClaim:   cfg.JWT.RoleClaim,
				TenantClaim: cfg.JWT.TenantClaim,
				ScopesClaim: cfg.JWT.ScopesClaim,
				CacheTTL:    cfg.JWT.CacheTTL,
			})},
			DefaultDecision: auth.No,
		}, nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}
}

// buildLimiter returns nil when no limit is configured.
func buildLimiter(cfg config.RateLimitConfig) auth.RateLimiter {
	if cfg.DefaultRPM <= 0 && len(cfg.Tiers) == 0 {
		return nil
	}
	tiers := make(map[string]auth.TierConfig, len(cfg.Tiers))
	for name, rpm := range cfg.Tiers {
		tiers[name] = auth.TierConfig{RequestsPerMinute: rpm}
	}
	return auth.NewInProcessLimiter(tiers, cfg.DefaultRPM)
}

// bypassEndpoints returns the unauthenticated paths, including a custom
// metrics path.
func bypassEndpoints(cfg *config.Config) []string {
	eps := append([]string(nil), auth.DefaultBypassEndpoints...)
	if m := cfg.Observability.Metrics; m.Enabled && m.Path != "" && m.Path != "/metrics" {
		eps = append(eps, m.Path)
	}
	return eps
}
