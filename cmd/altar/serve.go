package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/altarhq/altar/pkg/auth"
	"github.com/altarhq/altar/pkg/model"
	"github.com/altarhq/altar/pkg/sitehost"
	"github.com/altarhq/altar/pkg/storage/scoped"
	transporthttp "github.com/altarhq/altar/pkg/transport/http"
	"github.com/altarhq/altar/pkg/wedding"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until SIGINT or SIGTERM.

Every /v1 request is authenticated and runs in the caller's tenant scope;
/site requests are scoped by their Host header.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	cfg := opts.Config

	db, err := openStorage(ctx, cfg.Storage, true)
	if err != nil {
		return err
	}
	defer db.Close()

	client := scoped.New(db, model.Default())

	svc, err := wedding.New(client, wedding.DefaultConfig())
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	chain, err := buildAuthChain(cfg.Auth)
	if err != nil {
		return err
	}
	limiter := buildLimiter(cfg.Auth.RateLimit)
	resolver := sitehost.NewResolver(client, cfg.Site.BaseDomain, cfg.Site.CacheTTL)

	adapterCfg := transporthttp.DefaultConfig()
	adapterCfg.MetricsPath = ""
	if cfg.Observability.Metrics.Enabled {
		adapterCfg.MetricsPath = cfg.Observability.Metrics.Path
	}

	adapter := transporthttp.NewAdapter(svc, adapterCfg,
		transporthttp.WithAuth(auth.Middleware(chain, limiter, bypassEndpoints(cfg))),
		transporthttp.WithSite(resolver.Middleware),
	)

	srv := transporthttp.NewServer(adapter.Handler(),
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
		transporthttp.WithWriteTimeout(cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(slog.Default()),
	)

	slog.Info("altar configured",
		"storage", cfg.Storage.Type,
		"auth", cfg.Auth.Type,
		"site_domain", cfg.Site.BaseDomain,
	)
	return srv.Run(ctx)
}
