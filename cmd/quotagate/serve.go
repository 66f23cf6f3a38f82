package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mixwave/quotagate/adapters/hasher"
	"github.com/mixwave/quotagate/adapters/metrics"
	"github.com/mixwave/quotagate/config"
	"github.com/mixwave/quotagate/web"
)

var (
	hotReload bool
	storeName string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the metering HTTP service",
	Long: `Start the quotagate HTTP service.

The server will:
  - Load configuration from quotagate.yaml (or --config)
  - Open the account and usage-event stores
  - Serve the usage and plan endpoints under /v1
  - Reload configuration on file change or SIGHUP

Environment variables:
  QUOTAGATE_ADMIN_TOKEN_HASH  - bcrypt hash of the admin bearer token

Examples:
  quotagate serve
  quotagate serve --config /etc/quotagate/config.yaml
  quotagate serve --hot-reload=false
  quotagate serve --store memory`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
	serveCmd.Flags().StringVar(&storeName, "store", "", "override the configured store driver (sqlite or memory)")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	var (
		cfg    *config.Config
		holder *config.Holder
	)
	if hasConfigFile {
		h, err := config.NewHolder(cfgFile, buildLogger(config.Default().Logging))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		defer h.Stop()
		holder = h
		cfg = holder.Get()
	} else {
		c, err := config.LoadOrDefault(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}

	if storeName != "" {
		// Local runs: quotagate serve --store memory
		override := *cfg
		override.Database.Driver = storeName
		if err := override.Validate(); err != nil {
			return err
		}
		cfg = &override
	}

	logger := buildLogger(cfg.Logging)
	if !hasConfigFile {
		logger.Info().Str("path", cfgFile).Msg("no config file, using defaults")
	}

	adminTokenHash := func() string { return cfg.Admin.TokenHash }
	if holder != nil {
		adminTokenHash = func() string { return holder.Get().Admin.TokenHash }
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New()
	}

	ledger, closeStores, err := buildLedger(cfg, logger, collector)
	if err != nil {
		return fmt.Errorf("initialize stores: %w", err)
	}
	defer closeStores()

	// Hot reload only works with a config file. Hooks are registered
	// before the watchers start so no reload slips past them.
	if holder != nil && hotReload {
		holder.OnChange(func(c *config.Config) {
			ledger.SetCatalog(c.Plans.Catalog())
		})
		if collector != nil {
			holder.OnReload(func(err error) {
				if err != nil {
					collector.ConfigReloadErrors.Inc()
					return
				}
				collector.ConfigReloads.Inc()
			})
		}
		if err := holder.WatchFile(); err != nil {
			logger.Warn().Err(err).Msg("config file watch unavailable")
		}
		holder.WatchSignals()
	}

	handler := web.NewHandler(web.Deps{
		Ledger:         ledger,
		Hasher:         hasher.NewBcrypt(0),
		AdminTokenHash: adminTokenHash,
		MetricsEnabled: cfg.Metrics.Enabled,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler.Router(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
