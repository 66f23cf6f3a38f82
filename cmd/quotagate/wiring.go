package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/mixwave/quotagate/adapters/clock"
	"github.com/mixwave/quotagate/adapters/idgen"
	"github.com/mixwave/quotagate/adapters/memory"
	"github.com/mixwave/quotagate/adapters/metrics"
	"github.com/mixwave/quotagate/adapters/sqlite"
	"github.com/mixwave/quotagate/app"
	"github.com/mixwave/quotagate/config"
	"github.com/mixwave/quotagate/ports"
)

func buildLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// buildStores opens the account and event stores per the configured
// driver. The returned close func is a no-op for the memory driver.
func buildStores(cfg *config.Config) (ports.AccountStore, ports.UsageEventStore, func() error, error) {
	switch cfg.Database.Driver {
	case "memory":
		return memory.NewAccountStore(), memory.NewUsageEventStore(), func() error { return nil }, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		return sqlite.NewAccountStore(db), sqlite.NewUsageEventStore(db), db.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func buildLedger(cfg *config.Config, logger zerolog.Logger, collector *metrics.Collector) (*app.Ledger, func() error, error) {
	accounts, events, closeFn, err := buildStores(cfg)
	if err != nil {
		return nil, nil, err
	}

	catalog := cfg.Plans.Catalog()
	clk := clock.Real{}
	resolver := app.NewResolver(app.ResolverConfig{
		Accounts: accounts,
		IDs:      idgen.UUID{},
		Clock:    clk,
		Logger:   logger,
	})
	ledger := app.NewLedger(app.LedgerConfig{
		Resolver: resolver,
		Accounts: accounts,
		Events:   events,
		IDs:      idgen.UUID{},
		Clock:    clk,
		Catalog:  catalog,
		Metrics:  collector,
		Logger:   logger,
	})
	return ledger, closeFn, nil
}

// openLedger is the one-shot variant used by the management commands:
// load the config file, build the ledger, no metrics, quiet logger.
func openLedger() (*app.Ledger, func() error, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return buildLedger(cfg, zerolog.Nop(), nil)
}
