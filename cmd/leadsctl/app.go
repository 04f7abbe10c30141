package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-leads-dashboard/components/leads"
	"github.com/goliatone/go-leads-dashboard/internal/config"
	"github.com/goliatone/go-leads-dashboard/internal/logging"
	"github.com/goliatone/go-leads-dashboard/pkg/quotations"
	"github.com/goliatone/go-leads-dashboard/pkg/sessionstore"
)

// app holds the collaborators shared by every subcommand.
type app struct {
	cfg         *config.Config
	logger      zerolog.Logger
	service     *leads.Service
	credentials *leads.CredentialList
	notifier    *leads.BroadcastNotifier
	registry    *prometheus.Registry
	telemetry   leads.Telemetry
	closers     []func()
}

type appOptions struct {
	// Storage replaces the configured session storage.
	Storage leads.Storage
}

func loadConfig(g *Globals) (*config.Config, error) {
	if err := config.LoadEnvFiles(g.EnvFile...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:         cfg,
		logger:      logger,
		credentials: leads.NewCredentialList(cfg.Credentials),
		notifier:    leads.NewBroadcastNotifier(32),
		registry:    prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := leads.NewPrometheusTelemetry(a.registry)
	if err != nil {
		return nil, fmt.Errorf("leadsctl: metrics: %w", err)
	}
	a.telemetry = metrics

	storage := opts.Storage
	if storage == nil {
		storage, err = a.openStorage(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	source, fallback, err := openSource(cfg.API)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.service = leads.NewService(leads.Options{
		Source:          source,
		Fallback:        fallback,
		Credentials:     a.credentials,
		Storage:         storage,
		Notifier:        leads.MultiNotifier{a.notifier, leads.LogNotifier{Logger: logger}},
		Telemetry:       a.telemetry,
		Logger:          &a.logger,
		Locale:          cfg.Leads.Locale,
		PageSize:        cfg.Leads.PageSize,
		FallbackTTL:     cfg.Leads.FallbackTTL,
		FallbackSize:    cfg.Leads.FallbackSize,
		ChartCache:      leads.NewChartCache(cfg.Leads.ChartTTL),
		ChartTheme:      cfg.Leads.ChartTheme,
		ChartAssetsHost: cfg.Leads.ChartAssetsHost,
	})
	return a, nil
}

func (a *app) openStorage(ctx context.Context) (leads.Storage, error) {
	switch a.cfg.Storage.Driver {
	case config.StorageMemory:
		return leads.NewInMemoryStorage(), nil
	case config.StoragePostgres:
		store, pool, err := sessionstore.Connect(ctx, a.cfg.Storage.DSN, a.cfg.Storage.Table)
		if err != nil {
			return nil, fmt.Errorf("leadsctl: session storage: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		return store, nil
	default:
		store, err := leads.NewFileStorage(a.cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("leadsctl: session storage: %w", err)
		}
		return store, nil
	}
}

// openSource returns the bulk source and the per-lead fallback. A fixture file replaces the
// remote backend for both.
func openSource(cfg config.APIConfig) (leads.QuotationSource, leads.LeadQuotationSource, error) {
	if cfg.FixtureFile != "" {
		fixture, err := quotations.LoadFixtureFile(cfg.FixtureFile)
		if err != nil {
			return nil, nil, fmt.Errorf("leadsctl: fixture: %w", err)
		}
		return fixture, fixture, nil
	}
	var validator leads.ResponseValidator
	if cfg.SkipSchemaValidation {
		validator = leads.NoopValidator()
	}
	client, err := quotations.NewHTTPClient(quotations.HTTPConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		Validator:  validator,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("leadsctl: quotations client: %w", err)
	}
	return client, client, nil
}

// Close releases storage connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
