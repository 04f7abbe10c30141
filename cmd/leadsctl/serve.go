package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-leads-dashboard/components/leads"
	"github.com/goliatone/go-leads-dashboard/components/leads/gorouter"
	"github.com/goliatone/go-leads-dashboard/components/leads/httpapi"
	"github.com/goliatone/go-leads-dashboard/internal/config"
	"github.com/goliatone/go-leads-dashboard/pkg/goadmin"
)

const transportHTTP = "http"

type serveCmd struct {
	Listen    string `help:"Override server.listen."`
	Transport string `default:"fiber" enum:"fiber,http" help:"fiber serves pages and API through go-router, http serves the JSON API on net/http."`
	Watch     bool   `default:"true" negatable:"" help:"Reload credentials when the config file changes."`
}

func (cmd *serveCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()
	a.logger.Debug().Interface("config", cfg.Redacted()).Msg("configuration loaded")

	restored, err := a.service.Restore(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("session restore failed")
	} else if restored {
		identity, _ := a.service.Identity()
		a.logger.Info().Str("email", maskEmail(identity.Email)).Msg("session restored")
	}

	tokens, err := a.sessionTokens()
	if err != nil {
		return err
	}

	if g.Config != "" && cmd.Watch {
		watcher, err := config.Watch(g.Config, a.logger, func(next *config.Config) {
			a.credentials.Replace(next.Credentials)
			a.logger.Info().Int("credentials", a.credentials.Len()).Msg("credentials reloaded")
		})
		if err != nil {
			a.logger.Warn().Err(err).Msg("config watch disabled")
		} else {
			defer watcher.Stop()
		}
	}

	metrics := a.metricsServer()
	go func() {
		if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Str("addr", metrics.Addr).Msg("metrics server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = metrics.Shutdown(shutdownCtx)
	}()

	listen := cmd.Listen
	if listen == "" {
		listen = cfg.Server.Listen
	}
	executor := httpapi.NewServiceExecutor(a.service, a.telemetry)

	if cmd.Transport == transportHTTP {
		mux := a.apiMux(executor, tokens)
		a.logger.Info().Str("addr", listen).Str("metrics", cfg.Server.MetricsListen).Msg("serving JSON API")
		return (&http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}).ListenAndServe()
	}

	menu, err := a.menu(ctx)
	if err != nil {
		return err
	}
	renderer, err := leads.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("leadsctl: templates: %w", err)
	}
	controller := leads.NewController(leads.ControllerOptions{
		Service:  a.service,
		Renderer: renderer,
		Notices:  a.notifier.History,
		Title:    cfg.Server.Title,
		Menu:     menu.NavItems(goadmin.DefaultMenuCode),
	})

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:        server.Router(),
		Controller:    controller,
		API:           executor,
		Tokens:        tokens,
		Session:       a.service.Session(),
		Notifications: a.notifier,
	}); err != nil {
		return fmt.Errorf("leadsctl: register routes: %w", err)
	}

	a.logger.Info().
		Str("addr", listen).
		Str("metrics", cfg.Server.MetricsListen).
		Msgf("dashboard ready: http://localhost%s/login", listen)
	return server.Serve(listen)
}

// sessionTokens signs API tokens with the configured secret. Without one a random secret is
// used, so tokens do not survive a restart.
func (a *app) sessionTokens() (*httpapi.SessionTokens, error) {
	secret := a.cfg.Server.TokenSecret
	if secret == "" {
		secret = uuid.NewString()
		a.logger.Warn().Msg("server.token_secret not set, using an ephemeral secret")
	}
	tokens, err := httpapi.NewSessionTokens(secret, a.cfg.Server.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("leadsctl: session tokens: %w", err)
	}
	return tokens, nil
}

func (a *app) menu(ctx context.Context) (*goadmin.Menu, error) {
	menu := goadmin.NewMenu()
	admin, err := goadmin.New(goadmin.Config{
		EnableLeads: true,
		MenuCode:    goadmin.DefaultMenuCode,
		MenuBuilder: menu,
		Service:     a.service,
	})
	if err != nil {
		return nil, err
	}
	if err := admin.Bootstrap(ctx); err != nil {
		return nil, err
	}
	return menu, nil
}

func (a *app) metricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return &http.Server{Addr: a.cfg.Server.MetricsListen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

// apiMux serves the JSON API plus the notification streams on net/http.
func (a *app) apiMux(executor httpapi.Executor, tokens *httpapi.SessionTokens) *http.ServeMux {
	handlers := &httpapi.Handlers{API: executor, Tokens: tokens, Session: a.service.Session()}
	mux := handlers.Routes()
	mux.Handle("GET /api/notifications/ws", handlers.RequireSession(http.HandlerFunc(a.notifier.ServeWebSocket)))
	mux.Handle("GET /api/notifications/events", handlers.RequireSession(http.HandlerFunc(a.notifier.ServeSSE)))
	return mux
}
