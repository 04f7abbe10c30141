package gorouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-leads-dashboard/components/leads"
	"github.com/goliatone/go-leads-dashboard/components/leads/commands"
	"github.com/goliatone/go-leads-dashboard/components/leads/httpapi"
)

// Config wires go-router with the lead controller, the JSON API and the notification stream.
type Config[T any] struct {
	Router        router.Router[T]
	Controller    *leads.Controller
	API           httpapi.Executor
	Tokens        *httpapi.SessionTokens
	Session       httpapi.SessionMatcher
	Notifications *leads.BroadcastNotifier
	BasePath      string
	Routes        RouteConfig
}

// RouteConfig customizes the relative paths of the dashboard endpoints.
type RouteConfig struct {
	Login         string
	Logout        string
	Dashboard     string
	Leads         string
	LeadDetail    string
	APIBase       string
	Session       string
	LeadsAPI      string
	LeadAPI       string
	QuotationsAPI string
	Refresh       string
	DashboardAPI  string
	Notifications string
}

// Register mounts the HTML pages, the JSON API and the notification WebSocket on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	if cfg.API == nil {
		return errors.New("gorouter: api executor is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	group := cfg.Router.Group(cfg.BasePath)
	h := &handlers[T]{cfg: cfg, routes: routes}

	group.Get(routes.Login, router.WrapHandler(h.loginPage))
	group.Post(routes.Login, router.WrapHandler(h.loginSubmit))
	group.Get(routes.Logout, router.WrapHandler(h.logout))
	group.Get(routes.Dashboard, router.WrapHandler(h.dashboardPage))
	group.Get(routes.Leads, router.WrapHandler(h.leadsPage))
	group.Get(routes.LeadDetail, router.WrapHandler(h.leadDetailPage))

	api := group.Group(routes.APIBase)
	api.Post(routes.Session, router.WrapHandler(h.apiLogin))
	api.Delete(routes.Session, router.WrapHandler(h.apiLogout))
	api.Get(routes.Session, router.WrapHandler(h.protected(h.apiSession)))
	api.Get(routes.LeadsAPI, router.WrapHandler(h.protected(h.apiLeads)))
	api.Get(routes.LeadAPI, router.WrapHandler(h.protected(h.apiLead)))
	api.Get(routes.QuotationsAPI, router.WrapHandler(h.protected(h.apiLeadQuotations)))
	api.Post(routes.Refresh, router.WrapHandler(h.protected(h.apiRefresh)))
	api.Get(routes.DashboardAPI, router.WrapHandler(h.protected(h.apiDashboard)))

	if cfg.Notifications != nil {
		registerWebSocket(api, cfg.Notifications, routes.Notifications)
	}
	return nil
}

type handlers[T any] struct {
	cfg    Config[T]
	routes RouteConfig
}

func (h *handlers[T]) loginPage(ctx router.Context) error {
	if h.authorized(ctx) {
		return redirect(ctx, h.path(h.routes.Dashboard))
	}
	return h.renderLogin(ctx, leads.LoginView{})
}

func (h *handlers[T]) loginSubmit(ctx router.Context) error {
	form, err := url.ParseQuery(string(ctx.Body()))
	if err != nil {
		return h.renderLogin(ctx, leads.LoginView{Error: "Invalid form submission"})
	}
	email := strings.TrimSpace(form.Get("email"))
	input := commands.LoginInput{Email: email, Password: form.Get("password")}
	if err := h.cfg.API.Login(ctx.Context(), input); err != nil {
		if leads.IsAuthError(err) {
			return h.renderLogin(ctx, leads.LoginView{Email: email, Error: "Invalid email or password"})
		}
		return respondError(ctx, httpapi.StatusFor(err), err)
	}
	if err := h.issueCookie(ctx); err != nil {
		return respondError(ctx, http.StatusInternalServerError, err)
	}
	return redirect(ctx, h.path(h.routes.Dashboard))
}

func (h *handlers[T]) logout(ctx router.Context) error {
	if err := h.cfg.API.Logout(ctx.Context(), commands.LogoutInput{}); err != nil {
		return respondError(ctx, httpapi.StatusFor(err), err)
	}
	ctx.SetHeader("Set-Cookie", httpapi.ClearCookie().String())
	return redirect(ctx, h.path(h.routes.Login))
}

func (h *handlers[T]) dashboardPage(ctx router.Context) error {
	if !h.authorized(ctx) {
		return h.renderLogin(ctx, leads.LoginView{})
	}
	return h.html(ctx, func(buf *bytes.Buffer) error {
		return h.cfg.Controller.RenderDashboard(ctx.Context(), buf)
	})
}

func (h *handlers[T]) leadsPage(ctx router.Context) error {
	if !h.authorized(ctx) {
		return h.renderLogin(ctx, leads.LoginView{})
	}
	query, err := httpapi.ParseTableQuery(func(key string) string { return ctx.Query(key) })
	if err != nil {
		return respondError(ctx, http.StatusBadRequest, err)
	}
	return h.html(ctx, func(buf *bytes.Buffer) error {
		return h.cfg.Controller.RenderLeads(ctx.Context(), query, buf)
	})
}

func (h *handlers[T]) leadDetailPage(ctx router.Context) error {
	if !h.authorized(ctx) {
		return h.renderLogin(ctx, leads.LoginView{})
	}
	input, err := httpapi.ParseLeadInput(ctx.Param("id"), ctx.Query("quotation"))
	if err != nil {
		return respondError(ctx, http.StatusBadRequest, err)
	}
	return h.html(ctx, func(buf *bytes.Buffer) error {
		return h.cfg.Controller.RenderLeadDetail(ctx.Context(), input.LeadID, input.QuotationID, buf)
	})
}

func (h *handlers[T]) apiLogin(ctx router.Context) error {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
		return respondError(ctx, http.StatusBadRequest, err)
	}
	if err := h.cfg.API.Login(ctx.Context(), commands.LoginInput{Email: payload.Email, Password: payload.Password}); err != nil {
		return respondError(ctx, httpapi.StatusFor(err), err)
	}
	if err := h.issueCookie(ctx); err != nil {
		return respondError(ctx, http.StatusInternalServerError, err)
	}
	return h.apiSession(ctx)
}

func (h *handlers[T]) apiLogout(ctx router.Context) error {
	if err := h.cfg.API.Logout(ctx.Context(), commands.LogoutInput{}); err != nil {
		return respondError(ctx, httpapi.StatusFor(err), err)
	}
	ctx.SetHeader("Set-Cookie", httpapi.ClearCookie().String())
	return ctx.JSON(http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *handlers[T]) apiSession(ctx router.Context) error {
	state, err := h.cfg.API.Session(ctx.Context())
	if err != nil {
		return respondError(ctx, httpapi.StatusFor(err), err)
	}
	return ctx.JSON(http.StatusOK, state)
}

func (h *handlers[T]) apiLeads(ctx router.Context) error {
	query, err := httpapi.ParseTableQuery(func(key string) string { return ctx.Query(key) })
	if err != nil {
		return respondError(ctx, http.StatusBadRequest, err)
	}
	page, err := h.cfg.API.Leads(ctx.Context(), query)
	if err != nil {
		return respondError(ctx, httpapi.StatusFor(err), err)
	}
	return ctx.JSON(http.StatusOK, page)
}

func (h *handlers[T]) apiLead(ctx router.Context) error {
	input, err := httpapi.ParseLeadInput(ctx.Param("id"), "")
	if err != nil {
		return respondError(ctx, http.StatusBadRequest, err)
	}
	lead, err := h.cfg.API.Lead(ctx.Context(), input)
	if err != nil {
		return respondError(ctx, httpapi.StatusFor(err), err)
	}
	return ctx.JSON(http.StatusOK, lead)
}

func (h *handlers[T]) apiLeadQuotations(ctx router.Context) error {
	input, err := httpapi.ParseLeadInput(ctx.Param("id"), "")
	if err != nil {
		return respondError(ctx, http.StatusBadRequest, err)
	}
	quotations, err := h.cfg.API.LeadQuotations(ctx.Context(), input)
	if err != nil {
		return respondError(ctx, httpapi.StatusFor(err), err)
	}
	if quotations == nil {
		quotations = []leads.RawQuotation{}
	}
	return ctx.JSON(http.StatusOK, map[string]any{"lead_id": input.LeadID, "quotations": quotations})
}

func (h *handlers[T]) apiRefresh(ctx router.Context) error {
	if err := h.cfg.API.Refresh(ctx.Context(), commands.RefreshQuotationsInput{}); err != nil {
		return respondError(ctx, httpapi.StatusFor(err), err)
	}
	return ctx.JSON(http.StatusAccepted, map[string]string{"status": "refreshed"})
}

func (h *handlers[T]) apiDashboard(ctx router.Context) error {
	stats, err := h.cfg.API.Dashboard(ctx.Context())
	if err != nil {
		return respondError(ctx, httpapi.StatusFor(err), err)
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (h *handlers[T]) protected(next func(router.Context) error) func(router.Context) error {
	return func(ctx router.Context) error {
		if !h.authorized(ctx) {
			return respondError(ctx, http.StatusUnauthorized, leads.ErrNotAuthenticated)
		}
		return next(ctx)
	}
}

// authorized checks the request token against the active session. Without a token signer the
// session state alone decides.
func (h *handlers[T]) authorized(ctx router.Context) bool {
	if h.cfg.Tokens == nil {
		state, err := h.cfg.API.Session(ctx.Context())
		return err == nil && state.Authenticated
	}
	raw := httpapi.ExtractToken(ctx.Header("Authorization"), ctx.Header("Cookie"), ctx.Query("token"))
	sessionID, err := h.cfg.Tokens.Verify(raw)
	if err != nil {
		return false
	}
	if h.cfg.Session == nil {
		return true
	}
	return h.cfg.Session.Matches(sessionID)
}

func (h *handlers[T]) issueCookie(ctx router.Context) error {
	if h.cfg.Tokens == nil {
		return nil
	}
	state, err := h.cfg.API.Session(ctx.Context())
	if err != nil {
		return err
	}
	if state.Identity == nil {
		return leads.ErrNotAuthenticated
	}
	token, expires, err := h.cfg.Tokens.Issue(*state.Identity)
	if err != nil {
		return err
	}
	ctx.SetHeader("Set-Cookie", h.cfg.Tokens.Cookie(token, expires).String())
	return nil
}

func (h *handlers[T]) renderLogin(ctx router.Context, view leads.LoginView) error {
	return h.html(ctx, func(buf *bytes.Buffer) error {
		return h.cfg.Controller.RenderLogin(ctx.Context(), view, buf)
	})
}

func (h *handlers[T]) html(ctx router.Context, render func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		if errors.Is(err, leads.ErrNotAuthenticated) {
			buf.Reset()
			if err := h.cfg.Controller.RenderLogin(ctx.Context(), leads.LoginView{}, &buf); err != nil {
				return respondError(ctx, http.StatusInternalServerError, err)
			}
		} else {
			return respondError(ctx, httpapi.StatusFor(err), err)
		}
	}
	ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
	return ctx.Send(buf.Bytes())
}

func (h *handlers[T]) path(p string) string {
	return strings.TrimSuffix(h.cfg.BasePath, "/") + p
}

func registerWebSocket[T any](r router.Router[T], notifier *leads.BroadcastNotifier, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := notifier.Subscribe()
		defer cancel()
		for {
			select {
			case note, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(note); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func redirect(ctx router.Context, location string) error {
	ctx.SetHeader("Location", location)
	return ctx.JSON(http.StatusSeeOther, map[string]string{"location": location})
}

func respondError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Login == "" {
		routes.Login = "/login"
	}
	if routes.Logout == "" {
		routes.Logout = "/logout"
	}
	if routes.Dashboard == "" {
		routes.Dashboard = "/dashboard"
	}
	if routes.Leads == "" {
		routes.Leads = "/users"
	}
	if routes.LeadDetail == "" {
		routes.LeadDetail = "/users/:id"
	}
	if routes.APIBase == "" {
		routes.APIBase = "/api"
	}
	if routes.Session == "" {
		routes.Session = "/session"
	}
	if routes.LeadsAPI == "" {
		routes.LeadsAPI = "/leads"
	}
	if routes.LeadAPI == "" {
		routes.LeadAPI = "/leads/:id"
	}
	if routes.QuotationsAPI == "" {
		routes.QuotationsAPI = "/leads/:id/quotations"
	}
	if routes.Refresh == "" {
		routes.Refresh = "/quotations/refresh"
	}
	if routes.DashboardAPI == "" {
		routes.DashboardAPI = "/dashboard"
	}
	if routes.Notifications == "" {
		routes.Notifications = "/notifications/ws"
	}
	return routes
}
