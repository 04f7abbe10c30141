package gorouter

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	router "github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-leads-dashboard/components/leads"
	"github.com/goliatone/go-leads-dashboard/components/leads/commands"
	"github.com/goliatone/go-leads-dashboard/components/leads/httpapi"
	"github.com/goliatone/go-leads-dashboard/components/leads/queries"
)

func TestRegisterValidatesConfig(t *testing.T) {
	if err := Register(Config[struct{}]{}); err == nil {
		t.Fatalf("expected error when router/controller missing")
	}
	err := Register(Config[struct{}]{Router: newMockRouter(), Controller: leads.NewController(leads.ControllerOptions{})})
	if err == nil {
		t.Fatalf("expected error when api missing")
	}
}

func TestRegisterMountsRoutes(t *testing.T) {
	env := newRouteEnv(t)
	for _, key := range []string{
		"GET:/login", "POST:/login", "GET:/logout", "GET:/dashboard", "GET:/users", "GET:/users/:id",
		"POST:/api/session", "DELETE:/api/session", "GET:/api/session", "GET:/api/leads",
		"GET:/api/leads/:id", "GET:/api/leads/:id/quotations", "POST:/api/quotations/refresh", "GET:/api/dashboard",
	} {
		_, ok := env.router.routes[key]
		assert.True(t, ok, "missing route %s", key)
	}
	_, ok := env.router.ws["/api/notifications/ws"]
	assert.True(t, ok, "missing notification socket")
}

func TestDashboardWithoutSessionRendersLogin(t *testing.T) {
	env := newRouteEnv(t)
	ctx := newMockContext()
	require.NoError(t, env.router.routes["GET:/dashboard"](ctx))
	assert.Equal(t, leads.TemplateLogin, env.renderer.last)
	assert.Equal(t, "text/html; charset=utf-8", ctx.headers["Content-Type"])
	assert.Zero(t, env.view.statsCalls)
}

func TestLoginFormSetsCookieAndRedirects(t *testing.T) {
	env := newRouteEnv(t)
	ctx := newMockContext()
	ctx.reqBody = []byte("email=admin%40example.com&password=secret")

	require.NoError(t, env.router.routes["POST:/login"](ctx))
	assert.Equal(t, "admin@example.com", env.api.lastLogin.Email)
	assert.Equal(t, 303, ctx.status)
	assert.Equal(t, "/dashboard", ctx.headers["Location"])
	assert.True(t, strings.HasPrefix(ctx.headers["Set-Cookie"], httpapi.CookieName+"="))
}

func TestLoginFormShowsErrorOnBadCredentials(t *testing.T) {
	env := newRouteEnv(t)
	env.api.loginErr = &leads.AuthError{Email: "admin@example.com", Err: leads.ErrInvalidCredentials}
	ctx := newMockContext()
	ctx.reqBody = []byte("email=admin%40example.com&password=wrong")

	require.NoError(t, env.router.routes["POST:/login"](ctx))
	assert.Equal(t, leads.TemplateLogin, env.renderer.last)
	data := env.renderer.data.(map[string]any)
	assert.Equal(t, "Invalid email or password", data["error"])
	assert.Equal(t, "admin@example.com", data["email"])
	assert.Empty(t, ctx.headers["Set-Cookie"])
}

func TestDashboardWithTokenRendersDashboard(t *testing.T) {
	env := newRouteEnv(t)
	ctx := env.authorizedContext(t)
	require.NoError(t, env.router.routes["GET:/dashboard"](ctx))
	assert.Equal(t, leads.TemplateDashboard, env.renderer.last)
	assert.Equal(t, 1, env.view.statsCalls)
}

func TestLeadDetailPageRendersNotFound(t *testing.T) {
	env := newRouteEnv(t)
	env.view.detailErr = leads.ErrLeadNotFound
	ctx := env.authorizedContext(t)
	ctx.params["id"] = "99"
	ctx.queries["quotation"] = "4"

	require.NoError(t, env.router.routes["GET:/users/:id"](ctx))
	assert.Equal(t, leads.TemplateLeadDetail, env.renderer.last)
	data := env.renderer.data.(map[string]any)
	assert.Equal(t, true, data["not_found"])
	assert.Equal(t, [2]int{99, 4}, env.view.detailArgs)
}

func TestAPILeadsRequiresToken(t *testing.T) {
	env := newRouteEnv(t)
	ctx := newMockContext()
	require.NoError(t, env.router.routes["GET:/api/leads"](ctx))
	assert.Equal(t, 401, ctx.status)
	assert.Zero(t, env.api.leadsCalls)

	ctx = env.authorizedContext(t)
	ctx.queries["search"] = "acme"
	ctx.queries["page"] = "2"
	require.NoError(t, env.router.routes["GET:/api/leads"](ctx))
	assert.Equal(t, 200, ctx.status)
	assert.Equal(t, leads.TableQuery{Search: "acme", Page: 2}, env.api.lastQuery)
}

func TestAPITokenFromEndedSessionIsRejected(t *testing.T) {
	env := newRouteEnv(t)
	ctx := env.authorizedContext(t)
	env.matcher.id = "rotated"
	require.NoError(t, env.router.routes["GET:/api/dashboard"](ctx))
	assert.Equal(t, 401, ctx.status)
}

func TestAPILeadMapsNotFound(t *testing.T) {
	env := newRouteEnv(t)
	env.api.leadErr = leads.ErrLeadNotFound
	ctx := env.authorizedContext(t)
	ctx.params["id"] = "42"
	require.NoError(t, env.router.routes["GET:/api/leads/:id"](ctx))
	assert.Equal(t, 404, ctx.status)
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newRouteEnv(t)
	ctx := newMockContext()
	require.NoError(t, env.router.routes["GET:/logout"](ctx))
	assert.Equal(t, 1, env.api.logoutCalls)
	assert.Equal(t, "/login", ctx.headers["Location"])
	assert.Contains(t, ctx.headers["Set-Cookie"], "Max-Age=0")
}

// --- Test helpers ---

type routeEnv struct {
	router   *mockRouter
	renderer *stubRenderer
	view     *stubView
	api      *stubExecutor
	tokens   *httpapi.SessionTokens
	matcher  *stubMatcher
}

func newRouteEnv(t *testing.T) *routeEnv {
	t.Helper()
	tokens, err := httpapi.NewSessionTokens("route-secret", time.Hour)
	require.NoError(t, err)
	env := &routeEnv{
		router:   newMockRouter(),
		renderer: &stubRenderer{},
		view:     &stubView{},
		api:      &stubExecutor{},
		tokens:   tokens,
		matcher:  &stubMatcher{id: "sess-1"},
	}
	controller := leads.NewController(leads.ControllerOptions{Service: env.view, Renderer: env.renderer})
	require.NoError(t, Register(Config[struct{}]{
		Router:        env.router,
		Controller:    controller,
		API:           env.api,
		Tokens:        tokens,
		Session:       env.matcher,
		Notifications: leads.NewBroadcastNotifier(4),
	}))
	return env
}

func (e *routeEnv) authorizedContext(t *testing.T) *mockContext {
	t.Helper()
	token, _, err := e.tokens.Issue(leads.Identity{Email: "admin@example.com", SessionID: "sess-1"})
	require.NoError(t, err)
	ctx := newMockContext()
	ctx.reqHeaders["Authorization"] = "Bearer " + token
	return ctx
}

type mockRouter struct {
	router.Router[struct{}]
	prefix string
	routes map[string]router.HandlerFunc
	ws     map[string]func(router.WebSocketContext) error
}

func newMockRouter() *mockRouter {
	return &mockRouter{
		routes: map[string]router.HandlerFunc{},
		ws:     map[string]func(router.WebSocketContext) error{},
	}
}

func (m *mockRouter) Group(prefix string) router.Router[struct{}] {
	return &mockRouter{
		prefix: m.prefix + prefix,
		routes: m.routes,
		ws:     m.ws,
	}
}

func (m *mockRouter) record(method, path string, handler router.HandlerFunc) {
	m.routes[method+":"+m.prefix+path] = handler
}

func (m *mockRouter) Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.GET), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.POST), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.DELETE), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) WebSocket(path string, cfg router.WebSocketConfig, handler func(router.WebSocketContext) error) router.RouteInfo {
	m.ws[m.prefix+path] = handler
	return mockRouteInfo{}
}

type mockRouteInfo struct {
	router.RouteInfo
}

// baseContext aliases router.Context so the embedded field is not named
// Context, which would collide with the Context() method below.
type baseContext = router.Context

type mockContext struct {
	baseContext
	ctx        context.Context
	headers    map[string]string
	reqHeaders map[string]string
	queries    map[string]string
	params     map[string]string
	reqBody    []byte
	body       []byte
	status     int
}

func newMockContext() *mockContext {
	return &mockContext{
		ctx:        context.Background(),
		headers:    map[string]string{},
		reqHeaders: map[string]string{},
		queries:    map[string]string{},
		params:     map[string]string{},
	}
}

func (m *mockContext) Context() context.Context { return m.ctx }

func (m *mockContext) SetHeader(k, v string) router.Context {
	m.headers[k] = v
	return m
}

func (m *mockContext) Header(k string) string { return m.reqHeaders[k] }

func (m *mockContext) Send(b []byte) error {
	m.status = 200
	m.body = append([]byte{}, b...)
	return nil
}

func (m *mockContext) JSON(code int, v any) error {
	m.status = code
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.body = data
	return nil
}

func (m *mockContext) Body() []byte { return m.reqBody }

func (m *mockContext) Param(name string, defaultValue ...string) string {
	if v, ok := m.params[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockContext) Query(name string, defaultValue ...string) string {
	if v, ok := m.queries[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

type stubRenderer struct {
	calls int
	last  string
	data  any
}

func (s *stubRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	s.calls++
	s.last = name
	s.data = data
	if len(out) > 0 && out[0] != nil {
		out[0].Write([]byte("ok"))
	}
	return "ok", nil
}

type stubView struct {
	statsCalls int
	detailErr  error
	detailArgs [2]int
}

func (s *stubView) Identity() (leads.Identity, bool) { return leads.Identity{}, false }

func (s *stubView) Leads(context.Context, leads.TableQuery) (leads.TablePage, error) {
	return leads.TablePage{Page: 1, Pages: 1}, nil
}

func (s *stubView) LeadDetail(_ context.Context, id, quotationID int) (leads.LeadDetail, error) {
	s.detailArgs = [2]int{id, quotationID}
	return leads.LeadDetail{}, s.detailErr
}

func (s *stubView) DashboardStats(context.Context) (leads.DashboardStats, error) {
	s.statsCalls++
	return leads.DashboardStats{Cards: leads.DefaultStatCards()}, nil
}

type stubMatcher struct{ id string }

func (s *stubMatcher) Matches(id string) bool { return id != "" && id == s.id }

type stubExecutor struct {
	lastLogin   commands.LoginInput
	loginErr    error
	logoutCalls int
	leadsCalls  int
	lastQuery   leads.TableQuery
	leadErr     error
}

func (s *stubExecutor) Login(_ context.Context, in commands.LoginInput) error {
	s.lastLogin = in
	return s.loginErr
}

func (s *stubExecutor) Logout(context.Context, commands.LogoutInput) error {
	s.logoutCalls++
	return nil
}

func (s *stubExecutor) Refresh(context.Context, commands.RefreshQuotationsInput) error { return nil }

func (s *stubExecutor) Session(context.Context) (queries.SessionState, error) {
	identity := leads.Identity{Email: "admin@example.com", SessionID: "sess-1"}
	return queries.SessionState{Authenticated: true, Identity: &identity}, nil
}

func (s *stubExecutor) Leads(_ context.Context, q leads.TableQuery) (leads.TablePage, error) {
	s.leadsCalls++
	s.lastQuery = q
	return leads.TablePage{}, nil
}

func (s *stubExecutor) Lead(context.Context, queries.LeadInput) (leads.LeadRecord, error) {
	return leads.LeadRecord{}, s.leadErr
}

func (s *stubExecutor) LeadQuotations(context.Context, queries.LeadInput) ([]leads.RawQuotation, error) {
	return nil, nil
}

func (s *stubExecutor) LeadDetail(context.Context, queries.LeadInput) (leads.LeadDetail, error) {
	return leads.LeadDetail{}, nil
}

func (s *stubExecutor) Dashboard(context.Context) (leads.DashboardStats, error) {
	return leads.DashboardStats{}, nil
}
