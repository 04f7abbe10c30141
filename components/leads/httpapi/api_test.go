package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-leads-dashboard/components/leads"
	"github.com/goliatone/go-leads-dashboard/components/leads/commands"
	"github.com/goliatone/go-leads-dashboard/components/leads/queries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCommander[T any] struct {
	last  T
	calls int
	err   error
}

func (s *stubCommander[T]) Execute(ctx context.Context, msg T) error {
	s.last = msg
	s.calls++
	return s.err
}

type stubQuerier[I, O any] struct {
	last  I
	calls int
	out   O
	err   error
}

func (s *stubQuerier[I, O]) Query(ctx context.Context, in I) (O, error) {
	s.last = in
	s.calls++
	return s.out, s.err
}

type staticMatcher string

func (m staticMatcher) Matches(id string) bool { return id != "" && string(m) == id }

var testIdentity = leads.Identity{ID: 1, Email: "admin@example.com", Name: "Admin", Role: "admin", SessionID: "sess-1"}

func newTestTokens(t *testing.T) *SessionTokens {
	t.Helper()
	tokens, err := NewSessionTokens("test-secret", time.Hour)
	require.NoError(t, err)
	tokens.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return tokens
}

func TestHandleLoginIssuesTokenAndCookie(t *testing.T) {
	login := &stubCommander[commands.LoginInput]{}
	identity := testIdentity
	session := &stubQuerier[queries.SessionInput, queries.SessionState]{
		out: queries.SessionState{Authenticated: true, Identity: &identity},
	}
	tokens := newTestTokens(t)
	api := &Handlers{
		API:    &CommandExecutor{LoginCommander: login, SessionQuerier: session},
		Tokens: tokens,
	}

	body := strings.NewReader(`{"email":"admin@example.com","password":"secret"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/session", body)
	rec := httptest.NewRecorder()
	api.HandleLogin(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin@example.com", login.last.Email)
	assert.Equal(t, "secret", login.last.Password)

	var resp struct {
		Authenticated bool   `json:"authenticated"`
		Token         string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Authenticated)
	sessionID, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sessionID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestHandleLoginRejectsBadCredentials(t *testing.T) {
	login := &stubCommander[commands.LoginInput]{err: &leads.AuthError{Email: "x@y.z", Err: leads.ErrInvalidCredentials}}
	api := &Handlers{API: &CommandExecutor{LoginCommander: login}}
	req := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"email":"x@y.z","password":"nope"}`))
	rec := httptest.NewRecorder()
	api.HandleLogin(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleLoginRejectsMalformedBody(t *testing.T) {
	api := &Handlers{API: &CommandExecutor{LoginCommander: &stubCommander[commands.LoginInput]{}}}
	req := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	api.HandleLogin(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleLogoutClearsCookie(t *testing.T) {
	logout := &stubCommander[commands.LogoutInput]{}
	api := &Handlers{API: &CommandExecutor{LogoutCommander: logout}}
	rec := httptest.NewRecorder()
	api.HandleLogout(rec, httptest.NewRequest(http.MethodDelete, "/api/session", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 1, logout.calls)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestHandleLeadsParsesQuery(t *testing.T) {
	table := &stubQuerier[leads.TableQuery, leads.TablePage]{out: leads.TablePage{Total: 3, Page: 2}}
	api := &Handlers{API: &CommandExecutor{LeadsQuerier: table}}
	req := httptest.NewRequest(http.MethodGet, "/api/leads?search=acme&sort=email&direction=desc&page=2&page_size=25", nil)
	rec := httptest.NewRecorder()
	api.HandleLeads(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, leads.TableQuery{Search: "acme", SortKey: "email", Direction: "desc", Page: 2, PageSize: 25}, table.last)
}

func TestHandleLeadsRejectsBadPage(t *testing.T) {
	table := &stubQuerier[leads.TableQuery, leads.TablePage]{}
	api := &Handlers{API: &CommandExecutor{LeadsQuerier: table}}
	rec := httptest.NewRecorder()
	api.HandleLeads(rec, httptest.NewRequest(http.MethodGet, "/api/leads?page=two", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if table.calls != 0 {
		t.Fatalf("expected query not to run")
	}
}

func TestHandleLeadStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "found", status: http.StatusOK},
		{name: "missing", err: leads.ErrLeadNotFound, status: http.StatusNotFound},
		{name: "backend", err: &leads.FetchError{Op: "fetch all quotations", Err: errors.New("boom")}, status: http.StatusBadGateway},
		{name: "logged out", err: leads.ErrNotAuthenticated, status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lead := &stubQuerier[queries.LeadInput, leads.LeadRecord]{out: leads.LeadRecord{ID: 7}, err: tc.err}
			api := &Handlers{API: &CommandExecutor{LeadQuerier: lead}}
			rec := httptest.NewRecorder()
			api.HandleLead(rec, httptest.NewRequest(http.MethodGet, "/api/leads/7?quotation=3", nil), "7")
			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, queries.LeadInput{LeadID: 7, QuotationID: 3}, lead.last)
		})
	}
}

func TestHandleLeadRejectsInvalidID(t *testing.T) {
	api := &Handlers{API: &CommandExecutor{LeadQuerier: &stubQuerier[queries.LeadInput, leads.LeadRecord]{}}}
	rec := httptest.NewRecorder()
	api.HandleLead(rec, httptest.NewRequest(http.MethodGet, "/api/leads/abc", nil), "abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleLeadQuotationsReturnsEmptyList(t *testing.T) {
	quotations := &stubQuerier[queries.LeadInput, []leads.RawQuotation]{}
	api := &Handlers{API: &CommandExecutor{LeadQuotationsQuerier: quotations}}
	rec := httptest.NewRecorder()
	api.HandleLeadQuotations(rec, httptest.NewRequest(http.MethodGet, "/api/leads/3/quotations", nil), "3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"lead_id":3,"quotations":[]}`, rec.Body.String())
}

func TestHandleRefresh(t *testing.T) {
	refresh := &stubCommander[commands.RefreshQuotationsInput]{}
	api := &Handlers{API: &CommandExecutor{RefreshCommander: refresh}}
	rec := httptest.NewRecorder()
	api.HandleRefresh(rec, httptest.NewRequest(http.MethodPost, "/api/quotations/refresh", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if refresh.calls != 1 {
		t.Fatalf("expected refresh to execute")
	}
}

func TestRoutesRequireSessionToken(t *testing.T) {
	tokens := newTestTokens(t)
	stats := &stubQuerier[queries.DashboardInput, leads.DashboardStats]{
		out: leads.DashboardStats{Cards: leads.DefaultStatCards()},
	}
	api := &Handlers{
		API:     &CommandExecutor{DashboardQuerier: stats},
		Tokens:  tokens,
		Session: staticMatcher("sess-1"),
	}
	mux := api.Routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, stats.calls)

	token, _, err := tokens.Issue(testIdentity)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, stats.calls)

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutesRejectTokenFromEndedSession(t *testing.T) {
	tokens := newTestTokens(t)
	api := &Handlers{
		API:     &CommandExecutor{DashboardQuerier: &stubQuerier[queries.DashboardInput, leads.DashboardStats]{}},
		Tokens:  tokens,
		Session: staticMatcher("sess-2"),
	}
	token, _, err := tokens.Issue(testIdentity)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard?token="+token, nil)
	rec := httptest.NewRecorder()
	api.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnconfiguredExecutor(t *testing.T) {
	exec := &CommandExecutor{}
	_, err := exec.Leads(context.Background(), leads.TableQuery{})
	if !errors.Is(err, errNotConfigured) {
		t.Fatalf("expected errNotConfigured, got %v", err)
	}
	if err := exec.Login(context.Background(), commands.LoginInput{}); !errors.Is(err, errNotConfigured) {
		t.Fatalf("expected errNotConfigured, got %v", err)
	}
}

func TestStatusFor(t *testing.T) {
	var syntax map[string]any
	syntaxErr := json.Unmarshal([]byte(`{"a":}`), &syntax)
	cases := map[string]struct {
		err  error
		want int
	}{
		"nil":          {nil, http.StatusOK},
		"auth":         {&leads.AuthError{Email: "x@y.z", Err: leads.ErrInvalidCredentials}, http.StatusUnauthorized},
		"token":        {ErrInvalidToken, http.StatusUnauthorized},
		"not found":    {leads.ErrLeadNotFound, http.StatusNotFound},
		"fetch":        {&leads.FetchError{Op: "fetch", Err: errors.New("x")}, http.StatusBadGateway},
		"bad request":  {errorf("page %q is invalid", "x"), http.StatusBadRequest},
		"bad json":     {syntaxErr, http.StatusBadRequest},
		"unclassified": {errors.New("boom"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		if got := StatusFor(tc.err); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", name, tc.want, got)
		}
	}
}
