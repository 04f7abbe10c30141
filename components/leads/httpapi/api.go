package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-leads-dashboard/components/leads"
	"github.com/goliatone/go-leads-dashboard/components/leads/commands"
	"github.com/goliatone/go-leads-dashboard/components/leads/queries"
)

// SessionMatcher reports whether a token session id belongs to the active session.
type SessionMatcher interface {
	Matches(sessionID string) bool
}

// Handlers exposes the lead dashboard JSON API over net/http.
type Handlers struct {
	API     Executor
	Tokens  *SessionTokens
	Session SessionMatcher
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	queries.SessionState
	Token     string `json:"token,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Routes mounts every handler on a ServeMux. Read routes require a valid session token.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session", h.HandleLogin)
	mux.HandleFunc("DELETE /api/session", h.HandleLogout)
	mux.Handle("GET /api/session", h.RequireSession(http.HandlerFunc(h.HandleSession)))
	mux.Handle("GET /api/leads", h.RequireSession(http.HandlerFunc(h.HandleLeads)))
	mux.Handle("GET /api/leads/{id}", h.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleLead(w, r, r.PathValue("id"))
	})))
	mux.Handle("GET /api/leads/{id}/quotations", h.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleLeadQuotations(w, r, r.PathValue("id"))
	})))
	mux.Handle("POST /api/quotations/refresh", h.RequireSession(http.HandlerFunc(h.HandleRefresh)))
	mux.Handle("GET /api/dashboard", h.RequireSession(http.HandlerFunc(h.HandleDashboard)))
	return mux
}

func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.API.Login(r.Context(), commands.LoginInput{Email: payload.Email, Password: payload.Password}); err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	state, err := h.API.Session(r.Context())
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	resp := sessionResponse{SessionState: state}
	if h.Tokens != nil && state.Identity != nil {
		token, expires, err := h.Tokens.Issue(*state.Identity)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		http.SetCookie(w, h.Tokens.Cookie(token, expires))
		resp.Token = token
		resp.ExpiresAt = expires.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.API.Logout(r.Context(), commands.LogoutInput{}); err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	http.SetCookie(w, ClearCookie())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.API.Session(r.Context())
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) HandleLeads(w http.ResponseWriter, r *http.Request) {
	query, err := ParseTableQuery(r.URL.Query().Get)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	page, err := h.API.Leads(r.Context(), query)
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) HandleLead(w http.ResponseWriter, r *http.Request, rawID string) {
	input, err := ParseLeadInput(rawID, r.URL.Query().Get("quotation"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	lead, err := h.API.Lead(r.Context(), input)
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *Handlers) HandleLeadQuotations(w http.ResponseWriter, r *http.Request, rawID string) {
	input, err := ParseLeadInput(rawID, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	quotations, err := h.API.LeadQuotations(r.Context(), input)
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	if quotations == nil {
		quotations = []leads.RawQuotation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"lead_id": input.LeadID, "quotations": quotations})
}

func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.API.Refresh(r.Context(), commands.RefreshQuotationsInput{}); err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.API.Dashboard(r.Context())
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// RequireSession rejects requests without a token bound to the active session.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Tokens == nil {
			next.ServeHTTP(w, r)
			return
		}
		raw := ExtractToken(r.Header.Get("Authorization"), r.Header.Get("Cookie"), r.URL.Query().Get("token"))
		sessionID, err := h.Tokens.Verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		if h.Session != nil && !h.Session.Matches(sessionID) {
			writeError(w, http.StatusUnauthorized, leads.ErrNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	var syntaxErr *json.SyntaxError
	switch {
	case err == nil:
		return http.StatusOK
	case leads.IsAuthError(err), errors.Is(err, leads.ErrNotAuthenticated), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, leads.ErrLeadNotFound):
		return http.StatusNotFound
	case leads.IsFetchError(err):
		return http.StatusBadGateway
	case errors.As(err, &syntaxErr), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("httpapi: bad request")

// ParseTableQuery reads search, sort, direction, page and page_size through get.
func ParseTableQuery(get func(string) string) (leads.TableQuery, error) {
	query := leads.TableQuery{
		Search:    strings.TrimSpace(get("search")),
		SortKey:   strings.TrimSpace(get("sort")),
		Direction: strings.TrimSpace(get("direction")),
	}
	var err error
	if query.Page, err = optionalInt(get("page"), "page"); err != nil {
		return leads.TableQuery{}, err
	}
	if query.PageSize, err = optionalInt(get("page_size"), "page_size"); err != nil {
		return leads.TableQuery{}, err
	}
	return query, nil
}

// ParseLeadInput converts path and query values into a LeadInput.
func ParseLeadInput(rawID, rawQuotation string) (queries.LeadInput, error) {
	id, err := strconv.Atoi(strings.TrimSpace(rawID))
	if err != nil || id <= 0 {
		return queries.LeadInput{}, errorf("lead id %q is invalid", rawID)
	}
	quotationID, err := optionalInt(rawQuotation, "quotation")
	if err != nil {
		return queries.LeadInput{}, err
	}
	return queries.LeadInput{LeadID: id, QuotationID: quotationID}, nil
}

func optionalInt(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errorf("%s %q is invalid", name, raw)
	}
	return v, nil
}

func errorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errBadRequest}, args...)...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
