package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-leads-dashboard/components/leads"
)

// DashboardInput requests the metrics dashboard.
type DashboardInput struct{}

type statsService interface {
	DashboardStats(ctx context.Context) (leads.DashboardStats, error)
}

// DashboardStatsQuery returns cards, series, charts and the lead summary.
type DashboardStatsQuery struct {
	service statsService
}

// NewDashboardStatsQuery builds the query.
func NewDashboardStatsQuery(service statsService) *DashboardStatsQuery {
	return &DashboardStatsQuery{service: service}
}

var _ gocommand.Querier[DashboardInput, leads.DashboardStats] = (*DashboardStatsQuery)(nil)

// Query resolves the dashboard statistics.
func (q *DashboardStatsQuery) Query(ctx context.Context, _ DashboardInput) (leads.DashboardStats, error) {
	return q.service.DashboardStats(ctx)
}

// SessionInput requests the current session state.
type SessionInput struct{}

// SessionState describes who is logged in.
type SessionState struct {
	Authenticated bool            `json:"authenticated"`
	Identity      *leads.Identity `json:"identity,omitempty"`
}

type identityService interface {
	Identity() (leads.Identity, bool)
}

// SessionQuery reports the current identity.
type SessionQuery struct {
	service identityService
}

// NewSessionQuery builds the query.
func NewSessionQuery(service identityService) *SessionQuery {
	return &SessionQuery{service: service}
}

var _ gocommand.Querier[SessionInput, SessionState] = (*SessionQuery)(nil)

// Query never fails; a logged-out session yields Authenticated=false.
func (q *SessionQuery) Query(_ context.Context, _ SessionInput) (SessionState, error) {
	identity, ok := q.service.Identity()
	if !ok {
		return SessionState{}, nil
	}
	return SessionState{Authenticated: true, Identity: &identity}, nil
}
