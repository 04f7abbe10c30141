package httpapi

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-leads-dashboard/components/leads"
	"github.com/goliatone/go-leads-dashboard/components/leads/commands"
	"github.com/goliatone/go-leads-dashboard/components/leads/queries"
)

// Executor is the transport-agnostic surface shared by the net/http handlers and the
// go-router routes.
type Executor interface {
	Login(ctx context.Context, input commands.LoginInput) error
	Logout(ctx context.Context, input commands.LogoutInput) error
	Refresh(ctx context.Context, input commands.RefreshQuotationsInput) error
	Session(ctx context.Context) (queries.SessionState, error)
	Leads(ctx context.Context, query leads.TableQuery) (leads.TablePage, error)
	Lead(ctx context.Context, input queries.LeadInput) (leads.LeadRecord, error)
	LeadQuotations(ctx context.Context, input queries.LeadInput) ([]leads.RawQuotation, error)
	LeadDetail(ctx context.Context, input queries.LeadInput) (leads.LeadDetail, error)
	Dashboard(ctx context.Context) (leads.DashboardStats, error)
}

var errNotConfigured = errors.New("httpapi: handler not configured")

// CommandExecutor adapts go-command commanders and queriers to Executor.
type CommandExecutor struct {
	LoginCommander   gocommand.Commander[commands.LoginInput]
	LogoutCommander  gocommand.Commander[commands.LogoutInput]
	RefreshCommander gocommand.Commander[commands.RefreshQuotationsInput]

	SessionQuerier        gocommand.Querier[queries.SessionInput, queries.SessionState]
	LeadsQuerier          gocommand.Querier[leads.TableQuery, leads.TablePage]
	LeadQuerier           gocommand.Querier[queries.LeadInput, leads.LeadRecord]
	LeadQuotationsQuerier gocommand.Querier[queries.LeadInput, []leads.RawQuotation]
	LeadDetailQuerier     gocommand.Querier[queries.LeadInput, leads.LeadDetail]
	DashboardQuerier      gocommand.Querier[queries.DashboardInput, leads.DashboardStats]
}

// NewServiceExecutor wires every command and query against a leads.Service.
func NewServiceExecutor(service *leads.Service, telemetry commands.Telemetry) *CommandExecutor {
	return &CommandExecutor{
		LoginCommander:        commands.NewLoginCommand(service, telemetry),
		LogoutCommander:       commands.NewLogoutCommand(service, telemetry),
		RefreshCommander:      commands.NewRefreshQuotationsCommand(service, telemetry),
		SessionQuerier:        queries.NewSessionQuery(service),
		LeadsQuerier:          queries.NewLeadsTableQuery(service),
		LeadQuerier:           queries.NewLeadQuery(service),
		LeadQuotationsQuerier: queries.NewLeadQuotationsQuery(service),
		LeadDetailQuerier:     queries.NewLeadDetailQuery(service),
		DashboardQuerier:      queries.NewDashboardStatsQuery(service),
	}
}

func (e *CommandExecutor) Login(ctx context.Context, input commands.LoginInput) error {
	if e.LoginCommander == nil {
		return errNotConfigured
	}
	return e.LoginCommander.Execute(ctx, input)
}

func (e *CommandExecutor) Logout(ctx context.Context, input commands.LogoutInput) error {
	if e.LogoutCommander == nil {
		return errNotConfigured
	}
	return e.LogoutCommander.Execute(ctx, input)
}

func (e *CommandExecutor) Refresh(ctx context.Context, input commands.RefreshQuotationsInput) error {
	if e.RefreshCommander == nil {
		return errNotConfigured
	}
	return e.RefreshCommander.Execute(ctx, input)
}

func (e *CommandExecutor) Session(ctx context.Context) (queries.SessionState, error) {
	if e.SessionQuerier == nil {
		return queries.SessionState{}, errNotConfigured
	}
	return e.SessionQuerier.Query(ctx, queries.SessionInput{})
}

func (e *CommandExecutor) Leads(ctx context.Context, query leads.TableQuery) (leads.TablePage, error) {
	if e.LeadsQuerier == nil {
		return leads.TablePage{}, errNotConfigured
	}
	return e.LeadsQuerier.Query(ctx, query)
}

func (e *CommandExecutor) Lead(ctx context.Context, input queries.LeadInput) (leads.LeadRecord, error) {
	if e.LeadQuerier == nil {
		return leads.LeadRecord{}, errNotConfigured
	}
	return e.LeadQuerier.Query(ctx, input)
}

func (e *CommandExecutor) LeadQuotations(ctx context.Context, input queries.LeadInput) ([]leads.RawQuotation, error) {
	if e.LeadQuotationsQuerier == nil {
		return nil, errNotConfigured
	}
	return e.LeadQuotationsQuerier.Query(ctx, input)
}

func (e *CommandExecutor) LeadDetail(ctx context.Context, input queries.LeadInput) (leads.LeadDetail, error) {
	if e.LeadDetailQuerier == nil {
		return leads.LeadDetail{}, errNotConfigured
	}
	return e.LeadDetailQuerier.Query(ctx, input)
}

func (e *CommandExecutor) Dashboard(ctx context.Context) (leads.DashboardStats, error) {
	if e.DashboardQuerier == nil {
		return leads.DashboardStats{}, errNotConfigured
	}
	return e.DashboardQuerier.Query(ctx, queries.DashboardInput{})
}
