package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-leads-dashboard/components/leads"
)

type tableService interface {
	Leads(ctx context.Context, query leads.TableQuery) (leads.TablePage, error)
}

// LeadsTableQuery returns one page of the lead table.
type LeadsTableQuery struct {
	service tableService
}

// NewLeadsTableQuery builds the query.
func NewLeadsTableQuery(service tableService) *LeadsTableQuery {
	return &LeadsTableQuery{service: service}
}

var _ gocommand.Querier[leads.TableQuery, leads.TablePage] = (*LeadsTableQuery)(nil)

// Query filters, sorts and pages the current leads.
func (q *LeadsTableQuery) Query(ctx context.Context, input leads.TableQuery) (leads.TablePage, error) {
	return q.service.Leads(ctx, input)
}

// LeadInput identifies a lead and, optionally, one of its quotations.
type LeadInput struct {
	LeadID      int `json:"lead_id"`
	QuotationID int `json:"quotation_id,omitempty"`
}

type leadService interface {
	Lead(ctx context.Context, id int) (leads.LeadRecord, error)
	LeadQuotations(ctx context.Context, id int) ([]leads.RawQuotation, error)
	LeadDetail(ctx context.Context, id, quotationID int) (leads.LeadDetail, error)
}

// LeadQuery resolves a single lead record.
type LeadQuery struct {
	service leadService
}

// NewLeadQuery builds the query.
func NewLeadQuery(service leadService) *LeadQuery {
	return &LeadQuery{service: service}
}

var _ gocommand.Querier[LeadInput, leads.LeadRecord] = (*LeadQuery)(nil)

// Query returns the lead or leads.ErrLeadNotFound.
func (q *LeadQuery) Query(ctx context.Context, input LeadInput) (leads.LeadRecord, error) {
	return q.service.Lead(ctx, input.LeadID)
}

// LeadQuotationsQuery lists the quotations of a lead.
type LeadQuotationsQuery struct {
	service leadService
}

// NewLeadQuotationsQuery builds the query.
func NewLeadQuotationsQuery(service leadService) *LeadQuotationsQuery {
	return &LeadQuotationsQuery{service: service}
}

var _ gocommand.Querier[LeadInput, []leads.RawQuotation] = (*LeadQuotationsQuery)(nil)

// Query returns the lead's quotations from the cache or the per-lead endpoint.
func (q *LeadQuotationsQuery) Query(ctx context.Context, input LeadInput) ([]leads.RawQuotation, error) {
	return q.service.LeadQuotations(ctx, input.LeadID)
}

// LeadDetailQuery builds the lead detail view model.
type LeadDetailQuery struct {
	service leadService
}

// NewLeadDetailQuery builds the query.
func NewLeadDetailQuery(service leadService) *LeadDetailQuery {
	return &LeadDetailQuery{service: service}
}

var _ gocommand.Querier[LeadInput, leads.LeadDetail] = (*LeadDetailQuery)(nil)

// Query assembles the detail view with the selected quotation.
func (q *LeadDetailQuery) Query(ctx context.Context, input LeadInput) (leads.LeadDetail, error) {
	return q.service.LeadDetail(ctx, input.LeadID, input.QuotationID)
}
