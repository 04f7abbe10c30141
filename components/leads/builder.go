package leads

import "strings"

// BuildOption customizes lead record derivation.
type BuildOption func(*buildConfig)

type buildConfig struct {
	locale string
}

// WithLocale selects the locale used to render CreatedAt.
func WithLocale(locale string) BuildOption {
	return func(cfg *buildConfig) {
		if locale != "" {
			cfg.locale = locale
		}
	}
}

func newBuildConfig(opts []BuildOption) buildConfig {
	cfg := buildConfig{locale: DefaultLocale}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// BuildLeadRecord flattens a backend user record into a LeadRecord. It has no side effects.
func BuildLeadRecord(raw RawUserRecord, opts ...BuildOption) LeadRecord {
	return buildLeadRecord(raw, newBuildConfig(opts))
}

// BuildAllLeadRecords maps BuildLeadRecord over the payload, preserving backend order.
func BuildAllLeadRecords(payload QuotationPayload, opts ...BuildOption) []LeadRecord {
	cfg := newBuildConfig(opts)
	records := make([]LeadRecord, len(payload.Users))
	for i, raw := range payload.Users {
		records[i] = buildLeadRecord(raw, cfg)
	}
	return records
}

func buildLeadRecord(raw RawUserRecord, cfg buildConfig) LeadRecord {
	details := raw.UserDetails
	return LeadRecord{
		ID:         details.ID,
		Name:       details.FirstName + " " + details.LastName,
		Email:      details.WorkEmail,
		Department: details.CompanyName,
		Status:     LeadStatus(raw.TotalQuotations),
		Quotations: cloneQuotations(raw.Quotations),
		ContactInfo: ContactInfo{
			Mobile: details.MobileNumber,
			Email:  details.WorkEmail,
		},
		CreatedAt: FormatDate(details.CreatedAt, cfg.locale),
	}
}

// LeadStatus derives the display status from the quotation count.
func LeadStatus(totalQuotations int) string {
	if totalQuotations > 0 {
		return StatusActive
	}
	return StatusPending
}

// findUser returns the raw record with the given id.
func findUser(payload QuotationPayload, id int) (RawUserRecord, bool) {
	for _, user := range payload.Users {
		if user.UserDetails.ID == id {
			return user, true
		}
	}
	return RawUserRecord{}, false
}

func cloneQuotations(in []RawQuotation) []RawQuotation {
	if in == nil {
		return []RawQuotation{}
	}
	out := make([]RawQuotation, len(in))
	for i, q := range in {
		out[i] = cloneQuotation(q)
	}
	return out
}

func cloneQuotation(q RawQuotation) RawQuotation {
	out := q
	if q.HRPlans != nil {
		out.HRPlans = make(map[string]HRPlan, len(q.HRPlans))
		for name, plan := range q.HRPlans {
			out.HRPlans[name] = plan
		}
	}
	if q.MaternityPlans != nil {
		out.MaternityPlans = make(map[string]MaternityPlan, len(q.MaternityPlans))
		for name, plan := range q.MaternityPlans {
			out.MaternityPlans[name] = plan
		}
	}
	if q.Calculations.WaiverPercentage != nil {
		v := *q.Calculations.WaiverPercentage
		out.Calculations.WaiverPercentage = &v
	}
	if q.Calculations.MaternityCoverageStatus != nil {
		v := *q.Calculations.MaternityCoverageStatus
		out.Calculations.MaternityCoverageStatus = &v
	}
	return out
}

func normalizeSearch(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
