package leads

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
)

// CurrencyPrefix is prepended to formatted premiums.
const CurrencyPrefix = "Rs. "

// LeadDetail is the view model of the lead detail page.
type LeadDetail struct {
	Lead          LeadRecord      `json:"lead"`
	Quotations    []QuotationItem `json:"quotations"`
	Selected      *QuotationView  `json:"selected,omitempty"`
	HasQuotations bool            `json:"has_quotations"`
}

// QuotationItem is an entry of the quotation picker.
type QuotationItem struct {
	ID        int    `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	Selected  bool   `json:"selected"`
}

// QuotationView breaks a quotation into the tables shown on the detail page.
type QuotationView struct {
	ID                      int        `json:"id"`
	Status                  string     `json:"status"`
	CreatedAt               string     `json:"created_at"`
	IncludeMaternity        bool       `json:"include_maternity"`
	HRPlans                 []PlanLine `json:"hr_plans"`
	MaternityPlans          []PlanLine `json:"maternity_plans"`
	Census                  Census     `json:"census"`
	Premiums                Premiums   `json:"premiums"`
	WaiverPercentage        *float64   `json:"waiver_percentage,omitempty"`
	MaternityCoverageStatus string     `json:"maternity_coverage_status,omitempty"`
}

// PlanLine is one row of a plan table.
type PlanLine struct {
	Plan         string  `json:"plan"`
	Lives        int     `json:"lives"`
	Premium      float64 `json:"premium"`
	PremiumLabel string  `json:"premium_label"`
}

// Census summarizes insured lives and premiums.
type Census struct {
	HRLives          int    `json:"hr_lives"`
	MaternityLives   int    `json:"maternity_lives"`
	HRPremium        string `json:"hr_premium"`
	MaternityPremium string `json:"maternity_premium"`
}

// Premiums is the premium summary block.
type Premiums struct {
	HR             float64 `json:"hr"`
	Maternity      float64 `json:"maternity"`
	TotalPayable   float64 `json:"total_payable"`
	HRLabel        string  `json:"hr_label"`
	MaternityLabel string  `json:"maternity_label"`
	TotalLabel     string  `json:"total_label"`
}

// BuildLeadDetail assembles the detail view. quotationID selects a quotation explicitly;
// zero (or an unknown id) applies DefaultQuotation.
func BuildLeadDetail(lead LeadRecord, quotations []RawQuotation, quotationID int, locale string) LeadDetail {
	detail := LeadDetail{
		Lead:          lead,
		Quotations:    make([]QuotationItem, 0, len(quotations)),
		HasQuotations: len(quotations) > 0,
	}
	if len(quotations) == 0 {
		return detail
	}
	selected, ok := FindQuotation(quotations, quotationID)
	if quotationID == 0 || !ok {
		selected, _ = DefaultQuotation(quotations)
	}
	for _, q := range quotations {
		detail.Quotations = append(detail.Quotations, QuotationItem{
			ID:        q.Details.ID,
			Status:    q.Details.Status,
			CreatedAt: FormatDate(q.Details.CreatedAt, locale),
			Selected:  q.Details.ID == selected.Details.ID,
		})
	}
	view := BuildQuotationView(selected, locale)
	detail.Selected = &view
	return detail
}

// BuildQuotationView flattens a quotation into plan tables, census and premium summary.
func BuildQuotationView(q RawQuotation, locale string) QuotationView {
	calc := q.Calculations
	view := QuotationView{
		ID:               q.Details.ID,
		Status:           q.Details.Status,
		CreatedAt:        FormatDate(q.Details.CreatedAt, locale),
		IncludeMaternity: q.Details.IncludeMaternity == 1,
		HRPlans:          make([]PlanLine, 0, len(q.HRPlans)),
		MaternityPlans:   make([]PlanLine, 0, len(q.MaternityPlans)),
		Census: Census{
			HRLives:          calc.HRTotalLives,
			MaternityLives:   calc.MaternityTotalLives,
			HRPremium:        FormatCurrency(calc.HRTotalPremium),
			MaternityPremium: FormatCurrency(calc.MaternityTotalPremium),
		},
		Premiums: Premiums{
			HR:             calc.HRTotalPremium,
			Maternity:      calc.MaternityTotalPremium,
			TotalPayable:   calc.TotalPremium,
			HRLabel:        FormatCurrency(calc.HRTotalPremium),
			MaternityLabel: FormatCurrency(calc.MaternityTotalPremium),
			TotalLabel:     FormatCurrency(calc.TotalPremium),
		},
	}
	if calc.WaiverPercentage != nil {
		v := *calc.WaiverPercentage
		view.WaiverPercentage = &v
	}
	if calc.MaternityCoverageStatus != nil {
		view.MaternityCoverageStatus = *calc.MaternityCoverageStatus
	}
	for name, plan := range q.HRPlans {
		view.HRPlans = append(view.HRPlans, PlanLine{
			Plan:         name,
			Lives:        plan.TotalLives,
			Premium:      plan.TotalPremium,
			PremiumLabel: FormatCurrency(plan.TotalPremium),
		})
	}
	for name, plan := range q.MaternityPlans {
		view.MaternityPlans = append(view.MaternityPlans, PlanLine{
			Plan:         name,
			Lives:        plan.TotalSpouses,
			Premium:      plan.TotalPremium,
			PremiumLabel: FormatCurrency(plan.TotalPremium),
		})
	}
	sortPlans(view.HRPlans)
	sortPlans(view.MaternityPlans)
	return view
}

func sortPlans(lines []PlanLine) {
	sort.Slice(lines, func(i, j int) bool { return lines[i].Plan < lines[j].Plan })
}

// FormatCurrency renders an amount rounded to whole units with thousands separators, e.g. "Rs. 648,103".
func FormatCurrency(amount float64) string {
	rounded := int64(math.Round(amount))
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}
	digits := strconv.FormatInt(rounded, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + CurrencyPrefix + b.String()
}

// LeadDetail loads a lead and its quotations and builds the detail view model.
func (r *Repository) LeadDetail(ctx context.Context, id, quotationID int) (LeadDetail, error) {
	lead, err := r.LeadByID(ctx, id)
	if err != nil {
		return LeadDetail{}, err
	}
	quotations, err := r.QuotationsForLead(ctx, id)
	if err != nil && !errors.Is(err, ErrLeadNotFound) {
		r.logger.Warn().Err(err).Int("lead_id", id).Msg("rendering lead detail without quotations")
	}
	return BuildLeadDetail(lead, quotations, quotationID, r.locale), nil
}
