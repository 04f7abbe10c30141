package leads

import (
	"math/rand/v2"
)

// StatCard is a headline metric on the dashboard.
type StatCard struct {
	Key      string `json:"key" yaml:"key"`
	Title    string `json:"title" yaml:"title"`
	Value    string `json:"value" yaml:"value"`
	Increase string `json:"increase" yaml:"increase"`
	Icon     string `json:"icon" yaml:"icon"`
}

// MonthlyPoint is one month of traffic and revenue.
type MonthlyPoint struct {
	Month    string `json:"month"`
	Users    int    `json:"users"`
	Sessions int    `json:"sessions"`
	Revenue  int    `json:"revenue"`
}

// LeadSummary aggregates the current lead records.
type LeadSummary struct {
	TotalLeads          int `json:"total_leads"`
	ActiveLeads         int `json:"active_leads"`
	PendingLeads        int `json:"pending_leads"`
	TotalQuotations     int `json:"total_quotations"`
	SubmittedQuotations int `json:"submitted_quotations"`
	DraftQuotations     int `json:"draft_quotations"`
}

// DashboardStats is the metrics dashboard view model.
type DashboardStats struct {
	Cards   []StatCard        `json:"cards"`
	Monthly []MonthlyPoint    `json:"monthly"`
	Leads   LeadSummary       `json:"leads"`
	Charts  map[string]string `json:"charts,omitempty"`
}

var statMonths = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep"}

// DefaultStatCards returns the headline cards shown above the charts.
func DefaultStatCards() []StatCard {
	return []StatCard{
		{Key: "users", Title: "Total Users", Value: "2,834", Increase: "+12.5%", Icon: "users"},
		{Key: "revenue", Title: "Revenue", Value: "$48,385", Increase: "+8.2%", Icon: "dollar-sign"},
		{Key: "orders", Title: "Orders", Value: "1,498", Increase: "+4.3%", Icon: "shopping-cart"},
		{Key: "conversion", Title: "Conversion", Value: "3.24%", Increase: "+2.1%", Icon: "activity"},
	}
}

// SampleMonthlySeries generates Jan..Sep sample traffic. The same seed yields the same series.
func SampleMonthlySeries(seed uint64) []MonthlyPoint {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	points := make([]MonthlyPoint, len(statMonths))
	for i, month := range statMonths {
		points[i] = MonthlyPoint{
			Month:    month,
			Users:    rng.IntN(2000) + 1000,
			Sessions: rng.IntN(3000) + 2000,
			Revenue:  rng.IntN(10000) + 5000,
		}
	}
	return points
}

// SummarizeLeads counts leads by status and quotations by state.
func SummarizeLeads(records []LeadRecord) LeadSummary {
	summary := LeadSummary{TotalLeads: len(records)}
	for _, rec := range records {
		if rec.Status == StatusActive {
			summary.ActiveLeads++
		} else {
			summary.PendingLeads++
		}
		for _, q := range rec.Quotations {
			summary.TotalQuotations++
			switch q.Details.Status {
			case QuotationSubmitted:
				summary.SubmittedQuotations++
			case QuotationDraft:
				summary.DraftQuotations++
			}
		}
	}
	return summary
}
