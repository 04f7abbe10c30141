package leads

import (
	"context"
	"time"
)

// QuotationSource fetches the bulk quotations payload from the backend.
// Implementations must be safe for concurrent use.
type QuotationSource interface {
	FetchAllQuotations(ctx context.Context) (QuotationPayload, error)
}

// LeadQuotationSource fetches the quotations of a single lead.
type LeadQuotationSource interface {
	FetchUserQuotations(ctx context.Context, userID int) ([]RawQuotation, error)
}

// Storage persists small JSON documents by key (the session identity lives under "user").
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Notifier delivers transient user-visible messages.
type Notifier interface {
	Notify(ctx context.Context, note Notification) error
}

// CredentialChecker resolves an identity for an email/password pair.
type CredentialChecker interface {
	Authenticate(email, password string) (Identity, bool)
}

// QuotationPayload is the decoded data object of the all-quotations endpoint.
type QuotationPayload struct {
	Users []RawUserRecord `json:"users"`
}

// RawUserRecord is a lead as received from the backend.
type RawUserRecord struct {
	UserDetails     UserDetails    `json:"user_details"`
	TotalQuotations int            `json:"total_quotations"`
	Quotations      []RawQuotation `json:"quotations"`
}

// UserDetails holds the contact fields of a lead.
type UserDetails struct {
	ID           int    `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	WorkEmail    string `json:"work_email"`
	MobileNumber string `json:"mobile_number"`
	CompanyName  string `json:"company_name"`
	CreatedAt    string `json:"created_at"`
}

// Quotation statuses.
const (
	QuotationDraft     = "draft"
	QuotationSubmitted = "submitted"
)

// RawQuotation is a priced proposal with hospitalization and maternity line items.
type RawQuotation struct {
	Details        QuotationDetails         `json:"quotation_details"`
	HRPlans        map[string]HRPlan        `json:"hr_plans"`
	MaternityPlans map[string]MaternityPlan `json:"maternity_plans"`
	Calculations   Calculations             `json:"calculations"`
}

// QuotationDetails carries quotation metadata.
type QuotationDetails struct {
	ID               int    `json:"id"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
	IncludeMaternity int    `json:"include_maternity"`
}

// HRPlan is a hospitalization line item.
type HRPlan struct {
	TotalLives   int     `json:"total_lives"`
	TotalPremium float64 `json:"total_premium"`
}

// MaternityPlan is a maternity line item.
type MaternityPlan struct {
	TotalSpouses int     `json:"total_spouses"`
	TotalPremium float64 `json:"total_premium"`
}

// Calculations summarizes the totals of a quotation.
type Calculations struct {
	HRTotalLives            int      `json:"hr_total_lives"`
	HRTotalPremium          float64  `json:"hr_total_premium"`
	MaternityTotalLives     int      `json:"maternity_total_lives"`
	MaternityTotalPremium   float64  `json:"maternity_total_premium"`
	TotalPremium            float64  `json:"total_premium"`
	WaiverPercentage        *float64 `json:"waiver_percentage,omitempty"`
	MaternityCoverageStatus *string  `json:"maternity_coverage_status,omitempty"`
}

// Lead statuses derived from the quotation count.
const (
	StatusActive  = "Active"
	StatusPending = "Pending"
)

// LeadRecord is the flat, display-ready view of a lead.
type LeadRecord struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Department  string         `json:"department"`
	Status      string         `json:"status"`
	Quotations  []RawQuotation `json:"quotations"`
	ContactInfo ContactInfo    `json:"contactInfo"`
	CreatedAt   string         `json:"createdAt"`
}

// ContactInfo groups the reachable channels of a lead.
type ContactInfo struct {
	Mobile string `json:"mobile"`
	Email  string `json:"email"`
}

// Identity is the authenticated operator. It never carries a secret.
type Identity struct {
	ID         int       `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	SessionID  string    `json:"session_id,omitempty"`
	LoggedInAt time.Time `json:"logged_in_at,omitempty"`
}

// Notification levels.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelError   = "error"
	LevelWarning = "warning"
)

// Notification is a transient message for the operator.
type Notification struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
	At      time.Time `json:"at"`
}
