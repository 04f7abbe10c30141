package quotations

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/goliatone/go-leads-dashboard/components/leads"
)

// FixtureClient serves quotations from an in-memory payload for demos and offline runs.
type FixtureClient struct {
	mu      sync.RWMutex
	payload leads.QuotationPayload
}

var (
	_ leads.QuotationSource     = (*FixtureClient)(nil)
	_ leads.LeadQuotationSource = (*FixtureClient)(nil)
)

// NewFixtureClient builds a client from the provided payload.
func NewFixtureClient(payload leads.QuotationPayload) *FixtureClient {
	return &FixtureClient{payload: clonePayload(payload)}
}

// LoadFixtureFile reads an all-quotations response document from disk and validates it.
func LoadFixtureFile(path string) (*FixtureClient, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("quotations: read fixture: %w", err)
	}
	if err := leads.NewPayloadValidator().Validate(leads.PayloadAllQuotations, raw); err != nil {
		return nil, fmt.Errorf("quotations: fixture %s: %w", path, err)
	}
	var env struct {
		Data leads.QuotationPayload `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("quotations: decode fixture: %w", err)
	}
	if err := leads.CheckLeadIDs(env.Data); err != nil {
		return nil, fmt.Errorf("quotations: fixture %s: %w", path, err)
	}
	return NewFixtureClient(env.Data), nil
}

// Replace swaps the served payload.
func (c *FixtureClient) Replace(payload leads.QuotationPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload = clonePayload(payload)
}

// FetchAllQuotations returns a copy of the configured payload.
func (c *FixtureClient) FetchAllQuotations(ctx context.Context) (leads.QuotationPayload, error) {
	if err := ctx.Err(); err != nil {
		return leads.QuotationPayload{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clonePayload(c.payload), nil
}

// FetchUserQuotations returns the quotations of one user, or none when the user is unknown.
func (c *FixtureClient) FetchUserQuotations(ctx context.Context, userID int) ([]leads.RawQuotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, user := range c.payload.Users {
		if user.UserDetails.ID == userID {
			return append([]leads.RawQuotation(nil), user.Quotations...), nil
		}
	}
	return nil, nil
}

func clonePayload(payload leads.QuotationPayload) leads.QuotationPayload {
	out := leads.QuotationPayload{Users: make([]leads.RawUserRecord, len(payload.Users))}
	for i, user := range payload.Users {
		user.Quotations = append([]leads.RawQuotation(nil), user.Quotations...)
		out.Users[i] = user
	}
	return out
}
