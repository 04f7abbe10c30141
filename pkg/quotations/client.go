package quotations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-leads-dashboard/components/leads"
)

const (
	allQuotationsPath  = "/api/quotations/all"
	userQuotationsPath = "/api/quotation/user/"
	maxErrorBody       = 4 << 10
)

// HTTPConfig configures the quotations API client.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	// Validator checks raw responses before decoding. Nil uses leads.NewPayloadValidator.
	Validator leads.ResponseValidator
}

// HTTPClient talks to the quotations backend over REST.
type HTTPClient struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	validator leads.ResponseValidator
}

var (
	_ leads.QuotationSource     = (*HTTPClient)(nil)
	_ leads.LeadQuotationSource = (*HTTPClient)(nil)
)

// NewHTTPClient builds a client for the quotations API.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("quotations: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	validator := cfg.Validator
	if validator == nil {
		validator = leads.NewPayloadValidator()
	}
	return &HTTPClient{
		baseURL:   base,
		apiKey:    cfg.APIKey,
		client:    httpClient,
		validator: validator,
	}, nil
}

// FetchAllQuotations implements leads.QuotationSource via GET /api/quotations/all.
func (c *HTTPClient) FetchAllQuotations(ctx context.Context) (leads.QuotationPayload, error) {
	var payload leads.QuotationPayload
	if err := c.get(ctx, allQuotationsPath, leads.PayloadAllQuotations, &payload); err != nil {
		return leads.QuotationPayload{}, err
	}
	if err := leads.CheckLeadIDs(payload); err != nil {
		return leads.QuotationPayload{}, fmt.Errorf("quotations: %w", err)
	}
	return payload, nil
}

// FetchUserQuotations implements leads.LeadQuotationSource via GET /api/quotation/user/{id}.
func (c *HTTPClient) FetchUserQuotations(ctx context.Context, userID int) ([]leads.RawQuotation, error) {
	var data userQuotationsData
	path := userQuotationsPath + strconv.Itoa(userID)
	if err := c.get(ctx, path, leads.PayloadUserQuotations, &data); err != nil {
		return nil, err
	}
	return data.Quotations, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data"`
}

type userQuotationsData struct {
	Quotations []leads.RawQuotation `json:"quotations"`
}

func (c *HTTPClient) get(ctx context.Context, path, kind string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("quotations: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("quotations: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("quotations: remote error %d: %s", resp.StatusCode, strings.TrimSpace(buf.String()))
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("quotations: read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("quotations: %s: %w: %v", kind, leads.ErrInvalidPayload, err)
	}
	if !env.Success {
		if env.Message != "" {
			return fmt.Errorf("quotations: %s: %w: %s", kind, leads.ErrUnsuccessfulResponse, env.Message)
		}
		return fmt.Errorf("quotations: %s: %w", kind, leads.ErrUnsuccessfulResponse)
	}
	if err := c.validator.Validate(kind, raw); err != nil {
		return fmt.Errorf("quotations: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("quotations: %s: %w: missing data", kind, leads.ErrInvalidPayload)
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("quotations: %s: %w: %v", kind, leads.ErrInvalidPayload, err)
	}
	return nil
}
