package leads

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

func floatPtr(v float64) *float64 { return &v }

func stringPtr(v string) *string { return &v }

func quotation(id int, status, createdAt string) RawQuotation {
	return RawQuotation{
		Details: QuotationDetails{ID: id, Status: status, CreatedAt: createdAt, IncludeMaternity: 1},
		HRPlans: map[string]HRPlan{
			"Plan B": {TotalLives: 12, TotalPremium: 240000},
			"Plan A": {TotalLives: 30, TotalPremium: 408103.4},
		},
		MaternityPlans: map[string]MaternityPlan{
			"Plan A": {TotalSpouses: 4, TotalPremium: 60000},
		},
		Calculations: Calculations{
			HRTotalLives:            42,
			HRTotalPremium:          648103.4,
			MaternityTotalLives:     4,
			MaternityTotalPremium:   60000,
			TotalPremium:            708103.4,
			WaiverPercentage:        floatPtr(2.5),
			MaternityCoverageStatus: stringPtr("covered"),
		},
	}
}

func userRecord(id int, first, last, email, company string, quotations ...RawQuotation) RawUserRecord {
	return RawUserRecord{
		UserDetails: UserDetails{
			ID:           id,
			FirstName:    first,
			LastName:     last,
			WorkEmail:    email,
			MobileNumber: "+92 300 0000000",
			CompanyName:  company,
			CreatedAt:    "2024-03-05T10:30:00Z",
		},
		TotalQuotations: len(quotations),
		Quotations:      quotations,
	}
}

func samplePayload() QuotationPayload {
	return QuotationPayload{Users: []RawUserRecord{
		userRecord(7, "Ayesha", "Khan", "ayesha@acme.test", "Acme",
			quotation(1, QuotationDraft, "2024-03-01T09:00:00Z"),
			quotation(2, QuotationSubmitted, "2024-03-02T09:00:00Z"),
			quotation(3, QuotationDraft, "2024-03-03T09:00:00Z"),
		),
		userRecord(3, "Bilal", "Ahmed", "bilal@globex.test", "Globex"),
		userRecord(12, "Chen", "Li", "chen@initech.test", "Initech",
			quotation(9, QuotationSubmitted, "2024-02-10T09:00:00Z"),
		),
	}}
}

// stubSource counts fetches and can hold them until released.
type stubSource struct {
	mu      sync.Mutex
	payload QuotationPayload
	err     error
	calls   atomic.Int32
	gate    chan struct{}
	started chan struct{}
}

func newStubSource(payload QuotationPayload) *stubSource {
	return &stubSource{payload: payload}
}

func (s *stubSource) FetchAllQuotations(ctx context.Context) (QuotationPayload, error) {
	s.calls.Add(1)
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payload, s.err
}

func (s *stubSource) set(payload QuotationPayload, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = payload
	s.err = err
}

type stubLeadSource struct {
	quotations map[int][]RawQuotation
	err        error
	calls      atomic.Int32
}

func (s *stubLeadSource) FetchUserQuotations(_ context.Context, userID int) ([]RawQuotation, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.quotations[userID], nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, note Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note)
	return nil
}

func (r *recordingNotifier) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notes))
	for i, n := range r.notes {
		out[i] = n.Message
	}
	return out
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingTelemetry) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

type failingStorage struct {
	*InMemoryStorage
	saveErr   error
	deleteErr error
}

func newFailingStorage() *failingStorage {
	return &failingStorage{InMemoryStorage: NewInMemoryStorage()}
}

func (f *failingStorage) Save(ctx context.Context, key string, value []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.InMemoryStorage.Save(ctx, key, value)
}

func (f *failingStorage) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.InMemoryStorage.Delete(ctx, key)
}

var errBackendDown = errors.New("dial tcp: connection refused")
