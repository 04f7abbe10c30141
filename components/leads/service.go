package leads

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const defaultChartTTL = 5 * time.Minute

// Options configures the leads Service. Collaborators are interfaces so hosts can swap the
// backend client, persistence and notification transports.
type Options struct {
	Source      QuotationSource
	Fallback    LeadQuotationSource
	Credentials CredentialChecker
	Storage     Storage
	Notifier    Notifier
	Telemetry   Telemetry
	Logger      *zerolog.Logger

	Locale       string
	PageSize     int
	FallbackTTL  time.Duration
	FallbackSize int

	// ChartCache memoizes rendered charts. Nil builds one with a five minute TTL.
	ChartCache *ChartCache
	ChartTheme string
	// ChartAssetsHost serves the ECharts script from another host. Empty keeps the go-echarts default.
	ChartAssetsHost string
	// StatsSeed fixes the sample monthly series. Zero seeds from the clock once per Service.
	StatsSeed uint64
	Now       func() time.Time
}

// Service is the explicit context object holding the session, the quotation cache and the
// repository for one running dashboard.
type Service struct {
	session    *Session
	cache      *QuotationCache
	repo       *Repository
	charts     *ChartRenderer
	chartCache *ChartCache
	telemetry  Telemetry
	logger     zerolog.Logger
	pageSize   int
	seed       uint64
}

// NewService wires the core components with safe defaults.
func NewService(opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	opts.Notifier = normalizeNotifier(opts.Notifier)
	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.ChartCache == nil {
		opts.ChartCache = NewChartCache(defaultChartTTL)
	}
	if opts.StatsSeed == 0 {
		opts.StatsSeed = uint64(opts.Now().UnixNano())
	}

	cache := NewQuotationCache(CacheOptions{
		Source:    opts.Source,
		Notifier:  opts.Notifier,
		Telemetry: opts.Telemetry,
		Logger:    opts.Logger,
	})
	return &Service{
		session: NewSession(SessionOptions{
			Credentials: opts.Credentials,
			Storage:     opts.Storage,
			Cache:       cache,
			Notifier:    opts.Notifier,
			Telemetry:   opts.Telemetry,
			Logger:      opts.Logger,
			Now:         opts.Now,
		}),
		cache: cache,
		repo: NewRepository(RepositoryOptions{
			Loader:       cache,
			Fallback:     opts.Fallback,
			FallbackTTL:  opts.FallbackTTL,
			FallbackSize: opts.FallbackSize,
			Locale:       opts.Locale,
			Notifier:     opts.Notifier,
			Telemetry:    opts.Telemetry,
			Logger:       opts.Logger,
		}),
		charts:     NewChartRenderer(
			WithChartCache(opts.ChartCache),
			WithChartTheme(opts.ChartTheme),
			WithChartAssetsHost(opts.ChartAssetsHost),
		),
		chartCache: opts.ChartCache,
		telemetry:  opts.Telemetry,
		logger:     loggerOrNop(opts.Logger),
		pageSize:   opts.PageSize,
		seed:       opts.StatsSeed,
	}
}

// Session exposes the session store.
func (s *Service) Session() *Session { return s.session }

// Cache exposes the quotation cache.
func (s *Service) Cache() *QuotationCache { return s.cache }

// Repository exposes the lead repository.
func (s *Service) Repository() *Repository { return s.repo }

// Login delegates to the session store.
func (s *Service) Login(ctx context.Context, email, password string) (Identity, error) {
	return s.session.Login(ctx, email, password)
}

// Logout ends the session and drops every derived cache.
func (s *Service) Logout(ctx context.Context) error {
	err := s.session.Logout(ctx)
	s.repo.Reset()
	s.chartCache.Purge()
	return err
}

// Restore rehydrates a persisted identity.
func (s *Service) Restore(ctx context.Context) (bool, error) {
	return s.session.Restore(ctx)
}

// Identity returns the logged-in identity.
func (s *Service) Identity() (Identity, bool) {
	return s.session.Current()
}

// RefreshQuotations replaces the cached payload with a fresh fetch.
func (s *Service) RefreshQuotations(ctx context.Context) error {
	if !s.session.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	s.repo.Reset()
	_, err := s.cache.Refresh(ctx)
	return err
}

// Leads returns one page of the lead table.
func (s *Service) Leads(ctx context.Context, query TableQuery) (TablePage, error) {
	if !s.session.IsAuthenticated() {
		return TablePage{}, ErrNotAuthenticated
	}
	if query.PageSize <= 0 {
		query.PageSize = s.pageSize
	}
	return QueryTable(s.repo.AllLeads(ctx), query), nil
}

// Lead returns a single lead record.
func (s *Service) Lead(ctx context.Context, id int) (LeadRecord, error) {
	if !s.session.IsAuthenticated() {
		return LeadRecord{}, ErrNotAuthenticated
	}
	return s.repo.LeadByID(ctx, id)
}

// LeadQuotations returns the quotations of a lead, consulting the per-lead endpoint when needed.
func (s *Service) LeadQuotations(ctx context.Context, id int) ([]RawQuotation, error) {
	if !s.session.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	return s.repo.QuotationsForLead(ctx, id)
}

// LeadDetail builds the detail view of a lead. quotationID zero opens the default quotation.
func (s *Service) LeadDetail(ctx context.Context, id, quotationID int) (LeadDetail, error) {
	if !s.session.IsAuthenticated() {
		return LeadDetail{}, ErrNotAuthenticated
	}
	return s.repo.LeadDetail(ctx, id, quotationID)
}

// DashboardStats assembles cards, the monthly series, rendered charts and the lead summary.
// A chart rendering failure is logged and leaves Charts empty.
func (s *Service) DashboardStats(ctx context.Context) (DashboardStats, error) {
	if !s.session.IsAuthenticated() {
		return DashboardStats{}, ErrNotAuthenticated
	}
	stats := DashboardStats{
		Cards:   DefaultStatCards(),
		Monthly: SampleMonthlySeries(s.seed),
		Leads:   SummarizeLeads(s.repo.AllLeads(ctx)),
	}
	charts, err := s.charts.RenderAll(stats.Monthly)
	if err != nil {
		s.logger.Warn().Err(err).Msg("dashboard charts unavailable")
		return stats, nil
	}
	stats.Charts = charts
	return stats, nil
}

// ChartStats reports the chart cache counters.
func (s *Service) ChartStats() CacheStats {
	return s.chartCache.Stats()
}
