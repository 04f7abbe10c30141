package leads

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

const defaultFallbackCacheSize = 256

type payloadLoader interface {
	EnsureLoaded(ctx context.Context) (QuotationPayload, error)
}

// RepositoryOptions configures a Repository.
type RepositoryOptions struct {
	Loader payloadLoader
	// Fallback answers per-lead quotation lookups the bulk payload cannot.
	Fallback LeadQuotationSource
	// FallbackTTL keeps non-empty per-lead answers for a short while, bounding how stale a
	// viewed lead can be. Zero disables the cache.
	FallbackTTL  time.Duration
	FallbackSize int
	Locale       string
	Notifier     Notifier
	Telemetry    Telemetry
	Logger       *zerolog.Logger
}

// Repository derives lead records from the quotation cache.
type Repository struct {
	loader    payloadLoader
	fallback  LeadQuotationSource
	recent    *expirable.LRU[int, []RawQuotation]
	locale    string
	notifier  Notifier
	telemetry Telemetry
	logger    zerolog.Logger
}

// NewRepository builds a repository over the given loader.
func NewRepository(opts RepositoryOptions) *Repository {
	r := &Repository{
		loader:    opts.Loader,
		fallback:  opts.Fallback,
		locale:    opts.Locale,
		notifier:  normalizeNotifier(opts.Notifier),
		telemetry: normalizeTelemetry(opts.Telemetry),
		logger:    loggerOrNop(opts.Logger),
	}
	if r.locale == "" {
		r.locale = DefaultLocale
	}
	if opts.FallbackTTL > 0 {
		size := opts.FallbackSize
		if size <= 0 {
			size = defaultFallbackCacheSize
		}
		r.recent = expirable.NewLRU[int, []RawQuotation](size, nil, opts.FallbackTTL)
	}
	return r
}

// AllLeads returns every lead in backend order. A failed fetch yields an empty slice;
// the failure has already been reported by the cache.
func (r *Repository) AllLeads(ctx context.Context) []LeadRecord {
	payload, err := r.load(ctx)
	if err != nil {
		r.logger.Debug().Err(err).Msg("all leads unavailable")
		return []LeadRecord{}
	}
	return BuildAllLeadRecords(payload, WithLocale(r.locale))
}

// LeadByID returns the lead with the exact id, ErrLeadNotFound when absent,
// or the FetchError when the payload could not be loaded.
func (r *Repository) LeadByID(ctx context.Context, id int) (LeadRecord, error) {
	payload, err := r.load(ctx)
	if err != nil {
		return LeadRecord{}, err
	}
	raw, ok := findUser(payload, id)
	if !ok {
		return LeadRecord{}, ErrLeadNotFound
	}
	return BuildLeadRecord(raw, WithLocale(r.locale)), nil
}

// QuotationsForLead answers from the bulk payload first and falls back to the per-lead
// endpoint when the payload holds no quotations for the id.
func (r *Repository) QuotationsForLead(ctx context.Context, id int) ([]RawQuotation, error) {
	payload, loadErr := r.load(ctx)
	if loadErr == nil {
		if raw, ok := findUser(payload, id); ok && len(raw.Quotations) > 0 {
			return cloneQuotations(raw.Quotations), nil
		}
	}
	if r.fallback == nil {
		if loadErr != nil {
			return []RawQuotation{}, loadErr
		}
		return []RawQuotation{}, nil
	}
	return r.fallbackQuotations(ctx, id)
}

func (r *Repository) fallbackQuotations(ctx context.Context, id int) ([]RawQuotation, error) {
	if r.recent != nil {
		if cached, ok := r.recent.Get(id); ok {
			r.telemetry.Record(ctx, EventFallbackCacheHit, map[string]any{"lead_id": id})
			return cloneQuotations(cached), nil
		}
	}
	r.telemetry.Record(ctx, EventFallbackLookup, map[string]any{"lead_id": id})
	quotations, err := r.fallback.FetchUserQuotations(ctx, id)
	if err != nil {
		err = asFetchError("lead quotations", err)
		r.telemetry.Record(ctx, EventFallbackError, map[string]any{"lead_id": id, "error": err.Error()})
		r.logger.Error().Err(err).Int("lead_id", id).Msg("lead quotations fetch failed")
		message := MsgConnectionFailed
		if errors.Is(err, ErrUnsuccessfulResponse) || errors.Is(err, ErrInvalidPayload) {
			message = MsgFetchFailed
		}
		notify(ctx, r.notifier, r.logger, LevelError, "quotations.lead_fetch", message)
		return []RawQuotation{}, err
	}
	// Empty answers are not kept so a quotation created right after is seen on the next view.
	if r.recent != nil && len(quotations) > 0 {
		r.recent.Add(id, cloneQuotations(quotations))
	}
	return cloneQuotations(quotations), nil
}

// Reset forgets per-lead fallback answers.
func (r *Repository) Reset() {
	if r.recent != nil {
		r.recent.Purge()
	}
}

func (r *Repository) load(ctx context.Context) (QuotationPayload, error) {
	if r.loader == nil {
		return QuotationPayload{}, &FetchError{Op: "all quotations", Err: errMissingSource}
	}
	return r.loader.EnsureLoaded(ctx)
}
