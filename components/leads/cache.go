package leads

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// QuotationCache holds the bulk quotations payload for the lifetime of a session.
// Concurrent callers share a single in-flight fetch, and each generation fetches at most once.
type QuotationCache struct {
	source    QuotationSource
	notifier  Notifier
	telemetry Telemetry
	logger    zerolog.Logger

	mu         sync.Mutex
	payload    *QuotationPayload
	generation uint64
	inflight   *fetchCall
}

type fetchCall struct {
	done       chan struct{}
	generation uint64
	payload    QuotationPayload
	err        error
}

// CacheOptions configures a QuotationCache.
type CacheOptions struct {
	Source    QuotationSource
	Notifier  Notifier
	Telemetry Telemetry
	Logger    *zerolog.Logger
}

// NewQuotationCache builds an empty cache at generation zero.
func NewQuotationCache(opts CacheOptions) *QuotationCache {
	return &QuotationCache{
		source:    opts.Source,
		notifier:  normalizeNotifier(opts.Notifier),
		telemetry: normalizeTelemetry(opts.Telemetry),
		logger:    loggerOrNop(opts.Logger),
	}
}

// EnsureLoaded returns the cached payload, fetching it once if the cache is empty.
// A failed fetch leaves the cache empty, emits a notification and returns a FetchError.
func (c *QuotationCache) EnsureLoaded(ctx context.Context) (QuotationPayload, error) {
	return c.load(ctx, nil)
}

// LoadGeneration behaves like EnsureLoaded while the cache is still at generation gen.
// Once the cache has been invalidated past gen it returns ErrStaleGeneration without fetching.
func (c *QuotationCache) LoadGeneration(ctx context.Context, gen uint64) (QuotationPayload, error) {
	return c.load(ctx, &gen)
}

func (c *QuotationCache) load(ctx context.Context, gen *uint64) (QuotationPayload, error) {
	c.mu.Lock()
	if gen != nil && *gen != c.generation {
		current := c.generation
		c.mu.Unlock()
		c.logger.Debug().Uint64("requested", *gen).Uint64("generation", current).Msg("skipping load for a stale generation")
		return QuotationPayload{}, ErrStaleGeneration
	}
	if c.payload != nil {
		payload := *c.payload
		c.mu.Unlock()
		c.telemetry.Record(ctx, EventCacheHit, map[string]any{"users": len(payload.Users)})
		return payload, nil
	}
	call := c.inflight
	if call == nil {
		if c.source == nil {
			c.mu.Unlock()
			return QuotationPayload{}, &FetchError{Op: "all quotations", Err: errMissingSource}
		}
		call = &fetchCall{done: make(chan struct{}), generation: c.generation}
		c.inflight = call
		go c.fetch(context.WithoutCancel(ctx), call)
	}
	c.mu.Unlock()

	select {
	case <-call.done:
		return call.payload, call.err
	case <-ctx.Done():
		return QuotationPayload{}, &FetchError{Op: "all quotations", Err: ctx.Err()}
	}
}

func (c *QuotationCache) fetch(ctx context.Context, call *fetchCall) {
	c.telemetry.Record(ctx, EventCacheFetch, map[string]any{"generation": call.generation})
	payload, err := c.source.FetchAllQuotations(ctx)

	c.mu.Lock()
	current := c.generation == call.generation
	if err == nil && current {
		stored := payload
		c.payload = &stored
	}
	if c.inflight == call {
		c.inflight = nil
	}
	c.mu.Unlock()

	if err != nil {
		call.err = asFetchError("all quotations", err)
		c.reportFailure(ctx, call.err)
	} else {
		call.payload = payload
		if !current {
			c.logger.Debug().Uint64("generation", call.generation).Msg("discarding quotations fetched for a stale generation")
		}
	}
	close(call.done)
}

func (c *QuotationCache) reportFailure(ctx context.Context, err error) {
	c.telemetry.Record(ctx, EventCacheFetchError, map[string]any{"error": err.Error()})
	c.logger.Error().Err(err).Msg("quotations fetch failed")
	message := MsgConnectionFailed
	if errors.Is(err, ErrUnsuccessfulResponse) || errors.Is(err, ErrInvalidPayload) {
		message = MsgFetchFailed
	}
	notify(ctx, c.notifier, c.logger, LevelError, "quotations.fetch", message)
}

// Invalidate drops the payload and starts a new generation. An in-flight fetch from the
// previous generation still answers its waiters but is not stored.
func (c *QuotationCache) Invalidate() {
	c.mu.Lock()
	c.payload = nil
	c.inflight = nil
	c.generation++
	gen := c.generation
	c.mu.Unlock()
	c.telemetry.Record(context.Background(), EventCacheInvalidate, map[string]any{"generation": gen})
}

// Refresh invalidates the cache and loads a fresh payload.
func (c *QuotationCache) Refresh(ctx context.Context) (QuotationPayload, error) {
	c.Invalidate()
	return c.EnsureLoaded(ctx)
}

// Snapshot returns the cached payload without fetching.
func (c *QuotationCache) Snapshot() (QuotationPayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.payload == nil {
		return QuotationPayload{}, false
	}
	return *c.payload, true
}

// Generation reports the current cache generation.
func (c *QuotationCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func loggerOrNop(l *zerolog.Logger) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return *l
}
