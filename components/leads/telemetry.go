package leads

import "context"

// Telemetry records lead dashboard events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

// Telemetry event names.
const (
	EventCacheHit         = "leads.cache.hit"
	EventCacheFetch       = "leads.cache.fetch"
	EventCacheFetchError  = "leads.cache.fetch_error"
	EventCacheInvalidate  = "leads.cache.invalidate"
	EventLogin            = "leads.session.login"
	EventLoginFailed      = "leads.session.login_failed"
	EventLogout           = "leads.session.logout"
	EventRestore          = "leads.session.restore"
	EventFallbackLookup   = "leads.repository.fallback"
	EventFallbackError    = "leads.repository.fallback_error"
	EventFallbackCacheHit = "leads.repository.fallback_cache_hit"
)
