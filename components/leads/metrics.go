package leads

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusTelemetry counts telemetry events per name.
type PrometheusTelemetry struct {
	events   *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewPrometheusTelemetry registers the lead dashboard counters on reg.
// A nil registerer falls back to prometheus.DefaultRegisterer.
func NewPrometheusTelemetry(reg prometheus.Registerer) (*PrometheusTelemetry, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	t := &PrometheusTelemetry{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leads",
			Name:      "events_total",
			Help:      "Lead dashboard events by name.",
		}, []string{"event"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leads",
			Name:      "failures_total",
			Help:      "Lead dashboard events that carried an error.",
		}, []string{"event"}),
	}
	for _, c := range []prometheus.Collector{t.events, t.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Record implements Telemetry.
func (t *PrometheusTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	if t == nil {
		return
	}
	t.events.WithLabelValues(event).Inc()
	if _, failed := payload["error"]; failed {
		t.failures.WithLabelValues(event).Inc()
	}
}

// MultiTelemetry fans an event out to several sinks.
type MultiTelemetry []Telemetry

// Record implements Telemetry.
func (m MultiTelemetry) Record(ctx context.Context, event string, payload map[string]any) {
	for _, t := range m {
		if t != nil {
			t.Record(ctx, event, payload)
		}
	}
}

