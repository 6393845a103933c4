package observability

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/synthex/pkg/domain"
)

const namespace = "synthex"

// Metrics holds the collectors for outbound extraction calls and for the
// session store.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Actions  prometheus.Histogram
	InFlight prometheus.Gauge

	// StoreDuration is labelled by op (save, load, delete, list) and result (ok, not_found, error).
	StoreDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extract_requests_total",
				Help:      "Total number of extraction service calls by outcome",
			},
			[]string{"outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "extract_duration_seconds",
				Help:      "Duration of extraction service calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		Actions: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "extract_actions",
				Help:      "Number of actions returned per successful call",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
			},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "extract_in_flight",
				Help:      "Extraction service calls currently in progress",
			},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "session_store_duration_seconds",
				Help:      "Duration of session store operations",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"op", "result"},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.Requests, m.Duration, m.Actions, m.InFlight, m.StoreDuration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Hooks records every call in the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnExtractStart: func(_ context.Context, _ *domain.ExtractEvent) {
			m.InFlight.Inc()
		},
		OnExtractReturn: func(_ context.Context, e *domain.ExtractEvent) {
			m.InFlight.Dec()
			outcome := string(e.Outcome)
			m.Requests.WithLabelValues(outcome).Inc()
			m.Duration.WithLabelValues(outcome).Observe(e.Duration.Seconds())
			if e.Err == nil {
				m.Actions.Observe(float64(e.ActionCount))
			}
		},
	}
}

// LoggingHooks logs every call at debug level on start and info level on return.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnExtractStart: func(ctx context.Context, e *domain.ExtractEvent) {
			logger.DebugContext(ctx, "extract_start",
				"session_id", e.SessionID,
				"input_size", e.InputSize,
			)
		},
		OnExtractReturn: func(ctx context.Context, e *domain.ExtractEvent) {
			attrs := []any{
				"session_id", e.SessionID,
				"outcome", e.Outcome,
				"actions", e.ActionCount,
				"duration", e.Duration,
			}
			if e.Err != nil {
				attrs = append(attrs, "error", e.Err)
				logger.WarnContext(ctx, "extract_return", attrs...)
				return
			}
			logger.InfoContext(ctx, "extract_return", attrs...)
		},
	}
}
