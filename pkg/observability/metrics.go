package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "coach"

// Metrics holds the collectors fed by the engine's lifecycle hooks.
type Metrics struct {
	Turns            *prometheus.CounterVec
	TurnDuration     prometheus.Histogram
	Incidents        *prometheus.CounterVec
	StageTransitions *prometheus.CounterVec
	ResponderLatency *prometheus.HistogramVec
	ExternalCalls    *prometheus.CounterVec

	registerer prometheus.Registerer
}

// MetricsOption configures NewMetrics.
type MetricsOption func(*Metrics)

// WithRegisterer registers the collectors with r instead of the default registry.
func WithRegisterer(r prometheus.Registerer) MetricsOption {
	return func(m *Metrics) {
		m.registerer = r
	}
}

// NewMetrics creates and registers the coaching collectors.
// It panics if a collector with the same name is already registered.
func NewMetrics(opts ...MetricsOption) *Metrics {
	m := &Metrics{
		registerer: prometheus.DefaultRegisterer,
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed turns by stage and classification tag.",
		}, []string{"stage", "tag", "degraded"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Wall time of a full turn.",
			Buckets:   prometheus.DefBuckets,
		}),
		Incidents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_total",
			Help:      "Classified incidents by tag and severity.",
		}, []string{"tag", "severity"}),
		StageTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Stage changes and denied proposals.",
		}, []string{"from", "to", "type"}),
		ResponderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "responder_duration_seconds",
			Help:      "Duration of responder invocations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"responder", "outcome"}),
		ExternalCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_call_attempts_total",
			Help:      "Generation backend attempts by attempt number and outcome.",
		}, []string{"attempt", "outcome"}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.registerer.MustRegister(
		m.Turns, m.TurnDuration, m.Incidents,
		m.StageTransitions, m.ResponderLatency, m.ExternalCalls,
	)
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(_ context.Context, e *domain.TurnEvent) {
			m.Turns.WithLabelValues(e.Stage.String(), string(e.Tag), strconv.FormatBool(e.Degraded)).Inc()
			m.TurnDuration.Observe(e.Duration.Seconds())
		},
		OnIncident: func(_ context.Context, e *domain.IncidentEvent) {
			m.Incidents.WithLabelValues(string(e.Incident.Tag), string(e.Incident.Severity)).Inc()
		},
		OnStageChange: func(_ context.Context, e *domain.StageEvent) {
			m.StageTransitions.WithLabelValues(e.From.String(), e.To.String(), string(e.Type)).Inc()
		},
		OnResponderCall: func(_ context.Context, e *domain.CallEvent) {
			m.ResponderLatency.WithLabelValues(e.Name, outcome(e.IsError)).Observe(e.Duration.Seconds())
		},
		OnExternalCall: func(_ context.Context, e *domain.CallEvent) {
			m.ExternalCalls.WithLabelValues(strconv.Itoa(e.Attempt), outcome(e.IsError)).Inc()
		},
	}
}

func outcome(isErr bool) string {
	if isErr {
		return "error"
	}
	return "ok"
}
