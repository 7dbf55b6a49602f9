// Prometheus instrumentation for the question-answering pipeline. Labels
// stay low-cardinality: intents are a closed set and outcomes a fixed
// taxonomy, so the label space stays bounded.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline outcomes used as the "outcome" label value.
const (
	OutcomeAnswered      = "answered"
	OutcomeFallback      = "fallback"
	OutcomeClarification = "clarification"
	OutcomeValidation    = "validation"
	OutcomeAmbiguous     = "ambiguous"
	OutcomeNotFound      = "not_found"
	OutcomeUnknown       = "unknown"
	OutcomeSystem        = "system"
	OutcomeDuplicate     = "duplicate"
	OutcomeRejected      = "rejected"
)

var (
	// pipelineReqs counts processed questions by classified intent and
	// terminal outcome.
	pipelineReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_questions_total",
			Help: "Total questions processed, by intent and outcome.",
		},
		[]string{"intent", "outcome"},
	)

	// intakeEvents counts inbound webhook deliveries by disposition.
	intakeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_events_total",
			Help: "Total inbound webhook events, by disposition.",
		},
		[]string{"disposition"},
	)

	// stageLat records the duration of each pipeline stage in seconds.
	stageLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(pipelineReqs, intakeEvents, stageLat)
}

// CountIntake records one inbound webhook event disposition
// (accepted, duplicate, ignored, rejected).
func CountIntake(disposition string) {
	intakeEvents.WithLabelValues(disposition).Inc()
}

// CountQuestion records one finished pipeline run.
func CountQuestion(intent, outcome string) {
	pipelineReqs.WithLabelValues(intent, outcome).Inc()
}

// ObserveStage records the elapsed time of one pipeline stage.
func ObserveStage(stage string, d time.Duration) {
	stageLat.WithLabelValues(stage).Observe(d.Seconds())
}

// RegisterSessionGauge exposes the live-session count as a gauge. Call once
// at startup with the store's Len.
func RegisterSessionGauge(count func() int) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of live conversation sessions.",
		},
		func() float64 { return float64(count()) },
	))
}
