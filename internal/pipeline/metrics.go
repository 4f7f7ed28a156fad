package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records pipeline outcomes. A nil *Metrics records nothing.
type Metrics struct {
	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	pollAttempts  prometheus.Histogram
	variants      *prometheus.CounterVec
	refineFailed  *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ytthumbs_pipeline_runs_total",
			Help: "Pipeline invocations partitioned by outcome code.",
		}, []string{"outcome"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ytthumbs_pipeline_stage_duration_seconds",
			Help:    "Wall-clock duration of each pipeline stage.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		pollAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ytthumbs_poll_attempts",
			Help:    "Status queries issued per generation task.",
			Buckets: prometheus.LinearBuckets(1, 5, 11),
		}),
		variants: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ytthumbs_variant_persist_total",
			Help: "Variant persistence results.",
		}, []string{"result"}),
		refineFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ytthumbs_refine_failures_total",
			Help: "Prompt refinement failures by reason.",
		}, []string{"reason"}),
	}
}

// ObserveRefineFailure counts a refinement failure. It matches the refiner's
// OnFailure hook.
func (m *Metrics) ObserveRefineFailure(reason string, _ error) {
	if m == nil {
		return
	}
	m.refineFailed.WithLabelValues(reason).Inc()
}

func (m *Metrics) observeRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeStage(stage string, started time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observePoll(attempts int) {
	if m == nil {
		return
	}
	m.pollAttempts.Observe(float64(attempts))
}

func (m *Metrics) observeVariants(ok, failed int) {
	if m == nil {
		return
	}
	m.variants.WithLabelValues("ok").Add(float64(ok))
	m.variants.WithLabelValues("failed").Add(float64(failed))
}
