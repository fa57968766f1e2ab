package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	ArticlesGenerated prometheus.Counter
	ArticlesFailed    prometheus.Counter
	GenerationLatency prometheus.Histogram
	ImageErrors       prometheus.Counter
	LinksInjected     prometheus.Counter
	QueueDepth        prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ArticlesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "articles_generated_total",
			Help: "Total number of queue items that reached complete.",
		}),

		ArticlesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "articles_failed_total",
			Help: "Total number of generation attempts that ended in failed.",
		}),

		GenerationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "article_generation_seconds",
			Help:    "Pipeline latency from claim to publication.",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120, 240},
		}),

		ImageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_errors_total",
			Help: "Articles published without a featured image because the image stage failed.",
		}),

		LinksInjected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "links_injected_total",
			Help: "Internal links added to generated articles.",
		}),

		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_queue_depth",
			Help: "Current number of pending scheduler tasks.",
		}),
	}

	reg.MustRegister(
		m.ArticlesGenerated,
		m.ArticlesFailed,
		m.GenerationLatency,
		m.ImageErrors,
		m.LinksInjected,
		m.QueueDepth,
	)

	return m
}

// DispatchHooks returns the callbacks expected by service.MetricHooks.
// Centralises the prometheus observation calls so the service stays import-free.
func (m *Metrics) DispatchHooks() (
	onComplete func(latency time.Duration, links int),
	onFailed func(),
	onImageError func(),
) {
	onComplete = func(latency time.Duration, links int) {
		m.ArticlesGenerated.Inc()
		m.GenerationLatency.Observe(latency.Seconds())
		m.LinksInjected.Add(float64(links))
	}
	onFailed = func() {
		m.ArticlesFailed.Inc()
	}
	onImageError = func() {
		m.ImageErrors.Inc()
	}
	return
}
