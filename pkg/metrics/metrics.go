package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DirectionPublish = "publish"
	DirectionConsume = "consume"

	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics owns a private registry so tests and multiple instances never collide
// on the global default registerer.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	GridReplacements *prometheus.CounterVec
	DiscardedUpdates *prometheus.CounterVec
	FetchResults     *prometheus.CounterVec
	RefreshRequests  prometheus.Counter

	FeedFrames     *prometheus.CounterVec
	FeedReconnects *prometheus.CounterVec
	KafkaMessages  *prometheus.CounterVec
	KafkaDuration  *prometheus.HistogramVec

	SelectionsCompleted prometheus.Counter
	Submissions         *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		GridReplacements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "grid_replacements_total",
			Help:      "Availability grids installed, by data source.",
		}, []string{"source"}),
		DiscardedUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "discarded_updates_total",
			Help:      "Updates dropped before reaching the grid, by reason.",
		}, []string{"reason"}),
		FetchResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "results_total",
			Help:      "Snapshot fetch outcomes (primary, cached, fallback, error).",
		}, []string{"result"}),
		RefreshRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "refresh_requests_total",
			Help:      "Manual refresh requests.",
		}),

		FeedFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "frames_total",
			Help:      "Inbound live-feed frames, by handling status.",
		}, []string{"status"}),
		FeedReconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnect_attempts_total",
			Help:      "Live-feed reconnect attempts, by result.",
		}, []string{"result"}),
		KafkaMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "messages_total",
			Help:      "Kafka messages by direction and status.",
		}, []string{"direction", "status"}),
		KafkaDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "operation_duration_seconds",
			Help:      "Kafka publish/consume handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),

		SelectionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "completed_total",
			Help:      "Two-click selections that produced a range.",
		}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "submissions_total",
			Help:      "Booking submissions by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
