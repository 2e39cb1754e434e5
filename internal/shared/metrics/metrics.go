package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signflow"

// Registry holds every collector exposed at /metrics.
var Registry = prometheus.NewRegistry()

var (
	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "dispatches_total", Help: "Documents sent for signature by result."},
		[]string{"result"},
	)
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "webhook_events_total", Help: "Provider events received by type and effect."},
		[]string{"event_type", "effect"},
	)
	ArtifactRetrievalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "signed_artifact_retrievals_total", Help: "Signed artifact retrieval attempts by result."},
		[]string{"result"},
	)
	RenderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "render_duration_seconds",
		Help:      "Time spent rendering document artifacts.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by route and status."},
		[]string{"method", "route", "status"},
	)
	WorkerJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "worker_jobs_total", Help: "Queue jobs handled by the worker by result."},
		[]string{"result"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Requests rejected by the rate limiter."},
		[]string{"group"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		DispatchesTotal,
		WebhookEventsTotal,
		ArtifactRetrievalsTotal,
		RenderDuration,
		HTTPRequestsTotal,
		WorkerJobsTotal,
		RateLimitRejected,
	)
}

// ObserveRender records how long a render took.
func ObserveRender(started time.Time) {
	RenderDuration.Observe(time.Since(started).Seconds())
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
