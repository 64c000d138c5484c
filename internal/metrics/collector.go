package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector tracks attach, sync, and probe outcomes for the status surface.
type Collector struct {
	registry *prometheus.Registry

	attachAttempts *prometheus.CounterVec
	attachDuration *prometheus.HistogramVec
	syncTotal      *prometheus.CounterVec
	probeTimeouts  *prometheus.CounterVec
	mountedGauge   prometheus.Gauge
}

// NewCollector creates a metrics collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "persistfs"
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		attachAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attach_attempts_total",
			Help:      "Attachment strategy attempts by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		attachDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attach_duration_seconds",
			Help:      "Duration of full attach calls by result",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"result"}),
		syncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_total",
			Help:      "Sync invocations by mode and result",
		}, []string{"mode", "result"}),
		probeTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_timeouts_total",
			Help:      "External commands that exceeded their polling cap",
		}, []string{"command"}),
		mountedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bucket_mounted",
			Help:      "Whether the bucket is currently verified as mounted (1) or not (0)",
		}),
	}

	c.registry.MustRegister(
		c.attachAttempts,
		c.attachDuration,
		c.syncTotal,
		c.probeTimeouts,
		c.mountedGauge,
	)
	return c
}

// RecordStrategyAttempt counts one strategy attempt with its outcome.
func (c *Collector) RecordStrategyAttempt(strategy, outcome string) {
	c.attachAttempts.WithLabelValues(strategy, outcome).Inc()
}

// RecordAttach observes one full attach call.
func (c *Collector) RecordAttach(success bool, elapsed time.Duration) {
	c.attachDuration.WithLabelValues(resultLabel(success)).Observe(elapsed.Seconds())
	if success {
		c.mountedGauge.Set(1)
	} else {
		c.mountedGauge.Set(0)
	}
}

// RecordSync counts one sync invocation. Mode is "mount" or "backup".
func (c *Collector) RecordSync(mode string, success bool) {
	c.syncTotal.WithLabelValues(mode, resultLabel(success)).Inc()
}

// RecordProbeTimeout counts an external command that hit its polling cap.
func (c *Collector) RecordProbeTimeout(command string) {
	c.probeTimeouts.WithLabelValues(command).Inc()
}

// Handler returns an HTTP handler serving the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional instrumentation.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
