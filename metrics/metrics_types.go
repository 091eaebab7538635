package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Simulation Metrics
	ChannelsActive          prometheus.Gauge
	SubscribersActive       prometheus.Gauge
	TicksTotal              prometheus.Counter
	ResetsTotal             *prometheus.CounterVec
	SpawnAttemptsTotal      *prometheus.CounterVec
	TransmissionsCompleted  prometheus.Counter
	PathfindingDuration     prometheus.Histogram
	FramesSentTotal         *prometheus.CounterVec
	FramesDroppedTotal      *prometheus.CounterVec
	NodesPerChannel         *prometheus.GaugeVec
	TransmissionsPerChannel *prometheus.GaugeVec

	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// System Metrics
	UptimeSeconds prometheus.Gauge

	registry  *prometheus.Registry
	startTime time.Time
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	r.initSimulationMetrics()
	r.initHTTPMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
