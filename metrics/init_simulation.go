package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSimulationMetrics() {
	r.ChannelsActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "yapa_channels_active",
			Help: "Number of running simulation channels",
		},
	)

	r.SubscribersActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "yapa_subscribers_active",
			Help: "Number of attached frame subscribers",
		},
	)

	r.TicksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "yapa_ticks_total",
			Help: "Total number of simulation ticks applied",
		},
	)

	r.ResetsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "yapa_resets_total",
			Help: "Total number of node population resets",
		},
		[]string{"reason"},
	)

	r.SpawnAttemptsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "yapa_spawn_attempts_total",
			Help: "Total number of transmission spawn attempts",
		},
		[]string{"result"},
	)

	r.TransmissionsCompleted = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "yapa_transmissions_completed_total",
			Help: "Total number of transmissions that reached their goal",
		},
	)

	r.PathfindingDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yapa_pathfinding_duration_seconds",
			Help:    "Duration of a spawn attempt including the shortest path search",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
	)

	r.FramesSentTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "yapa_frames_sent_total",
			Help: "Total number of messages queued to subscribers",
		},
		[]string{"type"},
	)

	r.FramesDroppedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "yapa_frames_dropped_total",
			Help: "Total number of messages dropped on a full subscriber outbox",
		},
		[]string{"type"},
	)

	r.NodesPerChannel = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yapa_channel_nodes",
			Help: "Current node count per channel",
		},
		[]string{"channel"},
	)

	r.TransmissionsPerChannel = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yapa_channel_transmissions",
			Help: "Current active transmissions per channel",
		},
		[]string{"channel"},
	)
}
