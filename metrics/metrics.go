package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// All recorders accept a nil receiver so callers without a registry (the
// terminal renderer, unit tests) need no guards.

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordTick records one applied simulation tick and the transmissions it retired
func (r *Registry) RecordTick(retired int) {
	if r == nil {
		return
	}
	r.TicksTotal.Inc()
	if retired > 0 {
		r.TransmissionsCompleted.Add(float64(retired))
	}
}

// RecordReset records a population reset
func (r *Registry) RecordReset(reason string) {
	if r == nil {
		return
	}
	r.ResetsTotal.WithLabelValues(reason).Inc()
}

// RecordSpawn records a spawn attempt
func (r *Registry) RecordSpawn(result string, duration time.Duration) {
	if r == nil {
		return
	}
	r.SpawnAttemptsTotal.WithLabelValues(result).Inc()
	r.PathfindingDuration.Observe(duration.Seconds())
}

// RecordSend records a message handed to a subscriber outbox
func (r *Registry) RecordSend(msgType string, delivered bool) {
	if r == nil {
		return
	}
	if delivered {
		r.FramesSentTotal.WithLabelValues(msgType).Inc()
		return
	}
	r.FramesDroppedTotal.WithLabelValues(msgType).Inc()
}

// UpdateChannelMetrics sets the per-channel population gauges
func (r *Registry) UpdateChannelMetrics(channel string, nodes, transmissions int) {
	if r == nil {
		return
	}
	r.NodesPerChannel.WithLabelValues(channel).Set(float64(nodes))
	r.TransmissionsPerChannel.WithLabelValues(channel).Set(float64(transmissions))
}

// ForgetChannel drops the per-channel series of a closed channel
func (r *Registry) ForgetChannel(channel string) {
	if r == nil {
		return
	}
	r.NodesPerChannel.DeleteLabelValues(channel)
	r.TransmissionsPerChannel.DeleteLabelValues(channel)
}

// SetActive sets the channel and subscriber gauges
func (r *Registry) SetActive(channels, subscribers int) {
	if r == nil {
		return
	}
	r.ChannelsActive.Set(float64(channels))
	r.SubscribersActive.Set(float64(subscribers))
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.UptimeSeconds.Set(time.Since(r.startTime).Seconds())
		promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}).ServeHTTP(w, req)
	})
}
