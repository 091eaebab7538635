package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"yapa-server/server"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthHealthy     HealthStatus = "healthy"
	HealthWarning     HealthStatus = "warning"
	HealthDegraded    HealthStatus = "degraded"
	HealthDown        HealthStatus = "down"
	HealthMaintenance HealthStatus = "maintenance"
)

// WebSocketStatus represents the state of the WebSocket server
type WebSocketStatus string

const (
	WebSocketRunning  WebSocketStatus = "running"
	WebSocketStopping WebSocketStatus = "stopping"
)

// SimulationMetrics sums the engine state of every channel
type SimulationMetrics struct {
	Channels      int     `json:"channels"`
	VisibleCount  int     `json:"visible_channels"`
	Nodes         int     `json:"nodes"`
	Transmissions int     `json:"transmissions"`
	Completed     uint64  `json:"completed_transmissions"`
	Resets        uint64  `json:"epochs"`
	MaxNodesInOne int     `json:"max_nodes_in_channel"`
	AvgNodesPerCh float64 `json:"avg_nodes_per_channel"`
}

// WorkloadMetrics tracks the current system workload
type WorkloadMetrics struct {
	LoadPercentage  float64 `json:"load_percentage"`
	MaxNodeCapacity int     `json:"max_node_capacity"`
	CurrentLoad     string  `json:"current_load"` // "low", "medium", "high", "critical"
}

// WebSocketServerMetrics holds WebSocket server status
type WebSocketServerMetrics struct {
	Status            WebSocketStatus `json:"status"`
	ActiveConnections int             `json:"active_connections"`
	UptimeSec         int64           `json:"uptime_sec"`
}

// MetricsResponse is the complete metrics response structure
type MetricsResponse struct {
	Timestamp         time.Time              `json:"timestamp"`
	Health            HealthStatus           `json:"health"`
	HealthDescription string                 `json:"health_description"`
	Simulation        SimulationMetrics      `json:"simulation"`
	WebSocket         WebSocketServerMetrics `json:"websocket"`
	Workload          WorkloadMetrics        `json:"workload"`
	ServerUptime      int64                  `json:"server_uptime_sec"`
}

// MetricsHandler reports a JSON summary of the running simulation
type MetricsHandler struct {
	manager         *server.ChannelManager
	mu              sync.RWMutex
	serverStartTime time.Time
	wsStatus        WebSocketStatus

	maxNodeCapacity      int
	warningNodeThreshold int
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(manager *server.ChannelManager) *MetricsHandler {
	return &MetricsHandler{
		manager:              manager,
		serverStartTime:      time.Now(),
		wsStatus:             WebSocketRunning,
		maxNodeCapacity:      20000,
		warningNodeThreshold: 16000, // Warning at 80% capacity
	}
}

// Routes registers metrics routes
func (h *MetricsHandler) Routes(r chi.Router) {
	r.Get("/metrics", h.GetMetrics)
	r.Get("/metrics/health", h.GetHealth)
	r.Get("/metrics/simulation", h.GetSimulation)
	r.Get("/metrics/workload", h.GetWorkload)
}

// GetMetrics returns complete metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collectMetrics())
}

// GetHealth returns only health status
func (h *MetricsHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	metrics := h.collectMetrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp":   metrics.Timestamp,
		"health":      metrics.Health,
		"description": metrics.HealthDescription,
		"uptime_sec":  metrics.ServerUptime,
	})
}

// GetSimulation returns only simulation metrics
func (h *MetricsHandler) GetSimulation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collectMetrics().Simulation)
}

// GetWorkload returns only workload metrics
func (h *MetricsHandler) GetWorkload(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collectMetrics().Workload)
}

// SetWebSocketStatus sets the WebSocket status, e.g. during shutdown
func (h *MetricsHandler) SetWebSocketStatus(status WebSocketStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.wsStatus = status
}

// collectMetrics gathers all metrics from the system
func (h *MetricsHandler) collectMetrics() *MetricsResponse {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sim := h.collectSimulationMetrics()
	workload := h.calculateWorkloadMetrics(sim)
	ws := WebSocketServerMetrics{
		Status:            h.wsStatus,
		ActiveConnections: h.manager.SubscriberCount(),
		UptimeSec:         int64(time.Since(h.serverStartTime).Seconds()),
	}
	health, desc := h.determineHealth(sim, workload, ws)

	return &MetricsResponse{
		Timestamp:         time.Now(),
		Health:            health,
		HealthDescription: desc,
		Simulation:        sim,
		WebSocket:         ws,
		Workload:          workload,
		ServerUptime:      int64(time.Since(h.serverStartTime).Seconds()),
	}
}

func (h *MetricsHandler) collectSimulationMetrics() SimulationMetrics {
	var m SimulationMetrics
	for _, info := range h.manager.Channels() {
		m.Channels++
		if info.Visible {
			m.VisibleCount++
		}
		m.Nodes += info.Stats.Nodes
		m.Transmissions += info.Stats.Transmissions
		m.Completed += info.Stats.Completed
		m.Resets += info.Stats.Epoch
		if info.Stats.Nodes > m.MaxNodesInOne {
			m.MaxNodesInOne = info.Stats.Nodes
		}
	}
	if m.Channels > 0 {
		m.AvgNodesPerCh = float64(m.Nodes) / float64(m.Channels)
	}
	return m
}

// calculateWorkloadMetrics derives the load from the total node count,
// which drives both the tick cost and the O(V^2) path searches
func (h *MetricsHandler) calculateWorkloadMetrics(sim SimulationMetrics) WorkloadMetrics {
	workload := WorkloadMetrics{
		MaxNodeCapacity: h.maxNodeCapacity,
		LoadPercentage:  float64(sim.Nodes) / float64(h.maxNodeCapacity) * 100,
	}

	switch {
	case workload.LoadPercentage < 40:
		workload.CurrentLoad = "low"
	case workload.LoadPercentage < 70:
		workload.CurrentLoad = "medium"
	case workload.LoadPercentage < 90:
		workload.CurrentLoad = "high"
	default:
		workload.CurrentLoad = "critical"
	}
	return workload
}

// determineHealth determines overall system health based on metrics
func (h *MetricsHandler) determineHealth(sim SimulationMetrics, workload WorkloadMetrics, ws WebSocketServerMetrics) (HealthStatus, string) {
	if ws.Status == WebSocketStopping {
		return HealthMaintenance, "Server is performing graceful shutdown - no new connections accepted"
	}

	switch workload.CurrentLoad {
	case "critical":
		return HealthDown, "Node population at critical levels (>90%) - ticks may fall behind"
	case "high":
		if sim.Nodes >= h.warningNodeThreshold {
			return HealthDegraded, "Node population is high (70-90%) and approaching capacity - frame rate may drop"
		}
		return HealthWarning, "Node population is high (70-90%) - monitor tick latency"
	}

	if ws.ActiveConnections > 0 {
		connStr := "connection"
		if ws.ActiveConnections > 1 {
			connStr = "connections"
		}
		return HealthHealthy, fmt.Sprintf("All systems operational - %d active %s on %d channels", ws.ActiveConnections, connStr, sim.Channels)
	}
	return HealthHealthy, "Server ready and operational - awaiting connections"
}
