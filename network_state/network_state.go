package network_state

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"yapa-server/config"
	"yapa-server/pathfinding"
)

// areaPerNode is the CSS pixel area that holds one node at density 1.
const areaPerNode = 10000.0

const (
	// MaxViewportArea is the largest CSS pixel area a viewport may cover.
	MaxViewportArea = 8192 * 8192
	// MaxNodes bounds a population whatever the area and density.
	MaxNodes = 1 << 16
)

// ErrInvalidViewport is returned by Viewport.Validate.
var ErrInvalidViewport = errors.New("invalid viewport")

// Viewport is the host drawing area in CSS pixels plus the device pixel
// density.
type Viewport struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PixelRatio float64 `json:"pixel_ratio"`
}

// Validate rejects sizes that cannot be drawn on: non-finite or negative
// values and areas above MaxViewportArea.
func (v Viewport) Validate() error {
	for _, f := range []float64{v.Width, v.Height, v.PixelRatio} {
		if !isFinite(f) {
			return fmt.Errorf("%w: values must be finite", ErrInvalidViewport)
		}
	}
	if v.Width < 0 || v.Height < 0 || v.PixelRatio < 0 {
		return fmt.Errorf("%w: values must not be negative", ErrInvalidViewport)
	}
	if v.Width*v.Height > MaxViewportArea {
		return fmt.Errorf("%w: larger than %d css px", ErrInvalidViewport, MaxViewportArea)
	}
	return nil
}

// Ratio returns the pixel density, 1 when unset or not finite.
func (v Viewport) Ratio() float64 {
	if !isFinite(v.PixelRatio) || v.PixelRatio <= 0 {
		return 1
	}
	return v.PixelRatio
}

// DeviceSize returns the drawing area in device pixels. Non-finite sizes
// count as empty.
func (v Viewport) DeviceSize() (float64, float64) {
	if !isFinite(v.Width) || !isFinite(v.Height) {
		return 0, 0
	}
	r := v.Ratio()
	return math.Max(0, v.Width) * r, math.Max(0, v.Height) * r
}

// NodeCount is the population size for density at this viewport, at most
// MaxNodes.
func (v Viewport) NodeCount(density float64) int {
	if !isFinite(v.Width) || !isFinite(v.Height) || !isFinite(density) {
		return 0
	}
	if v.Width <= 0 || v.Height <= 0 || density <= 0 {
		return 0
	}
	n := math.Floor(v.Width * v.Height / areaPerNode * density)
	if n > MaxNodes {
		return MaxNodes
	}
	return int(n)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// SpawnResult is the outcome of one spawn attempt.
type SpawnResult int

const (
	SpawnSkipped SpawnResult = iota // hidden, disabled or fewer than two nodes
	SpawnNoPath                     // endpoints in different components
	SpawnStarted
)

func (r SpawnResult) String() string {
	switch r {
	case SpawnStarted:
		return "started"
	case SpawnNoPath:
		return "no_path"
	default:
		return "skipped"
	}
}

// Stats is a cheap summary of the engine.
type Stats struct {
	Nodes         int    `json:"nodes"`
	Transmissions int    `json:"transmissions"`
	Epoch         uint64 `json:"epoch"`
	Ticks         uint64 `json:"ticks"`
	Completed     uint64 `json:"completed"`
}

// NetworkState owns one node population and its active transmissions.
// It is not safe for concurrent use; a single goroutine drives it.
type NetworkState struct {
	cfg           *config.Config
	viewport      Viewport
	maxSquared    float64
	nodes         []*Node
	transmissions []*Transmission
	rng           *rand.Rand
	epoch         uint64 // bumped on every reset
	ticks         uint64 // ticks since the last reset
	completed     uint64 // transmissions retired since creation
}

// NewNetworkState returns an empty engine. Call Reset with a viewport to
// populate it. A nil rng is seeded from the clock.
func NewNetworkState(cfg *config.Config, rng *rand.Rand) *NetworkState {
	if cfg == nil {
		cfg = config.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &NetworkState{cfg: cfg, rng: rng}
}

// Config returns the active snapshot.
func (ns *NetworkState) Config() *config.Config { return ns.cfg }

// Viewport returns the area used by the last reset.
func (ns *NetworkState) Viewport() Viewport { return ns.viewport }

// Reset discards every node and transmission and repopulates the area.
func (ns *NetworkState) Reset(vp Viewport) {
	ratio := vp.Ratio()
	vp.PixelRatio = ratio
	if !isFinite(vp.Width) || !isFinite(vp.Height) {
		vp.Width, vp.Height = 0, 0
	}
	ns.viewport = vp

	maxDistance := ns.cfg.MaxConnDistance * ratio
	ns.maxSquared = maxDistance * maxDistance

	w, h := vp.DeviceSize()
	padding := ns.cfg.NodeRadius * ns.cfg.TransmissionWidthFactor * ratio
	velocity := ns.cfg.NodeVelocityFactor * ratio

	count := vp.NodeCount(ns.cfg.NodeDensityFactor)
	ns.nodes = make([]*Node, 0, count)
	for i := 0; i < count; i++ {
		ns.nodes = append(ns.nodes, NewNode(w, h, velocity, padding, ns.rng))
	}

	ns.transmissions = nil
	ns.ticks = 0
	ns.epoch++
}

// UpdateConfig swaps in a new snapshot. When the change affects the
// population the engine resets on the current viewport; the return value
// reports whether it did.
func (ns *NetworkState) UpdateConfig(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}
	old := ns.cfg
	ns.cfg = cfg
	if !config.RequiresReset(old, cfg) {
		return false
	}
	ns.Reset(ns.viewport)
	return true
}

// FadeIn is the global opacity in [0, 1], reaching 1 after
// fadeInDurationMs/updatePeriodMs ticks.
func (ns *NetworkState) FadeIn() float64 {
	if ns.cfg.FadeInDurationMs <= 0 {
		return 1
	}
	return math.Min(1, float64(ns.ticks)*float64(ns.cfg.UpdatePeriodMs)/float64(ns.cfg.FadeInDurationMs))
}

// Tick advances the simulation by one step: nodes move, the fade-in grows,
// every transmission advances and arrived ones are dropped. Nothing moves
// while the host is hidden. It returns the number of retired transmissions.
func (ns *NetworkState) Tick(visible bool) int {
	if !visible {
		return 0
	}

	ns.ticks++
	for _, n := range ns.nodes {
		n.Update()
	}

	ratio := ns.viewport.Ratio()
	active := ns.transmissions[:0]
	retired := 0
	for _, t := range ns.transmissions {
		t.Advance(ns.nodes, ns.cfg.TransmissionSpeedFactor, ns.cfg.MaxConnDistance, ratio)
		if t.Complete() {
			retired++
			continue
		}
		active = append(active, t)
	}
	for i := len(active); i < len(ns.transmissions); i++ {
		ns.transmissions[i] = nil
	}
	ns.transmissions = active
	ns.completed += uint64(retired)
	return retired
}

// SpawnTransmission makes one attempt at routing a packet between two
// distinct random nodes. A disconnected pair is not an error.
func (ns *NetworkState) SpawnTransmission(visible bool) SpawnResult {
	if !visible || !ns.cfg.TransmissionsEnabled || len(ns.nodes) < 2 {
		return SpawnSkipped
	}

	start := ns.rng.Intn(len(ns.nodes))
	goal := ns.rng.Intn(len(ns.nodes) - 1)
	if goal >= start {
		goal++
	}

	path, err := pathfinding.FindPath(ns.Graph(), start, goal)
	if errors.Is(err, pathfinding.ErrNoPath) {
		return SpawnNoPath
	}
	if err != nil {
		return SpawnSkipped
	}

	color, err := config.RandomGradientColor(ns.cfg.TransmissionColorA, ns.cfg.TransmissionColorB, ns.rng.Float64())
	if err != nil {
		color = ns.cfg.TransmissionColorA
	}
	t, err := NewTransmission(path, color)
	if err != nil {
		return SpawnSkipped
	}
	ns.transmissions = append(ns.transmissions, t)
	return SpawnStarted
}

// NextSpawnDelay draws the wait before the next spawn attempt, uniform in
// [0, spawnPeriodMax).
func (ns *NetworkState) NextSpawnDelay() time.Duration {
	ceiling := ns.cfg.SpawnPeriodMax()
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(ns.rng.Int63n(int64(ceiling)))
}

// Graph is the proximity view over the current positions.
func (ns *NetworkState) Graph() ProximityGraph {
	return ProximityGraph{Nodes: ns.nodes, MaxSquared: ns.maxSquared}
}

// Edges lists the connected pairs at the current positions.
func (ns *NetworkState) Edges() []Edge {
	return ns.Graph().Edges()
}

// Stats summarizes the engine.
func (ns *NetworkState) Stats() Stats {
	return Stats{
		Nodes:         len(ns.nodes),
		Transmissions: len(ns.transmissions),
		Epoch:         ns.epoch,
		Ticks:         ns.ticks,
		Completed:     ns.completed,
	}
}
