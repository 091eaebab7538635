package network_state

import (
	"math"
	"math/rand"
)

// Node is a moving point on the drawing area, in device pixels.
type Node struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	DX      float64 `json:"dx"`
	DY      float64 `json:"dy"`
	AreaW   float64 `json:"-"` // Right bound of the drawing area
	AreaH   float64 `json:"-"` // Bottom bound of the drawing area
	Padding float64 `json:"-"` // Inner margin that keeps the drawn extent on the canvas
}

// NewNode places a node at a random position inside the padded area with a
// random velocity in [-velocityFactor/2, velocityFactor/2) on each axis.
func NewNode(areaW, areaH, velocityFactor, padding float64, rng *rand.Rand) *Node {
	// An area too small for the margin would make both walls reflect at once.
	padding = math.Max(0, math.Min(padding, math.Min(areaW, areaH)/2))

	n := &Node{
		AreaW:   areaW,
		AreaH:   areaH,
		Padding: padding,
	}
	n.X = math.Max(padding, math.Floor(rng.Float64()*(areaW-padding)))
	n.Y = math.Max(padding, math.Floor(rng.Float64()*(areaH-padding)))
	n.DX = (rng.Float64() - 0.5) * velocityFactor
	n.DY = (rng.Float64() - 0.5) * velocityFactor
	return n
}

// Update advances the node by one step. An axis whose next position would
// leave the padded area has its velocity negated before the move.
func (n *Node) Update() {
	if n.X+n.DX+n.Padding > n.AreaW || n.X+n.DX-n.Padding < 0 {
		n.DX = -n.DX
	}
	if n.Y+n.DY+n.Padding > n.AreaH || n.Y+n.DY-n.Padding < 0 {
		n.DY = -n.DY
	}
	n.X += n.DX
	n.Y += n.DY
}

// SquaredDistanceTo returns the squared Euclidean distance to other.
func (n *Node) SquaredDistanceTo(other *Node) float64 {
	dx := n.X - other.X
	dy := n.Y - other.Y
	return dx*dx + dy*dy
}

// DistanceTo returns the Euclidean distance to other.
func (n *Node) DistanceTo(other *Node) float64 {
	return math.Sqrt(n.SquaredDistanceTo(other))
}
