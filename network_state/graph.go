package network_state

// ProximityGraph is a read-only view over a node set: i and j are connected
// when their squared distance is within MaxSquared. Nothing is materialized;
// every query measures the current positions.
type ProximityGraph struct {
	Nodes      []*Node
	MaxSquared float64
}

// Edge is a connected pair with i < j.
type Edge struct {
	A               int     `json:"a"`
	B               int     `json:"b"`
	SquaredDistance float64 `json:"d2"`
}

// Len implements pathfinding.Graph.
func (g ProximityGraph) Len() int { return len(g.Nodes) }

// SquaredDistance implements pathfinding.Graph.
func (g ProximityGraph) SquaredDistance(a, b int) float64 {
	return g.Nodes[a].SquaredDistanceTo(g.Nodes[b])
}

// MaxSquaredDistance implements pathfinding.Graph.
func (g ProximityGraph) MaxSquaredDistance() float64 { return g.MaxSquared }

// Connected reports whether a and b are within the threshold.
func (g ProximityGraph) Connected(a, b int) bool {
	return a != b && g.SquaredDistance(a, b) <= g.MaxSquared
}

// Edges lists every connected pair once.
func (g ProximityGraph) Edges() []Edge {
	var edges []Edge
	for i := 0; i < len(g.Nodes); i++ {
		for j := i + 1; j < len(g.Nodes); j++ {
			d := g.Nodes[i].SquaredDistanceTo(g.Nodes[j])
			if d > g.MaxSquared {
				continue
			}
			edges = append(edges, Edge{A: i, B: j, SquaredDistance: d})
		}
	}
	return edges
}

// Falloff is the opacity of an edge of squared length d: 1 at zero length,
// 0 at the threshold.
func (g ProximityGraph) Falloff(d float64) float64 {
	if g.MaxSquared <= 0 {
		return 0
	}
	return 1 - d/g.MaxSquared
}
