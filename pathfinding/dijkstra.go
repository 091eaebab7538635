package pathfinding

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoPath means goal is in a component that start does not reach.
	ErrNoPath = errors.New("no path found")
	// ErrInvalidNode means start or goal is not an index of the graph.
	ErrInvalidNode = errors.New("node index out of range")
)

// Graph is an implicit, undirected graph over indexed points: a and b are
// adjacent when their squared distance is within MaxSquaredDistance. The
// cost of an edge is the true Euclidean distance.
type Graph interface {
	Len() int
	SquaredDistance(a, b int) float64
	MaxSquaredDistance() float64
}

// noParent marks a node that was never reached.
const noParent = -1

// FindPath returns the node indices of a shortest path from start to goal,
// both included.
//
// The search is Dijkstra without a priority queue or adjacency list: every
// step scans all unvisited nodes for neighbours of the current one. The next
// current node is the nearest of those neighbours; when there is none, the
// unvisited node with the smallest recorded distance takes over, which lets
// the frontier jump across gaps. O(V^2) per call.
//
// All scratch state lives in slices owned by this call.
func FindPath(g Graph, start, goal int) ([]int, error) {
	n := g.Len()
	if start < 0 || start >= n || goal < 0 || goal >= n {
		return nil, fmt.Errorf("%w: start=%d goal=%d len=%d", ErrInvalidNode, start, goal, n)
	}
	if start == goal {
		return []int{start}, nil
	}

	maxSquared := g.MaxSquaredDistance()
	visited := make([]bool, n)
	distance := make([]float64, n)
	parent := make([]int, n)
	for i := range distance {
		distance[i] = math.Inf(1)
		parent[i] = noParent
	}

	current := start
	distance[current] = 0

	for {
		nearest, nearestDistance := noParent, math.Inf(1)

		// relax every unvisited neighbour of current
		for i := 0; i < n; i++ {
			if i == current || visited[i] {
				continue
			}
			squared := g.SquaredDistance(current, i)
			if squared > maxSquared {
				continue
			}
			d := distance[current] + math.Sqrt(squared)
			if d < distance[i] {
				distance[i] = d
				parent[i] = current
			}
			if nearest == noParent || d < nearestDistance {
				nearest, nearestDistance = i, d
			}
		}

		visited[current] = true

		if nearest != noParent {
			current = nearest
			continue
		}

		// no unvisited neighbour: fall back to the closest unvisited node anywhere
		candidate := noParent
		for i := 0; i < n; i++ {
			if visited[i] {
				continue
			}
			if candidate == noParent || distance[i] < distance[candidate] {
				candidate = i
			}
		}
		if candidate == noParent {
			break
		}
		current = candidate
	}

	return walkBack(parent, start, goal)
}

// walkBack follows parent links from goal to start and returns the path in
// start-to-goal order.
func walkBack(parent []int, start, goal int) ([]int, error) {
	path := []int{goal}
	for next := parent[goal]; next != start; next = parent[next] {
		if next == noParent || len(path) > len(parent) {
			return nil, ErrNoPath
		}
		path = append(path, next)
	}
	path = append(path, start)

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// PathLength sums the Euclidean length of consecutive hops.
func PathLength(g Graph, path []int) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += math.Sqrt(g.SquaredDistance(path[i-1], path[i]))
	}
	return total
}

// ValidPath reports whether every hop of path is within the threshold.
func ValidPath(g Graph, path []int) bool {
	maxSquared := g.MaxSquaredDistance()
	for i := 1; i < len(path); i++ {
		if g.SquaredDistance(path[i-1], path[i]) > maxSquared {
			return false
		}
	}
	return len(path) > 0
}
