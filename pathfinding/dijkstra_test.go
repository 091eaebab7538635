package pathfinding

import (
	"math"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct{ x, y float64 }

// pointGraph is a fixed set of points with a connection threshold.
type pointGraph struct {
	points     []point
	maxSquared float64
}

func (g pointGraph) Len() int { return len(g.points) }

func (g pointGraph) SquaredDistance(a, b int) float64 {
	dx := g.points[a].x - g.points[b].x
	dy := g.points[a].y - g.points[b].y
	return dx*dx + dy*dy
}

func (g pointGraph) MaxSquaredDistance() float64 { return g.maxSquared }

// reachable is a plain BFS used as the reference for connectivity.
func reachable(g pointGraph, start, goal int) bool {
	seen := make([]bool, g.Len())
	queue := []int{start}
	seen[start] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == goal {
			return true
		}
		for i := 0; i < g.Len(); i++ {
			if !seen[i] && g.SquaredDistance(cur, i) <= g.maxSquared {
				seen[i] = true
				queue = append(queue, i)
			}
		}
	}
	return false
}

func TestFindPathTriangle(t *testing.T) {
	g := pointGraph{
		points:     []point{{0, 0}, {5, 1}, {10, 0}},
		maxSquared: 20 * 20,
	}

	path, err := FindPath(g, 0, 2)
	require.NoError(t, err)
	assert.True(t, ValidPath(g, path))
	assert.Equal(t, 0, path[0])
	assert.Equal(t, 2, path[len(path)-1])

	// every index path from 0 to 2 in a triangle: direct or through 1
	candidates := [][]int{{0, 2}, {0, 1, 2}}
	best := math.Inf(1)
	for _, c := range candidates {
		best = math.Min(best, PathLength(g, c))
	}
	assert.InDelta(t, best, PathLength(g, path), 1e-9)
	assert.Equal(t, []int{0, 2}, path)
}

func TestFindPathPrefersShorterChain(t *testing.T) {
	// 0 and 3 are out of range of each other; two chains connect them and
	// the upper one is shorter.
	g := pointGraph{
		points: []point{
			{0, 0},    // 0 start
			{10, 2},   // 1 upper
			{20, 0},   // 2 goal side
			{30, 0},   // 3 goal
			{10, -12}, // 4 lower detour
		},
		maxSquared: 16 * 16,
	}

	path, err := FindPath(g, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, path)
	assert.True(t, ValidPath(g, path))
}

func TestFindPathNoNeighbours(t *testing.T) {
	g := pointGraph{
		points:     []point{{0, 0}, {100, 100}},
		maxSquared: 10 * 10,
	}
	_, err := FindPath(g, 0, 1)
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestFindPathTwoClusters(t *testing.T) {
	g := pointGraph{
		points: []point{
			{0, 0}, {5, 0}, {10, 0}, // cluster A
			{500, 500}, {505, 500}, {510, 500}, // cluster B
		},
		maxSquared: 6 * 6,
	}

	_, err := FindPath(g, 0, 4)
	assert.ErrorIs(t, err, ErrNoPath)
	_, err = FindPath(g, 5, 1)
	assert.ErrorIs(t, err, ErrNoPath)

	path, err := FindPath(g, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, path)

	path, err = FindPath(g, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 4, 3}, path)
}

func TestFindPathDegenerateInput(t *testing.T) {
	g := pointGraph{points: []point{{0, 0}, {1, 1}}, maxSquared: 100}

	path, err := FindPath(g, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, path)

	_, err = FindPath(g, -1, 1)
	assert.ErrorIs(t, err, ErrInvalidNode)
	_, err = FindPath(g, 0, 2)
	assert.ErrorIs(t, err, ErrInvalidNode)
	_, err = FindPath(pointGraph{}, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidNode)
}

func TestFindPathDoesNotLeakStateBetweenCalls(t *testing.T) {
	g := pointGraph{
		points:     []point{{0, 0}, {5, 0}, {10, 0}, {15, 0}},
		maxSquared: 6 * 6,
	}
	first, err := FindPath(g, 0, 3)
	require.NoError(t, err)
	second, err := FindPath(g, 3, 0)
	require.NoError(t, err)
	third, err := FindPath(g, 0, 3)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3}, first)
	assert.Equal(t, []int{3, 2, 1, 0}, second)
	assert.Equal(t, first, third)
}

func TestFindPathProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	type scenario struct {
		g           pointGraph
		start, goal int
	}
	genScenario := gen.Int64().Map(func(seed int64) scenario {
		rng := rand.New(rand.NewSource(seed))
		n := 2 + rng.Intn(25)
		pts := make([]point, n)
		for i := range pts {
			pts[i] = point{rng.Float64() * 400, rng.Float64() * 400}
		}
		threshold := 40 + rng.Float64()*120
		return scenario{
			g:     pointGraph{points: pts, maxSquared: threshold * threshold},
			start: rng.Intn(n),
			goal:  rng.Intn(n),
		}
	})

	properties.Property("a path is found exactly when goal is reachable", prop.ForAll(
		func(s scenario) bool {
			_, err := FindPath(s.g, s.start, s.goal)
			return (err == nil) == reachable(s.g, s.start, s.goal)
		},
		genScenario,
	))

	properties.Property("found paths run start to goal within the threshold", prop.ForAll(
		func(s scenario) bool {
			path, err := FindPath(s.g, s.start, s.goal)
			if err != nil {
				return true
			}
			seen := make(map[int]bool, len(path))
			for _, idx := range path {
				if seen[idx] {
					return false
				}
				seen[idx] = true
			}
			return path[0] == s.start && path[len(path)-1] == s.goal && ValidPath(s.g, path)
		},
		genScenario,
	))

	properties.TestingRun(t)
}

func TestPathLength(t *testing.T) {
	g := pointGraph{points: []point{{0, 0}, {3, 4}, {3, 10}}, maxSquared: 100}
	assert.InDelta(t, 11.0, PathLength(g, []int{0, 1, 2}), 1e-12)
	assert.Equal(t, 0.0, PathLength(g, []int{0}))
	assert.False(t, ValidPath(g, nil))
	assert.False(t, ValidPath(g, []int{0, 2}))
}
