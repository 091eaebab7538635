package network_state

import (
	"math"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

type nodeScenario struct {
	w, h, padding, velocity float64
	seed                    int64
}

// genNodeScenario keeps |velocity| under half the free span, the range in
// which a single reflection is always enough to stay inside the area.
func genNodeScenario() gopter.Gen {
	return gen.Int64().Map(func(seed int64) nodeScenario {
		rng := rand.New(rand.NewSource(seed))
		w := 50 + rng.Float64()*1950
		h := 50 + rng.Float64()*1950
		padding := rng.Float64() * math.Min(w, h) / 4
		free := math.Min(w, h) - 2*padding
		return nodeScenario{
			w:        w,
			h:        h,
			padding:  padding,
			velocity: rng.Float64() * free,
			seed:     seed,
		}
	})
}

func TestNodeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("position stays inside the area", prop.ForAll(
		func(s nodeScenario) bool {
			rng := rand.New(rand.NewSource(s.seed))
			n := NewNode(s.w, s.h, s.velocity, s.padding, rng)
			for i := 0; i < 500; i++ {
				n.Update()
				if n.X < 0 || n.X > s.w || n.Y < 0 || n.Y > s.h {
					return false
				}
			}
			return true
		},
		genNodeScenario(),
	))

	properties.Property("velocity flips exactly when the next step would cross a wall", prop.ForAll(
		func(s nodeScenario) bool {
			rng := rand.New(rand.NewSource(s.seed))
			n := NewNode(s.w, s.h, s.velocity, s.padding, rng)
			for i := 0; i < 500; i++ {
				crossX := n.X+n.DX+n.Padding > n.AreaW || n.X+n.DX-n.Padding < 0
				crossY := n.Y+n.DY+n.Padding > n.AreaH || n.Y+n.DY-n.Padding < 0
				dx, dy := n.DX, n.DY
				n.Update()
				if (n.DX == -dx) != crossX && dx != 0 {
					return false
				}
				if (n.DY == -dy) != crossY && dy != 0 {
					return false
				}
			}
			return true
		},
		genNodeScenario(),
	))

	properties.Property("squared distance is symmetric and matches the hypotenuse", prop.ForAll(
		func(ax, ay, bx, by float64) bool {
			a := &Node{X: ax, Y: ay}
			b := &Node{X: bx, Y: by}
			d := math.Hypot(ax-bx, ay-by)
			return a.SquaredDistanceTo(b) == b.SquaredDistanceTo(a) &&
				math.Abs(a.SquaredDistanceTo(b)-d*d) <= 1e-9*math.Max(1, d*d)
		},
		gen.Float64Range(-5000, 5000),
		gen.Float64Range(-5000, 5000),
		gen.Float64Range(-5000, 5000),
		gen.Float64Range(-5000, 5000),
	))

	properties.TestingRun(t)
}

func TestSquaredDistanceLiteral(t *testing.T) {
	a := &Node{X: 0, Y: 0}
	b := &Node{X: 3, Y: 4}
	assert.Equal(t, 25.0, a.SquaredDistanceTo(b))
	assert.Equal(t, 25.0, b.SquaredDistanceTo(a))
	assert.Equal(t, 5.0, a.DistanceTo(b))
}

func TestNodeReflectsAtBoundary(t *testing.T) {
	// sitting exactly on the right wall, moving right
	n := &Node{X: 100, Y: 50, DX: 2, DY: 0, AreaW: 100, AreaH: 100}
	n.Update()
	assert.Equal(t, -2.0, n.DX)
	assert.Equal(t, 98.0, n.X)

	// the padding margin counts as wall
	n = &Node{X: 10, Y: 50, DX: -3, DY: 0, AreaW: 100, AreaH: 100, Padding: 8}
	n.Update()
	assert.Equal(t, 3.0, n.DX)
	assert.Equal(t, 13.0, n.X)

	// free movement keeps velocity
	n = &Node{X: 50, Y: 50, DX: 1, DY: -1, AreaW: 100, AreaH: 100, Padding: 8}
	n.Update()
	assert.Equal(t, 1.0, n.DX)
	assert.Equal(t, -1.0, n.DY)
	assert.Equal(t, 51.0, n.X)
	assert.Equal(t, 49.0, n.Y)
}

func TestNewNodePlacement(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		n := NewNode(300, 200, 4, 5, rng)
		assert.GreaterOrEqual(t, n.X, 5.0)
		assert.LessOrEqual(t, n.X, 295.0)
		assert.GreaterOrEqual(t, n.Y, 5.0)
		assert.LessOrEqual(t, n.Y, 195.0)
		assert.Less(t, math.Abs(n.DX), 2.0+1e-12)
		assert.Less(t, math.Abs(n.DY), 2.0+1e-12)
	}

	// padding larger than the area is clamped to half of it
	n := NewNode(10, 40, 0, 100, rng)
	assert.Equal(t, 5.0, n.Padding)
}
