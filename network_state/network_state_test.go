package network_state

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yapa-server/config"
)

func newTestState(t *testing.T, mutate func(*config.Config)) *NetworkState {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())
	return NewNetworkState(cfg, rand.New(rand.NewSource(42)))
}

// place pins nodes to fixed positions without velocity.
func place(ns *NetworkState, points ...Point) {
	for i, p := range points {
		ns.nodes[i].X, ns.nodes[i].Y = p.X, p.Y
		ns.nodes[i].DX, ns.nodes[i].DY = 0, 0
	}
}

func TestResetPopulation(t *testing.T) {
	ns := newTestState(t, nil)
	assert.Equal(t, 0, ns.Stats().Nodes)

	ns.Reset(Viewport{Width: 800, Height: 600, PixelRatio: 2})
	stats := ns.Stats()
	assert.Equal(t, 48, stats.Nodes)
	assert.Equal(t, 0, stats.Transmissions)
	assert.Equal(t, uint64(1), stats.Epoch)

	w, h := ns.Viewport().DeviceSize()
	assert.Equal(t, 1600.0, w)
	assert.Equal(t, 1200.0, h)
	for _, n := range ns.nodes {
		assert.Equal(t, 1600.0, n.AreaW)
		assert.Equal(t, 1200.0, n.AreaH)
		assert.Equal(t, 2.0*1.25*2, n.Padding)
	}
	assert.Equal(t, 400.0*400.0, ns.Graph().MaxSquaredDistance())

	ns = newTestState(t, func(c *config.Config) { c.NodeDensityFactor = 1.5 })
	ns.Reset(Viewport{Width: 333, Height: 333})
	assert.Equal(t, 16, ns.Stats().Nodes)
	assert.Equal(t, 1.0, ns.Viewport().PixelRatio)

	ns.Reset(Viewport{})
	assert.Equal(t, 0, ns.Stats().Nodes)
	assert.Equal(t, SpawnSkipped, ns.SpawnTransmission(true))
	assert.True(t, ns.Snapshot().Empty())
}

func TestNodeCountProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("node count is floor(area/10000*density)", prop.ForAll(
		func(w, h, density float64) bool {
			vp := Viewport{Width: w, Height: h, PixelRatio: 1}
			return vp.NodeCount(density) == int(math.Floor(w*h/10000*density))
		},
		gen.Float64Range(1, 3000),
		gen.Float64Range(1, 3000),
		gen.Float64Range(0.1, 5),
	))
	properties.TestingRun(t)
}

func TestResetRejectsNonFiniteViewport(t *testing.T) {
	ns := newTestState(t, nil)
	for _, vp := range []Viewport{
		{Width: math.Inf(1), Height: 100, PixelRatio: 1},
		{Width: 100, Height: math.NaN(), PixelRatio: 1},
		{Width: math.Inf(-1), Height: math.Inf(1)},
	} {
		assert.NotPanics(t, func() { ns.Reset(vp) })
		assert.Equal(t, 0, ns.Stats().Nodes)
		assert.Equal(t, Viewport{PixelRatio: 1}, ns.Viewport())
		_, err := json.Marshal(ns.Snapshot())
		assert.NoError(t, err)
	}

	ns.Reset(Viewport{Width: 400, Height: 300, PixelRatio: math.Inf(1)})
	assert.Equal(t, 12, ns.Stats().Nodes)
	assert.Equal(t, 1.0, ns.Viewport().PixelRatio)
}

func TestNodeCountClamped(t *testing.T) {
	assert.Equal(t, MaxNodes, Viewport{Width: 1e6, Height: 1e6}.NodeCount(1))
	assert.Equal(t, MaxNodes, Viewport{Width: math.MaxFloat64, Height: math.MaxFloat64}.NodeCount(20))
	assert.Equal(t, 0, Viewport{Width: 100, Height: 100}.NodeCount(math.NaN()))
	assert.Equal(t, 0, Viewport{Width: 100, Height: 100}.NodeCount(math.Inf(1)))
}

func TestViewportValidate(t *testing.T) {
	assert.NoError(t, Viewport{Width: 640, Height: 480, PixelRatio: 1.5}.Validate())
	assert.NoError(t, Viewport{}.Validate())

	for _, vp := range []Viewport{
		{Width: math.Inf(1), Height: 100},
		{Width: 100, Height: 100, PixelRatio: math.NaN()},
		{Width: -1, Height: 100},
		{Width: 1e6, Height: 1e6},
	} {
		assert.ErrorIs(t, vp.Validate(), ErrInvalidViewport, "%+v", vp)
	}
}

func TestResetClearsTransmissions(t *testing.T) {
	ns := newTestState(t, func(c *config.Config) { c.MaxConnDistance = 10000 })
	ns.Reset(Viewport{Width: 300, Height: 300})

	for i := 0; i < 5; i++ {
		require.Equal(t, SpawnStarted, ns.SpawnTransmission(true))
	}
	require.Equal(t, 5, ns.Stats().Transmissions)

	ns.Reset(Viewport{Width: 300, Height: 300})
	assert.Equal(t, 0, ns.Stats().Transmissions)
	assert.Equal(t, 9, ns.Stats().Nodes)
	assert.Equal(t, uint64(2), ns.Stats().Epoch)
	assert.Equal(t, 0.0, ns.FadeIn())
}

func TestFadeInClampsAtOne(t *testing.T) {
	ns := newTestState(t, nil) // 2000ms / 10ms = 200 ticks
	ns.Reset(Viewport{Width: 200, Height: 200})

	for i := 0; i < 199; i++ {
		ns.Tick(true)
		require.Less(t, ns.FadeIn(), 1.0)
	}
	ns.Tick(true)
	assert.Equal(t, 1.0, ns.FadeIn())
	for i := 0; i < 300; i++ {
		ns.Tick(true)
		require.Equal(t, 1.0, ns.FadeIn())
	}

	ns = newTestState(t, func(c *config.Config) { c.FadeInDurationMs = 0 })
	ns.Reset(Viewport{Width: 200, Height: 200})
	assert.Equal(t, 1.0, ns.FadeIn())
}

func TestTickSkippedWhileHidden(t *testing.T) {
	ns := newTestState(t, nil)
	ns.Reset(Viewport{Width: 400, Height: 400})
	before := ns.Snapshot()

	for i := 0; i < 10; i++ {
		assert.Equal(t, 0, ns.Tick(false))
	}
	after := ns.Snapshot()
	assert.Equal(t, before.Nodes, after.Nodes)
	assert.Equal(t, uint64(0), ns.Stats().Ticks)
	assert.Equal(t, SpawnSkipped, ns.SpawnTransmission(false))

	ns.Tick(true)
	assert.NotEqual(t, before.Nodes, ns.Snapshot().Nodes)
}

func TestSpawnOutcomes(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		ns := newTestState(t, func(c *config.Config) { c.TransmissionsEnabled = false })
		ns.Reset(Viewport{Width: 300, Height: 300})
		assert.Equal(t, SpawnSkipped, ns.SpawnTransmission(true))
	})

	t.Run("single node", func(t *testing.T) {
		ns := newTestState(t, nil)
		ns.Reset(Viewport{Width: 100, Height: 100})
		require.Equal(t, 1, ns.Stats().Nodes)
		assert.Equal(t, SpawnSkipped, ns.SpawnTransmission(true))
	})

	t.Run("disconnected", func(t *testing.T) {
		ns := newTestState(t, func(c *config.Config) { c.MaxConnDistance = 10 })
		ns.Reset(Viewport{Width: 100, Height: 200})
		require.Equal(t, 2, ns.Stats().Nodes)
		place(ns, Point{X: 10, Y: 10}, Point{X: 90, Y: 190})
		assert.Equal(t, SpawnNoPath, ns.SpawnTransmission(true))
		assert.Equal(t, 0, ns.Stats().Transmissions)
	})

	t.Run("connected", func(t *testing.T) {
		ns := newTestState(t, func(c *config.Config) {
			c.MaxConnDistance = 60
			c.TransmissionColorA = "#ff0000"
			c.TransmissionColorB = "#ff0000"
		})
		ns.Reset(Viewport{Width: 100, Height: 300})
		require.Equal(t, 3, ns.Stats().Nodes)
		place(ns, Point{X: 10, Y: 10}, Point{X: 10, Y: 60}, Point{X: 10, Y: 110})

		require.Equal(t, SpawnStarted, ns.SpawnTransmission(true))
		tr := ns.transmissions[0]
		assert.Equal(t, "#ff0000", tr.Color)
		assert.NotEqual(t, tr.Sections[0].From, tr.Sections[len(tr.Sections)-1].To)
		for _, s := range tr.Sections {
			assert.True(t, ns.Graph().Connected(s.From, s.To))
		}
	})
}

func TestTickRetiresArrivedTransmissions(t *testing.T) {
	ns := newTestState(t, func(c *config.Config) { c.MaxConnDistance = 100 })
	ns.Reset(Viewport{Width: 100, Height: 200})
	require.Equal(t, 2, ns.Stats().Nodes)
	place(ns, Point{X: 20, Y: 20}, Point{X: 20, Y: 70})

	require.Equal(t, SpawnStarted, ns.SpawnTransmission(true))

	// edge of 50 px with speed 1 and max 100: 2% per tick
	retired := 0
	for i := 0; i < 49; i++ {
		retired += ns.Tick(true)
	}
	assert.Equal(t, 0, retired)
	assert.Equal(t, 1, ns.Stats().Transmissions)

	assert.Equal(t, 1, ns.Tick(true))
	assert.Equal(t, 0, ns.Stats().Transmissions)
	assert.Equal(t, uint64(1), ns.Stats().Completed)
}

func TestUpdateConfig(t *testing.T) {
	ns := newTestState(t, nil)
	ns.Reset(Viewport{Width: 400, Height: 300})
	epoch := ns.Stats().Epoch

	cosmetic := ns.Config().Clone()
	cosmetic.NodeColor = "#abcdef"
	cosmetic.ConnsEnabled = false
	assert.False(t, ns.UpdateConfig(cosmetic))
	assert.Equal(t, epoch, ns.Stats().Epoch)
	assert.Same(t, cosmetic, ns.Config())

	denser := cosmetic.Clone()
	denser.NodeDensityFactor = 2
	assert.True(t, ns.UpdateConfig(denser))
	assert.Equal(t, epoch+1, ns.Stats().Epoch)
	assert.Equal(t, 24, ns.Stats().Nodes)

	assert.False(t, ns.UpdateConfig(nil))
}

func TestNextSpawnDelay(t *testing.T) {
	ns := newTestState(t, func(c *config.Config) { c.TransmissionSpawnPeriodMaxMs = 250 })
	for i := 0; i < 1000; i++ {
		d := ns.NextSpawnDelay()
		require.GreaterOrEqual(t, int64(d), int64(0))
		require.Less(t, d, ns.Config().SpawnPeriodMax())
	}
}

func TestSnapshot(t *testing.T) {
	ns := newTestState(t, func(c *config.Config) { c.MaxConnDistance = 100 })
	ns.Reset(Viewport{Width: 100, Height: 300})
	require.Equal(t, 3, ns.Stats().Nodes)
	place(ns, Point{X: 10, Y: 10}, Point{X: 10, Y: 60}, Point{X: 90, Y: 290})

	for i := 0; i < 100; i++ {
		ns.Tick(true)
	}
	frame := ns.Snapshot()
	assert.Equal(t, 0.5, frame.FadeIn)
	assert.Equal(t, uint64(100), frame.Tick)
	assert.Len(t, frame.Nodes, 3)
	require.Len(t, frame.Edges, 1)
	assert.Equal(t, 0, frame.Edges[0].A)
	assert.Equal(t, 1, frame.Edges[0].B)
	// 50 px of a 100 px threshold: 1 - 2500/10000, times the fade
	assert.InDelta(t, 0.75*0.5, frame.Edges[0].Alpha, 1e-12)

	frame.Nodes[0].X = -1
	assert.Equal(t, 10.0, ns.nodes[0].X)

	tr, err := NewTransmission([]int{0, 1}, "#00ff00")
	require.NoError(t, err)
	tr.Sections[0].Progress = 50
	ns.transmissions = append(ns.transmissions, tr)

	frame = ns.Snapshot()
	require.Len(t, frame.Transmissions, 1)
	ft := frame.Transmissions[0]
	require.NotNil(t, ft.Packet)
	assert.Equal(t, Point{X: 10, Y: 35}, *ft.Packet)
	assert.InDelta(t, 0.5, ft.Alpha, 1e-12)

	ft.Sections[0].Progress = 0
	assert.Equal(t, 50.0, tr.Sections[0].Progress)

	raw, err := json.Marshal(frame)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"fade_in":0.5`)

	off := ns.Config().Clone()
	off.ConnsEnabled = false
	off.TransmissionsDrawPackets = false
	ns.UpdateConfig(off)
	frame = ns.Snapshot()
	assert.Empty(t, frame.Edges)
	require.Len(t, frame.Transmissions, 1)
	assert.Nil(t, frame.Transmissions[0].Packet)
}

func TestSpawnResultString(t *testing.T) {
	assert.Equal(t, "started", SpawnStarted.String())
	assert.Equal(t, "no_path", SpawnNoPath.String())
	assert.Equal(t, "skipped", SpawnSkipped.String())
}
