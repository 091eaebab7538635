package terminal

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"

	"yapa-server/config"
	"yapa-server/network_state"
)

// One terminal cell stands for a CellWidth x CellHeight block of device pixels.
const (
	CellWidth  = 8
	CellHeight = 16

	DefaultFrameInterval = 50 * time.Millisecond

	nodeRune   = '•'
	edgeRune   = '·'
	pathRune   = '∙'
	packetRune = '●'
)

// Renderer drives a NetworkState sized to the terminal and paints it with
// tcell. Run owns the state; nothing else may touch it while Run is active.
type Renderer struct {
	screen        tcell.Screen
	state         *network_state.NetworkState
	background    colorful.Color
	frameInterval time.Duration
	visible       bool
	logger        *slog.Logger
}

// New builds a renderer for an initialised screen.
func New(screen tcell.Screen, cfg *config.Config, frameInterval time.Duration, logger *slog.Logger) *Renderer {
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{
		screen:        screen,
		state:         network_state.NewNetworkState(cfg, rand.New(rand.NewSource(time.Now().UnixNano()))),
		background:    colorful.Color{},
		frameInterval: frameInterval,
		visible:       true,
		logger:        logger,
	}
	r.resize()
	return r
}

// Viewport maps a cols x rows grid onto device pixels.
func Viewport(cols, rows int) network_state.Viewport {
	return network_state.Viewport{
		Width:      float64(cols * CellWidth),
		Height:     float64(rows * CellHeight),
		PixelRatio: 1,
	}
}

// Run loops until ctx is cancelled or the user quits.
func (r *Renderer) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := r.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	cfg := r.state.Config()
	tick := time.NewTicker(cfg.UpdatePeriod())
	defer tick.Stop()
	spawn := time.NewTimer(r.state.NextSpawnDelay())
	defer spawn.Stop()
	paint := time.NewTicker(r.frameInterval)
	defer paint.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			r.state.Tick(r.visible)
		case <-spawn.C:
			r.state.SpawnTransmission(r.visible)
			spawn.Reset(r.state.NextSpawnDelay())
		case <-paint.C:
			r.paint()
		case ev := <-events:
			if !r.handleEvent(ev) {
				return nil
			}
		}
	}
}

// handleEvent reports false when the renderer should stop.
func (r *Renderer) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		r.screen.Sync()
		r.resize()
	case *tcell.EventKey:
		return r.handleKey(ev.Key(), ev.Rune())
	}
	return true
}

func (r *Renderer) handleKey(key tcell.Key, ch rune) bool {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRune:
		switch ch {
		case 'q', 'Q':
			return false
		case 'p', 'P':
			r.visible = !r.visible
			r.logger.Debug("terminal visibility toggled", "visible", r.visible)
		}
	}
	return true
}

func (r *Renderer) resize() {
	cols, rows := r.screen.Size()
	vp := Viewport(cols, rows)
	r.state.Reset(vp)
	r.logger.Debug("terminal reset", "cols", cols, "rows", rows, "nodes", r.state.Stats().Nodes)
}

func (r *Renderer) paint() {
	r.screen.Clear()
	r.draw(r.state.Snapshot())
	r.screen.Show()
}

func (r *Renderer) draw(f *network_state.Frame) {
	if f.Empty() {
		return
	}
	cfg := r.state.Config()
	connColor := r.parse(cfg.ConnColor)
	nodeColor := r.parse(cfg.NodeColor)

	for _, e := range f.Edges {
		a, b := f.Nodes[e.A], f.Nodes[e.B]
		r.line(a, b, edgeRune, r.style(connColor, e.Alpha), true)
	}
	nodeStyle := r.style(nodeColor, f.FadeIn)
	for _, n := range f.Nodes {
		r.set(n, nodeRune, nodeStyle)
	}

	for _, t := range f.Transmissions {
		c := r.parse(t.Color)
		pathStyle := r.style(c, t.Alpha)
		for _, s := range t.Sections {
			r.line(f.Nodes[s.From], f.Nodes[s.To], pathRune, pathStyle, false)
		}
		first, last := t.Sections[0], t.Sections[len(t.Sections)-1]
		r.set(f.Nodes[first.From], nodeRune, pathStyle)
		r.set(f.Nodes[last.To], nodeRune, pathStyle)
		if t.Packet != nil {
			r.set(*t.Packet, packetRune, pathStyle)
		}
	}
}

// line steps from a to b one cell at a time. Dotted lines skip every other cell.
func (r *Renderer) line(a, b network_state.Point, ch rune, style tcell.Style, dotted bool) {
	dx := (b.X - a.X) / CellWidth
	dy := (b.Y - a.Y) / CellHeight
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		return
	}
	for i := 1; i < steps; i++ {
		if dotted && i%2 == 1 {
			continue
		}
		t := float64(i) / float64(steps)
		r.set(network_state.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}, ch, style)
	}
}

func (r *Renderer) set(p network_state.Point, ch rune, style tcell.Style) {
	r.screen.SetContent(int(p.X/CellWidth), int(p.Y/CellHeight), ch, nil, style)
}

func (r *Renderer) parse(hex string) colorful.Color {
	c, err := config.ParseColor(hex)
	if err != nil {
		return colorful.Color{R: 1, G: 1, B: 1}
	}
	return c
}

func (r *Renderer) style(c colorful.Color, alpha float64) tcell.Style {
	return tcell.StyleDefault.Foreground(Blend(r.background, c, alpha))
}

// Blend mixes fg over bg with the given opacity, clamped to [0, 1].
func Blend(bg, fg colorful.Color, alpha float64) tcell.Color {
	alpha = math.Max(0, math.Min(1, alpha))
	red, green, blue := bg.BlendRgb(fg, alpha).Clamped().RGB255()
	return tcell.NewRGBColor(int32(red), int32(green), int32(blue))
}
