package network_state

// Frame is a detached copy of everything a renderer reads in one paint.
type Frame struct {
	Epoch         uint64              `json:"epoch"`
	Tick          uint64              `json:"tick"`
	Width         float64             `json:"width"`  // device px
	Height        float64             `json:"height"` // device px
	PixelRatio    float64             `json:"pixel_ratio"`
	FadeIn        float64             `json:"fade_in"`
	Nodes         []Point             `json:"nodes"`
	Edges         []FrameEdge         `json:"edges,omitempty"`
	Transmissions []FrameTransmission `json:"transmissions,omitempty"`
}

// Point is a position in device pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FrameEdge is a connection line with its opacity already folded with the
// fade-in.
type FrameEdge struct {
	A     int     `json:"a"`
	B     int     `json:"b"`
	Alpha float64 `json:"alpha"`
}

// FrameTransmission is the render view of one transmission.
type FrameTransmission struct {
	ID       string    `json:"id"`
	Color    string    `json:"color"`
	Alpha    float64   `json:"alpha"`
	Sections []Section `json:"sections"`
	Packet   *Point    `json:"packet,omitempty"`
}

// Empty reports whether there is nothing to draw.
func (f *Frame) Empty() bool {
	return f == nil || len(f.Nodes) == 0
}

// Snapshot copies the state for rendering. Connections and transmissions
// are only included when enabled in the active config.
func (ns *NetworkState) Snapshot() *Frame {
	w, h := ns.viewport.DeviceSize()
	fade := ns.FadeIn()
	f := &Frame{
		Epoch:      ns.epoch,
		Tick:       ns.ticks,
		Width:      w,
		Height:     h,
		PixelRatio: ns.viewport.Ratio(),
		FadeIn:     fade,
		Nodes:      make([]Point, len(ns.nodes)),
	}
	for i, n := range ns.nodes {
		f.Nodes[i] = Point{X: n.X, Y: n.Y}
	}

	if ns.cfg.ConnsEnabled {
		g := ns.Graph()
		for _, e := range g.Edges() {
			f.Edges = append(f.Edges, FrameEdge{A: e.A, B: e.B, Alpha: g.Falloff(e.SquaredDistance) * fade})
		}
	}

	if ns.cfg.TransmissionsEnabled {
		for _, t := range ns.transmissions {
			ft := FrameTransmission{
				ID:       t.ID,
				Color:    t.Color,
				Alpha:    t.Alpha() * fade,
				Sections: append([]Section(nil), t.Sections...),
			}
			if ns.cfg.TransmissionsDrawPackets {
				x, y := t.PacketPosition(ns.nodes)
				ft.Packet = &Point{X: x, Y: y}
			}
			f.Transmissions = append(f.Transmissions, ft)
		}
	}
	return f
}
