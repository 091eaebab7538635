package network_state

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// ProgressComplete is the progress value of a finished section.
const ProgressComplete = 100.0

// ErrShortPath is returned for paths that do not contain at least one hop.
var ErrShortPath = errors.New("transmission path needs at least two nodes")

// Section is one hop of a transmission.
type Section struct {
	From     int     `json:"from"`
	To       int     `json:"to"`
	Progress float64 `json:"progress"` // 0..100
}

// Transmission is a packet travelling a path hop by hop. Sections complete
// strictly in order, so at most one is in flight.
type Transmission struct {
	ID       string    `json:"id"`
	Color    string    `json:"color"`
	Sections []Section `json:"sections"`
	current  int       // index of the first section below ProgressComplete
}

// NewTransmission splits path into consecutive sections at progress 0.
func NewTransmission(path []int, color string) (*Transmission, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrShortPath, len(path))
	}
	sections := make([]Section, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		sections = append(sections, Section{From: path[i-1], To: path[i]})
	}
	return &Transmission{
		ID:       uuid.New().String(),
		Color:    color,
		Sections: sections,
	}, nil
}

// Current returns the section in flight, or the last one once complete.
func (t *Transmission) Current() *Section {
	if t.current >= len(t.Sections) {
		return &t.Sections[len(t.Sections)-1]
	}
	return &t.Sections[t.current]
}

// Complete reports whether the final hop has arrived.
func (t *Transmission) Complete() bool {
	return t.Sections[len(t.Sections)-1].Progress >= ProgressComplete
}

// Advance moves the first incomplete section forward by
// speed*maxConnDistance*pixelRatio/length, so long hops take longer and the
// perceived speed is the same on every edge. Progress is clamped to 100.
func (t *Transmission) Advance(nodes []*Node, speed, maxConnDistance, pixelRatio float64) {
	for t.current < len(t.Sections) && t.Sections[t.current].Progress >= ProgressComplete {
		t.current++
	}
	if t.current >= len(t.Sections) {
		return
	}

	s := &t.Sections[t.current]
	length := nodes[s.From].DistanceTo(nodes[s.To])
	if length == 0 {
		s.Progress = ProgressComplete
		return
	}
	s.Progress = math.Min(ProgressComplete, s.Progress+speed*maxConnDistance/length*pixelRatio)
}

// Alpha is the opacity envelope of the whole transmission: it ramps in over
// the first hop and out over the last one. A single hop peaks halfway.
func (t *Transmission) Alpha() float64 {
	first := t.Sections[0].Progress
	last := t.Sections[len(t.Sections)-1].Progress
	if len(t.Sections) == 1 {
		return 1 - math.Abs(first-50)*2/ProgressComplete
	}
	alpha := 1.0
	if first < ProgressComplete {
		alpha = first / ProgressComplete
	}
	if last > 0 {
		alpha = 1 - last/ProgressComplete
	}
	return alpha
}

// PacketPosition interpolates the packet along the current section.
func (t *Transmission) PacketPosition(nodes []*Node) (x, y float64) {
	s := t.Current()
	a, b := nodes[s.From], nodes[s.To]
	f := s.Progress / ProgressComplete
	return a.X + (b.X-a.X)*f, a.Y + (b.Y-a.Y)*f
}
