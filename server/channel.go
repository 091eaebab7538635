package server

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"yapa-server/config"
	"yapa-server/metrics"
	"yapa-server/network_state"
)

// DefaultFrameInterval paints at roughly 30 frames per second.
const DefaultFrameInterval = 33 * time.Millisecond

// Subscriber receives encoded envelopes from a channel. Sends never block:
// a full outbox drops the message.
type Subscriber interface {
	ID() string
	Outbox() chan<- []byte
}

// ChannelInfo describes a channel for listings.
type ChannelInfo struct {
	ID          string                 `json:"id"`
	Subscribers int                    `json:"subscribers"`
	Visible     bool                   `json:"visible"`
	Viewport    network_state.Viewport `json:"viewport"`
	Stats       network_state.Stats    `json:"stats"`
	Config      *config.Config         `json:"config"`
}

type attachRequest struct {
	sub   Subscriber
	reply chan int
}

type detachRequest struct {
	id    string
	reply chan int
}

type viewportRequest struct {
	vp network_state.Viewport
}

type visibilityRequest struct {
	id      string
	visible bool
}

type configRequest struct {
	cfg   *config.Config
	reply chan bool
}

type overlayRequest struct {
	data  []byte
	reply chan overlayResult
}

type overlayResult struct {
	cfg   *config.Config
	reset bool
	err   error
}

type frameRequest struct {
	reply chan *network_state.Frame
}

type infoRequest struct {
	reply chan ChannelInfo
}

// Channel is one running simulation shared by its subscribers. Its Run
// goroutine is the only code that touches the engine and the subscriber
// set; everything else talks to it through the control queue.
type Channel struct {
	ID string

	networkState  *network_state.NetworkState
	subscribers   map[string]Subscriber
	visible       map[string]bool
	frameInterval time.Duration
	logger        *slog.Logger
	metrics       *metrics.Registry

	control   chan any
	done      chan struct{} // Signals the channel to shut down its Run loop
	stopped   chan struct{} // Closed when Run returns
	closeOnce sync.Once
}

// NewChannel creates a channel and starts its loop. The node population is
// empty until the first viewport arrives.
func NewChannel(id string, cfg *config.Config, frameInterval time.Duration, logger *slog.Logger, reg *metrics.Registry) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}
	ch := &Channel{
		ID:            id,
		networkState:  network_state.NewNetworkState(cfg, rand.New(rand.NewSource(time.Now().UnixNano()))),
		subscribers:   make(map[string]Subscriber),
		visible:       make(map[string]bool),
		frameInterval: frameInterval,
		logger:        logger.With("channel", id),
		metrics:       reg,
		control:       make(chan any),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go ch.Run()
	ch.logger.Info("channel running")
	return ch
}

// Run multiplexes the simulation tick, the spawn timer, the frame ticker and
// control requests until Close.
func (c *Channel) Run() {
	cfg := c.networkState.Config()
	tick := time.NewTicker(cfg.UpdatePeriod())
	spawn := time.NewTimer(c.networkState.NextSpawnDelay())
	frame := time.NewTicker(c.frameInterval)
	defer func() {
		tick.Stop()
		spawn.Stop()
		frame.Stop()
		c.metrics.ForgetChannel(c.ID)
		close(c.stopped)
		c.logger.Info("channel loop stopped")
	}()

	for {
		select {
		case <-tick.C:
			visible := c.isVisible()
			retired := c.networkState.Tick(visible)
			if visible {
				c.metrics.RecordTick(retired)
			}
		case <-spawn.C:
			c.spawn()
			spawn.Reset(c.networkState.NextSpawnDelay())
		case <-frame.C:
			c.broadcastFrame()
		case req := <-c.control:
			prev := c.networkState.Config()
			c.handleControl(req)
			next := c.networkState.Config()
			if next.UpdatePeriod() != prev.UpdatePeriod() {
				tick.Reset(next.UpdatePeriod())
			}
			if next.SpawnPeriodMax() != prev.SpawnPeriodMax() {
				spawn.Reset(c.networkState.NextSpawnDelay())
			}
		case <-c.done:
			return
		}
	}
}

func (c *Channel) spawn() {
	start := time.Now()
	result := c.networkState.SpawnTransmission(c.isVisible())
	if result == network_state.SpawnSkipped {
		return
	}
	c.metrics.RecordSpawn(result.String(), time.Since(start))
	if result == network_state.SpawnNoPath {
		c.logger.Debug("spawn attempt found no path")
	}
}

func (c *Channel) handleControl(req any) {
	switch r := req.(type) {
	case attachRequest:
		c.subscribers[r.sub.ID()] = r.sub
		c.visible[r.sub.ID()] = true
		if payload, err := EncodeMessage(MsgConfig, c.networkState.Config()); err == nil {
			c.send(r.sub, MsgConfig, payload)
		}
		r.reply <- len(c.subscribers)
	case detachRequest:
		delete(c.subscribers, r.id)
		delete(c.visible, r.id)
		r.reply <- len(c.subscribers)
	case viewportRequest:
		if r.vp == c.networkState.Viewport() {
			return
		}
		c.networkState.Reset(r.vp)
		c.afterReset("viewport")
	case visibilityRequest:
		if _, ok := c.subscribers[r.id]; ok {
			c.visible[r.id] = r.visible
		}
	case configRequest:
		r.reply <- c.applyConfig(r.cfg)
	case overlayRequest:
		cfg, err := config.Overlay(c.networkState.Config(), r.data)
		if err != nil {
			r.reply <- overlayResult{err: err}
			return
		}
		r.reply <- overlayResult{cfg: cfg, reset: c.applyConfig(cfg)}
	case frameRequest:
		r.reply <- c.networkState.Snapshot()
	case infoRequest:
		r.reply <- c.info()
	default:
		c.logger.Warn("unknown control request", "type", fmt.Sprintf("%T", req))
	}
}

// applyConfig swaps cfg in, tells subscribers and reports whether the
// population reset.
func (c *Channel) applyConfig(cfg *config.Config) bool {
	reset := c.networkState.UpdateConfig(cfg)
	if payload, err := EncodeMessage(MsgConfig, c.networkState.Config()); err == nil {
		c.broadcast(MsgConfig, payload)
	}
	if reset {
		c.afterReset("config")
	}
	return reset
}

func (c *Channel) afterReset(reason string) {
	stats := c.networkState.Stats()
	c.metrics.RecordReset(reason)
	c.metrics.UpdateChannelMetrics(c.ID, stats.Nodes, stats.Transmissions)
	c.logger.Info("network reset", "reason", reason, "epoch", stats.Epoch, "nodes", stats.Nodes)

	payload, err := EncodeMessage(MsgReset, ResetNotice{
		Epoch:    stats.Epoch,
		Reason:   reason,
		Viewport: c.networkState.Viewport(),
	})
	if err != nil {
		c.logger.Error("marshal reset notice", "error", err)
		return
	}
	c.broadcast(MsgReset, payload)
}

// isVisible is true while at least one subscriber shows the animation.
func (c *Channel) isVisible() bool {
	for _, v := range c.visible {
		if v {
			return true
		}
	}
	return false
}

// broadcastFrame sends the current snapshot to every subscriber. Nothing is
// sent while the population is empty.
func (c *Channel) broadcastFrame() {
	if len(c.subscribers) == 0 {
		return
	}
	frame := c.networkState.Snapshot()
	stats := c.networkState.Stats()
	c.metrics.UpdateChannelMetrics(c.ID, stats.Nodes, stats.Transmissions)
	if frame.Empty() {
		return
	}

	payload, err := EncodeMessage(MsgFrame, frame)
	if err != nil {
		c.logger.Error("marshal frame", "error", err)
		return
	}
	c.broadcast(MsgFrame, payload)
}

func (c *Channel) broadcast(msgType string, payload []byte) {
	for _, sub := range c.subscribers {
		c.send(sub, msgType, payload)
	}
}

func (c *Channel) send(sub Subscriber, msgType string, payload []byte) {
	select {
	case sub.Outbox() <- payload:
		c.metrics.RecordSend(msgType, true)
	default:
		c.metrics.RecordSend(msgType, false)
		c.logger.Debug("subscriber outbox full, message dropped", "subscriber", sub.ID(), "type", msgType)
	}
}

func (c *Channel) info() ChannelInfo {
	return ChannelInfo{
		ID:          c.ID,
		Subscribers: len(c.subscribers),
		Visible:     c.isVisible(),
		Viewport:    c.networkState.Viewport(),
		Stats:       c.networkState.Stats(),
		Config:      c.networkState.Config(),
	}
}

// request hands req to the loop. It fails once the channel is closed.
func (c *Channel) request(req any) bool {
	select {
	case c.control <- req:
		return true
	case <-c.done:
		return false
	}
}

// attach adds sub and returns the new subscriber count, or -1 when closed.
func (c *Channel) attach(sub Subscriber) int {
	reply := make(chan int, 1)
	if !c.request(attachRequest{sub: sub, reply: reply}) {
		return -1
	}
	return <-reply
}

// detach removes a subscriber and returns the remaining count, or -1 when
// closed.
func (c *Channel) detach(id string) int {
	reply := make(chan int, 1)
	if !c.request(detachRequest{id: id, reply: reply}) {
		return -1
	}
	return <-reply
}

// SetViewport resets the population when vp differs from the current one.
// The last viewport received wins.
func (c *Channel) SetViewport(vp network_state.Viewport) {
	c.request(viewportRequest{vp: vp})
}

// SetVisibility records whether one subscriber currently shows the animation.
func (c *Channel) SetVisibility(subscriberID string, visible bool) {
	c.request(visibilityRequest{id: subscriberID, visible: visible})
}

// UpdateConfig swaps the snapshot and reports whether the population reset.
func (c *Channel) UpdateConfig(cfg *config.Config) bool {
	reply := make(chan bool, 1)
	if !c.request(configRequest{cfg: cfg, reply: reply}) {
		return false
	}
	return <-reply
}

// Frame returns a snapshot of the current state.
func (c *Channel) Frame() (*network_state.Frame, bool) {
	reply := make(chan *network_state.Frame, 1)
	if !c.request(frameRequest{reply: reply}) {
		return nil, false
	}
	return <-reply, true
}

// Info describes the channel.
func (c *Channel) Info() (ChannelInfo, bool) {
	reply := make(chan ChannelInfo, 1)
	if !c.request(infoRequest{reply: reply}) {
		return ChannelInfo{}, false
	}
	return <-reply, true
}

// Close stops the loop and waits for it to exit. Safe to call twice.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	<-c.stopped
}

// ApplyOverlay applies a partial JSON config on top of the channel's current
// snapshot inside the loop, so concurrent edits never overwrite each other.
// It returns the new snapshot and whether the population reset.
func (c *Channel) ApplyOverlay(data []byte) (*config.Config, bool, error) {
	reply := make(chan overlayResult, 1)
	if !c.request(overlayRequest{data: data, reply: reply}) {
		return nil, false, ErrChannelClosed
	}
	res := <-reply
	return res.cfg, res.reset, res.err
}

// Done is closed once the loop has exited.
func (c *Channel) Done() <-chan struct{} { return c.stopped }
