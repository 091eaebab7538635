package server

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"yapa-server/config"
	"yapa-server/metrics"
)

var (
	// ErrChannelNotFound is returned for ids with no running channel.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrChannelClosed means the channel shut down while a request was in flight.
	ErrChannelClosed = errors.New("channel closed")
)

// ChannelManager creates channels on first use and closes them when their
// last subscriber leaves.
type ChannelManager struct {
	channels      map[string]*Channel
	channelsMutex sync.RWMutex
	subscribers   int
	cfg           *config.Config // snapshot for new channels
	frameInterval time.Duration
	logger        *slog.Logger
	metrics       *metrics.Registry
}

// NewChannelManager creates a manager whose channels start from cfg.
func NewChannelManager(cfg *config.Config, frameInterval time.Duration, logger *slog.Logger, reg *metrics.Registry) *ChannelManager {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelManager{
		channels:      make(map[string]*Channel),
		cfg:           cfg,
		frameInterval: frameInterval,
		logger:        logger,
		metrics:       reg,
	}
}

// Attach subscribes sub to channelID, creating the channel if needed. An
// empty id creates a private channel with a fresh uuid.
func (cm *ChannelManager) Attach(channelID string, sub Subscriber) (*Channel, error) {
	if channelID == "" {
		channelID = uuid.NewString()
	}

	cm.channelsMutex.Lock()
	defer cm.channelsMutex.Unlock()

	ch, exists := cm.channels[channelID]
	if !exists {
		cm.logger.Info("creating channel", "channel", channelID)
		ch = NewChannel(channelID, cm.cfg, cm.frameInterval, cm.logger, cm.metrics)
		cm.channels[channelID] = ch
	}
	if ch.attach(sub) < 0 {
		delete(cm.channels, channelID)
		return nil, ErrChannelClosed
	}
	cm.subscribers++
	cm.metrics.SetActive(len(cm.channels), cm.subscribers)
	cm.logger.Info("subscriber attached", "channel", channelID, "subscriber", sub.ID())
	return ch, nil
}

// Detach removes a subscriber and closes the channel once it is empty.
func (cm *ChannelManager) Detach(ch *Channel, subscriberID string) {
	cm.channelsMutex.Lock()
	defer cm.channelsMutex.Unlock()

	remaining := ch.detach(subscriberID)
	if remaining >= 0 {
		cm.subscribers--
	}
	if remaining <= 0 && cm.channels[ch.ID] == ch {
		delete(cm.channels, ch.ID)
		ch.Close()
		cm.logger.Info("channel closed, no subscribers left", "channel", ch.ID)
	}
	cm.metrics.SetActive(len(cm.channels), cm.subscribers)
	cm.logger.Info("subscriber detached", "channel", ch.ID, "subscriber", subscriberID)
}

// GetChannel looks up a running channel.
func (cm *ChannelManager) GetChannel(channelID string) (*Channel, bool) {
	cm.channelsMutex.RLock()
	defer cm.channelsMutex.RUnlock()
	ch, exists := cm.channels[channelID]
	return ch, exists
}

// Channels describes every running channel, ordered by id.
func (cm *ChannelManager) Channels() []ChannelInfo {
	cm.channelsMutex.RLock()
	defer cm.channelsMutex.RUnlock()

	infos := make([]ChannelInfo, 0, len(cm.channels))
	for _, ch := range cm.channels {
		if info, ok := ch.Info(); ok {
			infos = append(infos, info)
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// SubscriberCount is the number of attached subscribers over all channels.
func (cm *ChannelManager) SubscriberCount() int {
	cm.channelsMutex.RLock()
	defer cm.channelsMutex.RUnlock()
	return cm.subscribers
}

// Config returns the snapshot new channels start from.
func (cm *ChannelManager) Config() *config.Config {
	cm.channelsMutex.RLock()
	defer cm.channelsMutex.RUnlock()
	return cm.cfg
}

// UpdateConfig makes cfg the default and swaps it into every channel. It
// returns the number of channels that reset.
func (cm *ChannelManager) UpdateConfig(cfg *config.Config) int {
	cm.channelsMutex.Lock()
	defer cm.channelsMutex.Unlock()

	cm.cfg = cfg
	resets := 0
	for _, ch := range cm.channels {
		if ch.UpdateConfig(cfg) {
			resets++
		}
	}
	cm.logger.Info("config updated", "channels", len(cm.channels), "resets", resets)
	return resets
}

// ApplyOverlay applies a partial JSON config to the default snapshot and
// swaps the result into every channel. The lock covers the read and the
// write, so concurrent overlays apply one after the other.
func (cm *ChannelManager) ApplyOverlay(data []byte) (*config.Config, int, error) {
	cm.channelsMutex.Lock()
	defer cm.channelsMutex.Unlock()

	cfg, err := config.Overlay(cm.cfg, data)
	if err != nil {
		return nil, 0, err
	}
	cm.cfg = cfg
	resets := 0
	for _, ch := range cm.channels {
		if ch.UpdateConfig(cfg) {
			resets++
		}
	}
	cm.logger.Info("config updated", "channels", len(cm.channels), "resets", resets)
	return cfg, resets, nil
}

// UpdateChannelConfig swaps cfg into a single channel.
func (cm *ChannelManager) UpdateChannelConfig(channelID string, cfg *config.Config) (bool, error) {
	ch, ok := cm.GetChannel(channelID)
	if !ok {
		return false, ErrChannelNotFound
	}
	return ch.UpdateConfig(cfg), nil
}

// CloseAllChannels gracefully shuts down all channels.
func (cm *ChannelManager) CloseAllChannels() {
	cm.channelsMutex.Lock()
	defer cm.channelsMutex.Unlock()
	for id, ch := range cm.channels {
		ch.Close()
		delete(cm.channels, id)
	}
	cm.subscribers = 0
	cm.metrics.SetActive(0, 0)
	cm.logger.Info("all channels closed")
}
