package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is one immutable snapshot of the animation parameters.
// A running channel keeps a pointer to its snapshot; edits produce a new
// snapshot that is swapped in by reference.
type Config struct {
	// general
	UpdatePeriodMs   int `json:"updatePeriodMs" toml:"updatePeriodMs" yaml:"updatePeriodMs" validate:"gt=0"`        // Simulation tick period
	FadeInDurationMs int `json:"fadeInDurationMs" toml:"fadeInDurationMs" yaml:"fadeInDurationMs" validate:"gte=0"` // Opacity ramp after every reset

	// nodes
	NodeDensityFactor  float64 `json:"nodeDensityFactor" toml:"nodeDensityFactor" yaml:"nodeDensityFactor" validate:"gte=0,lte=20"` // Nodes per 100x100 CSS px
	NodeVelocityFactor float64 `json:"nodeVelocityFactor" toml:"nodeVelocityFactor" yaml:"nodeVelocityFactor" validate:"gte=0"`    // Scales the random initial velocity
	NodeRadius         float64 `json:"nodeRadius" toml:"nodeRadius" yaml:"nodeRadius" validate:"gte=0"`                            // Dot radius in CSS px
	NodeColor          string  `json:"nodeColor" toml:"nodeColor" yaml:"nodeColor" validate:"required,hexcolor"`

	// connections
	ConnsEnabled    bool    `json:"connsEnabled" toml:"connsEnabled" yaml:"connsEnabled"`
	MaxConnDistance float64 `json:"maxConnDistance" toml:"maxConnDistance" yaml:"maxConnDistance" validate:"gt=0"` // Proximity threshold in CSS px
	ConnLineWidth   float64 `json:"connLineWidth" toml:"connLineWidth" yaml:"connLineWidth" validate:"gte=0"`
	ConnColor       string  `json:"connColor" toml:"connColor" yaml:"connColor" validate:"required,hexcolor"`

	// transmissions
	TransmissionsEnabled         bool    `json:"transmissionsEnabled" toml:"transmissionsEnabled" yaml:"transmissionsEnabled"`
	TransmissionSpawnPeriodMaxMs int     `json:"transmissionSpawnPeriodMaxMs" toml:"transmissionSpawnPeriodMaxMs" yaml:"transmissionSpawnPeriodMaxMs" validate:"gt=0"` // Ceiling of the random spawn delay
	TransmissionSpeedFactor      float64 `json:"transmissionSpeedFactor" toml:"transmissionSpeedFactor" yaml:"transmissionSpeedFactor" validate:"gt=0"`
	TransmissionColorA           string  `json:"transmissionColorA" toml:"transmissionColorA" yaml:"transmissionColorA" validate:"required,hexcolor"` // Gradient endpoint
	TransmissionColorB           string  `json:"transmissionColorB" toml:"transmissionColorB" yaml:"transmissionColorB" validate:"required,hexcolor"` // Gradient endpoint
	TransmissionWidthFactor      float64 `json:"transmissionWidthFactor" toml:"transmissionWidthFactor" yaml:"transmissionWidthFactor" validate:"gte=1"`
	TransmissionsDrawPackets     bool    `json:"transmissionsDrawPackets" toml:"transmissionsDrawPackets" yaml:"transmissionsDrawPackets"`
}

var (
	// ErrUnknownFormat is returned by Load for files that are neither TOML, YAML nor JSON.
	ErrUnknownFormat = errors.New("unknown config file format")
	// ErrMalformedOverlay is returned by Overlay for bodies that are not a JSON object.
	ErrMalformedOverlay = errors.New("malformed config")
)

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		UpdatePeriodMs:   10,
		FadeInDurationMs: 2000,

		NodeDensityFactor:  1.0,
		NodeVelocityFactor: 1.0,
		NodeRadius:         2.0,
		NodeColor:          "#444",

		ConnsEnabled:    true,
		MaxConnDistance: 200,
		ConnLineWidth:   1.0,
		ConnColor:       "#666",

		TransmissionsEnabled:         true,
		TransmissionSpawnPeriodMaxMs: 1000,
		TransmissionSpeedFactor:      1.0,
		TransmissionColorA:           "#00FF00",
		TransmissionColorB:           "#0000FF",
		TransmissionWidthFactor:      1.25,
		TransmissionsDrawPackets:     true,
	}
}

// Load reads a config file on top of the defaults. The format is picked from
// the file extension. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := Decode(data, filepath.Ext(path), cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode unmarshals data in the format named by ext (".toml", ".yaml",
// ".yml" or ".json") into cfg. Fields missing from data keep their value.
func Decode(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case "yaml", "yml":
		return yaml.Unmarshal(data, cfg)
	case "json":
		return json.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
}

// Encode renders cfg in the given format ("toml", "yaml" or "json").
func Encode(cfg *Config, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "toml":
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
			return nil, err
		}
		return []byte(sb.String()), nil
	case "yaml", "yml":
		return yaml.Marshal(cfg)
	case "json":
		return json.MarshalIndent(cfg, "", "  ")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Overlay applies a partial JSON config to a copy of base and validates the
// result. base is never modified.
func Overlay(base *Config, data []byte) (*Config, error) {
	if base == nil {
		base = Default()
	}
	cfg := base.Clone()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOverlay, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// UpdatePeriod is the simulation tick period.
func (c *Config) UpdatePeriod() time.Duration {
	return time.Duration(c.UpdatePeriodMs) * time.Millisecond
}

// FadeInDuration is the length of the opacity ramp after a reset.
func (c *Config) FadeInDuration() time.Duration {
	return time.Duration(c.FadeInDurationMs) * time.Millisecond
}

// SpawnPeriodMax is the ceiling of the random delay between spawn attempts.
func (c *Config) SpawnPeriodMax() time.Duration {
	return time.Duration(c.TransmissionSpawnPeriodMaxMs) * time.Millisecond
}

// FadeInTicks is the number of ticks after which the fade-in reaches 1.
func (c *Config) FadeInTicks() float64 {
	if c.UpdatePeriodMs <= 0 {
		return 0
	}
	return float64(c.FadeInDurationMs) / float64(c.UpdatePeriodMs)
}

// RequiresReset reports whether swapping old for next changes the node
// population, the padding margin or the fade timing. Everything else is
// cosmetic and applies on the next paint.
func RequiresReset(old, next *Config) bool {
	if old == nil || next == nil {
		return true
	}
	return old.NodeDensityFactor != next.NodeDensityFactor ||
		old.NodeVelocityFactor != next.NodeVelocityFactor ||
		old.MaxConnDistance != next.MaxConnDistance ||
		old.NodeRadius != next.NodeRadius ||
		old.TransmissionWidthFactor != next.TransmissionWidthFactor ||
		old.UpdatePeriodMs != next.UpdatePeriodMs ||
		old.FadeInDurationMs != next.FadeInDurationMs
}
