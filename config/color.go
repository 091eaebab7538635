package config

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ParseColor parses "#rgb" or "#rrggbb".
func ParseColor(hex string) (colorful.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("parse color %q: %w", hex, err)
	}
	return c, nil
}

// RandomGradientColor returns the point a*t + b*(1-t) of the RGB gradient
// between a and b, as "#rrggbb". t is clamped to [0, 1].
func RandomGradientColor(a, b string, t float64) (string, error) {
	ca, err := ParseColor(a)
	if err != nil {
		return "", err
	}
	cb, err := ParseColor(b)
	if err != nil {
		return "", err
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return cb.BlendRgb(ca, t).Clamped().Hex(), nil
}
