package eyes

import (
	"github.com/normanking/roboeyes/internal/canvas"
	"github.com/normanking/roboeyes/internal/shape"
)

// Default eye parameters.
const (
	DefaultEyeWidth     = 36
	DefaultEyeHeight    = 36
	DefaultBorderRadius = 8
	DefaultSpaceBetween = 10
)

// Config holds the static layout parameters of the eye pair.
type Config struct {
	CanvasWidth  int
	CanvasHeight int
	EyeWidth     int
	EyeHeight    int
	BorderRadius int
	// SpaceBetween is the horizontal gap between the eyes. Negative values
	// overlap them.
	SpaceBetween int
	Foreground   uint8
	Background   uint8
}

// DefaultConfig returns the stock 36x36 eyes for a canvas of the given size.
func DefaultConfig(width, height int) Config {
	return Config{
		CanvasWidth:  width,
		CanvasHeight: height,
		EyeWidth:     DefaultEyeWidth,
		EyeHeight:    DefaultEyeHeight,
		BorderRadius: DefaultBorderRadius,
		SpaceBetween: DefaultSpaceBetween,
		Foreground:   canvas.Foreground,
		Background:   canvas.Background,
	}
}

// normalized clamps every field into its valid range.
func (c Config) normalized() Config {
	c.CanvasWidth = max(c.CanvasWidth, 1)
	c.CanvasHeight = max(c.CanvasHeight, 1)
	c.EyeWidth = max(c.EyeWidth, 1)
	c.EyeHeight = max(c.EyeHeight, 1)
	c.BorderRadius = shape.ClampRadius(c.EyeWidth, c.EyeHeight, c.BorderRadius)
	if c.Foreground == c.Background {
		c.Foreground, c.Background = canvas.Foreground, canvas.Background
	}
	return c
}
