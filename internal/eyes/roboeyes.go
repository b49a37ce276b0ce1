// Package eyes animates a pair of robot eyes into a grayscale canvas.
//
// The engine is synchronous and owns no goroutines. Callers advance it by
// passing a timestamp to DrawEyes or DrawInto on every frame; all timers are
// measured in that caller-supplied time base.
package eyes

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/roboeyes/internal/canvas"
	"github.com/normanking/roboeyes/internal/shape"
)

// DefaultSeed seeds the random source when neither WithSeed nor WithRand is given.
const DefaultSeed uint64 = 0x5eed

// ErrCanvasSize is returned by DrawInto when the target canvas does not match
// the configured canvas size.
var ErrCanvasSize = errors.New("canvas size mismatch")

// RoboEyes is the animation engine. It is not safe for concurrent use.
type RoboEyes struct {
	cfg    Config
	radius [2]int
	eyes   [2]EyeGeometry
	state  AnimationState

	rng *rand.Rand
	log zerolog.Logger
}

// Option customises a RoboEyes at construction.
type Option func(*RoboEyes)

// WithConfig replaces the eye parameters. The canvas size passed to New
// always wins over the one in cfg.
func WithConfig(cfg Config) Option {
	return func(e *RoboEyes) {
		w, h := e.cfg.CanvasWidth, e.cfg.CanvasHeight
		e.cfg = cfg
		e.cfg.CanvasWidth, e.cfg.CanvasHeight = w, h
	}
}

// WithSeed seeds the engine's PCG source.
func WithSeed(seed uint64) Option {
	return func(e *RoboEyes) {
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithRand injects the random source used by the autoblinker and idle mode.
func WithRand(r *rand.Rand) Option {
	return func(e *RoboEyes) {
		if r != nil {
			e.rng = r
		}
	}
}

// WithLogger sets the logger for animation events.
func WithLogger(l zerolog.Logger) Option {
	return func(e *RoboEyes) {
		e.log = l
	}
}

// New creates eyes for a width x height canvas, centred and fully open.
func New(width, height int, opts ...Option) *RoboEyes {
	e := &RoboEyes{
		cfg: DefaultConfig(width, height),
		log: zerolog.Nop(),
	}
	WithSeed(DefaultSeed)(e)
	for _, opt := range opts {
		opt(e)
	}
	e.cfg = e.cfg.normalized()
	e.radius = [2]int{e.cfg.BorderRadius, e.cfg.BorderRadius}
	e.state.Position = Center

	e.resolveTargets()
	for i := range e.eyes {
		e.eyes[i].snap()
	}
	return e
}

// Config returns the current configuration.
func (e *RoboEyes) Config() Config { return e.cfg }

// DrawEyes advances to ts and renders a fresh frame.
func (e *RoboEyes) DrawEyes(ts time.Duration) *canvas.Frame {
	f := canvas.New(e.cfg.CanvasWidth, e.cfg.CanvasHeight)
	e.advance(ts)
	e.render(f)
	return f
}

// DrawInto advances to ts and renders into c, which must match the
// configured canvas size.
func (e *RoboEyes) DrawInto(c canvas.Canvas, ts time.Duration) error {
	if c.Width() != e.cfg.CanvasWidth || c.Height() != e.cfg.CanvasHeight {
		return fmt.Errorf("draw into %dx%d, engine is %dx%d: %w",
			c.Width(), c.Height(), e.cfg.CanvasWidth, e.cfg.CanvasHeight, ErrCanvasSize)
	}
	e.advance(ts)
	e.render(c)
	return nil
}

func (e *RoboEyes) render(c canvas.Canvas) {
	canvas.Clear(c, e.cfg.Background)

	boxes := e.boxes()
	for _, b := range boxes {
		shape.FillRoundedRect(c, b.x, b.y, b.w, b.h, b.r, e.cfg.Foreground)
	}
	e.drawMood(c, boxes)
	if e.state.Sweat {
		e.drawSweat(c, boxes[len(boxes)-1])
	}
}

// boxes returns the drawn eye rectangles for the current frame.
func (e *RoboEyes) boxes() []box {
	dx, dy := e.state.Offset(e.state.Now)
	n := 2
	if e.state.Cyclops {
		n = 1
	}
	out := make([]box, 0, n)
	for i := 0; i < n; i++ {
		x, y, w, h := e.eyes[i].Rect(e.cfg.EyeHeight)
		out = append(out, box{
			x: x + dx, y: y + dy, w: w, h: h,
			r: shape.ClampRadius(w, h, e.eyes[i].Radius),
		})
	}
	return out
}

// SetMood switches the eyelid overlay.
func (e *RoboEyes) SetMood(m Mood) {
	if m < MoodDefault || m > MoodHappy {
		m = MoodDefault
	}
	e.state.Mood = m
}

// SetPosition moves the gaze. The eyes ease towards the new anchor.
func (e *RoboEyes) SetPosition(p Position) {
	if p < Center || p > NorthWest {
		p = Center
	}
	e.state.Position = p
}

// Open opens both eyes.
func (e *RoboEyes) Open() { e.OpenEyes(true, true) }

// Close closes both eyes.
func (e *RoboEyes) Close() { e.CloseEyes(true, true) }

// Blink closes both eyes and reopens them after BlinkHold.
func (e *RoboEyes) Blink() { e.BlinkEyes(true, true) }

// OpenEyes opens the selected eyes.
func (e *RoboEyes) OpenEyes(left, right bool) {
	for i, sel := range [2]bool{left, right} {
		if !sel {
			continue
		}
		lid := &e.state.Lids[i]
		lid.reopen = false
		if lid.State != LidOpen {
			lid.State = LidOpening
		}
	}
}

// CloseEyes closes the selected eyes and keeps them closed.
func (e *RoboEyes) CloseEyes(left, right bool) {
	for i, sel := range [2]bool{left, right} {
		if !sel {
			continue
		}
		lid := &e.state.Lids[i]
		lid.reopen = false
		if lid.State != LidClosed {
			lid.State = LidClosing
		}
	}
}

// BlinkEyes blinks the selected eyes.
func (e *RoboEyes) BlinkEyes(left, right bool) { e.blink(left, right) }

func (e *RoboEyes) blink(left, right bool) {
	for i, sel := range [2]bool{left, right} {
		if !sel {
			continue
		}
		lid := &e.state.Lids[i]
		switch {
		case lid.State != LidClosed:
			lid.State = LidClosing
		case !lid.reopen:
			// Held shut by Close; the hold starts now.
			lid.closedAt = e.state.Now
		}
		lid.reopen = true
	}
}

// AnimConfused shakes the eyes horizontally for EnvelopeDuration.
func (e *RoboEyes) AnimConfused() { e.state.Confused.trigger() }

// AnimLaugh bounces the eyes vertically for EnvelopeDuration.
func (e *RoboEyes) AnimLaugh() { e.state.Laugh.trigger() }

func (e *RoboEyes) SetSweat(on bool)     { e.state.Sweat = on }
func (e *RoboEyes) SetCyclops(on bool)   { e.state.Cyclops = on }
func (e *RoboEyes) SetCuriosity(on bool) { e.state.Curious = on }

// SetAutoblinker blinks automatically at random intervals in [lo, hi]. The
// first blink happens on the next frame.
func (e *RoboEyes) SetAutoblinker(enabled bool, lo, hi time.Duration) {
	e.state.Autoblinker.configure(enabled, lo, hi, true)
}

// SetIdleMode looks around at random intervals in [lo, hi].
func (e *RoboEyes) SetIdleMode(enabled bool, lo, hi time.Duration) {
	e.state.Idle.configure(enabled, lo, hi, false)
}

// SetHFlicker jitters the eyes horizontally by ±amplitude pixels.
func (e *RoboEyes) SetHFlicker(enabled bool, amplitude int) {
	e.state.HFlicker = Flicker{Enabled: enabled, Amplitude: max(amplitude, 0)}
}

// SetVFlicker jitters the eyes vertically by ±amplitude pixels.
func (e *RoboEyes) SetVFlicker(enabled bool, amplitude int) {
	e.state.VFlicker = Flicker{Enabled: enabled, Amplitude: max(amplitude, 0)}
}

// SetSize changes the eye size. Values below 1 are clamped.
func (e *RoboEyes) SetSize(width, height int) {
	e.cfg.EyeWidth = max(width, 1)
	e.cfg.EyeHeight = max(height, 1)
	e.cfg.BorderRadius = shape.ClampRadius(e.cfg.EyeWidth, e.cfg.EyeHeight, e.cfg.BorderRadius)
}

// SetBorderRadius sets the corner radius of each eye.
func (e *RoboEyes) SetBorderRadius(left, right int) {
	e.radius = [2]int{max(left, 0), max(right, 0)}
	e.cfg.BorderRadius = shape.ClampRadius(e.cfg.EyeWidth, e.cfg.EyeHeight, left)
}

// SetSpaceBetween sets the gap between the eyes. Negative values overlap.
func (e *RoboEyes) SetSpaceBetween(space int) { e.cfg.SpaceBetween = space }

func (e *RoboEyes) Mood() Mood         { return e.state.Mood }
func (e *RoboEyes) Position() Position { return e.state.Position }
func (e *RoboEyes) IsCyclops() bool    { return e.state.Cyclops }
func (e *RoboEyes) HasSweat() bool     { return e.state.Sweat }
func (e *RoboEyes) IsCurious() bool    { return e.state.Curious }

// LidState returns the blink phase of eye i.
func (e *RoboEyes) LidState(i Eye) LidState { return e.state.Lids[eyeIndex(i)].State }

// BlinkProgress returns the blink cycle progress of eye i in [0, 1].
func (e *RoboEyes) BlinkProgress(i Eye) float64 { return e.state.Lids[eyeIndex(i)].Progress }

// Geometry returns a snapshot of eye i.
func (e *RoboEyes) Geometry(i Eye) EyeGeometry { return e.eyes[eyeIndex(i)] }

// State returns a copy of the animation state.
func (e *RoboEyes) State() AnimationState { return e.state }

// Now returns the last timestamp the engine advanced to.
func (e *RoboEyes) Now() time.Duration { return e.state.Now }

func eyeIndex(i Eye) int {
	if i == RightEye {
		return 1
	}
	return 0
}
