// Package player drives an eyes engine from a ticker and shares the frames
// with any number of subscribers.
package player

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/roboeyes/internal/bus"
	"github.com/normanking/roboeyes/internal/canvas"
	"github.com/normanking/roboeyes/internal/command"
	"github.com/normanking/roboeyes/internal/config"
	"github.com/normanking/roboeyes/internal/eyes"
)

// DefaultFPS is used when no frame rate is configured.
const DefaultFPS = 30

// Frame is one rendered frame. Image is shared between subscribers and must
// not be modified.
type Frame struct {
	Seq   uint64
	TS    time.Duration
	Image *canvas.Frame
}

// TickerFunc starts a ticker and returns its channel and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Stats are running counters for the player.
type Stats struct {
	Frames      uint64
	Dropped     uint64
	Subscribers int
}

type subscriber struct {
	ch       chan Frame
	dropping bool
}

// Player serialises access to an engine.
type Player struct {
	mu     sync.Mutex
	eng    *eyes.RoboEyes
	last   *canvas.Frame
	lastTS time.Duration
	lids   [2]eyes.LidState

	interval time.Duration
	now      func() time.Time
	ticker   TickerFunc
	start    time.Time

	bus *bus.EventBus
	log zerolog.Logger

	subMu  sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64

	seq     atomic.Uint64
	dropped atomic.Uint64
}

// Option configures a Player.
type Option func(*Player)

// WithFPS sets the frame rate used by Run.
func WithFPS(fps int) Option {
	return func(p *Player) {
		if fps > 0 {
			p.interval = time.Second / time.Duration(fps)
		}
	}
}

// WithClock replaces time.Now for computing frame timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Player) { p.now = now }
}

// WithTicker replaces the ticker Run waits on.
func WithTicker(fn TickerFunc) Option {
	return func(p *Player) { p.ticker = fn }
}

// WithBus publishes player and engine events to b.
func WithBus(b *bus.EventBus) Option {
	return func(p *Player) { p.bus = b }
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Player) { p.log = l }
}

// New wraps eng. The player owns eng from here on; use Do for direct access.
func New(eng *eyes.RoboEyes, opts ...Option) *Player {
	p := &Player{
		eng:      eng,
		interval: time.Second / DefaultFPS,
		now:      time.Now,
		ticker:   realTicker,
		log:      zerolog.Nop(),
		subs:     make(map[uint64]*subscriber),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.start = p.now()
	return p
}

// Interval is the time between frames in Run.
func (p *Player) Interval() time.Duration { return p.interval }

// Elapsed is the engine timestamp for the current wall time.
func (p *Player) Elapsed() time.Duration {
	return p.now().Sub(p.start)
}

// Do runs fn with exclusive access to the engine.
func (p *Player) Do(fn func(e *eyes.RoboEyes)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.eng)
}

// Apply runs cmd against the engine and publishes the resulting changes.
func (p *Player) Apply(cmd command.Command) error {
	p.mu.Lock()
	mood, pos := p.eng.Mood(), p.eng.Position()
	err := cmd.Apply(p.eng)
	newMood, newPos := p.eng.Mood(), p.eng.Position()
	p.mu.Unlock()

	if err != nil {
		p.log.Warn().Err(err).Str("command", cmd.String()).Msg("command rejected")
		p.bus.Publish(bus.Event{Type: bus.EventTypeCommandFailed, Data: map[string]any{
			"command": cmd.String(),
			"error":   err.Error(),
		}})
		return err
	}

	p.log.Debug().Str("command", cmd.String()).Msg("command applied")
	p.bus.Publish(bus.Event{Type: bus.EventTypeCommandApplied, Data: map[string]any{"command": cmd.String()}})
	if newMood != mood {
		p.bus.Publish(bus.Event{Type: bus.EventTypeMoodChanged, Data: map[string]any{"mood": newMood.String()}})
	}
	if newPos != pos {
		p.bus.Publish(bus.Event{Type: bus.EventTypePositionChanged, Data: map[string]any{"position": newPos.String()}})
	}
	return nil
}

// Reload applies layout and start-state settings from cfg. The canvas size
// cannot change on a running player and is ignored.
func (p *Player) Reload(cfg *config.Config) {
	p.mu.Lock()
	c := p.eng.Config()
	if cfg.Canvas.Width != c.CanvasWidth || cfg.Canvas.Height != c.CanvasHeight {
		p.log.Warn().
			Int("width", cfg.Canvas.Width).
			Int("height", cfg.Canvas.Height).
			Msg("canvas size change needs a restart")
	}
	p.eng.SetSize(cfg.Eyes.Width, cfg.Eyes.Height)
	p.eng.SetBorderRadius(cfg.Eyes.BorderRadius, cfg.Eyes.BorderRadius)
	p.eng.SetSpaceBetween(cfg.Eyes.SpaceBetween)
	cfg.ApplyState(p.eng)
	p.mu.Unlock()

	p.log.Info().Msg("configuration reloaded")
	p.bus.Publish(bus.Event{Type: bus.EventTypeConfigReloaded})
}

// Frame renders the frame for ts, stores it as the latest and hands it to
// subscribers. Frames reach subscribers in Seq order.
func (p *Player) Frame(ts time.Duration) Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frameLocked(ts)
}

// Tick renders the frame for the current time. The timestamp is read under
// the engine lock, so concurrent callers never hand the engine an older
// time than the frame before.
func (p *Player) Tick() Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frameLocked(p.Elapsed())
}

func (p *Player) frameLocked(ts time.Duration) Frame {
	img := p.eng.DrawEyes(ts)
	p.last, p.lastTS = img, ts
	for _, i := range []eyes.Eye{eyes.LeftEye, eyes.RightEye} {
		st := p.eng.LidState(i)
		if st == p.lids[i] {
			continue
		}
		p.lids[i] = st
		p.bus.Publish(bus.Event{Type: bus.EventTypeLidChanged, Data: map[string]any{
			"eye":   i.String(),
			"state": st.String(),
		}})
	}

	f := Frame{Seq: p.seq.Add(1), TS: ts, Image: img}
	p.broadcast(f)
	return f
}

// Latest returns the most recent frame, rendering one at the current time if
// none exists yet.
func (p *Player) Latest() (*canvas.Frame, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		p.frameLocked(p.Elapsed())
	}
	return p.last, p.lastTS
}

// Subscribe returns a channel receiving every frame. When the channel is
// full the frame is dropped for that subscriber. Call cancel to unsubscribe.
func (p *Player) Subscribe(buffer int) (frames <-chan Frame, cancel func()) {
	ch := make(chan Frame, max(buffer, 1))

	p.subMu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = &subscriber{ch: ch}
	p.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.subMu.Lock()
			delete(p.subs, id)
			p.subMu.Unlock()
		})
	}
}

func (p *Player) broadcast(f Frame) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	for id, s := range p.subs {
		select {
		case s.ch <- f:
			s.dropping = false
		default:
			p.dropped.Add(1)
			if !s.dropping {
				s.dropping = true
				p.log.Debug().Uint64("subscriber", id).Uint64("seq", f.Seq).Msg("subscriber lagging, dropping frames")
				p.bus.Publish(bus.Event{Type: bus.EventTypeFrameDropped, Data: map[string]any{"subscriber": id}})
			}
		}
	}
}

// Stats returns the frame counters.
func (p *Player) Stats() Stats {
	p.subMu.Lock()
	n := len(p.subs)
	p.subMu.Unlock()
	return Stats{Frames: p.seq.Load(), Dropped: p.dropped.Load(), Subscribers: n}
}

// Run renders a frame on every tick until ctx is cancelled.
func (p *Player) Run(ctx context.Context) error {
	ticks, stop := p.ticker(p.interval)
	defer stop()

	p.log.Info().Dur("interval", p.interval).Msg("player started")
	p.bus.Publish(bus.Event{Type: bus.EventTypePlayerStarted, Data: map[string]any{"interval": p.interval.String()}})
	defer func() {
		p.log.Info().Uint64("frames", p.seq.Load()).Uint64("dropped", p.dropped.Load()).Msg("player stopped")
		p.bus.Publish(bus.Event{Type: bus.EventTypePlayerStopped})
	}()

	p.Tick()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			p.Tick()
		}
	}
}
