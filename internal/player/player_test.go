package player

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/roboeyes/internal/bus"
	"github.com/normanking/roboeyes/internal/command"
	"github.com/normanking/roboeyes/internal/config"
	"github.com/normanking/roboeyes/internal/eyes"
)

// fakeClock is advanced by hand.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestPlayer(opts ...Option) (*Player, *fakeClock, chan time.Time) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	ticks := make(chan time.Time)
	base := []Option{
		WithClock(clk.Now),
		WithTicker(func(time.Duration) (<-chan time.Time, func()) { return ticks, func() {} }),
	}
	p := New(eyes.New(128, 64, eyes.WithSeed(1)), append(base, opts...)...)
	return p, clk, ticks
}

func TestWithFPS(t *testing.T) {
	p, _, _ := newTestPlayer(WithFPS(50))
	assert.Equal(t, 20*time.Millisecond, p.Interval())

	p, _, _ = newTestPlayer(WithFPS(0))
	assert.Equal(t, time.Second/DefaultFPS, p.Interval())
}

func TestFrame_SequenceAndLatest(t *testing.T) {
	p, _, _ := newTestPlayer()

	f1 := p.Frame(0)
	f2 := p.Frame(16 * time.Millisecond)
	assert.Equal(t, uint64(1), f1.Seq)
	assert.Equal(t, uint64(2), f2.Seq)

	img, ts := p.Latest()
	assert.Same(t, f2.Image, img)
	assert.Equal(t, 16*time.Millisecond, ts)
}

func TestLatest_RendersWhenEmpty(t *testing.T) {
	p, clk, _ := newTestPlayer()
	clk.Add(250 * time.Millisecond)

	img, ts := p.Latest()
	require.NotNil(t, img)
	assert.Equal(t, 250*time.Millisecond, ts)
	assert.Equal(t, 128, img.Width())
}

func TestTick_ConcurrentFramesStayOrdered(t *testing.T) {
	var calls atomic.Int64
	base := time.Unix(1000, 0)
	clock := func() time.Time {
		return base.Add(time.Duration(calls.Add(1)) * time.Millisecond)
	}
	p := New(eyes.New(64, 32, eyes.WithSeed(1)), WithClock(clock))
	frames, cancel := p.Subscribe(512)
	defer cancel()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				p.Tick()
				p.Latest()
			}
		}()
	}
	wg.Wait()

	require.Len(t, frames, 200)
	prev := <-frames
	for i := 1; i < 200; i++ {
		f := <-frames
		assert.Equal(t, prev.Seq+1, f.Seq)
		assert.Greater(t, f.TS, prev.TS, "frame %d went back in time", f.Seq)
		prev = f
	}
}

func TestApply_PublishesEvents(t *testing.T) {
	b := bus.NewEventBus()
	got := make(chan bus.Event, 10)
	b.SubscribeMultiple([]bus.EventType{
		bus.EventTypeMoodChanged,
		bus.EventTypePositionChanged,
		bus.EventTypeCommandFailed,
	}, func(e bus.Event) { got <- e })

	p, _, _ := newTestPlayer(WithBus(b))
	require.NoError(t, p.Apply(command.Command{Action: command.ActionMood, Value: "happy"}))

	select {
	case e := <-got:
		assert.Equal(t, bus.EventTypeMoodChanged, e.Type)
		assert.Equal(t, "happy", e.Data["mood"])
	case <-time.After(2 * time.Second):
		t.Fatal("no mood event")
	}

	err := p.Apply(command.Command{Action: "dance"})
	require.ErrorIs(t, err, command.ErrUnknownAction)
	select {
	case e := <-got:
		assert.Equal(t, bus.EventTypeCommandFailed, e.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no failure event")
	}
}

func TestSubscribe_DropsForSlowConsumer(t *testing.T) {
	p, _, _ := newTestPlayer()
	fast, cancelFast := p.Subscribe(8)
	defer cancelFast()
	slow, cancelSlow := p.Subscribe(1)

	for i := 0; i < 5; i++ {
		p.Frame(time.Duration(i) * 16 * time.Millisecond)
	}

	assert.Len(t, fast, 5)
	assert.Len(t, slow, 1)
	first := <-slow
	assert.Equal(t, uint64(1), first.Seq, "slow subscriber keeps the oldest frame")

	s := p.Stats()
	assert.Equal(t, uint64(5), s.Frames)
	assert.Equal(t, uint64(4), s.Dropped)
	assert.Equal(t, 2, s.Subscribers)

	cancelSlow()
	cancelSlow()
	assert.Equal(t, 1, p.Stats().Subscribers)
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	b := bus.NewEventBus()
	stopped := make(chan struct{})
	b.Subscribe(bus.EventTypePlayerStopped, func(bus.Event) { close(stopped) })

	p, clk, ticks := newTestPlayer(WithBus(b))
	frames, cancelSub := p.Subscribe(16)
	defer cancelSub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	first := <-frames
	assert.Equal(t, time.Duration(0), first.TS)

	clk.Add(40 * time.Millisecond)
	ticks <- time.Time{}
	second := <-frames
	assert.Equal(t, 40*time.Millisecond, second.TS)

	cancel()
	require.NoError(t, <-done)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop event not published")
	}
}

func TestFrame_PublishesLidChanges(t *testing.T) {
	b := bus.NewEventBus()
	got := make(chan bus.Event, 64)
	b.Subscribe(bus.EventTypeLidChanged, func(e bus.Event) { got <- e })

	p, _, _ := newTestPlayer(WithBus(b))
	p.Frame(0)
	require.NoError(t, p.Apply(command.Command{Action: command.ActionCloseEyes, Left: true}))
	p.Frame(16 * time.Millisecond)

	select {
	case e := <-got:
		assert.Equal(t, "left", e.Data["eye"])
		assert.Equal(t, "closing", e.Data["state"])
	case <-time.After(2 * time.Second):
		t.Fatal("no lid event")
	}
}

func TestReload(t *testing.T) {
	p, _, _ := newTestPlayer()
	cfg := config.Default()
	cfg.Eyes.Width = 20
	cfg.Eyes.Mood = "angry"
	cfg.Eyes.Sweat = true
	p.Reload(cfg)

	p.Do(func(e *eyes.RoboEyes) {
		assert.Equal(t, 20, e.Config().EyeWidth)
		assert.Equal(t, eyes.MoodAngry, e.Mood())
		assert.True(t, e.HasSweat())
	})
}
