package eyes

import (
	"math/rand/v2"
	"time"
)

// Animation timing constants.
const (
	BlinkHold         = 40 * time.Millisecond
	EnvelopeDuration  = 500 * time.Millisecond
	ShakeHalfPeriod   = 25 * time.Millisecond
	ConfusedAmplitude = 20
	LaughAmplitude    = 5
)

// Lid tracks the blink phase of one eye.
type Lid struct {
	State LidState
	// Progress runs from 0 to 1 across a blink cycle: closing covers
	// [0, 0.5], the closed hold sits at 0.5 and opening covers [0.5, 1].
	Progress float64

	reopen   bool
	closedAt time.Duration
}

// Envelope is a fixed-length animation window started by a trigger.
type Envelope struct {
	Active bool
	Start  time.Duration

	pending bool
}

func (v *Envelope) trigger() { v.pending = true }

// Pending reports whether the envelope has been triggered but not yet
// started by an advance.
func (v Envelope) Pending() bool { return v.pending }

// Remaining returns the time left in the envelope at now, never negative.
func (v Envelope) Remaining(now time.Duration) time.Duration {
	switch {
	case v.pending:
		return EnvelopeDuration
	case !v.Active:
		return 0
	}
	return max(0, v.Start+EnvelopeDuration-now)
}

// advance starts a pending envelope and expires a finished one. It reports
// whether the envelope started and whether it ended during this step.
func (v *Envelope) advance(now time.Duration) (started, ended bool) {
	if v.pending {
		v.pending = false
		v.Active = true
		v.Start = now
		started = true
	}
	if v.Active && now-v.Start >= EnvelopeDuration {
		v.Active = false
		ended = true
	}
	return started, ended
}

// Scheduler fires at random intervals drawn uniformly from [Min, Max].
type Scheduler struct {
	Enabled bool
	Min     time.Duration
	Max     time.Duration
	Last    time.Duration
	Next    time.Duration

	armed     bool
	immediate bool
}

func (s *Scheduler) configure(enabled bool, lo, hi time.Duration, immediate bool) {
	lo, hi = max(lo, 0), max(hi, 0)
	if hi < lo {
		lo, hi = hi, lo
	}
	s.Enabled = enabled
	s.Min, s.Max = lo, hi
	s.armed = false
	s.immediate = immediate
}

func (s *Scheduler) interval(rng *rand.Rand) time.Duration {
	span := int64((s.Max - s.Min) / time.Millisecond)
	return s.Min + time.Duration(rng.Int64N(span+1))*time.Millisecond
}

// due reports whether the scheduler fires at now, rescheduling when it does.
func (s *Scheduler) due(now time.Duration, rng *rand.Rand) bool {
	if !s.Enabled {
		return false
	}
	if !s.armed {
		s.armed = true
		s.Last = now
		s.Next = now + s.interval(rng)
		return s.immediate
	}
	if now < s.Next {
		return false
	}
	s.Last = now
	s.Next = now + s.interval(rng)
	return true
}

// Flicker is a continuous square-wave jitter.
type Flicker struct {
	Enabled   bool
	Amplitude int
}

func (f Flicker) offset(now time.Duration) int {
	if !f.Enabled {
		return 0
	}
	return square(now, f.Amplitude)
}

// square returns +amp or -amp, alternating every ShakeHalfPeriod of t.
func square(t time.Duration, amp int) int {
	phase := (t / ShakeHalfPeriod) % 2
	if phase < 0 {
		phase += 2
	}
	if phase == 0 {
		return amp
	}
	return -amp
}

// AnimationState is everything the engine accumulates between frames.
type AnimationState struct {
	Mood     Mood
	Position Position

	Lids [2]Lid

	Confused Envelope
	Laugh    Envelope

	Autoblinker Scheduler
	Idle        Scheduler
	// IdleGaze is the position idle mode last picked.
	IdleGaze Position

	HFlicker Flicker
	VFlicker Flicker

	Sweat   bool
	Cyclops bool
	Curious bool

	// Now is the last timestamp the state was advanced to.
	Now     time.Duration
	started bool
}

// Offset returns the render-time displacement from flicker and shake at now.
func (s AnimationState) Offset(now time.Duration) (dx, dy int) {
	dx = s.HFlicker.offset(now)
	dy = s.VFlicker.offset(now)
	if s.Confused.Active {
		dx += square(now-s.Confused.Start, ConfusedAmplitude)
	}
	if s.Laugh.Active {
		dy += square(now-s.Laugh.Start, LaughAmplitude)
	}
	return dx, dy
}

// advance moves the engine to ts. Repeating the last timestamp is a no-op.
func (e *RoboEyes) advance(ts time.Duration) {
	s := &e.state
	if s.started && ts == s.Now {
		return
	}
	s.started = true
	s.Now = ts

	if s.Autoblinker.due(ts, e.rng) {
		e.log.Debug().Dur("ts", ts).Dur("next", s.Autoblinker.Next).Msg("autoblink")
		e.autoblink()
	}
	if s.Idle.due(ts, e.rng) {
		p := Directions[e.rng.IntN(len(Directions))]
		s.IdleGaze = p
		s.Position = p
		e.log.Debug().Dur("ts", ts).Stringer("position", p).Msg("idle retarget")
	}

	e.progressLids(ts)
	if started, ended := s.Confused.advance(ts); started || ended {
		e.log.Debug().Dur("ts", ts).Bool("active", s.Confused.Active).Msg("confused")
	}
	if started, ended := s.Laugh.advance(ts); started || ended {
		e.log.Debug().Dur("ts", ts).Bool("active", s.Laugh.Active).Msg("laugh")
	}

	e.resolveTargets()
	for i := range e.eyes {
		e.eyes[i].step()
	}
	e.updateProgress()
}

// autoblink starts a blink on every lid that is fully open. Lids mid-cycle or
// held shut by Close are skipped.
func (e *RoboEyes) autoblink() {
	var sel [2]bool
	for i, lid := range e.state.Lids {
		sel[i] = lid.State == LidOpen
	}
	if sel[0] || sel[1] {
		e.blink(sel[0], sel[1])
	}
}

// progressLids moves each lid through its states based on live heights from
// the previous frame.
func (e *RoboEyes) progressLids(ts time.Duration) {
	for i := range e.state.Lids {
		lid := &e.state.Lids[i]
		h := e.eyes[i].Height

		if lid.State == LidClosing && h <= MinLidHeight {
			lid.State = LidClosed
			lid.closedAt = ts
		}
		if lid.State == LidClosed && lid.reopen && ts-lid.closedAt >= BlinkHold {
			lid.State = LidOpening
			lid.reopen = false
		}
		if lid.State == LidOpening && h >= e.fullHeight(Eye(i)) {
			lid.State = LidOpen
		}
	}
}

func (e *RoboEyes) updateProgress() {
	for i := range e.state.Lids {
		lid := &e.state.Lids[i]
		full := e.fullHeight(Eye(i))
		closed := 1.0
		if span := full - MinLidHeight; span > 0 {
			closed = float64(full-e.eyes[i].Height) / float64(span)
		}
		closed = min(max(closed, 0), 1)

		switch lid.State {
		case LidOpen:
			lid.Progress = 0
		case LidClosing:
			lid.Progress = closed / 2
		case LidClosed:
			lid.Progress = 0.5
		case LidOpening:
			lid.Progress = 0.5 + (1-closed)/2
		}
	}
}
