package scenario

import (
	"fmt"
	"time"

	"github.com/normanking/roboeyes/internal/command"
	"github.com/normanking/roboeyes/internal/eyes"
)

const (
	// settle is how long the showcase waits for eased geometry to arrive.
	settle = 300 * time.Millisecond
	// stepGap keeps consecutive steps on separate frames at 60 fps.
	stepGap = 20 * time.Millisecond
)

// Showcase returns the built-in scenario that captures every mood, every
// position and each animation once.
func Showcase() *Scenario {
	b := &builder{}

	b.capture("default")
	for _, m := range eyes.Moods[1:] {
		b.do(fmt.Sprintf("mood %s", m), "mood_"+m.String())
	}
	b.do("mood default", "")

	for _, p := range eyes.Positions[1:] {
		b.do(fmt.Sprintf("position %s", p), "")
		b.wait(settle)
		b.capture("position_" + p.String())
	}
	b.do("position center", "")
	b.wait(settle)

	b.do("blink", "")
	b.wait(48 * time.Millisecond)
	b.capture("anim_blink")
	b.wait(settle)

	b.do("confused", "")
	b.capture("anim_confused")
	b.wait(600 * time.Millisecond)

	b.do("laugh", "")
	b.capture("anim_laugh")
	b.wait(600 * time.Millisecond)

	b.do("sweat on", "anim_sweat")
	b.do("sweat off", "")

	b.do("cyclops on", "")
	b.wait(settle)
	b.capture("cyclops")
	b.do("cyclops off", "")
	b.wait(settle)

	b.do("curiosity on", "")
	b.do("position west", "")
	b.wait(settle)
	b.capture("curiosity_west")
	b.do("position center", "")
	b.do("curiosity off", "")
	b.wait(settle)

	s := &Scenario{
		Name:     "showcase",
		Canvas:   Canvas{Width: 128, Height: 64},
		FPS:      60,
		Duration: command.Duration(b.at),
		Seed:     1,
		Steps:    b.steps,
	}
	if err := s.Validate(); err != nil {
		panic(err)
	}
	return s
}

type builder struct {
	at    time.Duration
	steps []Step
}

func (b *builder) wait(d time.Duration) { b.at += d }

func (b *builder) do(line, capture string) {
	b.steps = append(b.steps, Step{At: command.Duration(b.at), Do: line, Capture: capture})
	b.at += stepGap
}

func (b *builder) capture(name string) {
	b.steps = append(b.steps, Step{At: command.Duration(b.at), Capture: name})
	b.at += stepGap
}
