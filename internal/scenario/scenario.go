// Package scenario plays scripted command timelines against the eyes and
// captures selected frames to disk.
package scenario

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/normanking/roboeyes/internal/canvas"
	"github.com/normanking/roboeyes/internal/command"
	"github.com/normanking/roboeyes/internal/export"
	"github.com/normanking/roboeyes/internal/eyes"
)

var ErrInvalid = errors.New("invalid scenario")

// Canvas is the frame size a scenario renders at.
type Canvas struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Step happens at a point on the timeline. Command and Do are alternative
// spellings; Do takes the one-line text form ("mood happy"). A step may have
// only a Capture.
type Step struct {
	At      command.Duration `yaml:"at"`
	Command *command.Command `yaml:"command,omitempty"`
	Do      string           `yaml:"do,omitempty"`
	Capture string           `yaml:"capture,omitempty"`
}

// Scenario is a timeline of steps.
type Scenario struct {
	Name     string           `yaml:"name"`
	Canvas   Canvas           `yaml:"canvas"`
	FPS      int              `yaml:"fps"`
	Duration command.Duration `yaml:"duration"`
	Seed     uint64           `yaml:"seed"`
	Steps    []Step           `yaml:"steps"`
}

// Parse decodes a YAML scenario and validates it. Unknown keys are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data)
}

// Marshal encodes s as YAML.
func (s *Scenario) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Validate fills defaults and checks every step.
func (s *Scenario) Validate() error {
	if s.Canvas.Width == 0 && s.Canvas.Height == 0 {
		s.Canvas = Canvas{Width: 128, Height: 64}
	}
	if s.Canvas.Width <= 0 || s.Canvas.Height <= 0 {
		return fmt.Errorf("canvas %dx%d: %w", s.Canvas.Width, s.Canvas.Height, ErrInvalid)
	}
	if s.FPS == 0 {
		s.FPS = 30
	}
	if s.FPS < 0 || s.FPS > 1000 {
		return fmt.Errorf("fps %d: %w", s.FPS, ErrInvalid)
	}
	for i := range s.Steps {
		st := &s.Steps[i]
		if st.At < 0 {
			return fmt.Errorf("step %d: negative time: %w", i+1, ErrInvalid)
		}
		if st.Command != nil && st.Do != "" {
			return fmt.Errorf("step %d: both command and do set: %w", i+1, ErrInvalid)
		}
		if st.Do != "" {
			c, err := command.Parse(st.Do)
			if err != nil {
				return fmt.Errorf("step %d: %w: %w", i+1, ErrInvalid, err)
			}
			st.Command, st.Do = &c, ""
		}
		if st.Command == nil && st.Capture == "" {
			return fmt.Errorf("step %d: nothing to do: %w", i+1, ErrInvalid)
		}
	}
	sort.SliceStable(s.Steps, func(a, b int) bool { return s.Steps[a].At < s.Steps[b].At })
	return nil
}

// Interval is the time between frames.
func (s *Scenario) Interval() time.Duration {
	return time.Second / time.Duration(max(s.FPS, 1))
}

// End is the last timestamp rendered: Duration or the last step, whichever
// is later.
func (s *Scenario) End() time.Duration {
	end := s.Duration.Std()
	for _, st := range s.Steps {
		end = max(end, st.At.Std())
	}
	return end
}

// Options configures Run.
type Options struct {
	OutputDir string
	Scale     int
	// GIF, when set, is a path relative to OutputDir for an animation of
	// every rendered frame.
	GIF           string
	EngineOptions []eyes.Option
	Logger        zerolog.Logger
}

// Result summarises a run.
type Result struct {
	Frames   int
	Captures []string
}

// Run plays s from time zero, rendering every frame and saving captures.
func Run(ctx context.Context, s *Scenario, opts Options) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	eopts := append([]eyes.Option{eyes.WithSeed(s.Seed), eyes.WithLogger(log)}, opts.EngineOptions...)
	e := eyes.New(s.Canvas.Width, s.Canvas.Height, eopts...)

	res := &Result{}
	var frames []*canvas.Frame
	next := 0
	step := s.Interval()
	end := s.End()

	log.Info().Str("scenario", s.Name).Int("steps", len(s.Steps)).Dur("end", end).Msg("scenario started")

	// The final frame is rendered at end itself, so steps between the last
	// tick and end are still applied and captured.
	for ts := time.Duration(0); ; ts += step {
		final := ts >= end
		if final {
			ts = end
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var captures []string
		for next < len(s.Steps) && s.Steps[next].At.Std() <= ts {
			st := s.Steps[next]
			next++
			if st.Command != nil {
				if err := st.Command.Apply(e); err != nil {
					return res, fmt.Errorf("step %d at %s: %w", next, st.At, err)
				}
			}
			if st.Capture != "" {
				captures = append(captures, captureName(st.Capture, next, st))
			}
		}

		f := e.DrawEyes(ts)
		res.Frames++
		if opts.GIF != "" {
			frames = append(frames, f)
		}
		for _, name := range captures {
			path := filepath.Join(opts.OutputDir, name)
			if err := export.SavePNG(path, f, opts.Scale); err != nil {
				return res, err
			}
			res.Captures = append(res.Captures, path)
			log.Debug().Str("path", path).Dur("ts", ts).Msg("frame captured")
		}
		if final {
			break
		}
	}

	if opts.GIF != "" {
		path := filepath.Join(opts.OutputDir, opts.GIF)
		if err := export.SaveGIF(path, frames, step, opts.Scale); err != nil {
			return res, err
		}
		res.Captures = append(res.Captures, path)
	}

	log.Info().Str("scenario", s.Name).Int("frames", res.Frames).Int("captures", len(res.Captures)).Msg("scenario finished")
	return res, nil
}

// captureName turns "auto" into a numbered name derived from the command and
// adds a .png extension when missing.
func captureName(name string, index int, st Step) string {
	if name == "auto" {
		label := "frame"
		if st.Command != nil {
			label = st.Command.String()
		}
		label = strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
				return r
			case r >= 'A' && r <= 'Z':
				return r + ('a' - 'A')
			}
			return '-'
		}, label)
		name = fmt.Sprintf("%03d_%s", index, label)
	}
	if filepath.Ext(name) == "" {
		name += ".png"
	}
	return name
}
