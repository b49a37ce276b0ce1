// Package command is the serialisable control vocabulary for the eyes. The
// same Command value is read from scenario files, websocket messages and the
// CLI.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/normanking/roboeyes/internal/eyes"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidValue  = errors.New("invalid value")
)

// Action names one engine operation.
type Action string

const (
	ActionMood         Action = "mood"
	ActionPosition     Action = "position"
	ActionOpen         Action = "open"
	ActionClose        Action = "close"
	ActionBlink        Action = "blink"
	ActionBlinkEyes    Action = "blink_eyes"
	ActionOpenEyes     Action = "open_eyes"
	ActionCloseEyes    Action = "close_eyes"
	ActionConfused     Action = "confused"
	ActionLaugh        Action = "laugh"
	ActionSweat        Action = "sweat"
	ActionAutoblinker  Action = "autoblinker"
	ActionIdle         Action = "idle"
	ActionHFlicker     Action = "h_flicker"
	ActionVFlicker     Action = "v_flicker"
	ActionCyclops      Action = "cyclops"
	ActionCuriosity    Action = "curiosity"
	ActionSize         Action = "size"
	ActionBorderRadius Action = "border_radius"
	ActionSpaceBetween Action = "space_between"
)

// Actions lists every known action.
var Actions = []Action{
	ActionMood, ActionPosition, ActionOpen, ActionClose, ActionBlink,
	ActionBlinkEyes, ActionOpenEyes, ActionCloseEyes, ActionConfused, ActionLaugh,
	ActionSweat, ActionAutoblinker, ActionIdle, ActionHFlicker, ActionVFlicker,
	ActionCyclops, ActionCuriosity, ActionSize, ActionBorderRadius, ActionSpaceBetween,
}

// Target is the engine surface a Command drives. *eyes.RoboEyes implements it.
type Target interface {
	SetMood(eyes.Mood)
	SetPosition(eyes.Position)
	Open()
	Close()
	Blink()
	BlinkEyes(left, right bool)
	OpenEyes(left, right bool)
	CloseEyes(left, right bool)
	AnimConfused()
	AnimLaugh()
	SetSweat(bool)
	SetAutoblinker(enabled bool, lo, hi time.Duration)
	SetIdleMode(enabled bool, lo, hi time.Duration)
	SetHFlicker(enabled bool, amplitude int)
	SetVFlicker(enabled bool, amplitude int)
	SetCyclops(bool)
	SetCuriosity(bool)
	SetSize(width, height int)
	SetBorderRadius(left, right int)
	SetSpaceBetween(space int)
}

var _ Target = (*eyes.RoboEyes)(nil)

// Command is one control instruction. Which fields matter depends on Action:
//
//	mood, position          Value
//	blink_eyes, open_eyes,  Left, Right
//	close_eyes
//	sweat, cyclops,         Enabled
//	curiosity
//	autoblinker, idle       Enabled, Min, Max
//	h_flicker, v_flicker    Enabled, Amplitude
//	size                    Width, Height
//	border_radius           Value ("8" or "left,right")
//	space_between           Value
type Command struct {
	Action    Action   `json:"action" yaml:"action"`
	Value     string   `json:"value,omitempty" yaml:"value,omitempty"`
	Left      bool     `json:"left,omitempty" yaml:"left,omitempty"`
	Right     bool     `json:"right,omitempty" yaml:"right,omitempty"`
	Enabled   bool     `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Min       Duration `json:"min,omitempty" yaml:"min,omitempty"`
	Max       Duration `json:"max,omitempty" yaml:"max,omitempty"`
	Amplitude int      `json:"amplitude,omitempty" yaml:"amplitude,omitempty"`
	Width     int      `json:"width,omitempty" yaml:"width,omitempty"`
	Height    int      `json:"height,omitempty" yaml:"height,omitempty"`
}

func (c Command) String() string {
	switch c.normalized().Action {
	case ActionMood, ActionPosition, ActionBorderRadius, ActionSpaceBetween:
		return fmt.Sprintf("%s %s", c.Action, c.Value)
	case ActionBlinkEyes, ActionOpenEyes, ActionCloseEyes:
		return fmt.Sprintf("%s left=%t right=%t", c.Action, c.Left, c.Right)
	case ActionSweat, ActionCyclops, ActionCuriosity:
		return fmt.Sprintf("%s %s", c.Action, onOff(c.Enabled))
	case ActionAutoblinker, ActionIdle:
		return fmt.Sprintf("%s %s %s %s", c.Action, onOff(c.Enabled), c.Min, c.Max)
	case ActionHFlicker, ActionVFlicker:
		return fmt.Sprintf("%s %s %d", c.Action, onOff(c.Enabled), c.Amplitude)
	case ActionSize:
		return fmt.Sprintf("%s %d %d", c.Action, c.Width, c.Height)
	}
	return string(c.Action)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (c Command) normalized() Command {
	c.Action = Action(strings.ToLower(strings.TrimSpace(string(c.Action))))
	c.Action = Action(strings.ReplaceAll(string(c.Action), "-", "_"))
	return c
}

// Apply runs c against t. Nothing is changed when an error is returned.
func (c Command) Apply(t Target) error {
	c = c.normalized()
	switch c.Action {
	case ActionMood:
		m, err := eyes.ParseMood(c.Value)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", c.Action, ErrInvalidValue, err)
		}
		t.SetMood(m)
	case ActionPosition:
		p, err := eyes.ParsePosition(c.Value)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", c.Action, ErrInvalidValue, err)
		}
		t.SetPosition(p)
	case ActionOpen:
		t.Open()
	case ActionClose:
		t.Close()
	case ActionBlink:
		t.Blink()
	case ActionBlinkEyes, ActionOpenEyes, ActionCloseEyes:
		if !c.Left && !c.Right {
			return fmt.Errorf("%s: no eye selected: %w", c.Action, ErrInvalidValue)
		}
		switch c.Action {
		case ActionBlinkEyes:
			t.BlinkEyes(c.Left, c.Right)
		case ActionOpenEyes:
			t.OpenEyes(c.Left, c.Right)
		default:
			t.CloseEyes(c.Left, c.Right)
		}
	case ActionConfused:
		t.AnimConfused()
	case ActionLaugh:
		t.AnimLaugh()
	case ActionSweat:
		t.SetSweat(c.Enabled)
	case ActionCyclops:
		t.SetCyclops(c.Enabled)
	case ActionCuriosity:
		t.SetCuriosity(c.Enabled)
	case ActionAutoblinker, ActionIdle:
		if c.Min < 0 || c.Max < 0 || (c.Max != 0 && c.Max < c.Min) {
			return fmt.Errorf("%s: interval [%s, %s]: %w", c.Action, c.Min, c.Max, ErrInvalidValue)
		}
		lo, hi := c.Min.Std(), c.Max.Std()
		if hi == 0 {
			hi = lo
		}
		if c.Action == ActionAutoblinker {
			t.SetAutoblinker(c.Enabled, lo, hi)
		} else {
			t.SetIdleMode(c.Enabled, lo, hi)
		}
	case ActionHFlicker, ActionVFlicker:
		if c.Amplitude < 0 {
			return fmt.Errorf("%s: amplitude %d: %w", c.Action, c.Amplitude, ErrInvalidValue)
		}
		if c.Action == ActionHFlicker {
			t.SetHFlicker(c.Enabled, c.Amplitude)
		} else {
			t.SetVFlicker(c.Enabled, c.Amplitude)
		}
	case ActionSize:
		if c.Width <= 0 || c.Height <= 0 {
			return fmt.Errorf("%s: %dx%d: %w", c.Action, c.Width, c.Height, ErrInvalidValue)
		}
		t.SetSize(c.Width, c.Height)
	case ActionBorderRadius:
		l, r, err := parsePair(c.Value)
		if err != nil || l < 0 || r < 0 {
			return fmt.Errorf("%s %q: %w", c.Action, c.Value, ErrInvalidValue)
		}
		t.SetBorderRadius(l, r)
	case ActionSpaceBetween:
		n, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil {
			return fmt.Errorf("%s %q: %w", c.Action, c.Value, ErrInvalidValue)
		}
		t.SetSpaceBetween(n)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
	}
	return nil
}

// parsePair reads "n" as (n, n) or "a,b" as (a, b).
func parsePair(s string) (int, int, error) {
	a, b, found := strings.Cut(s, ",")
	l, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, err
	}
	if !found {
		return l, l, nil
	}
	r, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return 0, 0, err
	}
	return l, r, nil
}

// Duration is a time.Duration that reads from "1.5s" style strings or from
// integer milliseconds in JSON and YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		*d = Duration(time.Duration(x) * time.Millisecond)
	case string:
		pd, err := parseDuration(x)
		if err != nil {
			return err
		}
		*d = pd
	default:
		return fmt.Errorf("duration %s: %w", b, ErrInvalidValue)
	}
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	pd, err := parseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = pd
	return nil
}

// ParseDuration accepts Go duration strings or bare integer milliseconds.
func ParseDuration(s string) (time.Duration, error) {
	d, err := parseDuration(s)
	return d.Std(), err
}

func parseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Duration(time.Duration(n) * time.Millisecond), nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", s, ErrInvalidValue)
	}
	return Duration(v), nil
}
