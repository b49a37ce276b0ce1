package command

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads the one-line text form used on the command line:
//
//	mood happy
//	position ne
//	blink_eyes left
//	autoblinker on 1s 3s
//	h_flicker on 2
//	size 30 40
//	border_radius 4 8
//
// The returned command is checked for an unknown action only; value errors
// surface from Apply.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command: %w", ErrUnknownAction)
	}
	c := Command{Action: Action(fields[0])}.normalized()
	args := fields[1:]

	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	switch c.Action {
	case ActionMood, ActionPosition, ActionSpaceBetween:
		c.Value = arg(0)
	case ActionOpen, ActionClose, ActionBlink, ActionConfused, ActionLaugh:
	case ActionBlinkEyes, ActionOpenEyes, ActionCloseEyes:
		switch strings.ToLower(arg(0)) {
		case "left", "l":
			c.Left = true
		case "right", "r":
			c.Right = true
		case "", "both":
			c.Left, c.Right = true, true
		default:
			return c, fmt.Errorf("%s: eye %q: %w", c.Action, arg(0), ErrInvalidValue)
		}
	case ActionSweat, ActionCyclops, ActionCuriosity:
		on, err := parseSwitch(arg(0), true)
		if err != nil {
			return c, fmt.Errorf("%s: %w", c.Action, err)
		}
		c.Enabled = on
	case ActionAutoblinker, ActionIdle:
		on, err := parseSwitch(arg(0), true)
		if err != nil {
			return c, fmt.Errorf("%s: %w", c.Action, err)
		}
		c.Enabled = on
		if s := arg(1); s != "" {
			if c.Min, err = parseDuration(s); err != nil {
				return c, fmt.Errorf("%s: %w", c.Action, err)
			}
		}
		if s := arg(2); s != "" {
			if c.Max, err = parseDuration(s); err != nil {
				return c, fmt.Errorf("%s: %w", c.Action, err)
			}
		}
	case ActionHFlicker, ActionVFlicker:
		on, err := parseSwitch(arg(0), true)
		if err != nil {
			return c, fmt.Errorf("%s: %w", c.Action, err)
		}
		c.Enabled = on
		if s := arg(1); s != "" {
			if c.Amplitude, err = strconv.Atoi(s); err != nil {
				return c, fmt.Errorf("%s amplitude %q: %w", c.Action, s, ErrInvalidValue)
			}
		}
	case ActionSize:
		w, errW := strconv.Atoi(arg(0))
		h, errH := strconv.Atoi(arg(1))
		if errW != nil || errH != nil {
			return c, fmt.Errorf("%s %q: %w", c.Action, strings.Join(args, " "), ErrInvalidValue)
		}
		c.Width, c.Height = w, h
	case ActionBorderRadius:
		c.Value = strings.Join(args, ",")
	default:
		return c, fmt.Errorf("%w: %q", ErrUnknownAction, fields[0])
	}
	return c, nil
}

// ParseAll parses each line, skipping blanks and # comments.
func ParseAll(lines []string) ([]Command, error) {
	var out []Command
	for i, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		c, err := Parse(l)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i+1, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseSwitch(s string, def bool) (bool, error) {
	switch strings.ToLower(s) {
	case "":
		return def, nil
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("switch %q: %w", s, ErrInvalidValue)
}
