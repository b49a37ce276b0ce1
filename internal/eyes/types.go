package eyes

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownMood     = errors.New("unknown mood")
	ErrUnknownPosition = errors.New("unknown position")
)

// Mood selects the eyelid overlay drawn over both eyes.
type Mood int

const (
	MoodDefault Mood = iota
	MoodTired
	MoodAngry
	MoodHappy
)

// Moods lists every mood in declaration order.
var Moods = []Mood{MoodDefault, MoodTired, MoodAngry, MoodHappy}

func (m Mood) String() string {
	switch m {
	case MoodDefault:
		return "default"
	case MoodTired:
		return "tired"
	case MoodAngry:
		return "angry"
	case MoodHappy:
		return "happy"
	default:
		return fmt.Sprintf("mood(%d)", int(m))
	}
}

// ParseMood accepts a mood name in any case.
func ParseMood(s string) (Mood, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "default", "neutral", "":
		return MoodDefault, nil
	case "tired":
		return MoodTired, nil
	case "angry":
		return MoodAngry, nil
	case "happy":
		return MoodHappy, nil
	}
	return MoodDefault, fmt.Errorf("%w: %q", ErrUnknownMood, s)
}

// Position is a gaze direction for the eye pair. Center is the zero value.
//
//	NW  N  NE
//	 W  C  E
//	SW  S  SE
type Position int

const (
	Center Position = iota
	North
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

// Directions are the eight non-center positions idle mode chooses from.
var Directions = [8]Position{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

// Positions lists all nine positions, Center first.
var Positions = []Position{Center, North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

var positionNames = map[Position][2]string{
	Center:    {"center", "c"},
	North:     {"north", "n"},
	NorthEast: {"northeast", "ne"},
	East:      {"east", "e"},
	SouthEast: {"southeast", "se"},
	South:     {"south", "s"},
	SouthWest: {"southwest", "sw"},
	West:      {"west", "w"},
	NorthWest: {"northwest", "nw"},
}

func (p Position) String() string {
	if n, ok := positionNames[p]; ok {
		return n[0]
	}
	return fmt.Sprintf("position(%d)", int(p))
}

// ParsePosition accepts full names ("northeast", "north_east", "north-east")
// and compass abbreviations ("ne").
func ParsePosition(s string) (Position, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	for p, names := range positionNames {
		if key == names[0] || key == names[1] {
			return p, nil
		}
	}
	return Center, fmt.Errorf("%w: %q", ErrUnknownPosition, s)
}

// column returns -1 for the west column, 0 for the middle and 1 for east.
func (p Position) column() int {
	switch p {
	case NorthWest, West, SouthWest:
		return -1
	case NorthEast, East, SouthEast:
		return 1
	}
	return 0
}

// row returns -1 for the north row, 0 for the middle and 1 for south.
func (p Position) row() int {
	switch p {
	case NorthWest, North, NorthEast:
		return -1
	case SouthWest, South, SouthEast:
		return 1
	}
	return 0
}

// Eye indexes the left or right eye.
type Eye int

const (
	LeftEye Eye = iota
	RightEye
)

func (e Eye) String() string {
	if e == RightEye {
		return "right"
	}
	return "left"
}

// LidState is the blink phase of a single eye.
type LidState int

const (
	LidOpen LidState = iota
	LidClosing
	LidClosed
	LidOpening
)

func (s LidState) String() string {
	switch s {
	case LidOpen:
		return "open"
	case LidClosing:
		return "closing"
	case LidClosed:
		return "closed"
	case LidOpening:
		return "opening"
	}
	return fmt.Sprintf("lid(%d)", int(s))
}
