// Package preview shows the eyes live in the terminal and maps keys to
// commands, like a small desk display with a keyboard attached.
package preview

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/normanking/roboeyes/internal/canvas"
	"github.com/normanking/roboeyes/internal/command"
	"github.com/normanking/roboeyes/internal/eyes"
	"github.com/normanking/roboeyes/internal/logging"
	"github.com/normanking/roboeyes/internal/player"
)

// Threshold is the gray level at or above which a pixel is drawn lit.
const Threshold uint8 = 128

// Render draws c with half-block glyphs, two pixel rows per text line.
func Render(c canvas.Canvas) string {
	var b strings.Builder
	w, h := c.Width(), c.Height()
	for y := 0; y < h; y += 2 {
		for x := 0; x < w; x++ {
			top := c.Pixel(x, y) >= Threshold
			bottom := y+1 < h && c.Pixel(x, y+1) >= Threshold
			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteByte(' ')
			}
		}
		if y+2 < h {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

type tickMsg time.Time

// Model is the bubbletea model for the preview.
type Model struct {
	player   *player.Player
	log      *logging.Logger
	screen   string
	status   string
	err      error
	showHelp bool
	quitting bool
}

// NewModel creates a preview driving p. log may be nil.
func NewModel(p *player.Player, log *logging.Logger) Model {
	return Model{player: p, log: log, status: "ready"}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.player.Interval(), func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		f := m.player.Tick()
		m.screen = Render(f.Image)
		return m, m.tick()

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		}

		cmd, ok := m.commandFor(key)
		if !ok {
			return m, nil
		}
		if err := m.player.Apply(cmd); err != nil {
			m.err = err
			if m.log != nil {
				m.log.Error("preview", "command failed", err, map[string]interface{}{"key": key})
			}
			return m, nil
		}
		m.err = nil
		m.status = cmd.String()
		if m.log != nil {
			m.log.Info("preview", "command", map[string]interface{}{"key": key, "command": cmd.String()})
		}
	}
	return m, nil
}

// commandFor maps a key to a command. Toggles read the current engine state.
func (m Model) commandFor(key string) (command.Command, bool) {
	switch key {
	case "1", "2", "3", "4":
		mood := eyes.Moods[int(key[0]-'1')]
		return command.Command{Action: command.ActionMood, Value: mood.String()}, true
	case " ", "space":
		return command.Command{Action: command.ActionBlink}, true
	case "up", "k":
		return position(eyes.North), true
	case "down", "j":
		return position(eyes.South), true
	case "left", "h":
		return position(eyes.West), true
	case "right", "l":
		return position(eyes.East), true
	case "y":
		return position(eyes.NorthWest), true
	case "u":
		return position(eyes.NorthEast), true
	case "b":
		return position(eyes.SouthWest), true
	case "n":
		return position(eyes.SouthEast), true
	case "enter", "0":
		return position(eyes.Center), true
	case "f":
		return command.Command{Action: command.ActionConfused}, true
	case "g":
		return command.Command{Action: command.ActionLaugh}, true
	case "o":
		return command.Command{Action: command.ActionOpen}, true
	case "x":
		return command.Command{Action: command.ActionClose}, true
	}

	var st eyes.AnimationState
	m.player.Do(func(e *eyes.RoboEyes) { st = e.State() })

	switch key {
	case "c", "C":
		return toggle(command.ActionCyclops, !st.Cyclops), true
	case "s", "S":
		return toggle(command.ActionSweat, !st.Sweat), true
	case "i":
		return toggle(command.ActionCuriosity, !st.Curious), true
	case "a":
		ab := st.Autoblinker
		lo, hi := ab.Min, ab.Max
		if hi == 0 {
			lo, hi = time.Second, 4*time.Second
		}
		return command.Command{
			Action:  command.ActionAutoblinker,
			Enabled: !ab.Enabled,
			Min:     command.Duration(lo),
			Max:     command.Duration(hi),
		}, true
	case "w":
		idle := st.Idle
		lo, hi := idle.Min, idle.Max
		if hi == 0 {
			lo, hi = time.Second, 3*time.Second
		}
		return command.Command{
			Action:  command.ActionIdle,
			Enabled: !idle.Enabled,
			Min:     command.Duration(lo),
			Max:     command.Duration(hi),
		}, true
	}
	return command.Command{}, false
}

func position(p eyes.Position) command.Command {
	return command.Command{Action: command.ActionPosition, Value: p.String()}
}

func toggle(a command.Action, on bool) command.Command {
	return command.Command{Action: a, Enabled: on}
}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("roboeyes"))
	b.WriteString("\n")
	screen := m.screen
	if screen == "" {
		screen = "starting..."
	}
	b.WriteString(screenStyle.Render(screen))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
	} else {
		st := m.player.Stats()
		b.WriteString(statusStyle.Render(fmt.Sprintf("%s  ·  frames %d", m.status, st.Frames)))
	}
	b.WriteString("\n")

	if m.log != nil {
		for _, e := range m.log.History(3) {
			b.WriteString(logStyle.Render(fmt.Sprintf("%s %s: %s", e.Timestamp, e.Component, e.Message)))
			b.WriteString("\n")
		}
	}

	if m.showHelp {
		b.WriteString(helpStyle.Render(helpText))
	} else {
		b.WriteString(helpStyle.Render("1-4 mood · space blink · arrows look · c cyclops · s sweat · ? help · q quit"))
	}
	return b.String()
}

const helpText = `1 default  2 tired  3 angry  4 happy
space blink   o open   x close
arrows/hjkl look   y u b n diagonals   0/enter center
f confused   g laugh   c cyclops   s sweat   i curiosity
a autoblinker   w idle   ? help   q quit`
