package preview

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/roboeyes/internal/canvas"
	"github.com/normanking/roboeyes/internal/eyes"
	"github.com/normanking/roboeyes/internal/logging"
	"github.com/normanking/roboeyes/internal/player"
)

func newTestModel(t *testing.T) (Model, *player.Player) {
	t.Helper()
	now := time.Unix(1000, 0)
	p := player.New(eyes.New(128, 64, eyes.WithSeed(1)), player.WithClock(func() time.Time { return now }))
	return NewModel(p, logging.Nop()), p
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestRender_HalfBlocks(t *testing.T) {
	c := canvas.New(4, 3)
	c.SetPixel(0, 0, 255)
	c.SetPixel(0, 1, 255)
	c.SetPixel(1, 0, 200)
	c.SetPixel(2, 1, 128)
	c.SetPixel(3, 1, 127)
	c.SetPixel(1, 2, 255)

	lines := strings.Split(Render(c), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "█▀▄ ", lines[0])
	assert.Equal(t, " ▀  ", lines[1], "odd last row only has top halves")
}

func TestRender_EngineFrame(t *testing.T) {
	f := eyes.New(128, 64).DrawEyes(0)
	out := Render(f)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 32)
	assert.Equal(t, 128, len([]rune(lines[0])))
	assert.Contains(t, out, "█")
}

func TestUpdate_Tick(t *testing.T) {
	m, p := newTestModel(t)
	assert.NotNil(t, m.Init())

	next, cmd := m.Update(tickMsg(time.Now()))
	m = next.(Model)
	assert.NotNil(t, cmd, "tick reschedules itself")
	assert.Contains(t, m.screen, "█")
	assert.Equal(t, uint64(1), p.Stats().Frames)
	assert.Contains(t, m.View(), "frames 1")
}

func TestUpdate_Keys(t *testing.T) {
	m, p := newTestModel(t)

	m = press(t, m, runes("2"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m = press(t, m, runes("c"))
	m = press(t, m, runes("s"))

	p.Do(func(e *eyes.RoboEyes) {
		assert.Equal(t, eyes.MoodTired, e.Mood())
		assert.Equal(t, eyes.North, e.Position())
		assert.True(t, e.IsCyclops())
		assert.True(t, e.HasSweat())
	})
	assert.Equal(t, "sweat on", m.status)

	m = press(t, m, runes("c"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	p.Do(func(e *eyes.RoboEyes) {
		assert.False(t, e.IsCyclops())
		assert.Equal(t, eyes.Center, e.Position())
	})
}

func TestUpdate_SchedulerToggles(t *testing.T) {
	m, p := newTestModel(t)

	m = press(t, m, runes("a"))
	m = press(t, m, runes("w"))
	var st eyes.AnimationState
	p.Do(func(e *eyes.RoboEyes) { st = e.State() })
	assert.True(t, st.Autoblinker.Enabled)
	assert.Equal(t, time.Second, st.Autoblinker.Min)
	assert.True(t, st.Idle.Enabled)

	press(t, m, runes("a"))
	p.Do(func(e *eyes.RoboEyes) { st = e.State() })
	assert.False(t, st.Autoblinker.Enabled)
}

func TestUpdate_Blink(t *testing.T) {
	m, p := newTestModel(t)
	press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	p.Do(func(e *eyes.RoboEyes) {
		assert.Equal(t, eyes.LidClosing, e.LidState(eyes.LeftEye))
	})
}

func TestUpdate_HelpAndQuit(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, runes("?"))
	assert.Contains(t, m.View(), "curiosity")

	_, cmd := m.Update(runes("z"))
	assert.Nil(t, cmd)

	next, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.View())
}
