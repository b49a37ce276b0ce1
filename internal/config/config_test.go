package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/roboeyes/internal/eyes"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Canvas.Width != 128 || cfg.Canvas.Height != 64 {
		t.Errorf("expected 128x64 canvas, got %dx%d", cfg.Canvas.Width, cfg.Canvas.Height)
	}
	if cfg.Eyes.Width != 36 || cfg.Eyes.Height != 36 {
		t.Errorf("expected 36x36 eyes, got %dx%d", cfg.Eyes.Width, cfg.Eyes.Height)
	}
	if cfg.Eyes.BorderRadius != 8 {
		t.Errorf("expected border radius 8, got %d", cfg.Eyes.BorderRadius)
	}
	if cfg.Eyes.SpaceBetween != 10 {
		t.Errorf("expected space 10, got %d", cfg.Eyes.SpaceBetween)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", FileName)

	cfg := Default()
	cfg.Canvas.Width = 96
	cfg.Eyes.Mood = "happy"
	cfg.Animation.BlinkMax = 1500 * time.Millisecond
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	require.NoError(t, Save(cfg, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 96, got.Canvas.Width)
	assert.Equal(t, 64, got.Canvas.Height)
	assert.Equal(t, "happy", got.Eyes.Mood)
	assert.Equal(t, 1500*time.Millisecond, got.Animation.BlinkMax)
	assert.Equal(t, []string{"http://localhost:3000"}, got.Server.AllowedOrigins)
	assert.Equal(t, uint8(255), got.Eyes.Foreground)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("render:\n  fps: 12\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Render.FPS)
	assert.Equal(t, 4, cfg.Render.Scale)
	assert.Equal(t, 36, cfg.Eyes.Width)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(Default(), path))
	t.Setenv("ROBOEYES_RENDER_FPS", "60")
	t.Setenv("ROBOEYES_EYES_MOOD", "angry")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Render.FPS)
	assert.Equal(t, "angry", cfg.Eyes.Mood)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero canvas", func(c *Config) { c.Canvas.Width = 0 }},
		{"bad mood", func(c *Config) { c.Eyes.Mood = "sleepy" }},
		{"bad position", func(c *Config) { c.Eyes.Position = "up" }},
		{"blink bounds", func(c *Config) { c.Animation.BlinkMin = 5 * time.Second }},
		{"idle bounds", func(c *Config) { c.Animation.IdleMin = time.Hour }},
		{"fps", func(c *Config) { c.Render.FPS = 0 }},
		{"scale", func(c *Config) { c.Render.Scale = 0 }},
		{"log level", func(c *Config) { c.Log.Level = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestValidate_WrapsParseErrors(t *testing.T) {
	cfg := Default()
	cfg.Eyes.Mood = "sleepy"
	err := cfg.Validate()
	assert.True(t, errors.Is(err, eyes.ErrUnknownMood))
}

func TestFrameInterval(t *testing.T) {
	cfg := Default()
	cfg.Render.FPS = 50
	assert.Equal(t, 20*time.Millisecond, cfg.FrameInterval())
	cfg.Render.FPS = 0
	assert.Equal(t, time.Second/30, cfg.FrameInterval())
}

func TestNewEngine(t *testing.T) {
	cfg := Default()
	cfg.Canvas.Width = 64
	cfg.Canvas.Height = 32
	cfg.Eyes.Width = 20
	cfg.Eyes.Height = 20
	cfg.Eyes.Mood = "Tired"
	cfg.Eyes.Position = "ne"
	cfg.Eyes.Cyclops = true
	cfg.Animation.Seed = 1
	cfg.Animation.HFlicker = 2

	e, err := cfg.NewEngine()
	require.NoError(t, err)
	assert.Equal(t, 64, e.Config().CanvasWidth)
	assert.Equal(t, 20, e.Config().EyeWidth)
	assert.Equal(t, eyes.MoodTired, e.Mood())
	assert.Equal(t, eyes.NorthEast, e.Position())
	assert.True(t, e.IsCyclops())
	assert.True(t, e.State().HFlicker.Enabled)
	assert.True(t, e.State().Autoblinker.Enabled)

	cfg.Render.FPS = -1
	_, err = cfg.NewEngine()
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(Default(), path))

	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, path, l.File())

	var mu sync.Mutex
	var got *Config
	l.Watch(func(cfg *Config, ev fsnotify.Event, err error) {
		if err != nil {
			return
		}
		mu.Lock()
		got = cfg
		mu.Unlock()
	})

	updated := Default()
	updated.Render.FPS = 5
	require.NoError(t, Save(updated, path))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != nil && got.Render.FPS == 5
	}, 5*time.Second, 20*time.Millisecond)
}
