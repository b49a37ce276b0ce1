// Package config loads roboeyes settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/normanking/roboeyes/internal/eyes"
)

// FileName is the config file looked up in the working directory and ~/.roboeyes.
const FileName = "roboeyes.yaml"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all application configuration
type Config struct {
	Canvas    CanvasConfig    `mapstructure:"canvas" yaml:"canvas"`
	Eyes      EyesConfig      `mapstructure:"eyes" yaml:"eyes"`
	Animation AnimationConfig `mapstructure:"animation" yaml:"animation"`
	Render    RenderConfig    `mapstructure:"render" yaml:"render"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// CanvasConfig is the size of the target display in pixels.
type CanvasConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// EyesConfig is the eye layout and the state the eyes start in.
type EyesConfig struct {
	Width        int    `mapstructure:"width" yaml:"width"`
	Height       int    `mapstructure:"height" yaml:"height"`
	BorderRadius int    `mapstructure:"border_radius" yaml:"border_radius"`
	SpaceBetween int    `mapstructure:"space_between" yaml:"space_between"`
	Foreground   uint8  `mapstructure:"foreground" yaml:"foreground"`
	Background   uint8  `mapstructure:"background" yaml:"background"`
	Mood         string `mapstructure:"mood" yaml:"mood"`
	Position     string `mapstructure:"position" yaml:"position"`
	Cyclops      bool   `mapstructure:"cyclops" yaml:"cyclops"`
	Curiosity    bool   `mapstructure:"curiosity" yaml:"curiosity"`
	Sweat        bool   `mapstructure:"sweat" yaml:"sweat"`
}

// AnimationConfig configures the automatic animations.
type AnimationConfig struct {
	Autoblink bool          `mapstructure:"autoblink" yaml:"autoblink"`
	BlinkMin  time.Duration `mapstructure:"blink_min" yaml:"blink_min"`
	BlinkMax  time.Duration `mapstructure:"blink_max" yaml:"blink_max"`
	Idle      bool          `mapstructure:"idle" yaml:"idle"`
	IdleMin   time.Duration `mapstructure:"idle_min" yaml:"idle_min"`
	IdleMax   time.Duration `mapstructure:"idle_max" yaml:"idle_max"`
	HFlicker  int           `mapstructure:"h_flicker" yaml:"h_flicker"` // amplitude, 0 disables
	VFlicker  int           `mapstructure:"v_flicker" yaml:"v_flicker"` // amplitude, 0 disables
	Seed      uint64        `mapstructure:"seed" yaml:"seed"`           // 0 picks a time-based seed
}

// RenderConfig configures frame pacing and image output.
type RenderConfig struct {
	FPS       int    `mapstructure:"fps" yaml:"fps"`
	Scale     int    `mapstructure:"scale" yaml:"scale"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// ServerConfig configures the websocket stream server.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" yaml:"addr"`
	MaxClients     int           `mapstructure:"max_clients" yaml:"max_clients"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Dir   string `mapstructure:"dir" yaml:"dir"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// Default returns the stock configuration: 128x64 canvas, 36x36 eyes.
func Default() *Config {
	return &Config{
		Canvas: CanvasConfig{Width: 128, Height: 64},
		Eyes: EyesConfig{
			Width:        eyes.DefaultEyeWidth,
			Height:       eyes.DefaultEyeHeight,
			BorderRadius: eyes.DefaultBorderRadius,
			SpaceBetween: eyes.DefaultSpaceBetween,
			Foreground:   255,
			Background:   0,
			Mood:         eyes.MoodDefault.String(),
			Position:     eyes.Center.String(),
		},
		Animation: AnimationConfig{
			Autoblink: true,
			BlinkMin:  time.Second,
			BlinkMax:  4 * time.Second,
			Idle:      false,
			IdleMin:   time.Second,
			IdleMax:   3 * time.Second,
		},
		Render: RenderConfig{
			FPS:       30,
			Scale:     4,
			OutputDir: "frames",
		},
		Server: ServerConfig{
			Addr:         ":8088",
			MaxClients:   16,
			WriteTimeout: 2 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Loader reads one config file and can watch it for changes.
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader prepares a loader for path. An empty path searches for FileName
// in the working directory and then ~/.roboeyes.
func NewLoader(path string) *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(expandPath(path))
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.AddConfigPath(".")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	// Example: ROBOEYES_RENDER_FPS=60
	v.SetEnvPrefix("ROBOEYES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, path: path}
}

// Load reads configuration from path (see NewLoader) merged with environment
// overrides. A missing file is not an error when searching; an explicit path
// that does not exist is.
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Load reads and decodes the configuration.
func (l *Loader) Load() (*Config, error) {
	if err := setDefaults(l.v, Default()); err != nil {
		return nil, err
	}
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return l.decode()
}

// File returns the config file in use, empty when running on defaults.
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

// Watch calls fn with the reloaded configuration every time the config file
// changes on disk. It must be called after a successful Load.
func (l *Loader) Watch(fn func(cfg *Config, ev fsnotify.Event, err error)) {
	l.v.OnConfigChange(func(ev fsnotify.Event) {
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		fn(cfg, ev, err)
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Config, error) {
	cfg := Default()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Render.OutputDir = expandPath(cfg.Render.OutputDir)
	cfg.Log.Dir = expandPath(cfg.Log.Dir)
	return cfg, nil
}

// setDefaults registers every key of cfg so environment overrides apply even
// when the file omits them.
func setDefaults(v *viper.Viper, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to decode defaults: %w", err)
	}
	for k, val := range m {
		v.SetDefault(k, val)
	}
	return nil
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(cfg *Config, path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Dir returns ~/.roboeyes.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".roboeyes"), nil
}

// Validate checks the configuration for values the engine cannot clamp.
func (c *Config) Validate() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas must be positive, got %dx%d: %w", c.Canvas.Width, c.Canvas.Height, ErrInvalid)
	}
	if _, err := eyes.ParseMood(c.Eyes.Mood); err != nil {
		return fmt.Errorf("eyes.mood: %w: %w", ErrInvalid, err)
	}
	if _, err := eyes.ParsePosition(c.Eyes.Position); err != nil {
		return fmt.Errorf("eyes.position: %w: %w", ErrInvalid, err)
	}
	if c.Animation.BlinkMin > c.Animation.BlinkMax {
		return fmt.Errorf("animation.blink_min %s exceeds blink_max %s: %w", c.Animation.BlinkMin, c.Animation.BlinkMax, ErrInvalid)
	}
	if c.Animation.IdleMin > c.Animation.IdleMax {
		return fmt.Errorf("animation.idle_min %s exceeds idle_max %s: %w", c.Animation.IdleMin, c.Animation.IdleMax, ErrInvalid)
	}
	if c.Render.FPS < 1 || c.Render.FPS > 240 {
		return fmt.Errorf("render.fps must be between 1 and 240, got %d: %w", c.Render.FPS, ErrInvalid)
	}
	if c.Render.Scale < 1 {
		return fmt.Errorf("render.scale must be at least 1, got %d: %w", c.Render.Scale, ErrInvalid)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error: %w", c.Log.Level, ErrInvalid)
	}
	return nil
}

// FrameInterval is the time between frames at Render.FPS.
func (c *Config) FrameInterval() time.Duration {
	if c.Render.FPS <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.Render.FPS)
}

// EngineConfig converts the layout settings to an eyes.Config.
func (c *Config) EngineConfig() eyes.Config {
	return eyes.Config{
		CanvasWidth:  c.Canvas.Width,
		CanvasHeight: c.Canvas.Height,
		EyeWidth:     c.Eyes.Width,
		EyeHeight:    c.Eyes.Height,
		BorderRadius: c.Eyes.BorderRadius,
		SpaceBetween: c.Eyes.SpaceBetween,
		Foreground:   c.Eyes.Foreground,
		Background:   c.Eyes.Background,
	}
}

// NewEngine builds an engine and puts it into the configured start state.
func (c *Config) NewEngine(opts ...eyes.Option) (*eyes.RoboEyes, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	seed := c.Animation.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	opts = append([]eyes.Option{eyes.WithConfig(c.EngineConfig()), eyes.WithSeed(seed)}, opts...)
	e := eyes.New(c.Canvas.Width, c.Canvas.Height, opts...)
	c.ApplyState(e)
	return e, nil
}

// ApplyState sets the start state and animation toggles on e. Invalid mood
// or position names leave the current value.
func (c *Config) ApplyState(e *eyes.RoboEyes) {
	if m, err := eyes.ParseMood(c.Eyes.Mood); err == nil {
		e.SetMood(m)
	}
	if p, err := eyes.ParsePosition(c.Eyes.Position); err == nil {
		e.SetPosition(p)
	}
	e.SetCyclops(c.Eyes.Cyclops)
	e.SetCuriosity(c.Eyes.Curiosity)
	e.SetSweat(c.Eyes.Sweat)

	a := c.Animation
	e.SetAutoblinker(a.Autoblink, a.BlinkMin, a.BlinkMax)
	e.SetIdleMode(a.Idle, a.IdleMin, a.IdleMax)
	e.SetHFlicker(a.HFlicker > 0, a.HFlicker)
	e.SetVFlicker(a.VFlicker > 0, a.VFlicker)
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
