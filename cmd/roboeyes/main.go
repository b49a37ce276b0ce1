// Package main provides the CLI entry point for roboeyes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/normanking/roboeyes/internal/bus"
	"github.com/normanking/roboeyes/internal/canvas"
	"github.com/normanking/roboeyes/internal/command"
	"github.com/normanking/roboeyes/internal/config"
	"github.com/normanking/roboeyes/internal/eyes"
	"github.com/normanking/roboeyes/internal/export"
	"github.com/normanking/roboeyes/internal/logging"
	"github.com/normanking/roboeyes/internal/player"
	"github.com/normanking/roboeyes/internal/preview"
	"github.com/normanking/roboeyes/internal/scenario"
	"github.com/normanking/roboeyes/internal/stream"
)

var (
	// Version information (set at build time)
	version = "dev"

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// app holds what every subcommand needs after flags are parsed.
type app struct {
	flags  *viper.Viper
	loader *config.Loader
	cfg    *config.Config
	log    *logging.Logger
}

// setup loads configuration and opens the logger. console=false keeps log
// lines off the terminal, for the preview.
func (a *app) setup(console bool) error {
	a.loader = config.NewLoader(a.flags.GetString("config"))
	cfg, err := a.loader.Load()
	if err != nil {
		return err
	}
	if lvl := a.flags.GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	a.cfg = cfg

	log, err := logging.New(&logging.Config{
		Dir:     cfg.Log.Dir,
		Level:   logging.LogLevel(cfg.Log.Level),
		Console: console,
		JSON:    cfg.Log.JSON,
		Out:     os.Stderr,
	})
	if err != nil {
		return err
	}
	a.log = log
	if f := a.loader.File(); f != "" {
		log.Debug("config", "loaded", map[string]interface{}{"file": f})
	}
	return nil
}

func (a *app) close() {
	if a.log != nil {
		a.log.Close()
	}
}

func main() {
	a := &app{flags: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "roboeyes",
		Short: "roboeyes - animated robot eyes for small displays",
		Long: titleStyle.Render("roboeyes") + `

Animated robot eyes rendered to a grayscale frame buffer:
• Render single frames and animations to PNG and GIF
• Play scripted scenarios
• Stream live frames over websockets
• Preview and drive the eyes from the terminal

` + dimStyle.Render("Use 'roboeyes [command] --help' for more information."),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	rootCmd.PersistentFlags().String("config", "", "config file (default ./roboeyes.yaml or ~/.roboeyes/roboeyes.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	a.flags.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	a.flags.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(renderCmd(a))
	rootCmd.AddCommand(scenarioCmd(a))
	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(previewCmd(a))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// render command - draw the frame at one timestamp
func renderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a single frame to PNG",
		Long: `Render the eyes at a timestamp after applying commands at time zero.

Example:
  roboeyes render --cmd "mood happy" --cmd "position ne" --at 500ms --out happy.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			at, _ := cmd.Flags().GetDuration("at")
			lines, _ := cmd.Flags().GetStringArray("cmd")
			out, _ := cmd.Flags().GetString("out")
			scale, _ := cmd.Flags().GetInt("scale")
			gif, _ := cmd.Flags().GetString("gif")
			if scale <= 0 {
				scale = a.cfg.Render.Scale
			}

			cmds, err := command.ParseAll(lines)
			if err != nil {
				return err
			}
			e, err := a.cfg.NewEngine(eyes.WithLogger(a.log.Component("eyes")))
			if err != nil {
				return err
			}
			for _, c := range cmds {
				if err := c.Apply(e); err != nil {
					return fmt.Errorf("%s: %w", c, err)
				}
			}

			// Easing is per frame, so step up to the timestamp at the frame rate.
			step := a.cfg.FrameInterval()
			var frames []*canvas.Frame
			var last *canvas.Frame
			for ts := time.Duration(0); ; ts += step {
				if ts > at {
					ts = at
				}
				last = e.DrawEyes(ts)
				if gif != "" {
					frames = append(frames, last)
				}
				if ts == at {
					break
				}
			}

			if err := export.SavePNG(out, last, scale); err != nil {
				return err
			}
			fmt.Println(successStyle.Render("✓ Rendered " + out))
			if gif != "" {
				if err := export.SaveGIF(gif, frames, step, scale); err != nil {
					return err
				}
				fmt.Println(successStyle.Render(fmt.Sprintf("✓ Wrote %s (%d frames)", gif, len(frames))))
			}
			return nil
		},
	}
	cmd.Flags().Duration("at", 0, "timestamp to render")
	cmd.Flags().StringArray("cmd", nil, "command applied at time zero (repeatable)")
	cmd.Flags().StringP("out", "o", "roboeyes.png", "output PNG path")
	cmd.Flags().Int("scale", 0, "upscale factor (default from config)")
	cmd.Flags().String("gif", "", "also write every frame up to --at as a GIF")
	return cmd
}

// scenario command - play a timeline file or the built-in showcase
func scenarioCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "Play a scenario and save its captures",
		Long:  "Play a YAML scenario, or the built-in showcase when no file is given, and save the captured frames.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			scale, _ := cmd.Flags().GetInt("scale")
			gif, _ := cmd.Flags().GetString("gif")
			if out == "" {
				out = a.cfg.Render.OutputDir
			}
			if scale <= 0 {
				scale = a.cfg.Render.Scale
			}

			s := scenario.Showcase()
			if len(args) == 1 {
				var err error
				if s, err = scenario.Load(args[0]); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := scenario.Run(ctx, s, scenario.Options{
				OutputDir:     out,
				Scale:         scale,
				GIF:           gif,
				EngineOptions: []eyes.Option{eyes.WithConfig(a.cfg.EngineConfig())},
				Logger:        a.log.Component("scenario"),
			})
			if err != nil {
				return err
			}

			fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s: %d frames, %d files", s.Name, res.Frames, len(res.Captures))))
			for _, p := range res.Captures {
				fmt.Println(dimStyle.Render("  " + p))
			}
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "output directory (default from config)")
	cmd.Flags().Int("scale", 0, "upscale factor (default from config)")
	cmd.Flags().String("gif", "", "animated GIF name inside the output directory")
	return cmd
}

// serve command - run the player and stream frames
func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream live frames over websockets",
		Long:  "Run the eyes in real time and stream frames to websocket clients. The config file is watched and reloaded on change.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				a.cfg.Server.Addr = addr
			}
			cfg := a.cfg

			events := bus.NewEventBus()
			events.SubscribeMultiple([]bus.EventType{
				bus.EventTypeCommandApplied,
				bus.EventTypeCommandFailed,
				bus.EventTypeMoodChanged,
				bus.EventTypePositionChanged,
				bus.EventTypeLidChanged,
				bus.EventTypeFrameDropped,
				bus.EventTypeClientConnected,
				bus.EventTypeClientDisconnected,
				bus.EventTypeConfigReloaded,
			}, func(ev bus.Event) {
				a.log.Debug("bus", string(ev.Type), ev.Data)
			})

			e, err := cfg.NewEngine(eyes.WithLogger(a.log.Component("eyes")))
			if err != nil {
				return err
			}
			p := player.New(e,
				player.WithFPS(cfg.Render.FPS),
				player.WithBus(events),
				player.WithLogger(a.log.Component("player")),
			)
			srv := stream.New(p, stream.Config{
				Addr:           cfg.Server.Addr,
				MaxClients:     cfg.Server.MaxClients,
				WriteTimeout:   cfg.Server.WriteTimeout,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				PNGScale:       cfg.Render.Scale,
			}, stream.WithBus(events), stream.WithLogger(a.log.Component("stream")))

			if a.loader.File() != "" {
				a.loader.Watch(func(next *config.Config, ev fsnotify.Event, err error) {
					if err == nil {
						err = next.Validate()
					}
					if err != nil {
						a.log.Error("config", "reload failed", err, map[string]interface{}{"file": ev.Name})
						return
					}
					p.Reload(next)
				})
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			playerErr := make(chan error, 1)
			go func() { playerErr <- p.Run(ctx) }()

			fmt.Println(titleStyle.Render("roboeyes") + dimStyle.Render(" streaming on "+cfg.Server.Addr+"/ws"))
			err = srv.ListenAndServe(ctx)
			stop()
			if perr := <-playerErr; err == nil {
				err = perr
			}
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			return err
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from config)")
	return cmd
}

// preview command - interactive terminal preview
func previewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Preview the eyes in the terminal",
		Long:  "Show the eyes live in the terminal and drive them with the keyboard. Press ? for key bindings.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(false); err != nil {
				return err
			}
			e, err := a.cfg.NewEngine(eyes.WithLogger(a.log.Component("eyes")))
			if err != nil {
				return err
			}
			p := player.New(e, player.WithFPS(a.cfg.Render.FPS), player.WithLogger(a.log.Component("player")))

			prog := tea.NewProgram(preview.NewModel(p, a.log), tea.WithAltScreen())
			_, err = prog.Run()
			if err == nil && a.log.Path() != "" {
				fmt.Println(dimStyle.Render("Log: " + filepath.Clean(a.log.Path())))
			}
			return err
		},
	}
}
