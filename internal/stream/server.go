// Package stream serves live eye frames over websocket and accepts control
// commands from connected clients.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/normanking/roboeyes/internal/bus"
	"github.com/normanking/roboeyes/internal/command"
	"github.com/normanking/roboeyes/internal/export"
	"github.com/normanking/roboeyes/internal/player"
)

// Config configures a Server.
type Config struct {
	Addr           string
	MaxClients     int
	WriteTimeout   time.Duration
	AllowedOrigins []string
	// PNGScale is the default upscale factor for /frame.png.
	PNGScale int
}

// Message is a JSON text message sent to clients.
type Message struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Action string `json:"action,omitempty"`
	Error  string `json:"error,omitempty"`
}

const (
	MessageHello = "hello"
	MessageAck   = "ack"
	MessageError = "error"
)

type client struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) write(kind int, data []byte, timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return c.conn.WriteMessage(kind, data)
}

func (c *client) writeJSON(m Message, timeout time.Duration) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data, timeout)
}

// Server streams frames from a player.
type Server struct {
	player   *player.Player
	cfg      Config
	upgrader websocket.Upgrader
	conns    map[string]*client
	connMux  sync.RWMutex
	reg      *prometheus.Registry
	metrics  *metrics
	bus      *bus.EventBus
	log      zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func WithBus(b *bus.EventBus) Option {
	return func(s *Server) { s.bus = b }
}

// New creates a server for p.
func New(p *player.Player, cfg Config, opts ...Option) *Server {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = 16
	}
	if cfg.PNGScale <= 0 {
		cfg.PNGScale = 4
	}
	s := &Server{
		player: p,
		cfg:    cfg,
		conns:  make(map[string]*client),
		reg:    prometheus.NewRegistry(),
		log:    zerolog.Nop(),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(s.reg, p)
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.connMux.RLock()
	defer s.connMux.RUnlock()
	return len(s.conns)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.wsHandler)
	mux.HandleFunc("/frame.png", s.frameHandler)
	mux.HandleFunc("/command", s.commandHandler)
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		s.closeAll()
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("stream server listening")
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("stream server: %w", err)
	}
	return nil
}

func (s *Server) closeAll() {
	s.connMux.Lock()
	defer s.connMux.Unlock()
	for _, c := range s.conns {
		_ = c.conn.Close()
	}
}

func (s *Server) wsHandler(rw http.ResponseWriter, r *http.Request) {
	if s.Clients() >= s.cfg.MaxClients {
		s.metrics.RequestCount.WithLabelValues("/ws", "503").Inc()
		http.Error(rw, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		s.metrics.RequestCount.WithLabelValues("/ws", "400").Inc()
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.metrics.RequestCount.WithLabelValues("/ws", "101").Inc()

	c := &client{id: uuid.NewString(), conn: conn}
	s.connMux.Lock()
	s.conns[c.id] = c
	s.connMux.Unlock()
	s.metrics.Clients.Inc()
	s.log.Info().Str("client", c.id).Str("remote", r.RemoteAddr).Msg("client connected")
	s.bus.Publish(bus.Event{Type: bus.EventTypeClientConnected, Data: map[string]any{"id": c.id}})

	img, _ := s.player.Latest()
	frames, unsubscribe := s.player.Subscribe(2)
	done := make(chan struct{})

	defer func() {
		close(done)
		unsubscribe()
		s.connMux.Lock()
		delete(s.conns, c.id)
		s.connMux.Unlock()
		conn.Close()
		s.metrics.Clients.Dec()
		s.log.Info().Str("client", c.id).Msg("client disconnected")
		s.bus.Publish(bus.Event{Type: bus.EventTypeClientDisconnected, Data: map[string]any{"id": c.id}})
	}()

	if err := c.writeJSON(Message{Type: MessageHello, ID: c.id, Width: img.Width(), Height: img.Height()}, s.cfg.WriteTimeout); err != nil {
		return
	}
	if err := c.write(websocket.BinaryMessage, export.MarshalRaw(img), s.cfg.WriteTimeout); err != nil {
		return
	}

	go s.writeLoop(c, frames, done)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Str("client", c.id).Msg("websocket read error")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		reply := s.handleCommand(data)
		if err := c.writeJSON(reply, s.cfg.WriteTimeout); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *client, frames <-chan player.Frame, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case f := <-frames:
			if err := c.write(websocket.BinaryMessage, export.MarshalRaw(f.Image), s.cfg.WriteTimeout); err != nil {
				s.metrics.SendErrors.Inc()
				s.log.Debug().Err(err).Str("client", c.id).Msg("frame write failed")
				_ = c.conn.Close()
				return
			}
			s.metrics.FramesSent.Inc()
		}
	}
}

// handleCommand decodes and applies one JSON command.
func (s *Server) handleCommand(data []byte) Message {
	var cmd command.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		s.metrics.Commands.WithLabelValues("invalid", "error").Inc()
		return Message{Type: MessageError, Error: fmt.Sprintf("invalid command: %v", err)}
	}
	action := string(cmd.Action)
	if err := s.player.Apply(cmd); err != nil {
		label := action
		if errors.Is(err, command.ErrUnknownAction) {
			label = "unknown"
		}
		s.metrics.Commands.WithLabelValues(label, "error").Inc()
		return Message{Type: MessageError, Action: action, Error: err.Error()}
	}
	s.metrics.Commands.WithLabelValues(action, "ok").Inc()
	return Message{Type: MessageAck, Action: action}
}

func (s *Server) frameHandler(rw http.ResponseWriter, r *http.Request) {
	scale := s.cfg.PNGScale
	if v := r.URL.Query().Get("scale"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 32 {
			s.metrics.RequestCount.WithLabelValues("/frame.png", "400").Inc()
			http.Error(rw, "scale must be between 1 and 32", http.StatusBadRequest)
			return
		}
		scale = n
	}

	img, ts := s.player.Latest()
	rw.Header().Set("Content-Type", "image/png")
	rw.Header().Set("Cache-Control", "no-store")
	rw.Header().Set("X-Frame-Timestamp", ts.String())
	if err := export.WritePNG(rw, img, scale); err != nil {
		s.log.Error().Err(err).Msg("failed to write frame")
		s.metrics.RequestCount.WithLabelValues("/frame.png", "500").Inc()
		return
	}
	s.metrics.RequestCount.WithLabelValues("/frame.png", "200").Inc()
}

func (s *Server) commandHandler(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.metrics.RequestCount.WithLabelValues("/command", "405").Inc()
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := readBody(rw, r)
	if err != nil {
		s.metrics.RequestCount.WithLabelValues("/command", "400").Inc()
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	reply := s.handleCommand(data)
	status := http.StatusOK
	if reply.Type == MessageError {
		status = http.StatusBadRequest
	}
	s.metrics.RequestCount.WithLabelValues("/command", strconv.Itoa(status)).Inc()
	writeJSON(rw, status, reply)
}

func (s *Server) healthHandler(rw http.ResponseWriter, r *http.Request) {
	st := s.player.Stats()
	s.metrics.RequestCount.WithLabelValues("/healthz", "200").Inc()
	writeJSON(rw, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.Clients(),
		"frames":  st.Frames,
		"dropped": st.Dropped,
	})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func readBody(rw http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, 4096))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return data, nil
}
