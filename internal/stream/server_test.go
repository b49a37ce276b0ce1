package stream

import (
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/roboeyes/internal/eyes"
	"github.com/normanking/roboeyes/internal/export"
	"github.com/normanking/roboeyes/internal/player"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *player.Player, *httptest.Server) {
	t.Helper()
	p := player.New(eyes.New(128, 64, eyes.WithSeed(1)))
	s := New(p, cfg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, p, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads until a message of the wanted kind arrives.
func next(t *testing.T, conn *websocket.Conn, kind int) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		k, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if k == kind {
			return data
		}
	}
}

func TestWebsocket_HelloAndFrames(t *testing.T) {
	s, p, ts := newTestServer(t, Config{})
	conn := dial(t, ts)

	var hello Message
	require.NoError(t, json.Unmarshal(next(t, conn, websocket.TextMessage), &hello))
	assert.Equal(t, MessageHello, hello.Type)
	assert.NotEmpty(t, hello.ID)
	assert.Equal(t, 128, hello.Width)
	assert.Equal(t, 64, hello.Height)

	first, err := export.UnmarshalRaw(next(t, conn, websocket.BinaryMessage))
	require.NoError(t, err)
	assert.Equal(t, 128, first.Width())

	require.Eventually(t, func() bool { return s.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return p.Stats().Subscribers == 1 }, 2*time.Second, 10*time.Millisecond)
	f := p.Frame(time.Second)
	got, err := export.UnmarshalRaw(next(t, conn, websocket.BinaryMessage))
	require.NoError(t, err)
	assert.Equal(t, f.Image.Bytes(), got.Bytes())
}

func TestWebsocket_Commands(t *testing.T) {
	_, p, ts := newTestServer(t, Config{})
	conn := dial(t, ts)
	next(t, conn, websocket.TextMessage)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"mood","value":"angry"}`)))
	var ack Message
	require.NoError(t, json.Unmarshal(next(t, conn, websocket.TextMessage), &ack))
	assert.Equal(t, MessageAck, ack.Type)
	assert.Equal(t, "mood", ack.Action)
	p.Do(func(e *eyes.RoboEyes) { assert.Equal(t, eyes.MoodAngry, e.Mood()) })

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"dance"}`)))
	var nack Message
	require.NoError(t, json.Unmarshal(next(t, conn, websocket.TextMessage), &nack))
	assert.Equal(t, MessageError, nack.Type)
	assert.Contains(t, nack.Error, "unknown action")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, json.Unmarshal(next(t, conn, websocket.TextMessage), &nack))
	assert.Equal(t, MessageError, nack.Type)
}

func TestWebsocket_MaxClients(t *testing.T) {
	_, _, ts := newTestServer(t, Config{MaxClients: 1})
	conn := dial(t, ts)
	next(t, conn, websocket.TextMessage)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCheckOrigin(t *testing.T) {
	s := New(player.New(eyes.New(32, 16)), Config{AllowedOrigins: []string{"http://ok.example"}})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, s.checkOrigin(req), "no origin header")
	req.Header.Set("Origin", "http://ok.example")
	assert.True(t, s.checkOrigin(req))
	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, s.checkOrigin(req))
}

func TestFramePNG(t *testing.T) {
	_, p, ts := newTestServer(t, Config{PNGScale: 2})
	p.Frame(0)

	resp, err := http.Get(ts.URL + "/frame.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())

	resp2, err := http.Get(ts.URL + "/frame.png?scale=99")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestCommandEndpoint(t *testing.T) {
	_, p, ts := newTestServer(t, Config{})

	resp, err := http.Post(ts.URL+"/command", "application/json", strings.NewReader(`{"action":"cyclops","enabled":true}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	p.Do(func(e *eyes.RoboEyes) { assert.True(t, e.IsCyclops()) })

	resp, err = http.Post(ts.URL+"/command", "application/json", strings.NewReader(`{"action":"size"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/command")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	_, p, ts := newTestServer(t, Config{})
	p.Frame(0)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, float64(1), health["frames"])

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "roboeyes_player_frames_total 1")
	assert.Contains(t, string(body), "roboeyes_stream_clients 0")
}

func TestServe_StopsOnCancel(t *testing.T) {
	s := New(player.New(eyes.New(32, 16)), Config{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
