package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/normanking/roboeyes/internal/player"
)

type metrics struct {
	Clients      prometheus.Gauge
	FramesSent   prometheus.Counter
	SendErrors   prometheus.Counter
	Commands     *prometheus.CounterVec
	RequestCount *prometheus.CounterVec
}

// newMetrics registers the stream metrics on reg. Each server owns its own
// registry so several can live in one process.
func newMetrics(reg *prometheus.Registry, p *player.Player) *metrics {
	f := promauto.With(reg)
	m := &metrics{
		Clients: f.NewGauge(prometheus.GaugeOpts{
			Name: "roboeyes_stream_clients",
			Help: "Number of connected websocket clients",
		}),
		FramesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "roboeyes_stream_frames_sent_total",
			Help: "Total number of frames written to websocket clients",
		}),
		SendErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "roboeyes_stream_send_errors_total",
			Help: "Total number of failed websocket writes",
		}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roboeyes_commands_total",
			Help: "Total number of commands received",
		}, []string{"action", "status"}),
		RequestCount: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roboeyes_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),
	}

	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "roboeyes_player_frames_total",
		Help: "Total number of frames rendered by the player",
	}, func() float64 { return float64(p.Stats().Frames) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "roboeyes_player_frames_dropped_total",
		Help: "Total number of frames dropped for lagging subscribers",
	}, func() float64 { return float64(p.Stats().Dropped) })

	reg.MustRegister(collectors.NewGoCollector())
	return m
}
