package internal

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服務指標
//
// 使用獨立的 prometheus.Registry 而非全域 DefaultRegisterer，
// 測試中可以建立多個 Service 而不會重複註冊。
type Metrics struct {
	Sessions     prometheus.Gauge
	Rooms        prometheus.Gauge
	Connections  prometheus.Gauge
	Events       *prometheus.CounterVec
	Matches      prometheus.Counter
	Rejections   prometheus.Counter
	DroppedSends prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics 創建並註冊指標
func NewMetrics() *Metrics {
	m := &Metrics{
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chess_relay_sessions",
			Help: "Current number of registered sessions",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chess_relay_rooms",
			Help: "Current number of open rooms",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chess_relay_ws_connections",
			Help: "Current number of open websocket connections",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chess_relay_events_total",
			Help: "Inbound events processed, by event name and outcome",
		}, []string{"event", "outcome"}),
		Matches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chess_relay_matches_total",
			Help: "Number of matches started",
		}),
		Rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chess_relay_room_full_total",
			Help: "Join attempts rejected because the room was full",
		}),
		DroppedSends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chess_relay_dropped_sends_total",
			Help: "Outbound frames dropped because the receiver was gone or its buffer was full",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.Sessions,
		m.Rooms,
		m.Connections,
		m.Events,
		m.Matches,
		m.Rejections,
		m.DroppedSends,
		collectors.NewGoCollector(),
	)

	return m
}

// Handler Prometheus 拉取端點
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observe 記錄事件處理結果
func (m *Metrics) observe(event string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	m.Events.WithLabelValues(event, outcome).Inc()
}
