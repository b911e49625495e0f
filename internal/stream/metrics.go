package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xela07ax/netwatch-dashboard/internal/domain"
)

type Metrics struct {
	// Traffic: все кадры, пришедшие по сокету
	FramesReceived prometheus.Counter

	// Кадры с чужим type (клиент их молча пропускает)
	FramesIgnored prometheus.Counter

	// Errors: битый JSON или неполный payload
	ParseErrors prometheus.Counter

	// Сколько раз открывали сокет (включая первую попытку)
	ConnectAttempts prometheus.Counter

	// Текущая фаза соединения (1 у активной, 0 у остальных)
	ConnState *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		FramesReceived: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dashboard_frames_received_total",
			Help: "Total number of frames read from the analyzer socket.",
		}),

		FramesIgnored: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dashboard_frames_ignored_total",
			Help: "Total number of frames skipped due to an unknown type.",
		}),

		ParseErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dashboard_frame_parse_errors_total",
			Help: "Total number of malformed or incomplete frames dropped.",
		}),

		ConnectAttempts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dashboard_connect_attempts_total",
			Help: "Total number of dials to the analyzer endpoint.",
		}),

		ConnState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashboard_connection_state",
			Help: "Current connection state (1 for the active state, 0 otherwise).",
		}, []string{"state"}),
	}
}

var allStates = []domain.ConnectionState{
	domain.StateConnecting,
	domain.StateConnected,
	domain.StateDisconnected,
	domain.StateError,
}

// SetConnState выставляет gauge активной фазы в 1, остальных — в 0.
func (m *Metrics) SetConnState(active domain.ConnectionState) {
	for _, st := range allStates {
		v := 0.0
		if st == active {
			v = 1.0
		}
		m.ConnState.WithLabelValues(string(st)).Set(v)
	}
}
