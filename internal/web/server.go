package web

import (
	_ "embed"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xela07ax/netwatch-dashboard/internal/stream"
)

//go:embed static/index.html
var indexHTML []byte

// Server — операторская поверхность дашборда: встроенная страница,
// снимок состояния по HTTP и push-канал по websocket.
type Server struct {
	router *chi.Mux
	logger *zap.Logger

	state *stream.TelemetryState
	hub   *Hub

	upgrader websocket.Upgrader
}

func NewServer(
	logger *zap.Logger,
	state *stream.TelemetryState,
	hub *Hub,
	reg *prometheus.Registry,
) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger.Named("web"),
		state:  state,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // локальный операторский дашборд, ограничение origin не нужно
			},
		},
	}

	s.routes(reg)
	return s
}

func (s *Server) routes(reg *prometheus.Registry) {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/v1/snapshot", s.handleSnapshot)
	r.Get("/ws", s.handleWS)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.state.Snapshot())
}

// handleWS поднимает браузерный сокет: клиент сразу получает текущий снимок,
// дальше — каждое обновление через hub. Входящие кадры от браузера не нужны,
// read-цикл только держит соединение и ловит закрытие.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	id, err := s.hub.Register(conn, s.state.Snapshot())
	if err != nil {
		conn.Close()
		return
	}
	s.logger.Info("browser client connected", zap.String("client_id", id))

	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
		s.logger.Info("browser client disconnected", zap.String("client_id", id))
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
