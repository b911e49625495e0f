// analyzer-sim — локальная заглушка внешнего анализатора для разработки
// дашборда без питоновского бэкенда. Раз в 5 секунд снимает реальные inet
// соединения через gopsutil (как networkws-коллектор), присваивает им
// синтетические скоры и рассылает кадр analysis_results всем клиентам.
// Никакой модели внутри нет: скоры — ограниченный случайный шум.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	gopsnet "github.com/shirou/gopsutil/v3/net"

	"github.com/xela07ax/netwatch-dashboard/internal/domain"
)

const (
	defaultAddr   = ":8000"
	broadcastTick = 5 * time.Second
	topAnomalies  = 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // локальный стенд
	},
}

type simulator struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]string // conn -> client id
	rng     *rand.Rand
}

func newSimulator() *simulator {
	return &simulator{
		clients: make(map[*websocket.Conn]string),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *simulator) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WS upgrade error:", err)
		return
	}

	id := uuid.New().String()

	s.mu.Lock()
	s.clients[conn] = id
	total := len(s.clients)
	// Приветственный кадр, как у оригинального бэкенда
	conn.WriteJSON(map[string]string{
		"type":    "connection_established",
		"message": "Connected to Network Analyzer",
	})
	s.mu.Unlock()
	log.Printf("client %s connected, total: %d", id, total)

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
		log.Printf("client %s disconnected", id)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *simulator) broadcast(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, id := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Printf("dropping client %s: %v", id, err)
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// buildFrame собирает кадр analysis_results из текущих соединений хоста.
func (s *simulator) buildFrame() ([]byte, error) {
	anomalies, scores := s.collect()

	summary := domain.Summary{TotalConnections: len(scores)}
	for _, sc := range scores {
		summary.AvgScore += sc
		if sc > summary.MaxScore {
			summary.MaxScore = sc
		}
		if sc >= domain.SeverityThreshold {
			summary.MaliciousCount++
		} else {
			summary.BenignCount++
		}
	}
	if len(scores) > 0 {
		summary.AvgScore /= float64(len(scores))
	}

	ts := domain.Timestamp{Time: time.Now()}
	result := domain.AnalysisResult{
		Timestamp:    &ts,
		Summary:      &summary,
		TopAnomalies: anomalies,
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return json.Marshal(domain.Envelope{
		Type: domain.MessageTypeAnalysis,
		Data: data,
	})
}

// collect снимает inet соединения и скорит их шумом. Если gopsutil недоступен
// (нет прав, урезанный контейнер), работаем на полностью синтетическом трафике.
func (s *simulator) collect() ([]domain.Anomaly, []float64) {
	conns, err := gopsnet.Connections("inet")
	if err != nil || len(conns) == 0 {
		if err != nil {
			log.Printf("connection enumeration failed, using synthetic traffic: %v", err)
		}
		return s.synthetic()
	}

	all := make([]domain.Anomaly, 0, len(conns))
	scores := make([]float64, 0, len(conns))
	for _, c := range conns {
		if c.Raddr.IP == "" {
			continue // слушающие сокеты для таблицы не интересны
		}
		score := s.score()
		scores = append(scores, score)
		all = append(all, domain.Anomaly{
			Source:       fmt.Sprintf("%s:%d", c.Laddr.IP, c.Laddr.Port),
			Destination:  fmt.Sprintf("%s:%d", c.Raddr.IP, c.Raddr.Port),
			Service:      serviceByPort(c.Raddr.Port),
			AnomalyScore: score,
		})
	}
	if len(all) == 0 {
		return s.synthetic()
	}

	// Как и оригинал, наружу уходит только топ по скору
	sort.Slice(all, func(i, j int) bool { return all[i].AnomalyScore > all[j].AnomalyScore })
	if len(all) > topAnomalies {
		all = all[:topAnomalies]
	}
	return all, scores
}

func (s *simulator) synthetic() ([]domain.Anomaly, []float64) {
	n := 5 + s.rng.Intn(10)
	anomalies := make([]domain.Anomaly, 0, n)
	scores := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		score := s.score()
		scores = append(scores, score)
		anomalies = append(anomalies, domain.Anomaly{
			Source:       fmt.Sprintf("10.0.0.%d:%d", s.rng.Intn(254)+1, 1024+s.rng.Intn(60000)),
			Destination:  fmt.Sprintf("93.184.216.%d:%d", s.rng.Intn(254)+1, 443),
			Service:      "https",
			AnomalyScore: score,
		})
	}
	sort.Slice(anomalies, func(i, j int) bool { return anomalies[i].AnomalyScore > anomalies[j].AnomalyScore })
	if len(anomalies) > topAnomalies {
		anomalies = anomalies[:topAnomalies]
	}
	return anomalies, scores
}

// score — квадрат равномерного шума: масса внизу шкалы, редкие всплески
// выше порога 0.8, чтобы таблица периодически подсвечивалась красным.
func (s *simulator) score() float64 {
	v := s.rng.Float64()
	return v * v
}

func serviceByPort(port uint32) string {
	switch port {
	case 22:
		return "ssh"
	case 53:
		return "dns"
	case 80:
		return "http"
	case 443:
		return "https"
	default:
		return ""
	}
}

func main() {
	addr := os.Getenv("SIM_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	sim := newSimulator()

	go func() {
		ticker := time.NewTicker(broadcastTick)
		defer ticker.Stop()
		for range ticker.C {
			frame, err := sim.buildFrame()
			if err != nil {
				log.Printf("failed to build frame: %v", err)
				continue
			}
			sim.broadcast(frame)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", sim.handleWS)

	log.Printf("Analyzer simulator running on ws://localhost%s/ws", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
