package stream

import (
	"sync"
	"time"

	"github.com/xela07ax/netwatch-dashboard/internal/domain"
)

// TelemetryState — единственный источник правды дашборда: скользящее окно
// точек, последний summary, последний список аномалий и фаза соединения.
// Summary и аномалии хранятся только в виде последнего снимка, без истории.
type TelemetryState struct {
	mu        sync.RWMutex
	window    *Window
	summary   domain.Summary
	anomalies []domain.Anomaly
	connState domain.ConnectionState
	lastError string
	updatedAt time.Time
}

func NewTelemetryState(windowSize int) *TelemetryState {
	return &TelemetryState{
		window:    NewWindow(windowSize),
		anomalies: []domain.Anomaly{},
		connState: domain.StateConnecting,
	}
}

// Apply атомарно применяет принятый кадр: точка уходит в окно,
// summary и список аномалий замещаются целиком (слияния нет).
func (s *TelemetryState) Apply(res *domain.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.window.Push(domain.Sample{
		Timestamp: *res.Timestamp,
		Score:     res.Summary.AvgScore,
		MaxScore:  res.Summary.MaxScore,
	})
	s.summary = *res.Summary
	s.anomalies = res.TopAnomalies
	s.updatedAt = time.Now()
}

// SetConnecting — начало очередной попытки подключения.
func (s *TelemetryState) SetConnecting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connState = domain.StateConnecting
}

// SetConnected — сокет открыт; сохраненная ошибка сбрасывается.
func (s *TelemetryState) SetConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connState = domain.StateConnected
	s.lastError = ""
}

// SetTransportError — транспортная ошибка; текст показывается оператору.
func (s *TelemetryState) SetTransportError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connState = domain.StateError
	s.lastError = msg
}

// SetDisconnected — сокет закрыт. Текст последней ошибки не трогаем:
// оператор должен видеть причину, пока идет переподключение.
func (s *TelemetryState) SetDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connState = domain.StateDisconnected
}

// ConnState возвращает текущую фазу соединения.
func (s *TelemetryState) ConnState() domain.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connState
}

// Snapshot возвращает согласованную копию всего состояния.
func (s *TelemetryState) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	anomalies := make([]domain.Anomaly, len(s.anomalies))
	copy(anomalies, s.anomalies)

	return domain.Snapshot{
		State:        s.connState,
		LastError:    s.lastError,
		Samples:      s.window.Snapshot(),
		Summary:      s.summary,
		TopAnomalies: anomalies,
		UpdatedAt:    s.updatedAt,
	}
}
