package domain

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// MessageTypeAnalysis — единственный тип кадра, на который реагирует клиент.
// Все остальные типы молча игнорируются.
const MessageTypeAnalysis = "analysis_results"

// SeverityThreshold — граница скора, с которой соединение считается опасным.
// Значение совпадает с порогом классификации Malicious на стороне анализатора.
const SeverityThreshold = 0.8

// Envelope — внешняя обертка любого кадра от анализатора.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Summary — агрегированная статистика по всем соединениям на момент кадра.
// Каждый кадр полностью заменяет предыдущее значение (без слияния).
type Summary struct {
	AvgScore         float64 `json:"avg_score"`
	MaxScore         float64 `json:"max_score"`
	MaliciousCount   int     `json:"malicious_count"`
	BenignCount      int     `json:"benign_count"`
	TotalConnections int     `json:"total_connections"`
}

// Anomaly — одно подозрительное соединение из списка top_anomalies.
// Порядок списка задает анализатор, клиент его не пересортировывает.
type Anomaly struct {
	Source       string  `json:"source"`
	Destination  string  `json:"destination"`
	Service      string  `json:"service,omitempty"`
	AnomalyScore float64 `json:"anomaly_score"`
}

// Severity возвращает презентационный класс строки в таблице аномалий.
func (a Anomaly) Severity() Severity {
	return SeverityOf(a.AnomalyScore)
}

// Severity — визуальный класс опасности для таблицы аномалий.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

func SeverityOf(score float64) Severity {
	if score >= SeverityThreshold {
		return SeverityHigh
	}
	return SeverityMedium
}

// Sample — одна точка скользящего окна для графика: по точке на принятый кадр.
type Sample struct {
	Timestamp Timestamp `json:"timestamp"`
	Score     float64   `json:"score"`
	MaxScore  float64   `json:"max_score"`
}

// AnalysisResult — полезная нагрузка кадра analysis_results.
type AnalysisResult struct {
	Timestamp    *Timestamp `json:"timestamp"`
	Summary      *Summary   `json:"summary"`
	TopAnomalies []Anomaly  `json:"top_anomalies"`
}

// Validate проверяет, что кадр несет все три обязательных поля.
// Кадр без любого из них считается битым и отбрасывается целиком.
func (r *AnalysisResult) Validate() error {
	if r.Timestamp == nil {
		return errors.New("missing timestamp")
	}
	if r.Summary == nil {
		return errors.New("missing summary")
	}
	if r.TopAnomalies == nil {
		return errors.New("missing top_anomalies")
	}
	return nil
}

// Timestamp принимает обе формы времени, встречающиеся в протоколе:
// ISO-строку (так шлет анализатор, без таймзоны) и число (epoch в миллисекундах).
type Timestamp struct {
	time.Time
}

// isoLayout — datetime.isoformat() питоновского анализатора: без зоны,
// дробная часть секунд опциональна.
const isoLayout = "2006-01-02T15:04:05.999999999"

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return errors.New("timestamp is null")
	}

	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			parsed, err = time.Parse(isoLayout, raw)
		}
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}

	ms, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// Snapshot — полное состояние дашборда в один момент времени.
// Именно его получает браузер: и по /api/v1/snapshot, и в каждом push по /ws.
type Snapshot struct {
	State        ConnectionState `json:"state"`
	LastError    string          `json:"last_error,omitempty"`
	Samples      []Sample        `json:"samples"`
	Summary      Summary         `json:"summary"`
	TopAnomalies []Anomaly       `json:"top_anomalies"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
