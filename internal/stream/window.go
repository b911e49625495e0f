package stream

import "github.com/xela07ax/netwatch-dashboard/internal/domain"

// Window — кольцевой буфер последних точек для графика.
// Фиксированная емкость, вытеснение строго FIFO: буфер никогда не растет
// за пределы capacity, старейшая точка уходит первой.
// Потокобезопасность обеспечивает владелец (TelemetryState).
type Window struct {
	samples []domain.Sample
	head    int
	count   int
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{samples: make([]domain.Sample, capacity)}
}

// Push добавляет точку в конец окна, при переполнении вытесняя старейшую.
func (w *Window) Push(s domain.Sample) {
	if w.count < len(w.samples) {
		w.count++
	} else {
		w.head = (w.head + 1) % len(w.samples)
	}

	idx := (w.head + w.count - 1) % len(w.samples)
	w.samples[idx] = s
}

func (w *Window) Len() int {
	return w.count
}

func (w *Window) Cap() int {
	return len(w.samples)
}

// Snapshot возвращает копию окна в порядке поступления (старейшая первой).
func (w *Window) Snapshot() []domain.Sample {
	result := make([]domain.Sample, w.count)
	for i := 0; i < w.count; i++ {
		idx := (w.head + i) % len(w.samples)
		result[i] = w.samples[idx]
	}
	return result
}
