package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/netwatch-dashboard/internal/domain"
)

func sampleN(n int) domain.Sample {
	return domain.Sample{
		Timestamp: domain.Timestamp{Time: time.UnixMilli(int64(n))},
		Score:     float64(n),
	}
}

func TestWindowBelowCapacity(t *testing.T) {
	w := NewWindow(50)
	for i := 0; i < 7; i++ {
		w.Push(sampleN(i))
	}

	require.Equal(t, 7, w.Len())
	snap := w.Snapshot()
	require.Len(t, snap, 7)
	for i, s := range snap {
		assert.Equal(t, float64(i), s.Score, "порядок поступления должен сохраняться")
	}
}

func TestWindowFIFOEviction(t *testing.T) {
	w := NewWindow(50)
	for i := 0; i < 137; i++ {
		w.Push(sampleN(i))
	}

	// Окно никогда не превышает емкость, остаются ровно последние 50
	require.Equal(t, 50, w.Len())
	snap := w.Snapshot()
	require.Len(t, snap, 50)
	assert.Equal(t, float64(87), snap[0].Score, "старейшая из выживших")
	assert.Equal(t, float64(136), snap[49].Score, "новейшая")
}

func TestWindowArrivalOrderOnEqualTimestamps(t *testing.T) {
	// Точки с одинаковым временем упорядочены по приходу, не по значению
	w := NewWindow(10)
	ts := domain.Timestamp{Time: time.UnixMilli(1000)}
	w.Push(domain.Sample{Timestamp: ts, Score: 0.9})
	w.Push(domain.Sample{Timestamp: ts, Score: 0.1})
	w.Push(domain.Sample{Timestamp: ts, Score: 0.5})

	snap := w.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []float64{0.9, 0.1, 0.5}, []float64{snap[0].Score, snap[1].Score, snap[2].Score})
}

func TestWindowSnapshotIsACopy(t *testing.T) {
	w := NewWindow(5)
	w.Push(sampleN(1))
	snap := w.Snapshot()
	snap[0].Score = 99

	assert.Equal(t, float64(1), w.Snapshot()[0].Score)
}
