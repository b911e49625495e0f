package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampUnmarshal(t *testing.T) {
	t.Run("AnalyzerISOFormat", func(t *testing.T) {
		// datetime.isoformat() без таймзоны — так шлет анализатор
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(`"2026-08-30T12:34:56.789012"`), &ts))
		assert.Equal(t, 2026, ts.Year())
		assert.Equal(t, 56, ts.Second())
	})

	t.Run("RFC3339", func(t *testing.T) {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(`"2026-08-30T12:34:56Z"`), &ts))
		assert.Equal(t, time.Date(2026, 8, 30, 12, 34, 56, 0, time.UTC), ts.Time)
	})

	t.Run("EpochMillis", func(t *testing.T) {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(`1000`), &ts))
		assert.Equal(t, time.UnixMilli(1000).UTC(), ts.Time)
	})

	t.Run("Garbage", func(t *testing.T) {
		var ts Timestamp
		assert.Error(t, json.Unmarshal([]byte(`"not a time"`), &ts))
		assert.Error(t, json.Unmarshal([]byte(`null`), &ts))
	})
}

func TestAnalysisResultValidate(t *testing.T) {
	ts := Timestamp{Time: time.Now()}
	sum := Summary{TotalConnections: 1}

	valid := AnalysisResult{Timestamp: &ts, Summary: &sum, TopAnomalies: []Anomaly{}}
	require.NoError(t, valid.Validate())

	missingTS := AnalysisResult{Summary: &sum, TopAnomalies: []Anomaly{}}
	assert.Error(t, missingTS.Validate())

	missingSummary := AnalysisResult{Timestamp: &ts, TopAnomalies: []Anomaly{}}
	assert.Error(t, missingSummary.Validate())

	missingAnomalies := AnalysisResult{Timestamp: &ts, Summary: &sum}
	assert.Error(t, missingAnomalies.Validate())
}

func TestAnalysisResultDecode(t *testing.T) {
	// Пустой список top_anomalies — валидный кадр, отсутствие поля — нет
	var res AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(`{"timestamp":1000,"summary":{"avg_score":0.1},"top_anomalies":[]}`), &res))
	require.NoError(t, res.Validate())
	assert.NotNil(t, res.TopAnomalies)
	assert.Len(t, res.TopAnomalies, 0)
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, SeverityMedium, SeverityOf(0.0))
	assert.Equal(t, SeverityMedium, SeverityOf(0.79))
	// Граница входит в high
	assert.Equal(t, SeverityHigh, SeverityOf(0.8))
	assert.Equal(t, SeverityHigh, SeverityOf(0.85))
	assert.Equal(t, SeverityHigh, SeverityOf(1.0))

	a := Anomaly{Source: "A", Destination: "B", AnomalyScore: 0.85}
	assert.Equal(t, SeverityHigh, a.Severity())
}
