package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Turn metrics
	activeTurns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_loop_active_turns",
		Help: "Number of pipeline runs currently in flight",
	})

	totalTurns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_loop_turns_total",
		Help: "Total number of voice turns processed",
	})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_loop_turn_duration_seconds",
		Help:    "End-to-end duration of one pipeline run in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	// Stage metrics
	stageRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_loop_stage_requests_total",
		Help: "Total number of stage calls",
	}, []string{"stage", "status"})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voice_loop_stage_latency_seconds",
		Help:    "Per-stage call latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"stage"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_loop_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_loop_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" or "out"
)

// TurnMetrics tracks metrics for a single pipeline run
type TurnMetrics struct {
	turnID         string
	startTime      time.Time
	stageStartTime time.Time
	mu             sync.Mutex
}

// NewTurnMetrics creates a new metrics tracker for one turn
func NewTurnMetrics(turnID string) *TurnMetrics {
	return &TurnMetrics{
		turnID:    turnID,
		startTime: time.Now(),
	}
}

// RecordTurnStart records the start of a pipeline run
func (m *TurnMetrics) RecordTurnStart() {
	activeTurns.Inc()
	totalTurns.Inc()
}

// RecordTurnEnd records the end of a pipeline run
func (m *TurnMetrics) RecordTurnEnd() {
	activeTurns.Dec()
	turnDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordStageStart records the start of a stage call
func (m *TurnMetrics) RecordStageStart() {
	m.mu.Lock()
	m.stageStartTime = time.Now()
	m.mu.Unlock()
}

// RecordStageEnd records the end of a stage call
func (m *TurnMetrics) RecordStageEnd(stage string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.stageStartTime.IsZero() {
		stageLatency.WithLabelValues(stage).Observe(time.Since(m.stageStartTime).Seconds())
	}

	status := "success"
	if !success {
		status = "error"
	}
	stageRequests.WithLabelValues(stage, status).Inc()
}

// RecordError records an error
func (m *TurnMetrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes processed
func (m *TurnMetrics) RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}
