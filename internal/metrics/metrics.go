// Package metrics exposes Prometheus collectors for an undo engine.
//
// A Metrics value is both an undo.Observer (gauges follow every status
// refresh) and an undo.Tracker (the Dispatcher wraps each command in Track).
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(reg)
//	eng := undo.New(st, undo.WithObserver(m))
//	d := undo.NewDispatcher(eng, undo.WithTracker(m))
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/undoredo/internal/undo"
)

const namespace = "undoredo"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the engine collectors registered on one registry.
type Metrics struct {
	operations   *prometheus.CounterVec
	framesPushed prometheus.Counter
	stepDuration *prometheus.HistogramVec
	undoDepth    prometheus.Gauge
	redoDepth    prometheus.Gauge
	frozen       prometheus.Gauge

	mu       sync.Mutex
	lastUndo int
}

// New registers the collectors on reg. Registering twice on the same
// registry panics, as promauto does.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by name and outcome",
		}, []string{"op", "result"}),

		framesPushed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_pushed_total",
			Help:      "Frames pushed onto the undo stack by barrier",
		}),

		stepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of undo and redo steps",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"direction"}),

		undoDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "undo_depth",
			Help:      "Frames on the undo stack",
		}),

		redoDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redo_depth",
			Help:      "Frames on the redo stack",
		}),

		frozen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frozen",
			Help:      "1 while the engine is frozen",
		}),
	}
}

// Refresh updates the gauges from a status snapshot.
func (m *Metrics) Refresh(s undo.Status) {
	m.undoDepth.Set(float64(s.UndoDepth))
	m.redoDepth.Set(float64(s.RedoDepth))
	if s.Frozen {
		m.frozen.Set(1)
	} else {
		m.frozen.Set(0)
	}

	m.mu.Lock()
	m.lastUndo = s.UndoDepth
	m.mu.Unlock()
}

// Reload is a no-op; table contents are not measured.
func (m *Metrics) Reload() {}

// Track runs fn and records its outcome under op. Undo and redo are also
// timed, and a barrier that grew the undo stack counts as a pushed frame.
func (m *Metrics) Track(op string, fn func() error) error {
	var timer *prometheus.Timer
	if op == undo.DirUndo.String() || op == undo.DirRedo.String() {
		timer = prometheus.NewTimer(m.stepDuration.WithLabelValues(op))
	}

	before := m.undoDepthSeen()
	err := fn()

	if timer != nil {
		timer.ObserveDuration()
	}

	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.operations.WithLabelValues(op, result).Inc()

	if op == "barrier" && err == nil && m.undoDepthSeen() > before {
		m.framesPushed.Inc()
	}
	return err
}

func (m *Metrics) undoDepthSeen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUndo
}
