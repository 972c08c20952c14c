// Package hooks provides production-ready core.Hook and core.Logger
// implementations: a slog adapter, a logging hook, and an in-memory
// metrics collector plus the hook that feeds it.
package hooks

import (
	"sync"
	"sync/atomic"

	"log/slog"

	"github.com/gofcom/fcom/core"
)

// ── Structured logger adapter ───────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...any) { s.log.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...any)  { s.log.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...any)  { s.log.Warn(msg, fields...) }
func (s *SlogLogger) Error(msg string, fields ...any) { s.log.Error(msg, fields...) }

// ── Logging hook ─────────────────────────────────────────────────────────

// LoggingHook logs before/after each filter step.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeStep(c *core.Cmd, filterName string) {
	h.logger.Debug("pipeline.step.start",
		"op", c.Op,
		"filter", filterName,
		"input", c.Input.Name,
	)
}

func (h *LoggingHook) AfterStep(c *core.Cmd, filterName string, status core.Status, err error) {
	if err != nil {
		h.logger.Error("pipeline.step.error",
			"op", c.Op,
			"filter", filterName,
			"status", status.String(),
			"error", err.Error(),
		)
		return
	}
	h.logger.Debug("pipeline.step.done",
		"op", c.Op,
		"filter", filterName,
		"status", status.String(),
	)
}

// ── In-memory metrics collector ─────────────────────────────────────────

// InMemoryMetrics accumulates metrics atomically; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	stepCalls  map[string]int64
	stepErrors map[string]int64

	totalBytesIn  int64
	totalBytesOut int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		stepCalls:  make(map[string]int64),
		stepErrors: make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordStep(filterName string) {
	m.mu.Lock()
	m.stepCalls[filterName]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordError(filterName string) {
	m.mu.Lock()
	m.stepErrors[filterName]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordBytesIn(n int64)  { atomic.AddInt64(&m.totalBytesIn, n) }
func (m *InMemoryMetrics) RecordBytesOut(n int64) { atomic.AddInt64(&m.totalBytesOut, n) }

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		StepCalls:     make(map[string]int64, len(m.stepCalls)),
		StepErrors:    make(map[string]int64, len(m.stepErrors)),
		TotalBytesIn:  atomic.LoadInt64(&m.totalBytesIn),
		TotalBytesOut: atomic.LoadInt64(&m.totalBytesOut),
	}
	for k, v := range m.stepCalls {
		snap.StepCalls[k] = v
	}
	for k, v := range m.stepErrors {
		snap.StepErrors[k] = v
	}
	return snap
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	StepCalls     map[string]int64
	StepErrors    map[string]int64
	TotalBytesIn  int64
	TotalBytesOut int64
}

// ── Metrics hook ─────────────────────────────────────────────────────────

// MetricsHook feeds pipeline events into an InMemoryMetrics collector.
type MetricsHook struct {
	collector *InMemoryMetrics
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c *InMemoryMetrics) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeStep(_ *core.Cmd, filterName string) {
	h.collector.RecordStep(filterName)
}

func (h *MetricsHook) AfterStep(c *core.Cmd, filterName string, _ core.Status, err error) {
	if err != nil {
		h.collector.RecordError(filterName)
	}
	if len(c.Out) > 0 {
		h.collector.RecordBytesOut(int64(len(c.Out)))
	}
}
