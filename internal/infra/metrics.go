package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	opsProcessed   atomic.Uint64
	writesApplied  atomic.Uint64
	readsServed    atomic.Uint64
	rejectedTotal  atomic.Uint64
	duplicateTotal atomic.Uint64
	errorsTotal    atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
	circuitOpen       atomic.Int32 // 1 = open, 0 = closed
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordOp records a sequenced op with its execution latency.
func (m *Metrics) RecordOp(latencyNs int64) {
	m.opsProcessed.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordWrite records a persisted write.
func (m *Metrics) RecordWrite() {
	m.writesApplied.Add(1)
}

// RecordRead records a served read, whether sequenced or queried.
func (m *Metrics) RecordRead() {
	m.readsServed.Add(1)
}

// RecordRejected records a command refused with a ledger error code.
func (m *Metrics) RecordRejected() {
	m.rejectedTotal.Add(1)
}

// RecordDuplicate records a redelivered op that was skipped.
func (m *Metrics) RecordDuplicate() {
	m.duplicateTotal.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// SetActiveConnections sets the current active connection count.
func (m *Metrics) SetActiveConnections(count int32) {
	m.activeConnections.Store(count)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// SetCircuitState sets the circuit breaker state (true = open).
func (m *Metrics) SetCircuitState(open bool) {
	if open {
		m.circuitOpen.Store(1)
	} else {
		m.circuitOpen.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	OpsProcessed      uint64    `json:"opsProcessed"`
	WritesApplied     uint64    `json:"writesApplied"`
	ReadsServed       uint64    `json:"readsServed"`
	RejectedTotal     uint64    `json:"rejectedTotal"`
	DuplicateTotal    uint64    `json:"duplicateTotal"`
	ErrorsTotal       uint64    `json:"errorsTotal"`
	AvgLatencyNs      int64     `json:"avgLatencyNs"`
	ActiveConnections int32     `json:"activeConnections"`
	CircuitOpen       bool      `json:"circuitOpen"`
	Timestamp         time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		OpsProcessed:      m.opsProcessed.Load(),
		WritesApplied:     m.writesApplied.Load(),
		ReadsServed:       m.readsServed.Load(),
		RejectedTotal:     m.rejectedTotal.Load(),
		DuplicateTotal:    m.duplicateTotal.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		AvgLatencyNs:      avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		CircuitOpen:       m.circuitOpen.Load() == 1,
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.opsProcessed.Store(0)
	m.writesApplied.Store(0)
	m.readsServed.Store(0)
	m.rejectedTotal.Store(0)
	m.duplicateTotal.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
	m.circuitOpen.Store(0)
}
