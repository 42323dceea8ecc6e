package infra

import (
	"testing"
)

func TestMetrics_RecordOp(t *testing.T) {
	m := &Metrics{}

	m.RecordOp(1000)
	m.RecordOp(2000)
	m.RecordOp(3000)

	snap := m.Snapshot()

	if snap.OpsProcessed != 3 {
		t.Errorf("Expected 3 ops, got %d", snap.OpsProcessed)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgLatencyNs)
	}
}

func TestMetrics_Outcomes(t *testing.T) {
	m := &Metrics{}

	m.RecordWrite()
	m.RecordWrite()
	m.RecordRead()
	m.RecordRejected()
	m.RecordDuplicate()

	snap := m.Snapshot()
	if snap.WritesApplied != 2 {
		t.Errorf("Expected 2 writes, got %d", snap.WritesApplied)
	}
	if snap.ReadsServed != 1 {
		t.Errorf("Expected 1 read, got %d", snap.ReadsServed)
	}
	if snap.RejectedTotal != 1 {
		t.Errorf("Expected 1 rejection, got %d", snap.RejectedTotal)
	}
	if snap.DuplicateTotal != 1 {
		t.Errorf("Expected 1 duplicate, got %d", snap.DuplicateTotal)
	}
}

func TestMetrics_Connections(t *testing.T) {
	m := &Metrics{}

	m.IncrementConnections()
	m.IncrementConnections()
	m.IncrementConnections()

	snap := m.Snapshot()
	if snap.ActiveConnections != 3 {
		t.Errorf("Expected 3 connections, got %d", snap.ActiveConnections)
	}

	m.DecrementConnections()
	snap = m.Snapshot()
	if snap.ActiveConnections != 2 {
		t.Errorf("Expected 2 connections, got %d", snap.ActiveConnections)
	}
}

func TestMetrics_CircuitState(t *testing.T) {
	m := &Metrics{}

	snap := m.Snapshot()
	if snap.CircuitOpen {
		t.Error("Expected circuit closed initially")
	}

	m.SetCircuitState(true)
	snap = m.Snapshot()
	if !snap.CircuitOpen {
		t.Error("Expected circuit open")
	}

	m.SetCircuitState(false)
	snap = m.Snapshot()
	if snap.CircuitOpen {
		t.Error("Expected circuit closed")
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordOp(1000)
	m.RecordError()
	m.RecordRejected()
	m.IncrementConnections()

	m.Reset()
	snap := m.Snapshot()

	if snap.OpsProcessed != 0 {
		t.Error("Expected 0 ops after reset")
	}
	if snap.ErrorsTotal != 0 {
		t.Error("Expected 0 errors after reset")
	}
	if snap.RejectedTotal != 0 {
		t.Error("Expected 0 rejections after reset")
	}
	if snap.ActiveConnections != 0 {
		t.Error("Expected 0 connections after reset")
	}
}
