package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"frac_ledger/internal/event"
)

// Memory is an in-process host storage, used for replay checks and tests.
// Values are copied on the way in and out.
type Memory struct {
	mu      sync.RWMutex
	kv      map[string][]byte
	journal map[uint64]event.TxEvent
}

// NewMemory creates an empty in-memory storage.
func NewMemory() *Memory {
	return &Memory{
		kv:      make(map[string][]byte),
		journal: make(map[uint64]event.TxEvent),
	}
}

// Get returns a copy of the value under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.kv[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Put stores a copy of value under key.
func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.kv[key] = append([]byte(nil), value...)
	return nil
}

// SaveEvent journals an op. Saving the same seq twice fails.
func (m *Memory) SaveEvent(_ context.Context, ev *event.TxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.journal[ev.Seq]; exists {
		return fmt.Errorf("journal: seq %d already saved", ev.Seq)
	}
	m.journal[ev.Seq] = *ev
	return nil
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
func (m *Memory) LastSeq(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last uint64
	for seq := range m.journal {
		if seq > last {
			last = seq
		}
	}
	return last, nil
}

// LoadEvents streams journaled ops with seq >= from in ascending order.
func (m *Memory) LoadEvents(_ context.Context, from uint64, fn func(*event.TxEvent) error) error {
	m.mu.RLock()
	seqs := make([]uint64, 0, len(m.journal))
	for seq := range m.journal {
		if seq >= from {
			seqs = append(seqs, seq)
		}
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	evs := make([]event.TxEvent, len(seqs))
	for i, seq := range seqs {
		evs[i] = m.journal[seq]
	}
	m.mu.RUnlock()

	for i := range evs {
		if err := fn(&evs[i]); err != nil {
			return err
		}
	}
	return nil
}
