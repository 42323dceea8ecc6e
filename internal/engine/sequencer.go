package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"frac_ledger/internal/domain"
	"frac_ledger/internal/event"
	"frac_ledger/internal/execution"
	"frac_ledger/internal/infra"
)

// Journal is the write-ahead log of sequenced ops.
type Journal interface {
	SaveEvent(ctx context.Context, ev *event.TxEvent) error
	LastSeq(ctx context.Context) (uint64, error)
	LoadEvents(ctx context.Context, from uint64, fn func(*event.TxEvent) error) error
}

// Outcome is the result of one sequenced op, reported back to the host.
// Response is nil for no-ops and for rejected commands.
type Outcome struct {
	Seq      uint64
	Response *execution.Response
	Err      error
}

// Sequencer is the core single-threaded op processor.
type Sequencer struct {
	inbox    chan *event.TxEvent
	nextSeq  uint64
	journal  Journal
	store    domain.Storage
	contract *execution.Contract

	// Boundary: used to hand outcomes back to the host feed
	onResult func(Outcome)

	dumpFile string
	mu       sync.RWMutex // Used only for external reads (e.g. health checks)
}

// NewSequencer creates a new sequencer instance. journal may be nil.
func NewSequencer(inboxSize int, journal Journal, store domain.Storage, contract *execution.Contract, onResult func(Outcome)) *Sequencer {
	if contract == nil {
		contract = execution.NewContract(nil)
	}
	return &Sequencer{
		inbox:    make(chan *event.TxEvent, inboxSize),
		nextSeq:  1,
		journal:  journal,
		store:    store,
		contract: contract,
		onResult: onResult,
		dumpFile: "panic_dump.json",
	}
}

// SetDumpFile sets where DumpState writes on a halt.
func (s *Sequencer) SetDumpFile(path string) {
	if path != "" {
		s.dumpFile = path
	}
}

// Inbox returns the op channel. The host feed sends ops here.
func (s *Sequencer) Inbox() chan<- *event.TxEvent {
	return s.inbox
}

// NextSeq returns the sequence number the sequencer expects next.
func (s *Sequencer) NextSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextSeq
}

// Resume continues after the last journaled op. Must be called before Run.
func (s *Sequencer) Resume(ctx context.Context) error {
	if s.journal == nil {
		return nil
	}
	last, err := s.journal.LastSeq(ctx)
	if err != nil {
		return fmt.Errorf("read journal position: %w", err)
	}

	s.mu.Lock()
	s.nextSeq = last + 1
	s.mu.Unlock()

	slog.Info("Sequencer resumed", slog.Uint64("next_seq", last+1))
	return nil
}

// Run starts the main op loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started", slog.Uint64("next_seq", s.NextSeq()))

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState(s.dumpFile)
			// Halt after dump; the host redelivers from the journal position.
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case ev := <-s.inbox:
			s.processEvent(ctx, ev)
			event.ReleaseTxEvent(ev)
		}
	}
}

func (s *Sequencer) processEvent(ctx context.Context, ev *event.TxEvent) {
	next := s.NextSeq()

	// 1. Sequence check: redelivery is skipped, a gap halts
	if ev.Seq < next {
		infra.GlobalMetrics.RecordDuplicate()
		slog.Warn("Duplicate op skipped", slog.Uint64("seq", ev.Seq), slog.Uint64("next_seq", next))
		return
	}
	if ev.Seq > next {
		panic(fmt.Sprintf("SEQUENCE_GAP_DETECTED: expected %d, got %d", next, ev.Seq))
	}

	// 2. WAL-first: Persistence
	if s.journal != nil {
		if err := s.journal.SaveEvent(ctx, ev); err != nil {
			panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
		}
	}

	// 3. Execute
	out := s.execute(ctx, ev)

	// 4. Increment Sequence
	s.advance()

	if s.onResult != nil {
		s.onResult(out)
	}
}

// ReplayEvent processes an op synchronously without WAL logging.
// This is used exclusively by the Replayer.
func (s *Sequencer) ReplayEvent(ctx context.Context, ev *event.TxEvent) Outcome {
	// Replay must still respect sequence order
	if next := s.NextSeq(); ev.Seq != next {
		panic(fmt.Sprintf("REPLAY_GAP_DETECTED: expected %d, got %d", next, ev.Seq))
	}

	out := s.execute(ctx, ev)
	s.advance()
	return out
}

func (s *Sequencer) execute(ctx context.Context, ev *event.TxEvent) Outcome {
	start := time.Now()
	resp, err := s.contract.Execute(ctx, execution.Op{
		Type:      ev.Type,
		Seq:       ev.Seq,
		Ts:        ev.Ts,
		Initiator: ev.Initiator,
		Dispatch:  ev.Dispatch,
	}, s.store)
	infra.GlobalMetrics.RecordOp(time.Since(start).Nanoseconds())

	if err != nil {
		code := domain.CodeOf(err)
		if code == "" {
			// Storage failed under a journaled op; continuing would diverge from replicas.
			infra.GlobalMetrics.RecordError()
			panic(fmt.Sprintf("EXECUTION_FAILURE at seq %d: %v", ev.Seq, err))
		}
		infra.GlobalMetrics.RecordRejected()
		slog.Info("Command rejected",
			slog.Uint64("seq", ev.Seq),
			slog.String("initiator", ev.Initiator),
			slog.String("code", string(code)))
		return Outcome{Seq: ev.Seq, Err: err}
	}

	if resp != nil {
		if resp.Ack != nil {
			infra.GlobalMetrics.RecordWrite()
		} else {
			infra.GlobalMetrics.RecordRead()
		}
	}
	return Outcome{Seq: ev.Seq, Response: resp}
}

func (s *Sequencer) advance() {
	s.mu.Lock()
	s.nextSeq++
	s.mu.Unlock()
}

// DumpState writes the sequencer position and ledger document to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		NextSeq uint64          `json:"next_seq"`
		State   json.RawMessage `json:"state,omitempty"`
	}{
		NextSeq: s.NextSeq(),
	}

	if s.store != nil {
		raw, ok, err := s.store.Get(context.Background(), execution.StateKey)
		if err != nil {
			slog.Error("Failed to read state for dump", slog.Any("error", err))
		} else if ok && json.Valid(raw) {
			data.State = raw
		}
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	err = os.WriteFile(filename, b, 0644)
	if err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
