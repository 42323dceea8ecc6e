package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"frac_ledger/internal/domain"
	"frac_ledger/internal/event"
	"frac_ledger/internal/execution"
	"frac_ledger/internal/infra/storage"
)

// ErrStateDiverged means replaying the journal did not reproduce the stored document.
var ErrStateDiverged = errors.New("replayed state differs from stored state")

// Replayer rebuilds ledger state from the journal.
type Replayer struct {
	journal  Journal
	contract *execution.Contract
}

// NewReplayer creates a replayer over journal.
func NewReplayer(journal Journal, contract *execution.Contract) *Replayer {
	if contract == nil {
		contract = execution.NewContract(nil)
	}
	return &Replayer{journal: journal, contract: contract}
}

// Rebuild replays every journaled op into store and returns the number of ops
// applied. store should start empty.
func (r *Replayer) Rebuild(ctx context.Context, store domain.Storage) (uint64, error) {
	seq := NewSequencer(0, nil, store, r.contract, nil)

	var applied uint64
	err := r.journal.LoadEvents(ctx, 1, func(ev *event.TxEvent) error {
		if next := seq.NextSeq(); ev.Seq != next {
			return fmt.Errorf("journal gap: expected %d, got %d", next, ev.Seq)
		}
		if err := replayOne(ctx, seq, ev); err != nil {
			return err
		}
		applied++
		return nil
	})
	return applied, err
}

// replayOne turns the execution halt back into an error.
func replayOne(ctx context.Context, seq *Sequencer, ev *event.TxEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("replay seq %d: %v", ev.Seq, r)
		}
	}()
	seq.ReplayEvent(ctx, ev)
	return nil
}

// VerifyDeterminism replays the journal into a fresh memory store and compares
// the resulting document byte for byte with the one in live.
func (r *Replayer) VerifyDeterminism(ctx context.Context, live domain.Storage) error {
	replica := storage.NewMemory()
	n, err := r.Rebuild(ctx, replica)
	if err != nil {
		return err
	}

	want, _, err := live.Get(ctx, execution.StateKey)
	if err != nil {
		return fmt.Errorf("read live state: %w", err)
	}
	got, _, err := replica.Get(ctx, execution.StateKey)
	if err != nil {
		return fmt.Errorf("read replayed state: %w", err)
	}

	if !bytes.Equal(want, got) {
		slog.Error("State divergence detected",
			slog.Uint64("ops_replayed", n),
			slog.Int("live_bytes", len(want)),
			slog.Int("replayed_bytes", len(got)))
		return ErrStateDiverged
	}

	slog.Info("Replay verified", slog.Uint64("ops_replayed", n))
	return nil
}
