package engine

import (
	"context"
	"testing"

	"frac_ledger/internal/domain"
	"frac_ledger/internal/event"
	"frac_ledger/internal/infra/storage"
)

// BenchmarkSequencer_Transfer measures one transfer through load, apply and persist.
func BenchmarkSequencer_Transfer(b *testing.B) {
	ctx := context.Background()
	seq := NewSequencer(1000, nil, storage.NewMemory(), nil, nil)
	seq.processEvent(ctx, txEvent(1, "A", createDispatch("tc:X", 1_000_000_000)))

	d := transferDispatch("tc:X", "B", 1)
	ev := event.AcquireTxEvent()
	ev.Type = event.TypeTx
	ev.Initiator = "A"
	ev.Dispatch = d

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		ev.Seq = uint64(i + 2)
		ev.Ts = domain.TimeStamp(i)
		seq.processEvent(ctx, ev)
	}

	event.ReleaseTxEvent(ev)
}

// BenchmarkSequencer_FullPipeline measures end-to-end op processing.
// Note: This benchmark includes channel overhead.
func BenchmarkSequencer_FullPipeline(b *testing.B) {
	seq := NewSequencer(b.N+100, nil, storage.NewMemory(), nil, nil)
	inbox := seq.Inbox()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start sequencer in background
	go seq.Run(ctx)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		ev := event.AcquireTxEvent()
		ev.Seq = uint64(i + 1)
		ev.Ts = domain.TimeStamp(int64(i))
		ev.Type = event.TypeTx
		ev.Initiator = "A"
		ev.Dispatch = &domain.Dispatch{Type: domain.CmdReadHolders, Args: domain.Args{AssetID: "tc:X"}}

		inbox <- ev
	}

	cancel()
}
