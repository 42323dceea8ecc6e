package event

import (
	"sync"
)

// txPool provides sync.Pool for TxEvent allocation on the feed path.
//
// Usage:
//
//	ev := AcquireTxEvent()
//	ev.Seq = 7
//	// ... send to the sequencer, which releases it after processing ...
var txPool = sync.Pool{
	New: func() interface{} {
		return &TxEvent{}
	},
}

// AcquireTxEvent gets a TxEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireTxEvent() *TxEvent {
	return txPool.Get().(*TxEvent)
}

// ReleaseTxEvent returns a TxEvent to the pool.
// The event is reset to zero values before being pooled.
func ReleaseTxEvent(ev *TxEvent) {
	if ev == nil {
		return
	}
	ev.Seq = 0
	ev.Ts = 0
	ev.Type = ""
	ev.Initiator = ""
	ev.Dispatch = nil

	txPool.Put(ev)
}

// Warmup pre-allocates events to reduce GC pressure at startup.
func Warmup() {
	const batchSize = 1000

	evs := make([]*TxEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireTxEvent())
	}
	for _, ev := range evs {
		ReleaseTxEvent(ev)
	}
}
