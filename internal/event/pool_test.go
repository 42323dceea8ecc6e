package event

import (
	"testing"

	"frac_ledger/internal/domain"
)

func TestReleaseTxEvent_ResetsFields(t *testing.T) {
	ev := AcquireTxEvent()
	ev.Seq = 3
	ev.Ts = 99
	ev.Type = TypeTx
	ev.Initiator = "A"
	ev.Dispatch = &domain.Dispatch{Type: domain.CmdReadAsset}

	ReleaseTxEvent(ev)

	if ev.Seq != 0 || ev.Ts != 0 || ev.Type != "" || ev.Initiator != "" || ev.Dispatch != nil {
		t.Errorf("Expected zeroed event, got %+v", ev)
	}
}

func TestReleaseTxEvent_Nil(t *testing.T) {
	ReleaseTxEvent(nil) // must not panic
}

func TestWarmup(t *testing.T) {
	Warmup()
	ev := AcquireTxEvent()
	if ev == nil {
		t.Fatal("Expected event from pool")
	}
	if ev.GetSeq() != 0 || ev.GetType() != "" {
		t.Errorf("Pooled event not clean: %+v", ev)
	}
	ReleaseTxEvent(ev)
}
