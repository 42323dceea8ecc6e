package domain

import (
	"bytes"
	"errors"
	"testing"
)

func sampleState() LedgerState {
	st := NewLedgerState()
	st.Assets["tc:X"] = Asset{AssetID: "tc:X", TotalShares: 10000, CreatedAt: 1700000000000}
	st.Holders["tc:X"] = HolderLedger{"A": 6000, "B": 4000}
	return st
}

func TestHolderLedger_Debit(t *testing.T) {
	t.Run("partial debit keeps entry", func(t *testing.T) {
		h := HolderLedger{"A": 10000}
		if err := h.Debit("A", 4000); err != nil {
			t.Fatalf("Debit failed: %v", err)
		}
		if h.Balance("A") != 6000 {
			t.Errorf("Expected 6000, got %d", h.Balance("A"))
		}
	})

	t.Run("full debit removes entry", func(t *testing.T) {
		h := HolderLedger{"A": 6000}
		if err := h.Debit("A", 6000); err != nil {
			t.Fatalf("Debit failed: %v", err)
		}
		if _, ok := h["A"]; ok {
			t.Error("Zero balance entry should be removed")
		}
	})

	t.Run("insufficient leaves ledger untouched", func(t *testing.T) {
		h := HolderLedger{"A": 100}
		err := h.Debit("A", 101)
		if !errors.Is(err, ErrInsufficientShares) {
			t.Fatalf("Expected INSUFFICIENT_SHARES, got %v", err)
		}
		if h.Balance("A") != 100 {
			t.Errorf("Balance changed to %d", h.Balance("A"))
		}
	})

	t.Run("absent holder has zero balance", func(t *testing.T) {
		h := HolderLedger{}
		if err := h.Debit("ghost", 1); !errors.Is(err, ErrInsufficientShares) {
			t.Fatalf("Expected INSUFFICIENT_SHARES, got %v", err)
		}
	})
}

func TestLedgerState_Clone(t *testing.T) {
	st := sampleState()
	cp := st.Clone()

	cp.Holders["tc:X"]["A"] = 1
	cp.Assets["tc:Y"] = Asset{AssetID: "tc:Y", TotalShares: 1}

	if st.Holders["tc:X"]["A"] != 6000 {
		t.Error("Clone shares holder map with original")
	}
	if _, ok := st.Assets["tc:Y"]; ok {
		t.Error("Clone shares asset map with original")
	}
}

func TestLedgerState_VerifyAll(t *testing.T) {
	t.Run("valid state", func(t *testing.T) {
		if err := sampleState().VerifyAll(); err != nil {
			t.Errorf("Unexpected violation: %v", err)
		}
	})

	t.Run("conservation broken", func(t *testing.T) {
		st := sampleState()
		st.Holders["tc:X"]["B"] = 3999
		if err := st.VerifyAll(); !errors.Is(err, ErrInvariantViolation) {
			t.Errorf("Expected INVARIANT_VIOLATION, got %v", err)
		}
	})

	t.Run("zero entry present", func(t *testing.T) {
		st := sampleState()
		st.Holders["tc:X"] = HolderLedger{"A": 10000, "B": 0}
		if err := st.VerifyAll(); !errors.Is(err, ErrInvariantViolation) {
			t.Errorf("Expected INVARIANT_VIOLATION, got %v", err)
		}
	})

	t.Run("missing holder map", func(t *testing.T) {
		st := sampleState()
		delete(st.Holders, "tc:X")
		if err := st.VerifyAll(); !errors.Is(err, ErrInvariantViolation) {
			t.Errorf("Expected INVARIANT_VIOLATION, got %v", err)
		}
	})
}

func TestLedgerState_EncodeDeterministic(t *testing.T) {
	a := sampleState()

	// Same content, different insertion order.
	b := NewLedgerState()
	b.Holders["tc:X"] = HolderLedger{"B": 4000, "A": 6000}
	b.Assets["tc:X"] = a.Assets["tc:X"]

	ea, err := a.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	eb, _ := b.Encode()
	if !bytes.Equal(ea, eb) {
		t.Errorf("Encodings differ:\n%s\n%s", ea, eb)
	}

	want := `{"assets":{"tc:X":{"assetId":"tc:X","totalShares":10000,"createdAt":1700000000000}},"holders":{"tc:X":{"A":6000,"B":4000}}}`
	if string(ea) != want {
		t.Errorf("Encode = %s, want %s", ea, want)
	}
}

func TestDecodeLedgerState_Normalizes(t *testing.T) {
	st, err := DecodeLedgerState([]byte(`{"assets":{"tc:X":{"assetId":"tc:X","totalShares":5}}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if st.Holders == nil || st.Holders["tc:X"] == nil {
		t.Fatal("Expected holder map for every asset")
	}

	if _, err := DecodeLedgerState([]byte(`{not json`)); err == nil {
		t.Error("Expected decode error")
	}
}
