package domain

import (
	"encoding/json"
	"sort"
)

// TimeStamp is a host-supplied logical time in milliseconds.
// It comes from the replicated transaction, never from the local clock.
type TimeStamp int64

// Asset is one fractionalized item. TotalShares never changes after creation.
type Asset struct {
	AssetID     string    `json:"assetId"`
	TotalShares int64     `json:"totalShares"`
	CreatedAt   TimeStamp `json:"createdAt"`
}

// LedgerState is the whole persisted document.
// Holders has an entry for every key in Assets.
type LedgerState struct {
	Assets  map[string]Asset        `json:"assets"`
	Holders map[string]HolderLedger `json:"holders"`
}

// NewLedgerState returns the empty initial state.
func NewLedgerState() LedgerState {
	return LedgerState{
		Assets:  make(map[string]Asset),
		Holders: make(map[string]HolderLedger),
	}
}

// DecodeLedgerState parses a persisted document and normalizes it.
func DecodeLedgerState(data []byte) (LedgerState, error) {
	var st LedgerState
	if err := json.Unmarshal(data, &st); err != nil {
		return LedgerState{}, err
	}
	st.Normalize()
	return st, nil
}

// Encode serializes the state. encoding/json sorts map keys, so equal states
// always produce equal bytes.
func (s LedgerState) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// Normalize replaces nil maps and adds a holder map for any asset missing one.
func (s *LedgerState) Normalize() {
	if s.Assets == nil {
		s.Assets = make(map[string]Asset)
	}
	if s.Holders == nil {
		s.Holders = make(map[string]HolderLedger)
	}
	for id := range s.Assets {
		if s.Holders[id] == nil {
			s.Holders[id] = make(HolderLedger)
		}
	}
}

// Clone returns a deep copy that shares no maps with s.
func (s LedgerState) Clone() LedgerState {
	out := LedgerState{
		Assets:  make(map[string]Asset, len(s.Assets)),
		Holders: make(map[string]HolderLedger, len(s.Holders)),
	}
	for id, a := range s.Assets {
		out.Assets[id] = a
	}
	for id, h := range s.Holders {
		out.Holders[id] = h.Clone()
	}
	return out
}

// Asset looks up an asset by id.
func (s LedgerState) Asset(assetID string) (Asset, bool) {
	a, ok := s.Assets[assetID]
	return a, ok
}

// HoldersOf returns a copy of the holder ledger (empty if the asset is unknown).
func (s LedgerState) HoldersOf(assetID string) HolderLedger {
	return s.Holders[assetID].Clone()
}

// VerifyInvariant checks conservation and positivity for one asset.
// Call this after any state change to ensure data integrity.
func (s LedgerState) VerifyInvariant(assetID string) error {
	asset, ok := s.Assets[assetID]
	if !ok {
		return NewLedgerError(CodeInvariantViolation, "%s: unknown asset", assetID)
	}
	holders, ok := s.Holders[assetID]
	if !ok {
		return NewLedgerError(CodeInvariantViolation, "%s: no holder ledger", assetID)
	}
	if asset.AssetID != assetID || asset.TotalShares <= 0 {
		return NewLedgerError(CodeInvariantViolation, "%s: malformed asset record", assetID)
	}
	return holders.verify(asset)
}

// VerifyAll checks invariants on every asset, in id order so the first
// reported violation is deterministic.
func (s LedgerState) VerifyAll() error {
	ids := make([]string, 0, len(s.Assets))
	for id := range s.Assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := s.VerifyInvariant(id); err != nil {
			return err
		}
	}
	return nil
}
