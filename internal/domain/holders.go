package domain

import (
	"frac_ledger/pkg/safe"
)

// HolderLedger maps an address to its share balance for one asset.
// Entries are strictly positive: an address at zero has no entry.
type HolderLedger map[string]int64

// Balance returns the shares held by addr (0 if absent).
func (h HolderLedger) Balance(addr string) int64 {
	return h[addr]
}

// Credit adds shares to addr, creating the entry if needed. Panics on overflow.
func (h HolderLedger) Credit(addr string, shares int64) {
	h[addr] = safe.SafeAdd(h[addr], shares)
}

// Debit removes shares from addr and drops the entry when it reaches zero.
// Returns ErrInsufficientShares without touching the ledger if the balance is short.
func (h HolderLedger) Debit(addr string, shares int64) error {
	bal := h[addr]
	if bal < shares {
		return NewLedgerError(CodeInsufficientShares, "%s holds %d, needs %d", addr, bal, shares)
	}
	if rest := safe.SafeSub(bal, shares); rest == 0 {
		delete(h, addr)
	} else {
		h[addr] = rest
	}
	return nil
}

// Sum returns the total shares across all holders. Panics on overflow.
func (h HolderLedger) Sum() int64 {
	var total int64
	for _, shares := range h {
		total = safe.SafeAdd(total, shares)
	}
	return total
}

// Clone returns an independent copy. A nil ledger clones to an empty one.
func (h HolderLedger) Clone() HolderLedger {
	out := make(HolderLedger, len(h))
	for addr, shares := range h {
		out[addr] = shares
	}
	return out
}

// verify checks the per-asset invariants against the asset's fixed supply.
func (h HolderLedger) verify(asset Asset) error {
	for addr, shares := range h {
		// Invariant 1: no zero or negative entries
		if shares <= 0 {
			return NewLedgerError(CodeInvariantViolation, "%s: holder %s has %d shares", asset.AssetID, addr, shares)
		}
	}

	// Invariant 2: conservation
	if sum := h.Sum(); sum != asset.TotalShares {
		return NewLedgerError(CodeInvariantViolation, "%s: holders sum to %d, total is %d", asset.AssetID, sum, asset.TotalShares)
	}
	return nil
}
