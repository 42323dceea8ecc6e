package event

import (
	"frac_ledger/internal/domain"
)

// TypeTx tags events carrying a ledger transaction. Other types pass through
// the sequencer as no-ops so the host order stays gap-free.
const TypeTx = "tx"

// BaseEvent carries the host-agreed position and time.
type BaseEvent struct {
	Seq uint64           `json:"seq"`
	Ts  domain.TimeStamp `json:"ts"`
}

// GetSeq returns the sequence number.
func (b BaseEvent) GetSeq() uint64 {
	return b.Seq
}

// TxEvent is one op in the host's total order.
type TxEvent struct {
	BaseEvent
	Type      string           `json:"type"`
	Initiator string           `json:"initiator"`
	Dispatch  *domain.Dispatch `json:"dispatch,omitempty"` // nil when the command did not parse
}

// GetType returns the op type.
func (e *TxEvent) GetType() string {
	return e.Type
}
