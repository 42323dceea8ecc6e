package storage

import (
	"time"
)

// KVEntry is one key of host storage. The ledger uses a single key.
type KVEntry struct {
	Key       string `gorm:"column:state_key;primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName overrides gorm's pluralized default.
func (KVEntry) TableName() string {
	return "kv_entries"
}

// JournalEntry is one journaled op, written before the op is executed.
type JournalEntry struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement:false"`
	Ts        int64
	Type      string `gorm:"index"`
	Initiator string
	Dispatch  string // JSON; empty when the op carried none
	CreatedAt time.Time
}

// TableName overrides gorm's pluralized default.
func (JournalEntry) TableName() string {
	return "journal_entries"
}
