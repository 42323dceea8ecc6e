package domain

import (
	"context"
)

// Storage is the key-value capability furnished by the host.
// Single-key, last-write-visible semantics; the ledger keeps no reference to
// returned slices.
type Storage interface {
	// Get returns the value under key, or ok=false if the key was never written.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}

// HostFeed delivers the host's ordered transactions.
type HostFeed interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}
