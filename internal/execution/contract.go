package execution

import (
	"context"
	"fmt"
	"log/slog"

	"frac_ledger/internal/domain"
	"frac_ledger/internal/ledger"
)

const (
	// StateKey is the single storage key holding the whole ledger document.
	StateKey = "fo_state_v1"

	// OpTypeTx tags ops that carry a ledger transaction.
	OpTypeTx = "tx"
)

// Op is one replicated command as delivered by the host.
type Op struct {
	Type      string
	Seq       uint64
	Ts        domain.TimeStamp
	Initiator string // Authenticated by the host, never taken from the payload
	Dispatch  *domain.Dispatch
}

// Response is what the host receives for an executed op.
// Writes carry Ack; reads carry Payload.
type Response struct {
	Kind    ledger.Kind
	Ack     *ledger.Ack
	Payload any
}

// Contract executes ops against host storage.
// Writes are persisted directly with Put; no write descriptor is returned.
type Contract struct {
	logger *slog.Logger
}

// NewContract creates a contract logging to logger (slog.Default if nil).
func NewContract(logger *slog.Logger) *Contract {
	if logger == nil {
		logger = slog.Default()
	}
	return &Contract{logger: logger}
}

// Execute runs one op. It returns (nil, nil) for ops that are not ledger
// transactions. On any error nothing has been written.
func (c *Contract) Execute(ctx context.Context, op Op, store domain.Storage) (*Response, error) {
	if op.Type != OpTypeTx {
		return nil, nil
	}
	if op.Dispatch == nil || op.Dispatch.Type == "" {
		return nil, domain.ErrInvalidDispatch
	}

	state, err := LoadState(ctx, store)
	if err != nil {
		return nil, err
	}

	res, err := ledger.Apply(state, *op.Dispatch, ledger.TxContext{
		Initiator: op.Initiator,
		Seq:       op.Seq,
		Ts:        op.Ts,
	})
	if err != nil {
		return nil, err
	}

	if res.Kind == ledger.KindRead {
		return &Response{Kind: ledger.KindRead, Payload: res.Payload}, nil
	}

	if err := persist(ctx, store, res.State); err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "ledger write persisted",
		slog.Uint64("seq", op.Seq),
		slog.String("type", op.Dispatch.Type),
		slog.String("asset", res.Ack.AssetID))

	ack := res.Ack
	return &Response{Kind: ledger.KindWrite, Ack: &ack}, nil
}

// Query runs a read dispatch outside the replicated order. Write commands are
// refused so this path can never persist.
func (c *Contract) Query(ctx context.Context, d domain.Dispatch, store domain.Storage) (any, error) {
	if domain.IsWriteCommand(d.Type) {
		return nil, domain.NewLedgerError(domain.CodeInvalidDispatch, "%s is not a query", d.Type)
	}

	state, err := LoadState(ctx, store)
	if err != nil {
		return nil, err
	}

	res, err := ledger.Apply(state, d, ledger.TxContext{})
	if err != nil {
		return nil, err
	}
	return res.Payload, nil
}

// LoadState reads the ledger document. A missing key yields the empty state.
func LoadState(ctx context.Context, store domain.Storage) (domain.LedgerState, error) {
	raw, ok, err := store.Get(ctx, StateKey)
	if err != nil {
		return domain.LedgerState{}, fmt.Errorf("load ledger state: %w", err)
	}
	if !ok || len(raw) == 0 {
		return domain.NewLedgerState(), nil
	}

	state, err := domain.DecodeLedgerState(raw)
	if err != nil {
		return domain.LedgerState{}, fmt.Errorf("decode ledger state: %w", err)
	}
	return state, nil
}

func persist(ctx context.Context, store domain.Storage, state domain.LedgerState) error {
	// Refuse to write a document that breaks conservation.
	if err := state.VerifyAll(); err != nil {
		return err
	}

	raw, err := state.Encode()
	if err != nil {
		return fmt.Errorf("encode ledger state: %w", err)
	}
	if err := store.Put(ctx, StateKey, raw); err != nil {
		return fmt.Errorf("persist ledger state: %w", err)
	}
	return nil
}
