// Package ledger is the deterministic state transition of the share ledger.
//
// Apply is a pure function of (state, dispatch, tx context). It performs no
// I/O, reads no clock and never mutates the state it is given; writes are
// computed on a private clone and returned to the caller to persist.
package ledger

import (
	"math"
	"strings"

	"frac_ledger/internal/domain"

	"github.com/shopspring/decimal"
)

// Kind tells the caller whether a result must be persisted.
type Kind int

const (
	KindWrite Kind = iota + 1
	KindRead
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindWrite:
		return "write"
	case KindRead:
		return "read"
	default:
		return "unknown"
	}
}

// TxContext is what the host attaches to every replicated command.
type TxContext struct {
	Initiator string           // Authenticated sender
	Seq       uint64           // Agreed position in the command order
	Ts        domain.TimeStamp // Agreed transaction time
}

// Ack summarizes an applied write.
type Ack struct {
	OK          bool   `json:"ok"`
	Type        string `json:"type"`
	AssetID     string `json:"assetId"`
	Owner       string `json:"owner,omitempty"`
	TotalShares int64  `json:"totalShares,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Shares      int64  `json:"shares,omitempty"`
	Seq         uint64 `json:"seq"`
}

// AssetView is the read_asset payload. Asset is nil when unknown.
type AssetView struct {
	Asset *domain.Asset `json:"asset"`
}

// HoldersView is the read_holders payload. Holders is never nil.
type HoldersView struct {
	Holders domain.HolderLedger `json:"holders"`
}

// Result is either a write (State + Ack) or a read (Payload), never both.
type Result struct {
	Kind    Kind
	State   domain.LedgerState
	Ack     Ack
	Payload any
}

// maxExponent bounds the decimal exponent of an integer field. It is checked
// before any comparison, whose cost grows with the exponent.
const maxExponent = 18

var (
	maxInt = decimal.NewFromInt(math.MaxInt64)
	minInt = decimal.NewFromInt(math.MinInt64)
)

// Apply runs one dispatch against state.
// On error the returned Result is empty and state is untouched.
func Apply(state domain.LedgerState, d domain.Dispatch, tx TxContext) (Result, error) {
	switch d.Type {
	case domain.CmdCreateAsset:
		return createAsset(state, d.Args, tx)
	case domain.CmdTransferShares:
		return transferShares(state, d.Args, tx)
	case domain.CmdReadAsset:
		return readAsset(state, d.Args)
	case domain.CmdReadHolders:
		return readHolders(state, d.Args)
	default:
		return Result{}, domain.NewLedgerError(domain.CodeUnknownCommand, "%s", d.Type)
	}
}

func createAsset(state domain.LedgerState, args domain.Args, tx TxContext) (Result, error) {
	assetID, err := requireString(args.AssetID, domain.ErrAssetIDRequired)
	if err != nil {
		return Result{}, err
	}

	total, err := requireInt(args.TotalShares)
	if err != nil {
		return Result{}, err
	}
	if total <= 0 {
		return Result{}, domain.NewLedgerError(domain.CodeTotalSharesInvalid, "%d", total)
	}

	owner := strings.TrimSpace(args.InitialOwner)
	if owner == "" {
		owner = tx.Initiator
	}
	owner, err = requireString(owner, domain.ErrInitialOwnerRequired)
	if err != nil {
		return Result{}, err
	}

	if _, exists := state.Assets[assetID]; exists {
		return Result{}, domain.NewLedgerError(domain.CodeAssetAlreadyExists, "%s", assetID)
	}

	next := state.Clone()
	next.Assets[assetID] = domain.Asset{
		AssetID:     assetID,
		TotalShares: total,
		CreatedAt:   tx.Ts,
	}
	next.Holders[assetID] = domain.HolderLedger{owner: total}

	return Result{
		Kind:  KindWrite,
		State: next,
		Ack: Ack{
			OK:          true,
			Type:        domain.CmdCreateAsset,
			AssetID:     assetID,
			Owner:       owner,
			TotalShares: total,
			Seq:         tx.Seq,
		},
	}, nil
}

func transferShares(state domain.LedgerState, args domain.Args, tx TxContext) (Result, error) {
	shares, err := requireInt(args.Shares)
	if err != nil {
		return Result{}, err
	}
	assetID, err := requireString(args.AssetID, domain.ErrAssetIDRequired)
	if err != nil {
		return Result{}, err
	}
	to, err := requireString(args.To, domain.ErrToRequired)
	if err != nil {
		return Result{}, err
	}
	if shares <= 0 {
		return Result{}, domain.NewLedgerError(domain.CodeSharesInvalid, "%d", shares)
	}

	if _, ok := state.Assets[assetID]; !ok {
		return Result{}, domain.NewLedgerError(domain.CodeAssetNotFound, "%s", assetID)
	}

	// The debit side is always the authenticated initiator.
	from, err := requireString(tx.Initiator, domain.ErrFromRequired)
	if err != nil {
		return Result{}, err
	}

	next := state.Clone()
	holders := next.Holders[assetID]
	if holders == nil {
		holders = make(domain.HolderLedger)
		next.Holders[assetID] = holders
	}

	if err := holders.Debit(from, shares); err != nil {
		return Result{}, err
	}
	holders.Credit(to, shares)

	if err := next.VerifyInvariant(assetID); err != nil {
		return Result{}, err
	}

	return Result{
		Kind:  KindWrite,
		State: next,
		Ack: Ack{
			OK:      true,
			Type:    domain.CmdTransferShares,
			AssetID: assetID,
			From:    from,
			To:      to,
			Shares:  shares,
			Seq:     tx.Seq,
		},
	}, nil
}

func readAsset(state domain.LedgerState, args domain.Args) (Result, error) {
	assetID, err := requireString(args.AssetID, domain.ErrAssetIDRequired)
	if err != nil {
		return Result{}, err
	}

	view := AssetView{}
	if a, ok := state.Asset(assetID); ok {
		view.Asset = &a
	}
	return Result{Kind: KindRead, Payload: view}, nil
}

func readHolders(state domain.LedgerState, args domain.Args) (Result, error) {
	assetID, err := requireString(args.AssetID, domain.ErrAssetIDRequired)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindRead, Payload: HoldersView{Holders: state.HoldersOf(assetID)}}, nil
}

// requireString trims v and fails with missing if nothing is left.
func requireString(v string, missing *domain.LedgerError) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", missing
	}
	return v, nil
}

// requireInt converts q to an int64. An empty value counts as zero; anything
// that is not a finite integer within int64 fails with INVALID_INT.
func requireInt(q domain.Quantity) (int64, error) {
	if !q.IsSet() {
		return 0, domain.NewLedgerError(domain.CodeInvalidInteger, "missing")
	}
	raw := strings.TrimSpace(q.Raw())
	if raw == "" {
		return 0, nil
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, domain.NewLedgerError(domain.CodeInvalidInteger, "%q", raw)
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return 0, domain.NewLedgerError(domain.CodeInvalidInteger, "%q", raw)
	}
	if !d.IsInteger() || d.GreaterThan(maxInt) || d.LessThan(minInt) {
		return 0, domain.NewLedgerError(domain.CodeInvalidInteger, "%q", raw)
	}
	return d.IntPart(), nil
}
