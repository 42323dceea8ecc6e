package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Command types understood by the ledger.
const (
	CmdCreateAsset    = "create_asset"
	CmdTransferShares = "transfer_shares"
	CmdReadAsset      = "read_asset"
	CmdReadHolders    = "read_holders"
)

// IsWriteCommand reports whether the command type mutates state.
func IsWriteCommand(cmdType string) bool {
	return cmdType == CmdCreateAsset || cmdType == CmdTransferShares
}

// Dispatch is the canonical form of a parsed command.
type Dispatch struct {
	Type string `json:"type"`
	Args Args   `json:"args"`
}

// Args holds the named command fields. Fields a command does not use stay empty.
type Args struct {
	AssetID      string   `json:"assetId,omitempty"`
	TotalShares  Quantity `json:"totalShares"`
	InitialOwner string   `json:"initialOwner,omitempty"`
	To           string   `json:"to,omitempty"`
	Shares       Quantity `json:"shares"`
}

// Quantity is a numeric field kept exactly as supplied.
// Integer validation happens in the state machine, not at parse time.
type Quantity struct {
	raw string
	set bool
}

// RawQuantity wraps supplied text.
func RawQuantity(raw string) Quantity {
	return Quantity{raw: raw, set: true}
}

// IntQuantity wraps an integer.
func IntQuantity(n int64) Quantity {
	return RawQuantity(strconv.FormatInt(n, 10))
}

// IsSet reports whether the field was supplied at all.
func (q Quantity) IsSet() bool {
	return q.set
}

// Raw returns the supplied text.
func (q Quantity) Raw() string {
	return q.raw
}

func (q Quantity) String() string {
	if !q.set {
		return "<unset>"
	}
	return q.raw
}

// MarshalJSON emits null when unset, a bare number when the text is a valid
// JSON number, and a string otherwise.
func (q Quantity) MarshalJSON() ([]byte, error) {
	if !q.set {
		return []byte("null"), nil
	}
	if isJSONNumber(q.raw) {
		return []byte(q.raw), nil
	}
	return json.Marshal(q.raw)
}

// UnmarshalJSON accepts null, numbers, strings, and keeps anything else as raw text.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	*q = QuantityFromJSON(data)
	return nil
}

// QuantityFromJSON converts one raw JSON value into a Quantity.
func QuantityFromJSON(data json.RawMessage) Quantity {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return Quantity{}
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return RawQuantity(s)
		}
	}
	return RawQuantity(string(data))
}

// TextFromJSON converts one raw JSON value into a string field.
// Numbers keep their literal text; other non-string values become empty.
func TextFromJSON(data json.RawMessage) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	switch {
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return s
		}
	case isJSONNumber(string(data)):
		return string(data)
	}
	return ""
}

func isJSONNumber(s string) bool {
	if s == "" || !json.Valid([]byte(s)) {
		return false
	}
	c := s[0]
	return c == '-' || (c >= '0' && c <= '9')
}

