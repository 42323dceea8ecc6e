// Package parser maps raw tx commands to ledger dispatches.
//
// Two forms are accepted:
//
//	create_asset <assetId> <totalShares> [initialOwner]
//	{"op":"create_asset","assetId":"...","totalShares":10000,"initialOwner":"..."}
//
// Parsing is pure. A command that cannot be mapped yields no dispatch rather
// than an error; the caller decides how to surface that.
package parser

import (
	"encoding/json"
	"strings"

	"frac_ledger/internal/domain"
)

// grammar lists each command's fields in positional order.
var grammar = []struct {
	name   string
	fields []string
}{
	{domain.CmdCreateAsset, []string{"assetId", "totalShares", "initialOwner"}},
	{domain.CmdTransferShares, []string{"assetId", "to", "shares"}},
	{domain.CmdReadAsset, []string{"assetId"}},
	{domain.CmdReadHolders, []string{"assetId"}},
}

// Commands returns the recognized command names in grammar order.
func Commands() []string {
	names := make([]string, len(grammar))
	for i, g := range grammar {
		names[i] = g.name
	}
	return names
}

func fieldsOf(name string) ([]string, bool) {
	for _, g := range grammar {
		if g.name == name {
			return g.fields, true
		}
	}
	return nil, false
}

// Parse converts a raw command into a Dispatch. ok is false when nothing
// should be dispatched: empty input, malformed JSON, or an unknown command.
func Parse(raw string) (d domain.Dispatch, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Dispatch{}, false
	}
	if strings.HasPrefix(raw, "{") {
		return parseJSON(raw)
	}
	return parsePositional(raw)
}

func parseJSON(raw string) (domain.Dispatch, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil || obj == nil {
		return domain.Dispatch{}, false
	}

	var op string
	if err := json.Unmarshal(obj["op"], &op); err != nil || op == "" {
		return domain.Dispatch{}, false
	}

	fields, ok := fieldsOf(op)
	if !ok {
		return domain.Dispatch{}, false
	}

	d := domain.Dispatch{Type: op}
	for _, f := range fields {
		assign(&d.Args, f, obj[f])
	}
	return d, true
}

func parsePositional(raw string) (domain.Dispatch, bool) {
	parts := strings.Fields(raw)
	fields, ok := fieldsOf(parts[0])
	if !ok {
		return domain.Dispatch{}, false
	}

	d := domain.Dispatch{Type: parts[0]}
	for i, f := range fields {
		if i+1 >= len(parts) {
			break
		}
		assignText(&d.Args, f, parts[i+1])
	}
	return d, true
}

// assign sets a field from a JSON value. Absent values leave the field empty.
func assign(a *domain.Args, field string, v json.RawMessage) {
	if v == nil {
		return
	}
	switch field {
	case "totalShares":
		a.TotalShares = domain.QuantityFromJSON(v)
	case "shares":
		a.Shares = domain.QuantityFromJSON(v)
	default:
		assignText(a, field, domain.TextFromJSON(v))
	}
}

func assignText(a *domain.Args, field, v string) {
	switch field {
	case "assetId":
		a.AssetID = v
	case "totalShares":
		a.TotalShares = domain.RawQuantity(v)
	case "initialOwner":
		a.InitialOwner = v
	case "to":
		a.To = v
	case "shares":
		a.Shares = domain.RawQuantity(v)
	}
}

// Usage returns the command help shown to operators.
func Usage() string {
	var b strings.Builder
	b.WriteString("Fractional Ownership Commands (Contract TX):\n")
	for _, g := range grammar {
		b.WriteString("  " + g.name)
		for _, f := range g.fields {
			if g.name == domain.CmdCreateAsset && f == "initialOwner" {
				b.WriteString(" [" + f + "]")
				continue
			}
			b.WriteString(" <" + f + ">")
		}
		b.WriteString("\n")
	}
	b.WriteString("JSON Form:\n")
	b.WriteString(`  {"op":"create_asset","assetId":"tc:...","totalShares":10000,"initialOwner":"..."}` + "\n")
	return b.String()
}
