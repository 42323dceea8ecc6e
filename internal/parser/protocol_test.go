package parser

import (
	"strings"
	"testing"

	"frac_ledger/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Positional(t *testing.T) {
	t.Run("create with owner", func(t *testing.T) {
		d, ok := Parse("create_asset tc:poke:base:charizard 10000 trac1owner")
		require.True(t, ok)
		assert.Equal(t, domain.CmdCreateAsset, d.Type)
		assert.Equal(t, "tc:poke:base:charizard", d.Args.AssetID)
		assert.Equal(t, "10000", d.Args.TotalShares.Raw())
		assert.Equal(t, "trac1owner", d.Args.InitialOwner)
	})

	t.Run("create without owner", func(t *testing.T) {
		d, ok := Parse("  create_asset   tc:X\t500  ")
		require.True(t, ok)
		assert.Equal(t, "tc:X", d.Args.AssetID)
		assert.Equal(t, "500", d.Args.TotalShares.Raw())
		assert.Empty(t, d.Args.InitialOwner)
	})

	t.Run("transfer", func(t *testing.T) {
		d, ok := Parse("transfer_shares tc:X B 4000")
		require.True(t, ok)
		assert.Equal(t, domain.Dispatch{
			Type: domain.CmdTransferShares,
			Args: domain.Args{AssetID: "tc:X", To: "B", Shares: domain.RawQuantity("4000")},
		}, d)
	})

	t.Run("missing tokens leave fields unset", func(t *testing.T) {
		d, ok := Parse("transfer_shares tc:X")
		require.True(t, ok)
		assert.Empty(t, d.Args.To)
		assert.False(t, d.Args.Shares.IsSet())
	})

	t.Run("reads", func(t *testing.T) {
		d, ok := Parse("read_asset tc:X")
		require.True(t, ok)
		assert.Equal(t, domain.CmdReadAsset, d.Type)
		assert.Equal(t, "tc:X", d.Args.AssetID)

		d, ok = Parse("read_holders tc:X extra tokens")
		require.True(t, ok)
		assert.Equal(t, domain.CmdReadHolders, d.Type)
		assert.Equal(t, domain.Args{AssetID: "tc:X"}, d.Args)
	})

	t.Run("non-numeric shares are kept raw", func(t *testing.T) {
		d, ok := Parse("transfer_shares tc:X B lots")
		require.True(t, ok)
		assert.Equal(t, "lots", d.Args.Shares.Raw())
	})
}

func TestParse_JSON(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		d, ok := Parse(`{"op":"create_asset","assetId":"tc:X","totalShares":10000,"initialOwner":"A"}`)
		require.True(t, ok)
		assert.Equal(t, domain.CmdCreateAsset, d.Type)
		assert.Equal(t, "tc:X", d.Args.AssetID)
		assert.Equal(t, "10000", d.Args.TotalShares.Raw())
		assert.Equal(t, "A", d.Args.InitialOwner)
	})

	t.Run("unlisted fields dropped", func(t *testing.T) {
		d, ok := Parse(`{"op":"transfer_shares","assetId":"tc:X","to":"B","shares":1,"from":"mallory","totalShares":99}`)
		require.True(t, ok)
		assert.False(t, d.Args.TotalShares.IsSet(), "totalShares is not a transfer field")
		assert.Equal(t, "B", d.Args.To)
	})

	t.Run("read holders", func(t *testing.T) {
		d, ok := Parse(`{"op":"read_holders","assetId":"tc:X"}`)
		require.True(t, ok)
		assert.Equal(t, domain.CmdReadHolders, d.Type)
	})

	t.Run("numeric id keeps literal", func(t *testing.T) {
		d, ok := Parse(`{"op":"read_asset","assetId":42}`)
		require.True(t, ok)
		assert.Equal(t, "42", d.Args.AssetID)
	})
}

func TestParse_NoDispatch(t *testing.T) {
	inputs := []string{
		"",
		"   \t ",
		"burn_shares tc:X 10",
		`{"op":"create_asset"`,
		`{"assetId":"tc:X"}`,
		`{"op":"mint","assetId":"tc:X"}`,
		`{"op":7}`,
		`{}`,
	}

	for _, in := range inputs {
		_, ok := Parse(in)
		assert.False(t, ok, "input %q should not dispatch", in)
	}
}

func TestParse_Deterministic(t *testing.T) {
	in := `{"op":"create_asset","assetId":"tc:X","totalShares":1e4}`
	first, ok := Parse(in)
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		again, _ := Parse(in)
		assert.Equal(t, first, again)
	}
}

func TestUsage(t *testing.T) {
	u := Usage()
	for _, name := range Commands() {
		assert.True(t, strings.Contains(u, name), "usage missing %s", name)
	}
	assert.Contains(t, u, "[initialOwner]")
	assert.Contains(t, u, "transfer_shares <assetId> <to> <shares>")
}
