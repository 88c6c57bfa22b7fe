package wallet

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, raw string) map[string]any {
	t.Helper()
	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &obj))
	return obj
}

func TestParseBalancesKnownShape(t *testing.T) {
	obj := decodeJSON(t, `{
		"data": {
			"user_asset": {"BUILD": "1,250.5", "WORLD": 3.25, "USDT": 10}
		}
	}`)

	b := ParseBalances(obj)
	require.True(t, b.HasBuild)
	assert.Equal(t, "1250.5", b.Build.String())
	require.True(t, b.HasWorld)
	assert.Equal(t, "3.25", b.World.String())
	require.True(t, b.HasUSDT)
	assert.Equal(t, "10", b.USDT.String())
}

func TestParseBalancesCwalletFallback(t *testing.T) {
	obj := decodeJSON(t, `{
		"data": {"cwallet": {"ctoken_contribute": 42.5}}
	}`)

	b := ParseBalances(obj)
	require.True(t, b.HasBuild)
	assert.Equal(t, "42.5", b.Build.String())
}

func TestParseBalancesKnownKeysBeatScan(t *testing.T) {
	// The recursive scan would find "other_balance" first alphabetically;
	// the known-key fast path must win.
	obj := decodeJSON(t, `{
		"data": {
			"aaa_other_balance": 999,
			"build": 7
		}
	}`)

	b := ParseBalances(obj)
	require.True(t, b.HasBuild)
	assert.Equal(t, "7", b.Build.String())
}

func TestParseBalancesRecursiveScan(t *testing.T) {
	obj := decodeJSON(t, `{
		"result": {
			"wallets": [
				{"kind_usdt_total": "55.5"},
				{"deep": {"xworld_amount": 2}}
			]
		}
	}`)

	b := ParseBalances(obj)
	require.True(t, b.HasUSDT)
	assert.Equal(t, "55.5", b.USDT.String())
	require.True(t, b.HasWorld)
	assert.Equal(t, "2", b.World.String())
	assert.False(t, b.HasBuild)
}

func TestParseBalancesEmpty(t *testing.T) {
	b := ParseBalances(map[string]any{})
	assert.False(t, b.HasBuild)
	assert.False(t, b.HasWorld)
	assert.False(t, b.HasUSDT)
}
