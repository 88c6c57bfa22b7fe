package wallet

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tntool/escapebot/internal/numutil"
)

// ParseBalances extracts currency balances from a wallet response using two
// phases: the known response shapes first, then a recursive scan over every
// numeric leaf whose key path contains a recognizable currency substring.
// The fast path always wins; the scan only fills fields still missing, so
// behavior under schema drift stays predictable.
func ParseBalances(obj map[string]any) Balances {
	var b Balances

	data, _ := obj["data"].(map[string]any)
	if data == nil {
		data = obj
	}

	// Phase 1: known key shapes.
	if ua, ok := data["user_asset"].(map[string]any); ok {
		trySet(&b.Build, &b.HasBuild, ua["BUILD"])
		trySet(&b.World, &b.HasWorld, ua["WORLD"])
		trySet(&b.USDT, &b.HasUSDT, ua["USDT"])
	}
	if cw, ok := data["cwallet"].(map[string]any); ok {
		for _, key := range []string{"ctoken_contribute", "ctoken", "build", "balance", "amount"} {
			if b.HasBuild {
				break
			}
			trySet(&b.Build, &b.HasBuild, cw[key])
		}
	}
	for _, key := range []string{"build", "ctoken", "ctoken_contribute"} {
		if b.HasBuild {
			break
		}
		trySet(&b.Build, &b.HasBuild, data[key])
	}
	for _, key := range []string{"usdt", "kusdt", "usdt_balance"} {
		if b.HasUSDT {
			break
		}
		trySet(&b.USDT, &b.HasUSDT, data[key])
	}
	for _, key := range []string{"world", "xworld"} {
		if b.HasWorld {
			break
		}
		trySet(&b.World, &b.HasWorld, data[key])
	}

	if b.HasBuild && b.HasWorld && b.HasUSDT {
		return b
	}

	// Phase 2: recursive keyword scan, first match per currency wins.
	walkNumeric(obj, "", func(path string, v decimal.Decimal) {
		// A single leaf may satisfy more than one currency (for example
		// "usdt_balance"), so these are independent checks, not exclusive.
		if !b.HasBuild && containsAny(path, "ctoken", "build", "contribute", "balance") {
			b.Build, b.HasBuild = v, true
		}
		if !b.HasUSDT && strings.Contains(path, "usdt") {
			b.USDT, b.HasUSDT = v, true
		}
		if !b.HasWorld && containsAny(path, "world", "xworld") {
			b.World, b.HasWorld = v, true
		}
	})
	return b
}

func trySet(dst *decimal.Decimal, has *bool, v any) {
	if *has || v == nil {
		return
	}
	if d, ok := numutil.ParseDecimal(v); ok {
		*dst = d
		*has = true
	}
}

// walkNumeric visits every scalar leaf depth-first in sorted key order (so
// scan results are reproducible), reporting lowercased dotted key paths for
// numeric values.
func walkNumeric(v any, path string, visit func(string, decimal.Decimal)) {
	switch node := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			childPath := strings.ToLower(k)
			if path != "" {
				childPath = path + "." + childPath
			}
			walkNumeric(node[k], childPath, visit)
		}
	case []any:
		for _, child := range node {
			walkNumeric(child, path, visit)
		}
	default:
		if d, ok := numutil.ParseDecimal(node); ok {
			visit(path, d)
		}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
