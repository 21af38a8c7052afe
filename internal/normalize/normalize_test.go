package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const samplePair = `{
	"pairAddress": "3nMFwZXwY1s1M5s8vYAHqd4wGs4iSxXE4LRoUMMYqEgF",
	"chainId": "solana",
	"dexId": "raydium",
	"url": "https://dexscreener.com/solana/example",
	"baseToken": {"address": "3nMFwZXwY1s1M5s8vYAHqd4wGs4iSxXE4LRoUMMYqEgF", "symbol": "FOO", "name": "Foo Token"},
	"quoteToken": {"address": "So11111111111111111111111111111111111111112", "symbol": "SOL", "name": "Wrapped SOL"},
	"priceUsd": "1.50",
	"liquidity": {"usd": "15000", "base": "100", "quote": "50"},
	"volume": {"m5": "100", "h24": "600"},
	"txns": {"m5": {"buys": 2, "sells": 1}, "h24": {"buys": 10, "sells": 5}},
	"pairCreatedAt": 1700000000000
}`

func TestSnapshot_ExtractsCoreFields(t *testing.T) {
	raw := gjson.Parse(samplePair)
	snap := Snapshot(raw, 1_700_000_100_000)

	if snap.PairAddress == "" {
		t.Fatal("expected non-empty pair address")
	}
	if snap.PriceUsd == nil || !snap.PriceUsd.Equal(decimal.RequireFromString("1.50")) {
		t.Errorf("unexpected price_usd: %v", snap.PriceUsd)
	}
	if snap.BuysM5 == nil || *snap.BuysM5 != 2 {
		t.Errorf("unexpected buys_m5: %v", snap.BuysM5)
	}
	if snap.SnapshotTs != 1_700_000_100_000 {
		t.Errorf("unexpected snapshot_ts: %d", snap.SnapshotTs)
	}
}

func TestSnapshot_MissingPairAddressYieldsEmpty(t *testing.T) {
	raw := gjson.Parse(`{"chainId": "solana"}`)
	snap := Snapshot(raw, 0)
	if snap.PairAddress != "" {
		t.Errorf("expected empty pair address, got %q", snap.PairAddress)
	}
}

func TestSnapshot_MissingChainDefaultsToSolana(t *testing.T) {
	raw := gjson.Parse(`{"pairAddress": "x"}`)
	snap := Snapshot(raw, 0)
	if snap.ChainID != "solana" {
		t.Errorf("expected chain_id default of solana, got %q", snap.ChainID)
	}
}

// normalize(normalize(x)) = normalize(x): re-deriving Pair/Token from an
// already-normalized Snapshot is a pure projection with no further coercion.
func TestToPair_IsIdempotentProjection(t *testing.T) {
	raw := gjson.Parse(samplePair)
	snap := Snapshot(raw, 1_700_000_100_000)
	pair1 := ToPair(snap)
	pair2 := ToPair(snap)

	if pair1.PairAddress != pair2.PairAddress || !pair1.PriceUsd.Equal(*pair2.PriceUsd) {
		t.Fatal("ToPair projection is not stable across repeated calls")
	}
}

func TestBaseToken_InvalidAddressKeepsRawValue(t *testing.T) {
	raw := gjson.Parse(`{"baseToken": {"address": "not-a-valid-base58-address!!"}}`)
	tok := BaseToken(raw)
	if tok == nil || tok.Address != "not-a-valid-base58-address!!" {
		t.Errorf("expected raw address preserved on validation failure, got %+v", tok)
	}
}

func TestQuoteToken_EmptyAddressYieldsNil(t *testing.T) {
	raw := gjson.Parse(`{"quoteToken": {"address": ""}}`)
	if tok := QuoteToken(raw); tok != nil {
		t.Errorf("expected nil token for empty address, got %+v", tok)
	}
}
