// Package normalize centralizes the defensive coercion spec.md §9 calls
// for: every field of a raw upstream pair object becomes either a typed
// value or null, never a fabricated zero. This is the Ingestion Pipeline's
// (C3) single normalization step.
package normalize

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/uharev-ux/dex-dump-screener/internal/fetcher"
	"github.com/uharev-ux/dex-dump-screener/internal/model"
	"github.com/uharev-ux/dex-dump-screener/pkg/logger"
)

// Snapshot converts one raw pair object into a full Snapshot record,
// stamping snapshotTsMs as its snapshot_ts. It never returns an error:
// an empty/missing pairAddress simply yields a Snapshot with an empty
// PairAddress, which the pipeline is contractually required to reject.
//
// normalize(normalize(x)) = normalize(x): every extractor below is a pure
// projection out of the raw JSON tree, so re-normalizing an
// already-normalized Snapshot's re-serialized form is a no-op.
func Snapshot(raw fetcher.RawPair, snapshotTsMs int64) *model.Snapshot {
	snap := &model.Snapshot{
		PairAddress:       raw.Get("pairAddress").String(),
		ChainID:           str(raw.Get("chainId")),
		DexID:             str(raw.Get("dexId")),
		URL:               str(raw.Get("url")),
		BaseTokenAddress:  canonicalAddress(raw.Get("baseToken.address")),
		QuoteTokenAddress: canonicalAddress(raw.Get("quoteToken.address")),
		PriceUsd:          dec(raw.Get("priceUsd")),
		PriceNative:       dec(raw.Get("priceNative")),
		LiquidityUsd:      dec(raw.Get("liquidity.usd")),
		LiquidityBase:     dec(raw.Get("liquidity.base")),
		LiquidityQuote:    dec(raw.Get("liquidity.quote")),
		VolumeM5:          dec(raw.Get("volume.m5")),
		VolumeH1:          dec(raw.Get("volume.h1")),
		VolumeH6:          dec(raw.Get("volume.h6")),
		VolumeH24:         dec(raw.Get("volume.h24")),
		PriceChangeM5:     dec(raw.Get("priceChange.m5")),
		PriceChangeH1:     dec(raw.Get("priceChange.h1")),
		PriceChangeH6:     dec(raw.Get("priceChange.h6")),
		PriceChangeH24:    dec(raw.Get("priceChange.h24")),
		BuysM5:            i64(raw.Get("txns.m5.buys")),
		SellsM5:           i64(raw.Get("txns.m5.sells")),
		BuysH1:            i64(raw.Get("txns.h1.buys")),
		SellsH1:           i64(raw.Get("txns.h1.sells")),
		BuysH6:            i64(raw.Get("txns.h6.buys")),
		SellsH6:           i64(raw.Get("txns.h6.sells")),
		BuysH24:           i64(raw.Get("txns.h24.buys")),
		SellsH24:          i64(raw.Get("txns.h24.sells")),
		Fdv:               dec(raw.Get("fdv")),
		MarketCap:         dec(raw.Get("marketCap")),
		PairCreatedAtMs:   i64(raw.Get("pairCreatedAt")),
		SnapshotTs:        snapshotTsMs,
	}
	if snap.ChainID == "" {
		snap.ChainID = model.ChainSolana
	}
	return snap
}

// ToPair projects a normalized Snapshot into the Pair "latest state" shape
// the store upserts.
func ToPair(snap *model.Snapshot) *model.Pair {
	return &model.Pair{
		PairAddress:       snap.PairAddress,
		ChainID:           snap.ChainID,
		DexID:             snap.DexID,
		URL:               snap.URL,
		BaseTokenAddress:  snap.BaseTokenAddress,
		QuoteTokenAddress: snap.QuoteTokenAddress,
		PriceUsd:          snap.PriceUsd,
		PriceNative:       snap.PriceNative,
		LiquidityUsd:      snap.LiquidityUsd,
		LiquidityBase:     snap.LiquidityBase,
		LiquidityQuote:    snap.LiquidityQuote,
		VolumeM5:          snap.VolumeM5,
		VolumeH1:          snap.VolumeH1,
		VolumeH6:          snap.VolumeH6,
		VolumeH24:         snap.VolumeH24,
		PriceChangeM5:     snap.PriceChangeM5,
		PriceChangeH1:     snap.PriceChangeH1,
		PriceChangeH6:     snap.PriceChangeH6,
		PriceChangeH24:    snap.PriceChangeH24,
		BuysM5:            snap.BuysM5,
		SellsM5:           snap.SellsM5,
		BuysH1:            snap.BuysH1,
		SellsH1:           snap.SellsH1,
		BuysH6:            snap.BuysH6,
		SellsH6:           snap.SellsH6,
		BuysH24:           snap.BuysH24,
		SellsH24:          snap.SellsH24,
		Fdv:               snap.Fdv,
		MarketCap:         snap.MarketCap,
		PairCreatedAtMs:   snap.PairCreatedAtMs,
		SnapshotTs:        snap.SnapshotTs,
	}
}

// BaseToken and QuoteToken project the two token rows a pair references.
func BaseToken(raw fetcher.RawPair) *model.Token {
	return token(raw.Get("baseToken"))
}

func QuoteToken(raw fetcher.RawPair) *model.Token {
	return token(raw.Get("quoteToken"))
}

func token(node gjson.Result) *model.Token {
	addr := canonicalAddress(node.Get("address"))
	if addr == "" {
		return nil
	}
	return &model.Token{
		Address:     addr,
		ChainID:     model.ChainSolana,
		Symbol:      str(node.Get("symbol")),
		DisplayName: str(node.Get("name")),
	}
}

// canonicalAddress validates a base58 Solana address and returns its
// canonical string form; on parse failure it logs and returns the raw
// string unchanged rather than fabricating a zero address — an invalid
// address is still a value the pipeline can persist and later reject on,
// not a reason to invent data.
func canonicalAddress(node gjson.Result) string {
	raw := str(node)
	if raw == "" {
		return ""
	}
	pk, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		logger.Default().Named("normalize").Debug("address failed base58 validation, keeping raw value",
			logger.String("address", raw), logger.FieldErr(err))
		return raw
	}
	return pk.String()
}

func str(node gjson.Result) string {
	if !node.Exists() || node.Type == gjson.Null {
		return ""
	}
	return node.String()
}

func dec(node gjson.Result) *decimal.Decimal {
	if !node.Exists() || node.Type == gjson.Null {
		return nil
	}
	d, err := decimal.NewFromString(node.String())
	if err != nil {
		return nil
	}
	return &d
}

func i64(node gjson.Result) *int64 {
	switch node.Type {
	case gjson.Number:
		n := node.Int()
		return &n
	case gjson.String:
		d, err := decimal.NewFromString(node.Str)
		if err != nil {
			return nil
		}
		n := d.IntPart()
		return &n
	default:
		return nil
	}
}
