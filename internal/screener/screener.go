// Package screener is the ATH Drawdown Screener (C5): a per-cycle scan over
// the Pair table that finds a validated all-time-high, computes drawdown,
// classifies each pair into REJECT / WATCHLIST_BOOTSTRAP / WATCHLIST_L{1,2,3}
// / SIGNAL, and enrolls emitted SIGNALs for outcome evaluation.
package screener

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
	"github.com/uharev-ux/dex-dump-screener/internal/store"
	"github.com/uharev-ux/dex-dump-screener/pkg/logger"
)

const (
	maxAgeHours = 24.0

	athMinSnapshotsInWindow = 2
	athValidateWindowSec    = 300
	athMinTxnsInWindow      = 1
	athFallbackMaxAttempts  = 10

	hardMinLiquidityUsd = 10_000.0
	hardMinVolumeH24    = 500.0
	hardMinTxnsH24      = 5

	dropRejectLow  = 25.0
	dropL1Low      = 25.0
	dropL2Low      = 35.0
	dropL3Low      = 45.0
	dropSignalLow  = 50.0
	dropSignalHigh = 60.0

	signalMinTxnsH24     = 10
	signalMinBuysH24     = 5
	signalMinLiquidity   = 5_000.0
	signalCooldownSec    = 3600
)

var evaluationHorizonsSec = []int64{1800, 3600, 7200}

type levelMinima struct {
	txns int64
	liq  float64
}

var watchlistMinima = map[model.Decision]levelMinima{
	model.DecisionWatchlistL1: {txns: 5, liq: 10_000},
	model.DecisionWatchlistL2: {txns: 7, liq: 15_000},
	model.DecisionWatchlistL3: {txns: 10, liq: 20_000},
}

// Entry is one screener output row, per spec.md §4.5's output contract.
type Entry struct {
	PairAddress  string
	URL          string
	CurrentPrice decimal.Decimal
	AthPrice     decimal.Decimal
	DropFromAth  decimal.Decimal
	LiquidityUsd decimal.Decimal
	VolumeH24    decimal.Decimal
	TxnsH24      int64
	BuysH24      int64
	Score        decimal.Decimal
}

// Output is the four ordered classification lists plus bootstrap.
type Output struct {
	Signals   []Entry
	Wl3       []Entry
	Wl2       []Entry
	Wl1       []Entry
	Bootstrap []Entry
}

// Screener holds the store handle the scan reads from and writes decisions
// into. now is injected so tests can control the clock, per spec.md §5.
type Screener struct {
	st  *store.Store
	log *logger.Logger
}

func New(st *store.Store) *Screener {
	return &Screener{st: st, log: logger.Default().Named("screener")}
}

// Run scans every pair once and returns the classified output.
func (sc *Screener) Run(now time.Time) (Output, error) {
	var out Output
	pairs, err := sc.st.IteratePairs()
	if err != nil {
		return out, err
	}
	nowMs := now.UnixMilli()
	for _, pair := range pairs {
		entry, decision, err := sc.evaluate(pair, nowMs)
		if err != nil {
			sc.log.Warn("screener: pair evaluation failed",
				logger.String("pair_address", pair.PairAddress), logger.FieldErr(err))
			continue
		}
		if entry == nil {
			continue
		}
		switch decision {
		case model.DecisionSignal:
			out.Signals = append(out.Signals, *entry)
		case model.DecisionWatchlistL3:
			out.Wl3 = append(out.Wl3, *entry)
		case model.DecisionWatchlistL2:
			out.Wl2 = append(out.Wl2, *entry)
		case model.DecisionWatchlistL1:
			out.Wl1 = append(out.Wl1, *entry)
		case model.DecisionWatchlistBootstrap:
			out.Bootstrap = append(out.Bootstrap, *entry)
		}
	}
	return out, nil
}

// evaluate runs the full per-pair algorithm of spec.md §4.5, recording a
// StrategyDecision for every terminal classification. It returns (nil, "",
// nil) for pairs that are gated out (age, no price, hard filters) before
// reaching a terminal classification worth auditing.
func (sc *Screener) evaluate(pair model.Pair, nowMs int64) (*Entry, model.Decision, error) {
	// 1. Age gate.
	if pair.PairCreatedAtMs != nil && *pair.PairCreatedAtMs > 0 {
		ageHours := float64(nowMs-*pair.PairCreatedAtMs) / (3600 * 1000)
		if ageHours > maxAgeHours {
			return nil, "", nil
		}
	}

	// 2. Current price.
	currentPrice, err := sc.st.FetchLatestPrice(pair.PairAddress)
	if err != nil {
		return nil, "", err
	}
	if currentPrice == nil || currentPrice.LessThanOrEqual(decimal.Zero) {
		return nil, "", nil
	}

	// 3. Bootstrap gate.
	count, err := sc.st.GetSnapshotCount(pair.PairAddress)
	if err != nil {
		return nil, "", err
	}
	if count < athMinSnapshotsInWindow {
		if !sc.passesHardFilters(pair) {
			return nil, "", nil
		}
		entry := sc.buildEntry(pair, *currentPrice, decimal.Decimal{}, decimal.Zero)
		reasons := reasonsBlob(nil, false, "", nil, "insufficient_price_history")
		if err := sc.recordDecision(pair.PairAddress, nowMs, model.DecisionWatchlistBootstrap, *currentPrice, nil, nil, reasons); err != nil {
			return nil, "", err
		}
		return &entry, model.DecisionWatchlistBootstrap, nil
	}

	// 4. Valid-ATH search.
	athPrice, athValid, athSource, metrics, bootstrapInstead, err := sc.findValidATH(pair, *currentPrice)
	if err != nil {
		return nil, "", err
	}
	if bootstrapInstead {
		if !sc.passesHardFilters(pair) {
			return nil, "", nil
		}
		entry := sc.buildEntry(pair, *currentPrice, decimal.Decimal{}, decimal.Zero)
		reasons := reasonsBlob(nil, false, "", metrics, "insufficient_price_history")
		if err := sc.recordDecision(pair.PairAddress, nowMs, model.DecisionWatchlistBootstrap, *currentPrice, nil, nil, reasons); err != nil {
			return nil, "", err
		}
		return &entry, model.DecisionWatchlistBootstrap, nil
	}
	if !athValid {
		reasons := reasonsBlob(nil, false, "", metrics, "valid_ath_not_found")
		if err := sc.recordDecision(pair.PairAddress, nowMs, model.DecisionReject, *currentPrice, nil, nil, reasons); err != nil {
			return nil, "", err
		}
		return nil, model.DecisionReject, nil
	}

	// 5. Drawdown.
	dropFromAth := athPrice.Sub(*currentPrice).Div(athPrice).Mul(decimal.NewFromInt(100))

	// 6. Hard filters.
	if !sc.passesHardFilters(pair) {
		return nil, "", nil
	}

	// 7. Classification by drop.
	dropFloat, _ := dropFromAth.Float64()
	decision := classify(dropFloat)
	if decision == model.DecisionReject {
		reasons := reasonsBlob(&dropFromAth, true, athSource, metrics, "")
		if err := sc.recordDecision(pair.PairAddress, nowMs, model.DecisionReject, *currentPrice, &athPrice, &dropFromAth, reasons); err != nil {
			return nil, "", err
		}
		return nil, model.DecisionReject, nil
	}

	// 8. Market-quality downgrade, watchlist tiers only (SIGNAL candidates skip this).
	if decision != model.DecisionSignal {
		decision = sc.downgrade(decision, pair)
		if decision == model.DecisionReject {
			reasons := reasonsBlob(&dropFromAth, true, athSource, metrics, "")
			if err := sc.recordDecision(pair.PairAddress, nowMs, model.DecisionReject, *currentPrice, &athPrice, &dropFromAth, reasons); err != nil {
				return nil, "", err
			}
			return nil, model.DecisionReject, nil
		}
		entry := sc.buildEntry(pair, *currentPrice, athPrice, dropFromAth)
		reasons := reasonsBlob(&dropFromAth, true, athSource, metrics, "")
		if err := sc.recordDecision(pair.PairAddress, nowMs, decision, *currentPrice, &athPrice, &dropFromAth, reasons); err != nil {
			return nil, "", err
		}
		return &entry, decision, nil
	}

	// 9. SIGNAL gating.
	if !sc.eligibleForSignal(pair, nowMs) {
		// Deliberate interpretation, not a classification bug: spec.md's
		// drop-band table only says a 50-60% drop falls in "SIGNAL range",
		// it doesn't say every pair in that range must be recorded as
		// SIGNAL or REJECT with nothing in between. A pair here failed the
		// separate signal-quality gate (cooldown/txns/buys/liquidity), not
		// the drawdown test, so it is re-run through the same market-
		// quality ladder a WATCHLIST_L3 candidate would get rather than
		// being force-fitted into SIGNAL or REJECT. See DESIGN.md's Open
		// Question decisions for the full rationale.
		decision = model.DecisionWatchlistL3
		decision = sc.downgrade(decision, pair)
		if decision == model.DecisionReject {
			reasons := reasonsBlob(&dropFromAth, true, athSource, metrics, "")
			if err := sc.recordDecision(pair.PairAddress, nowMs, model.DecisionReject, *currentPrice, &athPrice, &dropFromAth, reasons); err != nil {
				return nil, "", err
			}
			return nil, model.DecisionReject, nil
		}
		entry := sc.buildEntry(pair, *currentPrice, athPrice, dropFromAth)
		reasons := reasonsBlob(&dropFromAth, true, athSource, metrics, "")
		if err := sc.recordDecision(pair.PairAddress, nowMs, decision, *currentPrice, &athPrice, &dropFromAth, reasons); err != nil {
			return nil, "", err
		}
		return &entry, decision, nil
	}

	entry := sc.buildEntry(pair, *currentPrice, athPrice, dropFromAth)
	entry.Score = dropFromAth
	reasons := reasonsBlob(&dropFromAth, true, athSource, metrics, "")
	if err := sc.emitSignal(pair, *currentPrice, athPrice, dropFromAth, nowMs, reasons); err != nil {
		return nil, "", err
	}
	return &entry, model.DecisionSignal, nil
}

func (sc *Screener) passesHardFilters(pair model.Pair) bool {
	var liq, vol float64
	if pair.LiquidityUsd != nil {
		liq, _ = pair.LiquidityUsd.Float64()
	}
	if pair.VolumeH24 != nil {
		vol, _ = pair.VolumeH24.Float64()
	}
	return liq >= hardMinLiquidityUsd && vol >= hardMinVolumeH24 && pair.TxnsH24() >= hardMinTxnsH24
}

func classify(dropPct float64) model.Decision {
	switch {
	case dropPct < dropRejectLow:
		return model.DecisionReject
	case dropPct < dropL2Low:
		return model.DecisionWatchlistL1
	case dropPct < dropL3Low:
		return model.DecisionWatchlistL2
	case dropPct < dropSignalLow:
		return model.DecisionWatchlistL3
	case dropPct <= dropSignalHigh:
		return model.DecisionSignal
	default:
		return model.DecisionReject
	}
}

// downgrade applies the L3->L2->L1->REJECT market-quality ladder.
func (sc *Screener) downgrade(decision model.Decision, pair model.Pair) model.Decision {
	order := []model.Decision{model.DecisionWatchlistL3, model.DecisionWatchlistL2, model.DecisionWatchlistL1}
	startIdx := -1
	for i, d := range order {
		if d == decision {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return decision
	}
	var liq float64
	if pair.LiquidityUsd != nil {
		liq, _ = pair.LiquidityUsd.Float64()
	}
	txns := pair.TxnsH24()
	for i := startIdx; i < len(order); i++ {
		minima := watchlistMinima[order[i]]
		if txns >= minima.txns && liq >= minima.liq {
			return order[i]
		}
	}
	return model.DecisionReject
}

func (sc *Screener) eligibleForSignal(pair model.Pair, nowMs int64) bool {
	var liq float64
	if pair.LiquidityUsd != nil {
		liq, _ = pair.LiquidityUsd.Float64()
	}
	var buys int64
	if pair.BuysH24 != nil {
		buys = *pair.BuysH24
	}
	if pair.TxnsH24() < signalMinTxnsH24 || buys < signalMinBuysH24 || liq < signalMinLiquidity {
		return false
	}
	lastSignalAtMs, err := sc.st.GetSignalCooldown(pair.PairAddress)
	if err != nil {
		sc.log.Warn("screener: cooldown lookup failed", logger.String("pair_address", pair.PairAddress), logger.FieldErr(err))
		return false
	}
	if lastSignalAtMs != nil && (nowMs-*lastSignalAtMs)/1000 < signalCooldownSec {
		return false
	}
	return true
}

func (sc *Screener) buildEntry(pair model.Pair, currentPrice, athPrice, dropFromAth decimal.Decimal) Entry {
	var liq, vol decimal.Decimal
	if pair.LiquidityUsd != nil {
		liq = *pair.LiquidityUsd
	}
	if pair.VolumeH24 != nil {
		vol = *pair.VolumeH24
	}
	var buys int64
	if pair.BuysH24 != nil {
		buys = *pair.BuysH24
	}
	return Entry{
		PairAddress:  pair.PairAddress,
		URL:          pair.URL,
		CurrentPrice: currentPrice,
		AthPrice:     athPrice,
		DropFromAth:  dropFromAth,
		LiquidityUsd: liq,
		VolumeH24:    vol,
		TxnsH24:      pair.TxnsH24(),
		BuysH24:      buys,
		Score:        dropFromAth,
	}
}

func (sc *Screener) recordDecision(pairAddress string, nowMs int64, decision model.Decision, currentPrice decimal.Decimal, athPrice, dropFromAth *decimal.Decimal, reasons datatypes.JSON) error {
	return sc.st.InsertStrategyDecision(&model.StrategyDecision{
		PairAddress:  pairAddress,
		DecidedAtMs:  nowMs,
		Decision:     decision,
		CurrentPrice: currentPrice,
		AthPrice:     athPrice,
		DropFromAth:  dropFromAth,
		Reasons:      reasons,
	})
}

func (sc *Screener) emitSignal(pair model.Pair, currentPrice, athPrice, dropFromAth decimal.Decimal, nowMs int64, reasons datatypes.JSON) error {
	if err := sc.recordDecision(pair.PairAddress, nowMs, model.DecisionSignal, currentPrice, &athPrice, &dropFromAth, reasons); err != nil {
		return err
	}
	if err := sc.st.SetSignalCooldown(pair.PairAddress, nowMs); err != nil {
		return err
	}
	event := &model.SignalEvent{
		PairAddress: pair.PairAddress,
		SignalTs:    nowMs,
		EntryPrice:  currentPrice,
		AthPrice:    athPrice,
		DropFromAth: dropFromAth,
		Score:       dropFromAth,
		Features:    reasons,
	}
	_, err := sc.st.InsertSignalEventWithPending(event, evaluationHorizonsSec)
	return errors.Wrap(err, "emit signal")
}

func reasonsBlob(dropFromAth *decimal.Decimal, athValid bool, athSource string, metrics map[string]any, reason string) datatypes.JSON {
	m := map[string]any{"ath_valid": athValid}
	if dropFromAth != nil {
		d, _ := dropFromAth.Float64()
		m["drop_from_ath"] = d
	}
	if athSource != "" {
		m["ath_source"] = athSource
	}
	if metrics != nil {
		m["ath_validation_metrics"] = metrics
	}
	if reason != "" {
		m["reason"] = reason
	}
	b, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}
