// Package dumpstate is the per-pair Dump/Reversal State Machine (C4):
// DUMPING → BOTTOMING → SIGNAL, updated idempotently on every newly
// persisted snapshot. The transition rule itself is a pure function
// (spec.md §9); Update is the thin orchestrator that reads inputs from and
// persists the result back into the store.
package dumpstate

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
	"github.com/uharev-ux/dex-dump-screener/internal/store"
)

const (
	entryMinDropPct      = 50.0
	entryMinLiquidityUsd = 10_000.0
	entryMinVolumeM5     = 500.0
	entryMinSellsM5      = 5

	bottomingBounceMult   = 1.003
	signalBounceMult      = 1.01
	signalBuysSellsRatio  = 0.8
	signalMinVolumeM5     = 300.0
)

// point is the minimal snapshot shape the pure transition function needs.
type point struct {
	Price   decimal.Decimal
	Ts      int64
	VolumeM5 decimal.Decimal
	BuysM5  int64
	SellsM5 int64
}

func pointFromSnapshot(s model.Snapshot) point {
	p := point{Ts: s.SnapshotTs}
	if s.PriceUsd != nil {
		p.Price = *s.PriceUsd
	}
	if s.VolumeM5 != nil {
		p.VolumeM5 = *s.VolumeM5
	}
	if s.BuysM5 != nil {
		p.BuysM5 = *s.BuysM5
	}
	if s.SellsM5 != nil {
		p.SellsM5 = *s.SellsM5
	}
	return p
}

// Update loads the state machine's inputs for pairAddress from st and
// persists the transitioned DumpWatchlistEntry, if the new snapshot yields
// one. It is a no-op when the latest price is null or non-positive.
func Update(st *store.Store, pairAddress string) error {
	last, err := st.GetLastSnapshots(pairAddress, 2)
	if err != nil {
		return err
	}
	if len(last) == 0 {
		return nil
	}
	latest := pointFromSnapshot(last[0])
	if latest.Price.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	peakCandidates, err := st.FetchAthCandidates(pairAddress, nil, 1)
	if err != nil {
		return err
	}
	if len(peakCandidates) == 0 || peakCandidates[0].PriceUsd == nil {
		return nil
	}
	peak := pointFromSnapshot(peakCandidates[0])

	pair, err := st.GetPair(pairAddress)
	if err != nil {
		return err
	}
	var liquidityUsd decimal.Decimal
	if pair != nil && pair.LiquidityUsd != nil {
		liquidityUsd = *pair.LiquidityUsd
	}

	var prev *point
	if len(last) == 2 {
		p := pointFromSnapshot(last[1])
		prev = &p
	}

	existing, err := st.GetDumpWatchlistEntry(pairAddress)
	if err != nil {
		return err
	}

	next := transition(existing, latest, peak, prev, liquidityUsd, time.Now().UnixMilli())
	if next == nil {
		return nil
	}
	next.PairAddress = pairAddress
	return st.SaveDumpWatchlistEntry(next)
}

// transition is the pure (entry, new_snapshot, history_tail) -> new_entry
// function spec.md §9 asks for. It returns nil when there is no existing
// entry and the admission gate does not pass (i.e. nothing to persist).
func transition(existing *model.DumpWatchlistEntry, latest, peak point, prev *point, liquidityUsd decimal.Decimal, nowMs int64) *model.DumpWatchlistEntry {
	if existing == nil {
		return admit(latest, peak, prev, liquidityUsd, nowMs)
	}
	return advance(existing, latest, peak, prev, nowMs)
}

// admit evaluates the entry-admission gate for a pair with no existing row.
func admit(latest, peak point, prev *point, liquidityUsd decimal.Decimal, nowMs int64) *model.DumpWatchlistEntry {
	if peak.Price.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	dropPct := peak.Price.Sub(latest.Price).Div(peak.Price).Mul(decimal.NewFromInt(100))

	if dropPct.LessThan(decimal.NewFromFloat(entryMinDropPct)) {
		return nil
	}
	if liquidityUsd.LessThan(decimal.NewFromFloat(entryMinLiquidityUsd)) {
		return nil
	}
	if latest.VolumeM5.LessThan(decimal.NewFromFloat(entryMinVolumeM5)) {
		return nil
	}
	if latest.SellsM5 < entryMinSellsM5 {
		return nil
	}

	entry := &model.DumpWatchlistEntry{
		AddedAtMs:   nowMs,
		UpdatedAtMs: nowMs,
		State:       model.DumpStateDumping,
		PeakPrice:   peak.Price,
		PeakTs:      peak.Ts,
		LowPrice:    latest.Price,
		LowTs:       latest.Ts,
		LastPrice:   latest.Price,
		LastTs:      latest.Ts,
		DropPct:     dropPct,
	}
	volume := latest.VolumeM5
	buys, sells := latest.BuysM5, latest.SellsM5
	entry.VolumeM5, entry.BuysM5, entry.SellsM5 = &volume, &buys, &sells
	return applyTransitions(entry, latest, prev)
}

// advance updates an existing row's last/peak/low/drop fields, then checks
// the state transitions. Admitted entries are never demoted for drop_pct
// falling back below the entry threshold — the stability contract.
func advance(existing *model.DumpWatchlistEntry, latest, peak point, prev *point, nowMs int64) *model.DumpWatchlistEntry {
	updated := *existing
	updated.LastPrice, updated.LastTs = latest.Price, latest.Ts
	volume, buys, sells := latest.VolumeM5, latest.BuysM5, latest.SellsM5
	updated.VolumeM5, updated.BuysM5, updated.SellsM5 = &volume, &buys, &sells
	updated.UpdatedAtMs = nowMs

	if peak.Price.GreaterThan(updated.PeakPrice) {
		updated.PeakPrice, updated.PeakTs = peak.Price, peak.Ts
	}
	if latest.Price.LessThan(updated.LowPrice) {
		updated.LowPrice, updated.LowTs = latest.Price, latest.Ts
	}
	if updated.PeakPrice.GreaterThan(decimal.Zero) {
		updated.DropPct = updated.PeakPrice.Sub(updated.LastPrice).Div(updated.PeakPrice).Mul(decimal.NewFromInt(100))
	}

	return applyTransitions(&updated, latest, prev)
}

// applyTransitions checks DUMPING->BOTTOMING and (DUMPING|BOTTOMING)->SIGNAL
// in that order; SIGNAL is terminal and never re-evaluated.
func applyTransitions(entry *model.DumpWatchlistEntry, latest point, prev *point) *model.DumpWatchlistEntry {
	if entry.State == model.DumpStateSignal {
		return entry
	}

	lowBounceThreshold := entry.LowPrice.Mul(decimal.NewFromFloat(bottomingBounceMult))
	if entry.State == model.DumpStateDumping && prev != nil {
		latestAboveBounce := latest.Price.GreaterThanOrEqual(lowBounceThreshold)
		prevAboveBounce := prev.Price.GreaterThanOrEqual(lowBounceThreshold)
		buysHoldUp := decimal.NewFromInt(latest.BuysM5).GreaterThanOrEqual(
			decimal.NewFromInt(latest.SellsM5).Mul(decimal.NewFromFloat(signalBuysSellsRatio)))
		if latestAboveBounce && prevAboveBounce && buysHoldUp {
			entry.State = model.DumpStateBottoming
		}
	}

	signalBounceThreshold := entry.LowPrice.Mul(decimal.NewFromFloat(signalBounceMult))
	prevVolume := decimal.Zero
	if prev != nil {
		prevVolume = prev.VolumeM5
	}
	minRequiredVolume := decimal.Max(prevVolume, decimal.NewFromFloat(signalMinVolumeM5))
	bounced := latest.Price.GreaterThanOrEqual(signalBounceThreshold)
	buysExceedSells := latest.BuysM5 > latest.SellsM5
	volumeHeld := latest.VolumeM5.GreaterThanOrEqual(minRequiredVolume)

	if (entry.State == model.DumpStateDumping || entry.State == model.DumpStateBottoming) &&
		bounced && buysExceedSells && volumeHeld {
		entry.State = model.DumpStateSignal
		if entry.SignalTs == nil {
			ts := latest.Ts
			price := latest.Price
			entry.SignalTs = &ts
			entry.SignalPrice = &price
		}
	}
	return entry
}
