package dumpstate

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAdmit_RejectsBelowDropThreshold(t *testing.T) {
	peak := point{Price: dec("1.0"), Ts: 1000}
	latest := point{Price: dec("0.6"), Ts: 2000, VolumeM5: dec("1000"), BuysM5: 10, SellsM5: 10}
	if e := admit(latest, peak, nil, dec("20000"), 3000); e != nil {
		t.Fatalf("expected nil (drop only 40%%, below entryMinDropPct), got %+v", e)
	}
}

func TestAdmit_RejectsBelowLiquidityThreshold(t *testing.T) {
	peak := point{Price: dec("1.0"), Ts: 1000}
	latest := point{Price: dec("0.4"), Ts: 2000, VolumeM5: dec("1000"), BuysM5: 10, SellsM5: 10}
	if e := admit(latest, peak, nil, dec("5000"), 3000); e != nil {
		t.Fatalf("expected nil (liquidity below entryMinLiquidityUsd), got %+v", e)
	}
}

func TestAdmit_RejectsBelowSellsThreshold(t *testing.T) {
	peak := point{Price: dec("1.0"), Ts: 1000}
	latest := point{Price: dec("0.4"), Ts: 2000, VolumeM5: dec("1000"), BuysM5: 10, SellsM5: 2}
	if e := admit(latest, peak, nil, dec("20000"), 3000); e != nil {
		t.Fatalf("expected nil (sells_m5 below entryMinSellsM5), got %+v", e)
	}
}

func TestAdmit_CreatesDumpingEntryWhenGatePasses(t *testing.T) {
	peak := point{Price: dec("1.0"), Ts: 1000}
	latest := point{Price: dec("0.4"), Ts: 2000, VolumeM5: dec("1000"), BuysM5: 10, SellsM5: 10}
	e := admit(latest, peak, nil, dec("20000"), 3000)
	if e == nil {
		t.Fatal("expected admitted entry")
	}
	if e.State != model.DumpStateDumping {
		t.Errorf("expected DUMPING state, got %v", e.State)
	}
	if !e.DropPct.Equal(dec("60")) {
		t.Errorf("expected drop_pct=60, got %s", e.DropPct.String())
	}
	if !e.LowPrice.Equal(latest.Price) || !e.PeakPrice.Equal(peak.Price) {
		t.Errorf("expected low=latest and peak=peak on admission, got low=%s peak=%s", e.LowPrice, e.PeakPrice)
	}
}

func TestApplyTransitions_DumpingToBottoming(t *testing.T) {
	entry := &model.DumpWatchlistEntry{
		State:     model.DumpStateDumping,
		LowPrice:  dec("1.0"),
		PeakPrice: dec("2.0"),
	}
	prev := &point{Price: dec("1.005"), VolumeM5: dec("100"), BuysM5: 5, SellsM5: 5}
	latest := point{Price: dec("1.005"), VolumeM5: dec("100"), BuysM5: 5, SellsM5: 5}

	out := applyTransitions(entry, latest, prev)
	if out.State != model.DumpStateBottoming {
		t.Errorf("expected BOTTOMING (both points above 1.003x low, buys>=0.8*sells), got %v", out.State)
	}
}

func TestApplyTransitions_StaysDumpingWithoutPriorBounce(t *testing.T) {
	entry := &model.DumpWatchlistEntry{
		State:     model.DumpStateDumping,
		LowPrice:  dec("1.0"),
		PeakPrice: dec("2.0"),
	}
	// prev has not bounced yet, only latest has.
	prev := &point{Price: dec("1.0"), VolumeM5: dec("100"), BuysM5: 5, SellsM5: 5}
	latest := point{Price: dec("1.005"), VolumeM5: dec("100"), BuysM5: 5, SellsM5: 5}

	out := applyTransitions(entry, latest, prev)
	if out.State != model.DumpStateDumping {
		t.Errorf("expected to remain DUMPING (prev has not bounced), got %v", out.State)
	}
}

func TestApplyTransitions_BottomingToSignal(t *testing.T) {
	entry := &model.DumpWatchlistEntry{
		State:     model.DumpStateBottoming,
		LowPrice:  dec("1.0"),
		PeakPrice: dec("2.0"),
	}
	prev := &point{Price: dec("1.005"), VolumeM5: dec("250")}
	latest := point{Price: dec("1.02"), VolumeM5: dec("300"), BuysM5: 10, SellsM5: 5}

	out := applyTransitions(entry, latest, prev)
	if out.State != model.DumpStateSignal {
		t.Fatalf("expected SIGNAL, got %v", out.State)
	}
	if out.SignalTs == nil || *out.SignalTs != latest.Ts {
		t.Errorf("expected signal_ts stamped to latest.Ts, got %+v", out.SignalTs)
	}
	if out.SignalPrice == nil || !out.SignalPrice.Equal(latest.Price) {
		t.Errorf("expected signal_price stamped to latest.Price, got %+v", out.SignalPrice)
	}
}

func TestApplyTransitions_SignalIsTerminal(t *testing.T) {
	ts := int64(500)
	price := dec("9.0")
	entry := &model.DumpWatchlistEntry{
		State:       model.DumpStateSignal,
		LowPrice:    dec("1.0"),
		PeakPrice:   dec("2.0"),
		SignalTs:    &ts,
		SignalPrice: &price,
	}
	latest := point{Price: dec("0.1"), Ts: 999}

	out := applyTransitions(entry, latest, nil)
	if out.State != model.DumpStateSignal {
		t.Errorf("expected SIGNAL to remain terminal, got %v", out.State)
	}
	if *out.SignalTs != ts || !out.SignalPrice.Equal(price) {
		t.Errorf("expected signal_ts/signal_price to stay fixed at first signal, got ts=%d price=%s", *out.SignalTs, out.SignalPrice)
	}
}

func TestAdvance_StabilityContractNeverDemotesOnShallowerDrop(t *testing.T) {
	existing := &model.DumpWatchlistEntry{
		State:     model.DumpStateBottoming,
		LowPrice:  dec("1.0"),
		PeakPrice: dec("2.0"),
		DropPct:   dec("50"),
	}
	// latest price recovers well past the entry drop threshold; the pair
	// should stay admitted and simply keep advancing through its states.
	latest := point{Price: dec("1.9"), Ts: 4000, VolumeM5: dec("50"), BuysM5: 1, SellsM5: 10}

	out := advance(existing, latest, point{Price: dec("2.0"), Ts: 1000}, nil, 5000)
	if out.State == "" {
		t.Fatal("expected an entry to be returned")
	}
	if out.DropPct.LessThan(decimal.Zero) {
		t.Errorf("drop_pct should never go negative, got %s", out.DropPct.String())
	}
}

func TestAdvance_UpdatesPeakAndLow(t *testing.T) {
	existing := &model.DumpWatchlistEntry{
		State:     model.DumpStateDumping,
		LowPrice:  dec("1.0"),
		PeakPrice: dec("2.0"),
		DropPct:   dec("50"),
	}
	newPeak := point{Price: dec("2.5"), Ts: 1500}
	latest := point{Price: dec("0.5"), Ts: 4000, VolumeM5: dec("10"), BuysM5: 1, SellsM5: 10}

	out := advance(existing, latest, newPeak, nil, 5000)
	if !out.PeakPrice.Equal(newPeak.Price) || out.PeakTs != newPeak.Ts {
		t.Errorf("expected peak to update to new higher peak, got %s @ %d", out.PeakPrice, out.PeakTs)
	}
	if !out.LowPrice.Equal(latest.Price) || out.LowTs != latest.Ts {
		t.Errorf("expected low to update to new lower price, got %s @ %d", out.LowPrice, out.LowTs)
	}
}

func TestTransition_NoExistingEntryDelegatesToAdmit(t *testing.T) {
	peak := point{Price: dec("1.0"), Ts: 1000}
	latest := point{Price: dec("0.9"), Ts: 2000, VolumeM5: dec("1000"), BuysM5: 10, SellsM5: 10}
	if out := transition(nil, latest, peak, nil, dec("20000"), 3000); out != nil {
		t.Errorf("expected nil (drop only 10%%), got %+v", out)
	}
}
