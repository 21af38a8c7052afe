package screener

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
)

func intPtr(n int64) *int64 { return &n }

func decFromString(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestClassify_Boundaries(t *testing.T) {
	cases := []struct {
		drop float64
		want model.Decision
	}{
		{24.9, model.DecisionReject},
		{25.0, model.DecisionWatchlistL1},
		{34.9, model.DecisionWatchlistL1},
		{35.0, model.DecisionWatchlistL2},
		{44.9, model.DecisionWatchlistL2},
		{45.0, model.DecisionWatchlistL3},
		{49.9, model.DecisionWatchlistL3},
		{50.0, model.DecisionSignal},
		{60.0, model.DecisionSignal},
		{60.1, model.DecisionReject},
		{90.0, model.DecisionReject},
	}
	for _, c := range cases {
		if got := classify(c.drop); got != c.want {
			t.Errorf("classify(%.1f) = %v, want %v", c.drop, got, c.want)
		}
	}
}

func TestDowngrade_KeepsTierWhenMinimaMet(t *testing.T) {
	sc := &Screener{}
	pair := model.Pair{
		BuysH24:  intPtr(6),
		SellsH24: intPtr(6),
	}
	liq := decFromString("20000")
	pair.LiquidityUsd = &liq
	if got := sc.downgrade(model.DecisionWatchlistL3, pair); got != model.DecisionWatchlistL3 {
		t.Errorf("expected L3 to hold (12 txns >= 10, liq 20000 >= 20000), got %v", got)
	}
}

func TestDowngrade_StepsDownWhenL3MinimaFail(t *testing.T) {
	sc := &Screener{}
	pair := model.Pair{
		BuysH24:  intPtr(4),
		SellsH24: intPtr(4),
	}
	liq := decFromString("12000")
	pair.LiquidityUsd = &liq
	// txns=8 fails L3 (needs 10) and L2 (needs 7 -> passes) but liq=12000
	// fails L2 (needs 15000) and passes L1 (needs 10000).
	got := sc.downgrade(model.DecisionWatchlistL3, pair)
	if got != model.DecisionWatchlistL1 {
		t.Errorf("expected downgrade to L1, got %v", got)
	}
}

func TestDowngrade_FallsAllTheWayToReject(t *testing.T) {
	sc := &Screener{}
	pair := model.Pair{
		BuysH24:  intPtr(1),
		SellsH24: intPtr(1),
	}
	liq := decFromString("100")
	pair.LiquidityUsd = &liq
	if got := sc.downgrade(model.DecisionWatchlistL3, pair); got != model.DecisionReject {
		t.Errorf("expected REJECT when no tier's minima are met, got %v", got)
	}
}

func TestDowngrade_NonWatchlistDecisionPassesThrough(t *testing.T) {
	sc := &Screener{}
	if got := sc.downgrade(model.DecisionSignal, model.Pair{}); got != model.DecisionSignal {
		t.Errorf("expected SIGNAL to pass through downgrade untouched, got %v", got)
	}
	if got := sc.downgrade(model.DecisionReject, model.Pair{}); got != model.DecisionReject {
		t.Errorf("expected REJECT to pass through downgrade untouched, got %v", got)
	}
}

func TestPassesHardFilters(t *testing.T) {
	sc := &Screener{}
	liq := decFromString("10000")
	vol := decFromString("500")
	good := model.Pair{
		LiquidityUsd: &liq,
		VolumeH24:    &vol,
		BuysH24:  intPtr(3),
		SellsH24: intPtr(2),
	}
	if !sc.passesHardFilters(good) {
		t.Error("expected pair exactly at hard-filter thresholds to pass")
	}

	thinLiq := decFromString("9999")
	bad := good
	bad.LiquidityUsd = &thinLiq
	if sc.passesHardFilters(bad) {
		t.Error("expected pair below hardMinLiquidityUsd to fail")
	}
}
