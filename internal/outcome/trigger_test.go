package outcome

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
	"github.com/uharev-ux/dex-dump-screener/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedSnapshot(t *testing.T, st *store.Store, pairAddress string, ts int64, price string) {
	t.Helper()
	p := decimal.RequireFromString(price)
	require.NoError(t, st.InsertSnapshot(&model.Snapshot{PairAddress: pairAddress, ChainID: "solana", SnapshotTs: ts, PriceUsd: &p}))
}

func emitTestSignal(t *testing.T, st *store.Store, pairAddress string, signalTs int64, entryPrice string) uint64 {
	t.Helper()
	entry := decimal.RequireFromString(entryPrice)
	event := &model.SignalEvent{
		PairAddress: pairAddress,
		SignalTs:    signalTs,
		EntryPrice:  entry,
		AthPrice:    entry,
		DropFromAth: decimal.Zero,
		Score:       decimal.Zero,
	}
	id, err := st.InsertSignalEventWithPending(event, []int64{1800, 3600, 7200})
	require.NoError(t, err)
	return id
}

func triggerEvalFor(t *testing.T, st *store.Store, signalID uint64) model.SignalTriggerEvaluation {
	t.Helper()
	var row model.SignalTriggerEvaluation
	require.NoError(t, st.DB().Where("signal_id = ?", signalID).First(&row).Error)
	return row
}

// S3: entry=100 at t0, prices 100/120/140/100/200 at t0..t0+4 -> TP1_FIRST,
// tp1_hit_ts=t0+2, bu_hit_after_tp1=1 (price dips back to entry at t0+3),
// post_tp1_max_pct=100 (peak of 200 after tp1).
func TestRunTrigger_TP1FirstWithBreakEven(t *testing.T) {
	st := newTestStore(t)
	const pairAddress = "PAIR_S3"
	const t0 = int64(1_700_000_000_000)

	signalID := emitTestSignal(t, st, pairAddress, t0, "100")
	seedSnapshot(t, st, pairAddress, t0, "100")
	seedSnapshot(t, st, pairAddress, t0+1, "120")
	seedSnapshot(t, st, pairAddress, t0+2, "140")
	seedSnapshot(t, st, pairAddress, t0+3, "100")
	seedSnapshot(t, st, pairAddress, t0+4, "200")

	a := New(st)
	n, err := a.RunTrigger(time.UnixMilli(t0 + triggerWindowSec*1000 + 1))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	pending, err := st.IteratePendingTriggerEvaluations()
	require.NoError(t, err)
	require.Empty(t, pending)

	row := triggerEvalFor(t, st, signalID)
	require.NotNil(t, row.Outcome)
	require.Equal(t, model.TriggerTP1First, *row.Outcome)
	require.NotNil(t, row.Tp1HitTs)
	require.Equal(t, t0+2, *row.Tp1HitTs)
	require.NotNil(t, row.BuHitAfterTp1)
	require.True(t, *row.BuHitAfterTp1)
	require.NotNil(t, row.PostTp1MaxPct)
	require.True(t, row.PostTp1MaxPct.Equal(decimal.NewFromInt(100)))
}

// S4: entry=100 at t0, prices 100/70/49 at t0..t0+2 -> SL_FIRST (ret <= -50%
// at price 49: (49-100)/100 = -51%).
func TestRunTrigger_SLFirst(t *testing.T) {
	st := newTestStore(t)
	const pairAddress = "PAIR_S4"
	const t0 = int64(1_700_000_000_000)

	signalID := emitTestSignal(t, st, pairAddress, t0, "100")
	seedSnapshot(t, st, pairAddress, t0, "100")
	seedSnapshot(t, st, pairAddress, t0+1, "70")
	seedSnapshot(t, st, pairAddress, t0+2, "49")

	a := New(st)
	n, err := a.RunTrigger(time.UnixMilli(t0 + triggerWindowSec*1000 + 1))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	row := triggerEvalFor(t, st, signalID)
	require.NotNil(t, row.Outcome)
	require.Equal(t, model.TriggerSLFirst, *row.Outcome)
	require.NotNil(t, row.SlHitTs)
	require.Equal(t, t0+2, *row.SlHitTs)
}

func TestRunTrigger_EvaluatesWithoutDueDateGate(t *testing.T) {
	st := newTestStore(t)
	const pairAddress = "PAIR_EARLY"
	const t0 = int64(1_700_000_000_000)

	emitTestSignal(t, st, pairAddress, t0, "100")
	seedSnapshot(t, st, pairAddress, t0, "100")
	seedSnapshot(t, st, pairAddress, t0+1, "110")

	a := New(st)
	// RunTrigger has no due-date gate of its own (unlike RunHorizon) -- it
	// evaluates every pending row against whatever snapshots exist inside
	// the fixed 24h window regardless of wall-clock "now".
	n, err := a.RunTrigger(time.UnixMilli(t0))
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestPctReturn_ZeroEntryIsZero(t *testing.T) {
	got := pctReturn(decimal.Zero, decimal.NewFromInt(50))
	require.True(t, got.Equal(decimal.Zero))
}
