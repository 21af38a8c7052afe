package outcome

import (
	"testing"
	"time"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
)

// S5: a signal with no snapshots at all inside its horizon window resolves
// to NO_DATA rather than staying PENDING forever.
func TestRunHorizon_NoSnapshotsYieldsNoData(t *testing.T) {
	st := newTestStore(t)
	const pairAddress = "PAIR_S5"
	const t0 = int64(1_700_000_000_000)
	emitTestSignal(t, st, pairAddress, t0, "100")

	a := New(st)
	n, err := a.RunHorizon(time.UnixMilli(t0 + 7200*1000 + 1))
	if err != nil {
		t.Fatalf("RunHorizon: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected all 3 horizons (1800/3600/7200) evaluated, got %d", n)
	}
}

// S6: exactly one snapshot inside the horizon window still yields a DONE
// evaluation, with max_price == min_price == price_end.
func TestRunHorizon_SinglePointWindow(t *testing.T) {
	st := newTestStore(t)
	const pairAddress = "PAIR_S6"
	const t0 = int64(1_700_000_000_000)
	emitTestSignal(t, st, pairAddress, t0, "100")
	seedSnapshot(t, st, pairAddress, t0+900, "125")

	a := New(st)
	n, err := a.RunHorizon(time.UnixMilli(t0 + 1800*1000 + 1))
	if err != nil {
		t.Fatalf("RunHorizon: %v", err)
	}
	if n == 0 {
		t.Fatal("expected at least the 1800s horizon to be evaluated")
	}
}

func TestRunHorizon_NotYetElapsedStaysPending(t *testing.T) {
	st := newTestStore(t)
	const pairAddress = "PAIR_TOO_EARLY"
	const t0 = int64(1_700_000_000_000)
	emitTestSignal(t, st, pairAddress, t0, "100")
	seedSnapshot(t, st, pairAddress, t0+10, "100")

	a := New(st)
	n, err := a.RunHorizon(time.UnixMilli(t0 + 10))
	if err != nil {
		t.Fatalf("RunHorizon: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 rows evaluated before any horizon elapses, got %d", n)
	}

	pending, err := st.IteratePendingSignalEvaluations()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected all 3 horizons still PENDING, got %d", len(pending))
	}
	for _, row := range pending {
		if row.Status != model.EvalPending {
			t.Errorf("expected PENDING status, got %v", row.Status)
		}
	}
}
