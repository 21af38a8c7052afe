package store

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
)

func TestDumpWatchlist_SaveAndGetRoundTrip(t *testing.T) {
	st := newTestStore(t)
	entry := &model.DumpWatchlistEntry{
		PairAddress: "PAIR_DW",
		AddedAtMs:   1000,
		UpdatedAtMs: 1000,
		State:       model.DumpStateDumping,
		PeakPrice:   decimal.RequireFromString("2.0"),
		LowPrice:    decimal.RequireFromString("1.0"),
		LastPrice:   decimal.RequireFromString("1.0"),
		DropPct:     decimal.RequireFromString("50"),
	}
	if err := st.SaveDumpWatchlistEntry(entry); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := st.GetDumpWatchlistEntry("PAIR_DW")
	if err != nil || got == nil {
		t.Fatalf("get: err=%v got=%+v", err, got)
	}
	if got.State != model.DumpStateDumping || !got.DropPct.Equal(decimal.RequireFromString("50")) {
		t.Errorf("unexpected round-tripped entry: %+v", got)
	}
}

func TestDumpWatchlist_GetMissingReturnsNilNil(t *testing.T) {
	st := newTestStore(t)
	got, err := st.GetDumpWatchlistEntry("NOT_THERE")
	if err != nil || got != nil {
		t.Errorf("expected (nil, nil) for a missing entry, got (%+v, %v)", got, err)
	}
}

func TestDumpWatchlist_SaveRejectsEmptyPairAddress(t *testing.T) {
	st := newTestStore(t)
	if err := st.SaveDumpWatchlistEntry(&model.DumpWatchlistEntry{}); err == nil {
		t.Fatal("expected an error for an empty pair_address")
	}
}

func TestDumpWatchlist_IterateFiltersByState(t *testing.T) {
	st := newTestStore(t)
	dumping := &model.DumpWatchlistEntry{PairAddress: "P1", State: model.DumpStateDumping, UpdatedAtMs: 100}
	signal := &model.DumpWatchlistEntry{PairAddress: "P2", State: model.DumpStateSignal, UpdatedAtMs: 200}
	if err := st.SaveDumpWatchlistEntry(dumping); err != nil {
		t.Fatalf("save dumping: %v", err)
	}
	if err := st.SaveDumpWatchlistEntry(signal); err != nil {
		t.Fatalf("save signal: %v", err)
	}

	got, err := st.IterateDumpWatchlist(model.DumpStateSignal, 0)
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(got) != 1 || got[0].PairAddress != "P2" {
		t.Errorf("expected only the SIGNAL row, got %+v", got)
	}
}

func TestPruneDumpWatchlist_RemovesStaleAndOrphanRows(t *testing.T) {
	st := newTestStore(t)
	// FRESH needs a matching pairs row, or the orphan-cleanup half of
	// PruneDumpWatchlist would remove it regardless of its age.
	mustPersist(t, st, "FRESH", nil, "1.0")

	stale := &model.DumpWatchlistEntry{PairAddress: "STALE", State: model.DumpStateDumping, UpdatedAtMs: nowMs() - int64(10*3600*1000)}
	fresh := &model.DumpWatchlistEntry{PairAddress: "FRESH", State: model.DumpStateDumping, UpdatedAtMs: nowMs()}
	if err := st.SaveDumpWatchlistEntry(stale); err != nil {
		t.Fatalf("save stale: %v", err)
	}
	if err := st.SaveDumpWatchlistEntry(fresh); err != nil {
		t.Fatalf("save fresh: %v", err)
	}

	removed, err := st.PruneDumpWatchlist(3)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 row removed (stale, no matching pair), got %d", removed)
	}
	if got, _ := st.GetDumpWatchlistEntry("FRESH"); got == nil {
		t.Error("expected FRESH entry to survive prune")
	}
}
