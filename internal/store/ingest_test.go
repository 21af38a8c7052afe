package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mustPersist(t *testing.T, st *Store, pairAddress string, createdAtMs *int64, price string) {
	t.Helper()
	p := decimal.RequireFromString(price)
	base := &model.Token{Address: pairAddress + "_base", ChainID: "solana", Symbol: "FOO"}
	quote := &model.Token{Address: "So11111111111111111111111111111111111111112", ChainID: "solana", Symbol: "SOL"}
	pair := &model.Pair{
		PairAddress:       pairAddress,
		ChainID:           "solana",
		BaseTokenAddress:  base.Address,
		QuoteTokenAddress: quote.Address,
		PriceUsd:          &p,
		PairCreatedAtMs:   createdAtMs,
	}
	snap := &model.Snapshot{
		PairAddress:       pairAddress,
		ChainID:           "solana",
		BaseTokenAddress:  base.Address,
		QuoteTokenAddress: quote.Address,
		PriceUsd:          &p,
		SnapshotTs:        1_700_000_000_000,
	}
	require.NoError(t, st.PersistSnapshot(base, quote, pair, snap))
}

// S1: a brand new pair with no prior snapshots is admitted via a single
// atomic write that leaves tokens, pair, and snapshot all present.
func TestPersistSnapshot_BootstrapsNewPair(t *testing.T) {
	st := newTestStore(t)
	mustPersist(t, st, "PAIR_NEW", nil, "1.5")

	pair, err := st.GetPair("PAIR_NEW")
	require.NoError(t, err)
	require.NotNil(t, pair)

	count, err := st.GetSnapshotCount("PAIR_NEW")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestPersistSnapshot_RejectsEmptyPairAddress(t *testing.T) {
	st := newTestStore(t)
	err := st.PersistSnapshot(nil, nil, &model.Pair{}, &model.Snapshot{})
	require.Error(t, err)
}

func TestPersistSnapshot_PreservesCreatedAtOnUpdate(t *testing.T) {
	st := newTestStore(t)
	createdAt := int64(1_600_000_000_000)
	mustPersist(t, st, "PAIR_KEEP_CREATED", &createdAt, "1.0")

	// second snapshot arrives without a pair_created_at_ms (as raw API
	// responses sometimes omit it on subsequent polls).
	mustPersist(t, st, "PAIR_KEEP_CREATED", nil, "1.2")

	pair, err := st.GetPair("PAIR_KEEP_CREATED")
	require.NoError(t, err)
	require.NotNil(t, pair)
	require.NotNil(t, pair.PairCreatedAtMs)
	require.Equal(t, createdAt, *pair.PairCreatedAtMs)
}

// S2: pruning by age removes old pairs, their snapshots, and any tokens
// left orphaned, and self-check reports a quiet store afterward.
func TestPruneByPairAge_RemovesOldPairsAndOrphanTokens(t *testing.T) {
	st := newTestStore(t)
	oldCreated := nowMs() - int64(48*3600*1000)
	freshCreated := nowMs()

	mustPersist(t, st, "PAIR_OLD", &oldCreated, "1.0")
	mustPersist(t, st, "PAIR_FRESH", &freshCreated, "2.0")

	result, err := st.PruneByPairAge(24, false, false)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.DeletedPairs)
	require.EqualValues(t, 1, result.DeletedSnapshots)

	old, err := st.GetPair("PAIR_OLD")
	require.NoError(t, err)
	require.Nil(t, old)

	fresh, err := st.GetPair("PAIR_FRESH")
	require.NoError(t, err)
	require.NotNil(t, fresh)

	counts, err := st.SelfCheckInvariants(24)
	require.NoError(t, err)
	require.Zero(t, counts.OldPairs)
	require.Zero(t, counts.OldPairSnapshots)
	require.Zero(t, counts.OrphanTokens)
}

func TestPruneByPairAge_NeverTouchesUnknownCreationTime(t *testing.T) {
	st := newTestStore(t)
	mustPersist(t, st, "PAIR_UNKNOWN_AGE", nil, "1.0")

	result, err := st.PruneByPairAge(0, false, false)
	require.NoError(t, err)
	require.Zero(t, result.DeletedPairs)

	pair, err := st.GetPair("PAIR_UNKNOWN_AGE")
	require.NoError(t, err)
	require.NotNil(t, pair)
}

func TestPruneByPairAge_DryRunMutatesNothing(t *testing.T) {
	st := newTestStore(t)
	oldCreated := nowMs() - int64(48*3600*1000)
	mustPersist(t, st, "PAIR_OLD_DRY", &oldCreated, "1.0")

	result, err := st.PruneByPairAge(24, true, false)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.DeletedPairs)

	pair, err := st.GetPair("PAIR_OLD_DRY")
	require.NoError(t, err)
	require.NotNil(t, pair, "dry-run must not mutate anything")
}
