// Package pipeline is the Ingestion Pipeline (C3): normalize raw pair
// objects into the internal snapshot model, write token/pair/snapshot rows
// through the store's single transactional entry point, and drive the
// dump/reversal state machine for every persisted snapshot.
package pipeline

import (
	"time"

	"github.com/uharev-ux/dex-dump-screener/internal/dumpstate"
	"github.com/uharev-ux/dex-dump-screener/internal/fetcher"
	"github.com/uharev-ux/dex-dump-screener/internal/normalize"
	"github.com/uharev-ux/dex-dump-screener/internal/store"
	"github.com/uharev-ux/dex-dump-screener/pkg/logger"
)

func nowMs() int64 { return time.Now().UnixMilli() }

// Pipeline wires a Store to normalize+persist raw pair batches. It carries
// no state of its own beyond the store handle and a logger.
type Pipeline struct {
	st  *store.Store
	log *logger.Logger
}

func New(st *store.Store) *Pipeline {
	return &Pipeline{st: st, log: logger.Named("pipeline")}
}

// Result is the (processed, errors, skipped) triple every ingestion op
// returns per spec.md §4.3.
type Result struct {
	Processed int
	Errors    int
	Skipped   int
}

// PersistPairs normalizes and writes every raw pair unconditionally — the
// path used when the caller already knows which pairs it wants (collect by
// explicit pair/token addresses): no known-pair filtering applies.
func (p *Pipeline) PersistPairs(raw []fetcher.RawPair) Result {
	return p.persist(raw)
}

// PersistFromRaw filters raw to pairs whose address is non-empty and not
// already present in known, then persists the remainder. This is the path
// used for newly-discovered pairs (collect-new): a pair address already in
// the known set is assumed still tracked via the regular collect path and is
// silently skipped here, never re-inserted as if new.
func (p *Pipeline) PersistFromRaw(raw []fetcher.RawPair, known map[string]struct{}) Result {
	filtered := make([]fetcher.RawPair, 0, len(raw))
	for _, r := range raw {
		addr := r.Get("pairAddress").String()
		if addr == "" {
			continue
		}
		if _, seen := known[addr]; seen {
			continue
		}
		filtered = append(filtered, r)
	}
	res := p.persist(filtered)
	res.Skipped += len(raw) - len(filtered)
	return res
}

func (p *Pipeline) persist(raw []fetcher.RawPair) Result {
	var res Result
	snapshotTsMs := nowMs()
	for _, r := range raw {
		snap := normalize.Snapshot(r, snapshotTsMs)
		if snap.PairAddress == "" {
			p.log.Warn("skipping pair with empty pair_address")
			res.Errors++
			continue
		}
		pair := normalize.ToPair(snap)
		baseToken := normalize.BaseToken(r)
		quoteToken := normalize.QuoteToken(r)

		if err := p.st.PersistSnapshot(baseToken, quoteToken, pair, snap); err != nil {
			p.log.Warn("failed to persist pair", logger.String("pair_address", snap.PairAddress), logger.FieldErr(err))
			res.Errors++
			continue
		}
		if err := dumpstate.Update(p.st, snap.PairAddress); err != nil {
			p.log.Warn("dump state update failed", logger.String("pair_address", snap.PairAddress), logger.FieldErr(err))
			res.Errors++
			continue
		}
		res.Processed++
	}
	p.log.Info("persisted pairs", logger.Int("processed", res.Processed),
		logger.Int("errors", res.Errors), logger.Int("skipped", res.Skipped))
	return res
}
