// Package poller is the Poller/Scheduler (C7): the top-level continuous
// "collect-new" cycle loop. Its ticker-driven shape follows the pack's
// screener loops (see krisnaepras-backend-screener-crypto's ScreenerUsecase
// .Run), but the per-cycle work stays on the calling goroutine — spec.md §5
// mandates one writer, no fan-out, unlike that loop's per-symbol goroutines.
package poller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/uharev-ux/dex-dump-screener/internal/config"
	"github.com/uharev-ux/dex-dump-screener/internal/fetcher"
	"github.com/uharev-ux/dex-dump-screener/internal/pipeline"
	"github.com/uharev-ux/dex-dump-screener/internal/store"
	"github.com/uharev-ux/dex-dump-screener/pkg/logger"
)

// Poller owns the continuous ingestion cycle.
type Poller struct {
	st       *store.Store
	fetcher  *fetcher.Fetcher
	pipeline *pipeline.Pipeline
	cfg      config.PollerConfig
	log      *logger.Logger

	shutdownAfterCycle atomic.Bool
	stopped            atomic.Bool
}

func New(st *store.Store, f *fetcher.Fetcher, cfg config.PollerConfig) *Poller {
	return &Poller{
		st:       st,
		fetcher:  f,
		pipeline: pipeline.New(st),
		cfg:      cfg,
		log:      logger.Named("poller"),
	}
}

// RequestShutdown implements the poller's half of the two-stage
// cancellation contract of spec.md §4.7: the first call lets the in-flight
// cycle finish and then ends the loop; a second call only marks the poller
// stopped. Interrupting a cycle that is still running is done by cancelling
// the context passed to Run.
func (p *Poller) RequestShutdown() {
	if !p.shutdownAfterCycle.CompareAndSwap(false, true) {
		p.stopped.Store(true)
	}
}

// Run drives the cycle loop until ctx is cancelled, or until the cycle that
// was running when RequestShutdown was first called has finished.
func (p *Poller) Run(ctx context.Context) {
	interval := time.Duration(p.cfg.IntervalSec * float64(time.Second))
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.runCycle(ctx)
	for {
		if p.stopped.Load() {
			return
		}
		if p.shutdownAfterCycle.Load() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runCycle(ctx)
		}
	}
}

// runCycle implements spec.md §4.7's numbered loop body for one iteration.
func (p *Poller) runCycle(ctx context.Context) {
	if err := p.st.StampCycleStarted(); err != nil {
		p.log.Warn("stamp cycle started failed", logger.FieldErr(err))
	}

	counters := map[string]any{}
	cycleErr := p.doCycle(ctx, counters)

	if cycleErr != nil {
		p.log.Warn("collect-new cycle failed", logger.FieldErr(cycleErr))
		if err := p.st.StampCycleError(cycleErr); err != nil {
			p.log.Warn("stamp cycle error failed", logger.FieldErr(err))
		}
		return
	}
	if err := p.st.StampCycleFinished(counters); err != nil {
		p.log.Warn("stamp cycle finished failed", logger.FieldErr(err))
	}
}

func (p *Poller) doCycle(ctx context.Context, counters map[string]any) error {
	tokenAddrs, err := p.fetcher.GetLatestTokenProfiles(ctx)
	if err != nil {
		return err
	}
	if p.cfg.LimitPerCycle > 0 && len(tokenAddrs) > p.cfg.LimitPerCycle {
		tokenAddrs = tokenAddrs[:p.cfg.LimitPerCycle]
	}

	var result pipeline.Result
	if len(tokenAddrs) > 0 {
		raw, err := p.fetcher.GetPairsByTokenAddressesBatched(ctx, tokenAddrs)
		if err != nil {
			return err
		}
		known, err := p.st.GetKnownPairAddresses()
		if err != nil {
			return err
		}
		result = p.pipeline.PersistFromRaw(raw, known)
	}
	counters["processed"] = result.Processed
	counters["errors"] = result.Errors
	counters["skipped"] = result.Skipped
	counters["discovered_tokens"] = len(tokenAddrs)

	if !p.cfg.NoPrune {
		maxAge := p.cfg.PruneMaxAgeHours
		if maxAge <= 0 {
			maxAge = 24
		}
		pruneRes, err := p.st.PruneByPairAge(maxAge, false, false)
		if err != nil {
			p.log.Warn("auto-prune by age failed", logger.FieldErr(err))
		} else {
			counters["pruned_pairs"] = pruneRes.DeletedPairs
			counters["pruned_snapshots"] = pruneRes.DeletedSnapshots
			counters["pruned_tokens"] = pruneRes.DeletedTokens
		}

		ttl := p.cfg.DumpWatchlistTTLH
		if ttl <= 0 {
			ttl = 3
		}
		pruned, err := p.st.PruneDumpWatchlist(ttl)
		if err != nil {
			p.log.Warn("auto-prune dump watchlist failed", logger.FieldErr(err))
		} else {
			counters["pruned_dump_watchlist"] = pruned
		}
	}
	return nil
}
