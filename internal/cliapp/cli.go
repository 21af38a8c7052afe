// Package cliapp is the stdlib-flag CLI surface (spec.md §6.1): a thin,
// external-collaborator front-end wiring the core components into runnable
// subcommands, matching original_source/cli.py's subcommand set.
package cliapp

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/uharev-ux/dex-dump-screener/internal/app"
	"github.com/uharev-ux/dex-dump-screener/internal/export"
	"github.com/uharev-ux/dex-dump-screener/internal/fetcher"
	"github.com/uharev-ux/dex-dump-screener/internal/model"
	"github.com/uharev-ux/dex-dump-screener/internal/normalize"
	"github.com/uharev-ux/dex-dump-screener/internal/outcome"
	"github.com/uharev-ux/dex-dump-screener/internal/pipeline"
	"github.com/uharev-ux/dex-dump-screener/internal/screener"
	"github.com/uharev-ux/dex-dump-screener/internal/store"
	"github.com/uharev-ux/dex-dump-screener/pkg/logger"
)

const (
	defaultDB              = "dexscreener.sqlite"
	defaultPruneMaxAgeH    = 24.0
	selfCheckAgeHours      = 24.0
	dumpWatchlistTTLHours  = 3.0
	collectNewIntervalSec  = 60.0
	checkPairAddress       = "3nMFwZXwY1s1M5s8vYAHqd4wGs4iSxXE4LRoUMMYqEgF"
)

// Run dispatches argv[0] to the matching subcommand and returns a process
// exit code: 0 ok, 1 operational failure, 2 invariant failure.
func Run(argv []string) int {
	logger.SetDefault(logger.DefaultConfig().Build())

	if len(argv) < 1 {
		printUsage()
		return 1
	}
	cmd, rest := argv[0], argv[1:]
	switch cmd {
	case "collect":
		return cmdCollect(rest)
	case "collect-new":
		return cmdCollectNew(rest)
	case "prune":
		return cmdPrune(rest)
	case "export":
		return cmdExport(rest)
	case "dump-watchlist":
		return cmdDumpWatchlist(rest)
	case "dump-watchlist-export":
		return cmdDumpWatchlistExport(rest)
	case "self-check":
		return cmdSelfCheck(rest)
	case "check":
		return cmdCheck(rest)
	case "strategy":
		return cmdStrategy(rest)
	default:
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: screenerd <collect|collect-new|prune|export|dump-watchlist|dump-watchlist-export|self-check|check|strategy> [flags]")
}

// parseAddresses accepts either a comma-separated list or a path to a file
// with one address per line, per original_source's parse_addresses_input.
func parseAddresses(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if data, err := os.ReadFile(value); err == nil {
		return splitNonEmpty(string(data), "\n")
	}
	return splitNonEmpty(value, ",")
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func openStore(dbPath string) (*store.Store, error) {
	return store.Open(store.Config{Path: dbPath})
}

func cmdCollect(args []string) int {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	dbPath := fs.String("db", defaultDB, "sqlite database path")
	tokens := fs.String("tokens", "", "comma-separated token addresses or file path")
	pairs := fs.String("pairs", "", "comma-separated pair addresses or file path")
	noPrune := fs.Bool("no-prune", false, "skip auto-prune after collecting")
	pruneMaxAgeH := fs.Float64("prune-max-age-hours", defaultPruneMaxAgeH, "auto-prune age threshold in hours")
	fs.Parse(args)

	st, err := openStore(*dbPath)
	if err != nil {
		logger.Error("collect: open store failed", logger.FieldErr(err))
		return 1
	}

	f := fetcher.New(fetcher.DefaultConfig())
	ctx := context.Background()
	var raw []fetcher.RawPair

	switch {
	case *tokens != "":
		addrs := parseAddresses(*tokens)
		if len(addrs) == 0 {
			logger.Error("collect: no token addresses parsed", logger.String("input", *tokens))
			return 1
		}
		raw, err = f.GetPairsByTokenAddressesBatched(ctx, addrs)
	case *pairs != "":
		addrs := parseAddresses(*pairs)
		if len(addrs) == 0 {
			logger.Error("collect: no pair addresses parsed", logger.String("input", *pairs))
			return 1
		}
		raw, err = f.GetPairsByPairAddresses(ctx, addrs)
	default:
		logger.Error("collect: specify either --tokens or --pairs")
		return 1
	}
	if err != nil {
		logger.Error("collect: fetch failed", logger.FieldErr(err))
		return 1
	}

	res := pipeline.New(st).PersistPairs(raw)

	if !*noPrune {
		if pr, err := st.PruneByPairAge(*pruneMaxAgeH, false, false); err != nil {
			logger.Warn("collect: auto-prune skipped", logger.FieldErr(err))
		} else {
			logger.Info("collect: auto-pruned", logger.Int64("snapshots", pr.DeletedSnapshots),
				logger.Int64("pairs", pr.DeletedPairs), logger.Int64("tokens", pr.DeletedTokens))
		}
		if n, err := st.PruneDumpWatchlist(dumpWatchlistTTLHours); err == nil && n > 0 {
			logger.Info("collect: dump-watchlist pruned", logger.Int64("removed", n))
		}
	}

	logger.Info("collect: done", logger.Int("processed", res.Processed), logger.Int("errors", res.Errors))
	return 0
}

func cmdCollectNew(args []string) int {
	fs := flag.NewFlagSet("collect-new", flag.ExitOnError)
	dbPath := fs.String("db", defaultDB, "sqlite database path")
	intervalSec := fs.Float64("interval-sec", collectNewIntervalSec, "seconds between cycles")
	limitPerCycle := fs.Int("limit-per-cycle", 0, "max newly discovered tokens processed per cycle (0 = unbounded)")
	noPrune := fs.Bool("no-prune", false, "skip auto-prune each cycle")
	pruneMaxAgeH := fs.Float64("prune-max-age-hours", defaultPruneMaxAgeH, "auto-prune age threshold in hours")
	fs.Parse(args)

	if *intervalSec < 1 {
		logger.Error("collect-new: --interval-sec must be >= 1")
		return 1
	}

	a := app.New()
	if err := a.InitializeWithOverrides(*dbPath, *intervalSec, *limitPerCycle, *noPrune, *pruneMaxAgeH); err != nil {
		logger.Error("collect-new: initialize failed", logger.FieldErr(err))
		return 1
	}
	if err := a.Run(); err != nil {
		logger.Error("collect-new: run failed", logger.FieldErr(err))
		return 1
	}
	return 0
}

func cmdPrune(args []string) int {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	dbPath := fs.String("db", defaultDB, "sqlite database path")
	maxAgeH := fs.Float64("max-age-hours", defaultPruneMaxAgeH, "age threshold in hours")
	dryRun := fs.Bool("dry-run", false, "compute counts without deleting")
	vacuum := fs.Bool("vacuum", false, "VACUUM after a real prune")
	fs.Parse(args)

	if !fileExists(*dbPath) {
		logger.Error("prune: database not found", logger.String("path", *dbPath))
		return 1
	}
	st, err := openStore(*dbPath)
	if err != nil {
		logger.Error("prune: open store failed", logger.FieldErr(err))
		return 1
	}
	res, err := st.PruneByPairAge(*maxAgeH, *dryRun, *vacuum)
	if err != nil {
		logger.Error("prune: failed", logger.FieldErr(err))
		return 1
	}
	verb := "prune"
	if *dryRun {
		verb = "prune (dry-run)"
	}
	logger.Info(verb+": deleted", logger.Int64("snapshots", res.DeletedSnapshots),
		logger.Int64("pairs", res.DeletedPairs), logger.Int64("tokens", res.DeletedTokens))
	return 0
}

func cmdExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dbPath := fs.String("db", defaultDB, "sqlite database path")
	table := fs.String("table", "snapshots", "snapshots|pairs|tokens")
	format := fs.String("format", "json", "json|csv")
	out := fs.String("out", "", "output file path")
	fs.Parse(args)

	if !fileExists(*dbPath) {
		logger.Error("export: database not found", logger.String("path", *dbPath))
		return 1
	}
	if *out == "" {
		logger.Error("export: --out is required")
		return 1
	}
	st, err := openStore(*dbPath)
	if err != nil {
		logger.Error("export: open store failed", logger.FieldErr(err))
		return 1
	}

	rows, err := export.Rows(st, export.Table(*table))
	if err != nil {
		logger.Error("export: unknown table or read failure", logger.String("table", *table), logger.FieldErr(err))
		return 1
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		logger.Error("export: mkdir failed", logger.FieldErr(err))
		return 1
	}
	if err := writeExport(*out, export.Format(*format), rows); err != nil {
		logger.Error("export: write failed", logger.FieldErr(err))
		return 1
	}
	logger.Info("export: done", logger.Int("rows", len(rows)), logger.String("out", *out), logger.String("format", *format))
	return 0
}

func writeExport(path string, format export.Format, rows []map[string]any) error {
	switch format {
	case export.FormatCSV:
		return export.WriteCSV(path, rows)
	default:
		return export.WriteJSON(path, rows)
	}
}

func cmdDumpWatchlist(args []string) int {
	fs := flag.NewFlagSet("dump-watchlist", flag.ExitOnError)
	dbPath := fs.String("db", defaultDB, "sqlite database path")
	state := fs.String("state", "", "filter by state: DUMPING|BOTTOMING|SIGNAL")
	limit := fs.Int("limit", 50, "max rows")
	fs.Parse(args)

	if !fileExists(*dbPath) {
		logger.Error("dump-watchlist: database not found", logger.String("path", *dbPath))
		return 1
	}
	st, err := openStore(*dbPath)
	if err != nil {
		logger.Error("dump-watchlist: open store failed", logger.FieldErr(err))
		return 1
	}
	rows, err := st.IterateDumpWatchlist(model.DumpState(*state), *limit)
	if err != nil {
		logger.Error("dump-watchlist: read failed", logger.FieldErr(err))
		return 1
	}
	if len(rows) == 0 {
		fmt.Println("No dump watchlist entries")
		return 0
	}
	fmt.Printf("%-44s %-9s %7s %12s %12s %12s %14s\n",
		"pair_address", "state", "drop_pct", "peak_price", "low_price", "last_price", "updated_at_ms")
	for _, r := range rows {
		fmt.Printf("%-44s %-9s %7s %12s %12s %12s %14d\n",
			truncate(r.PairAddress, 44), r.State, r.DropPct.StringFixed(1),
			r.PeakPrice.String(), r.LowPrice.String(), r.LastPrice.String(), r.UpdatedAtMs)
	}
	return 0
}

func cmdDumpWatchlistExport(args []string) int {
	fs := flag.NewFlagSet("dump-watchlist-export", flag.ExitOnError)
	dbPath := fs.String("db", defaultDB, "sqlite database path")
	state := fs.String("state", "", "filter by state")
	format := fs.String("format", "json", "json|csv")
	out := fs.String("out", "", "output file path")
	fs.Parse(args)

	if !fileExists(*dbPath) {
		logger.Error("dump-watchlist-export: database not found", logger.String("path", *dbPath))
		return 1
	}
	if *out == "" {
		logger.Error("dump-watchlist-export: --out is required")
		return 1
	}
	st, err := openStore(*dbPath)
	if err != nil {
		logger.Error("dump-watchlist-export: open store failed", logger.FieldErr(err))
		return 1
	}
	rows, err := export.Rows(st, export.TableDumpWatchlist)
	if err != nil {
		logger.Error("dump-watchlist-export: read failed", logger.FieldErr(err))
		return 1
	}
	if *state != "" {
		var filtered []map[string]any
		for _, r := range rows {
			if s, _ := r["state"].(string); s == *state {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		logger.Error("dump-watchlist-export: mkdir failed", logger.FieldErr(err))
		return 1
	}
	if err := writeExport(*out, export.Format(*format), rows); err != nil {
		logger.Error("dump-watchlist-export: write failed", logger.FieldErr(err))
		return 1
	}
	logger.Info("dump-watchlist-export: done", logger.Int("rows", len(rows)))
	return 0
}

func cmdSelfCheck(args []string) int {
	fs := flag.NewFlagSet("self-check", flag.ExitOnError)
	dbPath := fs.String("db", defaultDB, "sqlite database path")
	fix := fs.Bool("fix", false, "run prune_by_pair_age(24) and re-check on failure")
	fs.Parse(args)

	if !fileExists(*dbPath) {
		logger.Error("self-check: database not found", logger.String("path", *dbPath))
		return 1
	}
	st, err := openStore(*dbPath)
	if err != nil {
		logger.Error("self-check: open store failed", logger.FieldErr(err))
		return 1
	}

	counts, err := st.SelfCheckInvariants(selfCheckAgeHours)
	if err != nil {
		logger.Error("self-check: failed", logger.FieldErr(err))
		return 1
	}
	ok := counts.OldPairs == 0 && counts.OldPairSnapshots == 0 && counts.OrphanTokens == 0
	printSelfCheck(ok, counts)

	if !ok && *fix {
		res, err := st.PruneByPairAge(selfCheckAgeHours, false, false)
		if err != nil {
			logger.Error("self-check: fix failed", logger.FieldErr(err))
			return 1
		}
		fmt.Printf("FIX APPLIED: prune_by_pair_age(max_age_hours=24) => snapshots=%d pairs=%d tokens=%d\n",
			res.DeletedSnapshots, res.DeletedPairs, res.DeletedTokens)
		counts, err = st.SelfCheckInvariants(selfCheckAgeHours)
		if err != nil {
			logger.Error("self-check: re-check failed", logger.FieldErr(err))
			return 1
		}
		ok = counts.OldPairs == 0 && counts.OldPairSnapshots == 0 && counts.OrphanTokens == 0
		printSelfCheck(ok, counts)
	}

	if ok {
		return 0
	}
	return 2
}

func printSelfCheck(ok bool, counts *store.InvariantCounts) {
	if ok {
		fmt.Println("SELF-CHECK OK")
	} else {
		fmt.Println("SELF-CHECK FAIL")
	}
	fmt.Printf("counts: old_pairs=%d, old_pairs_snapshots=%d, orphan_tokens=%d\n",
		counts.OldPairs, counts.OldPairSnapshots, counts.OrphanTokens)
}

// cmdCheck runs the full-cycle smoke test: API -> normalize -> sqlite ->
// read -> serialize, against an in-memory database.
func cmdCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Parse(args)

	logger.Info("check: calling DexScreener API for one pair")
	f := fetcher.New(fetcher.CheckConfig())
	raw, err := f.GetPairsByPairAddresses(context.Background(), []string{checkPairAddress})
	if err != nil || len(raw) == 0 {
		logger.Error("check: API returned no pairs", logger.FieldErr(err))
		return 1
	}
	pairNode := raw[0]
	if pairNode.Get("pairAddress").String() == "" || !pairNode.Get("baseToken").Exists() {
		logger.Error("check: API response missing pairAddress or baseToken")
		return 1
	}

	logger.Info("check: normalizing to snapshot")
	snap := normalize.Snapshot(pairNode, time.Now().UnixMilli())
	if snap.PairAddress == "" {
		logger.Error("check: invalid snapshot after normalization")
		return 1
	}

	logger.Info("check: writing to sqlite (in-memory)")
	st, err := store.Open(store.Config{Path: ":memory:"})
	if err != nil {
		logger.Error("check: open in-memory store failed", logger.FieldErr(err))
		return 1
	}
	pair := normalize.ToPair(snap)
	baseToken := normalize.BaseToken(pairNode)
	quoteToken := normalize.QuoteToken(pairNode)
	if err := st.PersistSnapshot(baseToken, quoteToken, pair, snap); err != nil {
		logger.Error("check: sqlite write failed", logger.FieldErr(err))
		return 1
	}

	logger.Info("check: reading from sqlite")
	rows, err := st.IterateSnapshots(snap.PairAddress, nil, nil)
	if err != nil || len(rows) == 0 {
		logger.Error("check: no rows read from snapshots", logger.FieldErr(err))
		return 1
	}

	logger.Info("check: serializing")
	exportRows, err := export.Rows(st, export.TableSnapshots)
	if err != nil || len(exportRows) == 0 {
		logger.Error("check: serialization failed", logger.FieldErr(err))
		return 1
	}

	logger.Info("check: all steps passed")
	return 0
}

func cmdStrategy(args []string) int {
	fs := flag.NewFlagSet("strategy", flag.ExitOnError)
	dbPath := fs.String("db", defaultDB, "sqlite database path")
	loopSec := fs.Int("loop", 0, "seconds between passes; 0 runs once")
	fs.Parse(args)

	if !fileExists(*dbPath) {
		logger.Error("strategy: database not found", logger.String("path", *dbPath))
		return 1
	}
	st, err := openStore(*dbPath)
	if err != nil {
		logger.Error("strategy: open store failed", logger.FieldErr(err))
		return 1
	}
	sc := screener.New(st)
	oc := outcome.New(st)

	runOnce := func() error {
		out, err := sc.Run(time.Now())
		if err != nil {
			return err
		}
		printStrategyOutput(out)
		if _, err := oc.RunHorizon(time.Now()); err != nil {
			logger.Warn("strategy: horizon pass failed", logger.FieldErr(err))
		}
		if _, err := oc.RunTrigger(time.Now()); err != nil {
			logger.Warn("strategy: trigger pass failed", logger.FieldErr(err))
		}
		return nil
	}

	if *loopSec <= 0 {
		if err := runOnce(); err != nil {
			logger.Error("strategy: run failed", logger.FieldErr(err))
			return 1
		}
		return 0
	}

	interval := time.Duration(*loopSec) * time.Second
	for {
		if err := runOnce(); err != nil {
			logger.Error("strategy: run failed", logger.FieldErr(err))
			return 1
		}
		time.Sleep(interval)
	}
}

func printStrategyOutput(out screener.Output) {
	fmt.Println("--- WATCHLIST ---")
	watchlist := append(append(append([]screener.Entry{}, out.Wl3...), out.Wl2...), out.Wl1...)
	if len(watchlist) == 0 {
		fmt.Println("(none)")
	} else {
		fmt.Printf("%-44s %7s %12s %12s %6s\n", "pair", "drop%", "liq", "vol", "txns")
		for _, e := range watchlist {
			fmt.Printf("%-44s %7s %12s %12s %6d\n",
				truncate(e.PairAddress, 44), e.DropFromAth.StringFixed(1),
				e.LiquidityUsd.StringFixed(0), e.VolumeH24.StringFixed(0), e.TxnsH24)
		}
	}
	fmt.Println("--- SIGNAL ---")
	if len(out.Signals) == 0 {
		fmt.Println("(none)")
	} else {
		for _, e := range out.Signals {
			fmt.Printf("pair=%s drop_from_ath=%s%% ath_price=%s current_price=%s %s\n",
				truncate(e.PairAddress, 44), e.DropFromAth.StringFixed(1), e.AthPrice.String(), e.CurrentPrice.String(), e.URL)
		}
	}
	fmt.Println("---")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func fileExists(path string) bool {
	if path == ":memory:" {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}
