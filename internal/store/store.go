// Package store is the Snapshot Store (C1): schema provisioning, row-level
// CRUD for tokens/pairs/snapshots, pruning, invariant checks, and the read
// projections used by the ingestion pipeline, the dump/reversal state
// machine, the ATH screener, and the outcome analyzer.
//
// The Store owns every row and every transaction boundary; every other
// component in this module talks to the database only through it.
package store

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
	"github.com/uharev-ux/dex-dump-screener/pkg/logger"
)

// unitMsThreshold: snapshot_ts values larger than this are milliseconds,
// per the store's unit-inference contract (spec.md §4.1).
const unitMsThreshold = int64(1_000_000_000_000)

// Config configures the embedded relational store.
type Config struct {
	// Path is the sqlite file path, e.g. "dexscreener.sqlite".
	Path string `mapstructure:"path"`
	// Debug enables verbose SQL tracing through the shared logger.
	Debug bool `mapstructure:"debug"`
}

// Store wraps a single *gorm.DB connection to one sqlite file.
type Store struct {
	db  *gorm.DB
	cfg Config
}

// Open provisions (or attaches to) the sqlite file at cfg.Path and runs
// forward-only schema migration: missing tables/indices are created,
// nothing is ever dropped.
func Open(cfg Config) (*Store, error) {
	gormCfg := &gorm.Config{
		Logger: newSQLLogger(logger.Default().Named("store"), cfg.Debug),
	}
	db, err := gorm.Open(sqlite.Open(cfg.Path), gormCfg)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite store at %s", cfg.Path)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "unwrap sql.DB")
	}
	// sqlite tolerates exactly one writer; keep the pool to a single
	// connection so the driver serializes writes for us instead of racing.
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(model.AllTables()...); err != nil {
		return errors.Wrap(err, "auto-migrate schema")
	}
	// AutoMigrate derives most indices from struct tags; the indices named
	// explicitly by spec.md §6 (one composite, the rest single-column) are
	// also created here under fixed names, idempotently.
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_snapshots_pair_ts ON snapshots(pair_address, snapshot_ts)`,
		`CREATE INDEX IF NOT EXISTS idx_dump_watchlist_state ON dump_watchlist(state)`,
		`CREATE INDEX IF NOT EXISTS idx_dump_watchlist_updated ON dump_watchlist(updated_at_ms)`,
		`CREATE INDEX IF NOT EXISTS idx_strategy_decisions_pair ON strategy_decisions(pair_address)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_events_pair ON signal_events(pair_address)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_events_ts ON signal_events(signal_ts)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_evaluations_signal ON signal_evaluations(signal_id)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_evaluations_status ON signal_evaluations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_trigger_evaluations_status ON signal_trigger_evaluations(status)`,
	}
	for _, stmt := range stmts {
		if err := s.db.Exec(stmt).Error; err != nil {
			return errors.Wrapf(err, "create index: %s", stmt)
		}
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "unwrap sql.DB")
	}
	return sqlDB.Close()
}

// DB exposes the raw *gorm.DB for callers (tests) that need it directly.
func (s *Store) DB() *gorm.DB { return s.db }

// unitIsMs inspects MAX(snapshot_ts) across all snapshots and reports
// whether the store's existing data is in milliseconds. An empty store is
// assumed to be milliseconds, since every writer in this module stamps
// snapshot_ts in milliseconds.
func (s *Store) unitIsMs() (bool, error) {
	var maxTs *int64
	if err := s.db.Model(&model.Snapshot{}).Select("MAX(snapshot_ts)").Scan(&maxTs).Error; err != nil {
		return false, errors.Wrap(err, "inspect snapshot_ts unit")
	}
	if maxTs == nil {
		return true, nil
	}
	return *maxTs > unitMsThreshold, nil
}

// normalizeToStoreUnit converts a millisecond timestamp supplied by a
// caller into the unit the store's existing snapshot_ts data uses.
func (s *Store) normalizeToStoreUnit(tsMs int64) (int64, error) {
	isMs, err := s.unitIsMs()
	if err != nil {
		return 0, err
	}
	if isMs {
		return tsMs, nil
	}
	return tsMs / 1000, nil
}

func nowMs() int64 { return time.Now().UnixMilli() }
