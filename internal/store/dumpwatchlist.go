package store

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
)

// GetDumpWatchlistEntry loads the state-machine row for a pair, or (nil, nil).
func (s *Store) GetDumpWatchlistEntry(pairAddress string) (*model.DumpWatchlistEntry, error) {
	var entry model.DumpWatchlistEntry
	err := s.db.Where("pair_address = ?", pairAddress).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get dump watchlist entry")
	}
	return &entry, nil
}

// SaveDumpWatchlistEntry inserts or fully replaces the row for a pair. The
// dump/reversal state machine (internal/dumpstate) computes the next value
// as a pure function; this is the only write path.
func (s *Store) SaveDumpWatchlistEntry(entry *model.DumpWatchlistEntry) error {
	if entry.PairAddress == "" {
		return errors.New("save dump watchlist entry: empty pair_address")
	}
	err := s.db.Save(entry).Error
	return errors.Wrap(err, "save dump watchlist entry")
}

// IterateDumpWatchlist returns entries optionally filtered by state and
// bounded by limit (0 = unbounded).
func (s *Store) IterateDumpWatchlist(state model.DumpState, limit int) ([]model.DumpWatchlistEntry, error) {
	q := s.db.Model(&model.DumpWatchlistEntry{}).Order("updated_at_ms DESC")
	if state != "" {
		q = q.Where("state = ?", state)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var entries []model.DumpWatchlistEntry
	err := q.Find(&entries).Error
	return entries, errors.Wrap(err, "iterate dump watchlist")
}

// PruneDumpWatchlist deletes entries whose updated_at_ms is older than
// ttlHours, plus entries whose pair no longer exists (orphan cleanup), and
// returns the total row count removed.
func (s *Store) PruneDumpWatchlist(ttlHours float64) (int64, error) {
	cutoff := nowMs() - int64(ttlHours*3600*1000)
	var removed int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("updated_at_ms < ?", cutoff).Delete(&model.DumpWatchlistEntry{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "prune dump watchlist by ttl")
		}
		removed += res.RowsAffected

		res = tx.Where("pair_address NOT IN (SELECT pair_address FROM pairs)").
			Delete(&model.DumpWatchlistEntry{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "prune orphan dump watchlist entries")
		}
		removed += res.RowsAffected
		return nil
	})
	return removed, err
}
