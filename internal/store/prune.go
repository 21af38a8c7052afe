package store

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
)

// PruneResult carries the three deletion counts from PruneByPairAge.
type PruneResult struct {
	DeletedSnapshots int64
	DeletedPairs     int64
	DeletedTokens    int64
}

// PruneByPairAge deletes, within a single write transaction, snapshots of
// "old" pairs, then the old pairs themselves, then orphaned tokens. "Old"
// means pair_created_at_ms is non-null, non-zero, and older than
// maxAgeHours. Pairs with an unknown creation time are never touched.
// dryRun computes the counts without mutating anything. vacuum runs VACUUM
// after a successful non-dry-run prune to reclaim sqlite file space.
func (s *Store) PruneByPairAge(maxAgeHours float64, dryRun bool, vacuum bool) (*PruneResult, error) {
	cutoffMs := nowMs() - int64(maxAgeHours*3600*1000)
	result := &PruneResult{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		oldPairsQuery := tx.Model(&model.Pair{}).
			Where("pair_created_at_ms IS NOT NULL AND pair_created_at_ms != 0 AND pair_created_at_ms < ?", cutoffMs)

		var oldAddrs []string
		if err := oldPairsQuery.Pluck("pair_address", &oldAddrs).Error; err != nil {
			return errors.Wrap(err, "select old pairs")
		}
		if dryRun {
			var snapCount int64
			if err := tx.Model(&model.Snapshot{}).Where("pair_address IN ?", oldAddrs).Count(&snapCount).Error; err != nil {
				return errors.Wrap(err, "count old snapshots")
			}
			result.DeletedSnapshots = snapCount
			result.DeletedPairs = int64(len(oldAddrs))

			orphanQuery := tx.Model(&model.Token{})
			if len(oldAddrs) == 0 {
				orphanQuery = orphanQuery.Where("address NOT IN (SELECT base_token_address FROM pairs) AND address NOT IN (SELECT quote_token_address FROM pairs)")
			} else {
				orphanQuery = orphanQuery.Where("address NOT IN (SELECT base_token_address FROM pairs WHERE pair_address NOT IN ?) AND address NOT IN (SELECT quote_token_address FROM pairs WHERE pair_address NOT IN ?)", oldAddrs, oldAddrs)
			}
			var orphanTokens int64
			if err := orphanQuery.Count(&orphanTokens).Error; err != nil {
				return errors.Wrap(err, "count orphan tokens")
			}
			result.DeletedTokens = orphanTokens
			return nil
		}

		res := tx.Where("pair_address IN ?", oldAddrs).Delete(&model.Snapshot{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete old snapshots")
		}
		result.DeletedSnapshots = res.RowsAffected

		res = tx.Where("pair_address IN ?", oldAddrs).Delete(&model.Pair{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete old pairs")
		}
		result.DeletedPairs = res.RowsAffected

		res = tx.Where("address NOT IN (SELECT base_token_address FROM pairs) AND address NOT IN (SELECT quote_token_address FROM pairs)").
			Delete(&model.Token{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete orphan tokens")
		}
		result.DeletedTokens = res.RowsAffected
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !dryRun && vacuum {
		if err := s.db.Exec("VACUUM").Error; err != nil {
			return result, errors.Wrap(err, "vacuum after prune")
		}
	}
	return result, nil
}
