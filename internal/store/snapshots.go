package store

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
)

// InsertSnapshot appends one immutable observation. Snapshots are never
// mutated once written.
func (s *Store) InsertSnapshot(snap *model.Snapshot) error {
	if snap.PairAddress == "" {
		return errors.New("insert snapshot: empty pair_address")
	}
	return errors.Wrap(s.db.Create(snap).Error, "insert snapshot")
}

// IterateSnapshots returns snapshots ordered ascending by snapshot_ts,
// optionally filtered by pair and by a [since, until] range in caller
// (millisecond) units, normalized internally to the store's detected unit.
func (s *Store) IterateSnapshots(pairAddress string, sinceMs, untilMs *int64) ([]model.Snapshot, error) {
	q := s.db.Model(&model.Snapshot{}).Order("snapshot_ts ASC, id ASC")
	if pairAddress != "" {
		q = q.Where("pair_address = ?", pairAddress)
	}
	if sinceMs != nil {
		since, err := s.normalizeToStoreUnit(*sinceMs)
		if err != nil {
			return nil, err
		}
		q = q.Where("snapshot_ts >= ?", since)
	}
	if untilMs != nil {
		until, err := s.normalizeToStoreUnit(*untilMs)
		if err != nil {
			return nil, err
		}
		q = q.Where("snapshot_ts <= ?", until)
	}
	var snaps []model.Snapshot
	err := q.Find(&snaps).Error
	return snaps, errors.Wrap(err, "iterate snapshots")
}

// GetSnapshotCount returns the number of snapshots recorded for a pair.
func (s *Store) GetSnapshotCount(pairAddress string) (int64, error) {
	var count int64
	err := s.db.Model(&model.Snapshot{}).Where("pair_address = ?", pairAddress).Count(&count).Error
	return count, errors.Wrap(err, "count snapshots")
}

// GetLastSnapshots returns up to n of the most recent snapshots for a pair,
// most recent first — the shape internal/dumpstate needs for its
// "two most-recent snapshots" transition conditions.
func (s *Store) GetLastSnapshots(pairAddress string, n int) ([]model.Snapshot, error) {
	var snaps []model.Snapshot
	err := s.db.Where("pair_address = ?", pairAddress).
		Order("snapshot_ts DESC, id DESC").Limit(n).Find(&snaps).Error
	return snaps, errors.Wrap(err, "get last snapshots")
}

// AthPoint is the result of an all-time-high lookup: the candidate's own
// price/ts, plus the pair's current price/ts for comparison.
type AthPoint struct {
	AthPrice     decimal.Decimal
	AthTs        int64
	CurrentPrice decimal.Decimal
	CurrentTs    int64
	Found        bool
}

// FetchAthPoint returns (ath_price, ath_ts, current_price, current_ts) per
// spec.md §4.1: the ATH ordering is (price_usd DESC, snapshot_ts DESC) so
// ties break toward the most recent observation; "current" is the pair's
// most recent snapshot. since, if set, is a millisecond bound normalized to
// the store's detected unit.
func (s *Store) FetchAthPoint(pairAddress string, sinceMs *int64) (*AthPoint, error) {
	current, err := s.fetchLastSnapshot(pairAddress)
	if err != nil {
		return nil, err
	}
	if current == nil || current.PriceUsd == nil {
		return &AthPoint{Found: false}, nil
	}
	candidates, err := s.FetchAthCandidates(pairAddress, sinceMs, 1)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &AthPoint{Found: false}, nil
	}
	top := candidates[0]
	return &AthPoint{
		AthPrice:     *top.PriceUsd,
		AthTs:        top.SnapshotTs,
		CurrentPrice: *current.PriceUsd,
		CurrentTs:    current.SnapshotTs,
		Found:        true,
	}, nil
}

// fetchLastSnapshot returns the most recent snapshot for a pair, or nil.
func (s *Store) fetchLastSnapshot(pairAddress string) (*model.Snapshot, error) {
	var snap model.Snapshot
	err := s.db.Where("pair_address = ?", pairAddress).
		Order("snapshot_ts DESC, id DESC").Take(&snap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "fetch last snapshot")
	}
	return &snap, nil
}

// FetchAthCandidates returns up to limit snapshots ordered
// (price_usd DESC, snapshot_ts DESC), the ordering the screener uses for
// both the primary ATH lookup and its fallback walk. since, if set, is a
// millisecond bound normalized to the store's detected unit.
func (s *Store) FetchAthCandidates(pairAddress string, sinceMs *int64, limit int) ([]model.Snapshot, error) {
	q := s.db.Model(&model.Snapshot{}).
		Where("pair_address = ? AND price_usd IS NOT NULL", pairAddress).
		Order("price_usd DESC, snapshot_ts DESC").
		Limit(limit)
	if sinceMs != nil {
		since, err := s.normalizeToStoreUnit(*sinceMs)
		if err != nil {
			return nil, err
		}
		q = q.Where("snapshot_ts >= ?", since)
	}
	var snaps []model.Snapshot
	err := q.Find(&snaps).Error
	return snaps, errors.Wrap(err, "fetch ath candidates")
}

// ActivityWindow is the degraded-gracefully result of FetchActivityWindow:
// SnapshotsCount is always populated; the tx/volume sums are populated only
// when at least one row in the window carried that optional data.
type ActivityWindow struct {
	SnapshotsCount int64
	TxnsSum        *int64
	BuysSum        *int64
	SellsSum       *int64
	VolumeSum      *float64
}

// FetchActivityWindow counts snapshots and, where present, sums tx/volume
// over the half-open window centered on centerTs (already in the store's
// snapshot_ts unit) with total width windowSec.
func (s *Store) FetchActivityWindow(pairAddress string, centerTs int64, windowSec int64) (*ActivityWindow, error) {
	isMs, err := s.unitIsMs()
	if err != nil {
		return nil, err
	}
	half := windowSec / 2
	if isMs {
		half *= 1000
	}
	lo, hi := centerTs-half, centerTs+half

	var snaps []model.Snapshot
	err = s.db.Where("pair_address = ? AND snapshot_ts >= ? AND snapshot_ts < ?", pairAddress, lo, hi).
		Find(&snaps).Error
	if err != nil {
		return nil, errors.Wrap(err, "fetch activity window")
	}

	out := &ActivityWindow{SnapshotsCount: int64(len(snaps))}
	var haveTxns, haveVolume bool
	var txnsSum, buysSum, sellsSum int64
	var volumeSum float64
	for _, snap := range snaps {
		if snap.BuysM5 != nil || snap.SellsM5 != nil {
			haveTxns = true
			if snap.BuysM5 != nil {
				buysSum += *snap.BuysM5
				txnsSum += *snap.BuysM5
			}
			if snap.SellsM5 != nil {
				sellsSum += *snap.SellsM5
				txnsSum += *snap.SellsM5
			}
		}
		if snap.VolumeM5 != nil {
			haveVolume = true
			f, _ := snap.VolumeM5.Float64()
			volumeSum += f
		}
	}
	if haveTxns {
		out.TxnsSum, out.BuysSum, out.SellsSum = &txnsSum, &buysSum, &sellsSum
	}
	if haveVolume {
		out.VolumeSum = &volumeSum
	}
	return out, nil
}
