package store

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
)

// UpsertPair inserts or updates the latest-state row for a pair. When the
// incoming record's PairCreatedAtMs is unknown (nil) but a previously
// stored value exists, the stored value is preserved — creation time, once
// learned, is never forgotten.
func (s *Store) UpsertPair(pair *model.Pair) error {
	if pair.PairAddress == "" {
		return errors.New("upsert pair: empty pair_address")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.Pair
		err := tx.Where("pair_address = ?", pair.PairAddress).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return errors.Wrap(tx.Create(pair).Error, "insert pair")
		case err != nil:
			return errors.Wrap(err, "load existing pair")
		}
		if pair.PairCreatedAtMs == nil {
			pair.PairCreatedAtMs = existing.PairCreatedAtMs
		}
		return errors.Wrap(tx.Save(pair).Error, "update pair")
	})
}

// IteratePairs returns every pair row.
func (s *Store) IteratePairs() ([]model.Pair, error) {
	var pairs []model.Pair
	err := s.db.Order("pair_address").Find(&pairs).Error
	return pairs, errors.Wrap(err, "iterate pairs")
}

// GetKnownPairAddresses returns the full set of known pair_address values,
// used by the ingestion pipeline for dedup.
func (s *Store) GetKnownPairAddresses() (map[string]struct{}, error) {
	var addrs []string
	if err := s.db.Model(&model.Pair{}).Pluck("pair_address", &addrs).Error; err != nil {
		return nil, errors.Wrap(err, "get known pair addresses")
	}
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		set[a] = struct{}{}
	}
	return set, nil
}

// GetPair loads a single pair row, or (nil, nil) if it does not exist.
func (s *Store) GetPair(pairAddress string) (*model.Pair, error) {
	var pair model.Pair
	err := s.db.Where("pair_address = ?", pairAddress).Take(&pair).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get pair")
	}
	return &pair, nil
}

// FetchLatestPrice returns the last snapshot price for a pair if any exists,
// else the Pair row's own price_usd, else nil.
func (s *Store) FetchLatestPrice(pairAddress string) (*decimal.Decimal, error) {
	var snap model.Snapshot
	err := s.db.Where("pair_address = ? AND price_usd IS NOT NULL", pairAddress).
		Order("snapshot_ts DESC, id DESC").Take(&snap).Error
	if err == nil {
		return snap.PriceUsd, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "fetch latest snapshot price")
	}
	pair, err := s.GetPair(pairAddress)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, nil
	}
	return pair.PriceUsd, nil
}
