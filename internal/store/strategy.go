package store

import (
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
)

// InsertStrategyDecision appends an audit row and mirrors it into
// strategy_latest for fast per-pair status lookups.
func (s *Store) InsertStrategyDecision(decision *model.StrategyDecision) error {
	if decision.PairAddress == "" {
		return errors.New("insert strategy decision: empty pair_address")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(decision).Error; err != nil {
			return errors.Wrap(err, "insert strategy decision")
		}
		latest := model.StrategyLatest{
			PairAddress:  decision.PairAddress,
			DecidedAtMs:  decision.DecidedAtMs,
			Decision:     decision.Decision,
			CurrentPrice: decision.CurrentPrice,
			AthPrice:     decision.AthPrice,
			DropFromAth:  decision.DropFromAth,
			Reasons:      decision.Reasons,
		}
		return errors.Wrap(tx.Save(&latest).Error, "update strategy latest")
	})
}

// GetStrategyLatest loads the mirrored latest decision for a pair, or nil.
func (s *Store) GetStrategyLatest(pairAddress string) (*model.StrategyLatest, error) {
	var latest model.StrategyLatest
	err := s.db.Where("pair_address = ?", pairAddress).Take(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get strategy latest")
	}
	return &latest, nil
}

// GetSignalCooldown returns the last_signal_at_ms for a pair, or nil if the
// pair has never emitted a signal.
func (s *Store) GetSignalCooldown(pairAddress string) (*int64, error) {
	var cd model.SignalCooldown
	err := s.db.Where("pair_address = ?", pairAddress).Take(&cd).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get signal cooldown")
	}
	return &cd.LastSignalAtMs, nil
}

// SetSignalCooldown records the moment a SIGNAL was last emitted for a pair.
func (s *Store) SetSignalCooldown(pairAddress string, lastSignalAtMs int64) error {
	cd := model.SignalCooldown{PairAddress: pairAddress, LastSignalAtMs: lastSignalAtMs}
	return errors.Wrap(s.db.Save(&cd).Error, "set signal cooldown")
}

// InsertSignalEventWithPending is the atomic "create signal + enqueue
// pending" operation spec.md §9 calls for: it writes the SignalEvent, a
// PENDING SignalTriggerEvaluation, and one PENDING SignalEvaluation per
// horizon, all in one transaction.
func (s *Store) InsertSignalEventWithPending(event *model.SignalEvent, horizonsSec []int64) (uint64, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if event.Features == nil {
			event.Features = datatypes.JSON([]byte("{}"))
		}
		if err := tx.Create(event).Error; err != nil {
			return errors.Wrap(err, "insert signal event")
		}
		trigger := model.SignalTriggerEvaluation{SignalID: event.ID, Status: model.EvalPending}
		if err := tx.Create(&trigger).Error; err != nil {
			return errors.Wrap(err, "insert pending trigger evaluation")
		}
		for _, h := range horizonsSec {
			evaluation := model.SignalEvaluation{SignalID: event.ID, HorizonSec: h, Status: model.EvalPending}
			if err := tx.Create(&evaluation).Error; err != nil {
				return errors.Wrap(err, "insert pending signal evaluation")
			}
		}
		return nil
	})
	return event.ID, err
}
