package store

import (
	"github.com/pkg/errors"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
)

// IteratePendingSignalEvaluations returns every PENDING horizon evaluation
// row, oldest first. The parent SignalEvent is not joined in; callers load
// it separately with GetSignalEvent.
func (s *Store) IteratePendingSignalEvaluations() ([]model.SignalEvaluation, error) {
	var rows []model.SignalEvaluation
	err := s.db.Where("status = ?", model.EvalPending).Order("id ASC").Find(&rows).Error
	return rows, errors.Wrap(err, "iterate pending signal evaluations")
}

// IteratePendingTriggerEvaluations returns every PENDING trigger evaluation row.
func (s *Store) IteratePendingTriggerEvaluations() ([]model.SignalTriggerEvaluation, error) {
	var rows []model.SignalTriggerEvaluation
	err := s.db.Where("status = ?", model.EvalPending).Order("id ASC").Find(&rows).Error
	return rows, errors.Wrap(err, "iterate pending trigger evaluations")
}

// GetSignalEvent loads a SignalEvent by id.
func (s *Store) GetSignalEvent(id uint64) (*model.SignalEvent, error) {
	var event model.SignalEvent
	err := s.db.First(&event, id).Error
	return &event, errors.Wrap(err, "get signal event")
}

// UpdateSignalEvaluationDone persists a completed horizon evaluation.
func (s *Store) UpdateSignalEvaluationDone(row *model.SignalEvaluation) error {
	row.Status = model.EvalDone
	now := nowMs()
	row.EvaluatedAtMs = &now
	return errors.Wrap(s.db.Save(row).Error, "update signal evaluation done")
}

// UpdateSignalEvaluationNoData marks a horizon evaluation NO_DATA.
func (s *Store) UpdateSignalEvaluationNoData(row *model.SignalEvaluation) error {
	row.Status = model.EvalNoData
	now := nowMs()
	row.EvaluatedAtMs = &now
	return errors.Wrap(s.db.Save(row).Error, "update signal evaluation no_data")
}

// UpdateTriggerEvaluationDone persists a completed trigger evaluation.
func (s *Store) UpdateTriggerEvaluationDone(row *model.SignalTriggerEvaluation) error {
	row.Status = model.EvalDone
	return errors.Wrap(s.db.Save(row).Error, "update trigger evaluation done")
}

// UpdateTriggerEvaluationNoData marks a trigger evaluation NO_DATA.
func (s *Store) UpdateTriggerEvaluationNoData(row *model.SignalTriggerEvaluation) error {
	row.Status = model.EvalNoData
	return errors.Wrap(s.db.Save(row).Error, "update trigger evaluation no_data")
}
