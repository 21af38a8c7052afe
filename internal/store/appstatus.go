package store

import (
	"encoding/json"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
)

// GetAppStatus loads the singleton heartbeat row, creating a zero-value one
// on first access.
func (s *Store) GetAppStatus() (*model.AppStatus, error) {
	var status model.AppStatus
	err := s.db.Where("id = ?", model.AppStatusSingletonID).Take(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		status = model.AppStatus{ID: model.AppStatusSingletonID, UpdatedAtMs: nowMs()}
		if err := s.db.Create(&status).Error; err != nil {
			return nil, errors.Wrap(err, "create initial app status")
		}
		return &status, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get app status")
	}
	return &status, nil
}

// StampCycleStarted records the start of an ingestion cycle.
func (s *Store) StampCycleStarted() error {
	status, err := s.GetAppStatus()
	if err != nil {
		return err
	}
	now := nowMs()
	status.LastCycleStartedAtMs = &now
	status.UpdatedAtMs = now
	return errors.Wrap(s.db.Save(status).Error, "stamp cycle started")
}

// StampCycleFinished records the successful end of an ingestion cycle and,
// when counters is non-nil, replaces the status row's JSON counters blob
// with it (earlier keys are not kept).
func (s *Store) StampCycleFinished(counters map[string]any) error {
	status, err := s.GetAppStatus()
	if err != nil {
		return err
	}
	now := nowMs()
	status.LastCycleFinishedAtMs = &now
	status.UpdatedAtMs = now
	if counters != nil {
		data, err := json.Marshal(counters)
		if err != nil {
			return errors.Wrap(err, "marshal cycle counters")
		}
		status.Counters = datatypes.JSON(data)
	}
	return errors.Wrap(s.db.Save(status).Error, "stamp cycle finished")
}

// StampCycleError records the last cycle-level error without aborting.
func (s *Store) StampCycleError(cycleErr error) error {
	status, err := s.GetAppStatus()
	if err != nil {
		return err
	}
	now := nowMs()
	status.LastError = cycleErr.Error()
	status.LastErrorAtMs = &now
	status.UpdatedAtMs = now
	return errors.Wrap(s.db.Save(status).Error, "stamp cycle error")
}
