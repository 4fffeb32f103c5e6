package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/signalsfoundry/surface-survey/model"
)

// ErrInstrumentStateNotFound is returned when no activity flag was saved.
var ErrInstrumentStateNotFound = errors.New("instrument state not found")

// RepositoryGORM persists science records and instrument activity flags.
type RepositoryGORM struct {
	db *gorm.DB
}

// NewRepository creates a new GORM-based repository.
func NewRepository(db *gorm.DB) *RepositoryGORM {
	return &RepositoryGORM{db: db}
}

// SaveRecords upserts records belonging to containerID.
func (r *RepositoryGORM) SaveRecords(ctx context.Context, containerID string, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]RecordModel, len(records))
	for i, rec := range records {
		rows[i] = recordToModel(containerID, rec)
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "transmit_value", "title", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to save records for container %s: %w", containerID, err)
	}
	return nil
}

// ListRecords returns the records of containerID ordered by creation time.
func (r *RepositoryGORM) ListRecords(ctx context.Context, containerID string) ([]*model.Record, error) {
	var rows []RecordModel
	err := r.db.WithContext(ctx).
		Where("container_id = ?", containerID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list records for container %s: %w", containerID, err)
	}

	out := make([]*model.Record, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// DeleteRecord removes one record.
func (r *RepositoryGORM) DeleteRecord(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&RecordModel{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

// SaveInstrumentActive stores the activity flag of an instrument.
func (r *RepositoryGORM) SaveInstrumentActive(ctx context.Context, instrumentID string, active bool) error {
	row := InstrumentStateModel{
		InstrumentID: instrumentID,
		Active:       active,
		UpdatedAt:    time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instrument_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"active", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save state for instrument %s: %w", instrumentID, err)
	}
	return nil
}

// LoadInstrumentActive returns the saved activity flag, or
// ErrInstrumentStateNotFound.
func (r *RepositoryGORM) LoadInstrumentActive(ctx context.Context, instrumentID string) (bool, error) {
	var row InstrumentStateModel
	err := r.db.WithContext(ctx).Where("instrument_id = ?", instrumentID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("%w: %s", ErrInstrumentStateNotFound, instrumentID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to load state for instrument %s: %w", instrumentID, err)
	}
	return row.Active, nil
}
