package storage

import (
	"time"

	"github.com/signalsfoundry/surface-survey/model"
)

// RecordModel represents the science_records table.
type RecordModel struct {
	ID            string    `gorm:"column:id;primaryKey;not null"`
	ContainerID   string    `gorm:"column:container_id;index;not null"`
	SubjectID     string    `gorm:"column:subject_id;index;not null"`
	Title         string    `gorm:"column:title"`
	Amount        float64   `gorm:"column:amount"`
	TransmitValue float64   `gorm:"column:transmit_value"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (RecordModel) TableName() string {
	return "science_records"
}

// InstrumentStateModel represents the instrument_states table. Only the
// user-toggled activity flag is persisted.
type InstrumentStateModel struct {
	InstrumentID string    `gorm:"column:instrument_id;primaryKey;not null"`
	Active       bool      `gorm:"column:active;not null;default:false"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (InstrumentStateModel) TableName() string {
	return "instrument_states"
}

func recordToModel(containerID string, r model.Record) RecordModel {
	return RecordModel{
		ID:            r.ID,
		ContainerID:   containerID,
		SubjectID:     r.SubjectID,
		Title:         r.Title,
		Amount:        r.Amount,
		TransmitValue: r.TransmitValue,
		CreatedAt:     r.CreatedAt,
	}
}

func (m RecordModel) toDomain() *model.Record {
	return &model.Record{
		ID:            m.ID,
		SubjectID:     m.SubjectID,
		Title:         m.Title,
		Amount:        m.Amount,
		TransmitValue: m.TransmitValue,
		CreatedAt:     m.CreatedAt,
	}
}
