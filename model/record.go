package model

import (
	"time"

	"github.com/google/uuid"
)

// Record is a unit of accrued science data held by a storage container.
type Record struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id"`
	Title     string `json:"title"`

	Amount float64 `json:"amount"`
	// TransmitValue is fixed at creation from the body's transmission scalar.
	TransmitValue float64 `json:"transmit_value"`

	CreatedAt time.Time `json:"created_at"`
}

// NewRecord creates a record with a fresh identifier.
func NewRecord(subject Subject, amount, transmitValue float64, now time.Time) *Record {
	return &Record{
		ID:            uuid.NewString(),
		SubjectID:     subject.ID,
		Title:         subject.Title,
		Amount:        amount,
		TransmitValue: transmitValue,
		CreatedAt:     now,
	}
}
