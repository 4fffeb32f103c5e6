package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/signalsfoundry/surface-survey/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewConnection(DatabaseConfig{Type: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestNewConnection_UnsupportedType(t *testing.T) {
	_, err := NewConnection(DatabaseConfig{Type: "oracle"})
	assert.Error(t, err)

	_, err = NewConnection(DatabaseConfig{Type: "postgres"})
	assert.Error(t, err, "postgres without url")
}

func TestRepository_SaveAndListRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := model.Record{ID: "r1", SubjectID: "s@MunSrfLanded", Title: "first", Amount: 1, TransmitValue: 0.3, CreatedAt: created}
	second := model.Record{ID: "r2", SubjectID: "s@MunSrfLandedMidlands", Title: "second", Amount: 2, TransmitValue: 0.3, CreatedAt: created.Add(time.Minute)}
	require.NoError(t, repo.SaveRecords(ctx, "bay", []model.Record{second, first}))
	require.NoError(t, repo.SaveRecords(ctx, "other", []model.Record{{ID: "r3", SubjectID: "x", Amount: 1, CreatedAt: created}}))

	got, err := repo.ListRecords(ctx, "bay")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, "s@MunSrfLandedMidlands", got[1].SubjectID)
	assert.True(t, got[0].CreatedAt.Equal(created))

	// Upsert raises the stored amount.
	first.Amount = 4.5
	require.NoError(t, repo.SaveRecords(ctx, "bay", []model.Record{first}))
	got, err = repo.ListRecords(ctx, "bay")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 4.5, got[0].Amount)

	require.NoError(t, repo.DeleteRecord(ctx, "r1"))
	got, err = repo.ListRecords(ctx, "bay")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	assert.NoError(t, repo.SaveRecords(ctx, "bay", nil))
}

func TestRepository_InstrumentActiveFlag(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	_, err := repo.LoadInstrumentActive(ctx, "survey-1")
	assert.True(t, errors.Is(err, ErrInstrumentStateNotFound))

	require.NoError(t, repo.SaveInstrumentActive(ctx, "survey-1", true))
	active, err := repo.LoadInstrumentActive(ctx, "survey-1")
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, repo.SaveInstrumentActive(ctx, "survey-1", false))
	active, err = repo.LoadInstrumentActive(ctx, "survey-1")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestRepository_RestoreIntoContainer(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	c := NewScienceContainer("bay", 0, false)
	require.True(t, c.Admit(newRecord("a", 2)))
	require.NoError(t, repo.SaveRecords(ctx, c.ID(), c.Drain()))

	restored := NewScienceContainer("bay", 0, false)
	records, err := repo.ListRecords(ctx, "bay")
	require.NoError(t, err)
	restored.Restore(records)
	assert.Equal(t, c.Snapshot()[0].SubjectID, restored.Snapshot()[0].SubjectID)
	assert.Equal(t, 2.0, restored.TotalData())
}
