package repository

import (
	"path/filepath"
	"testing"

	"github.com/abelzeko/flood-alert/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteHistoryRepository_SaveAndLoad(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	repo, err := NewSQLiteHistoryRepository(dbPath)
	require.NoError(t, err)

	records := []entities.HistoricalRecord{
		{BuddhistYear: 2566, Month: 10, Day: 20, DischargeRate: 1900},
		{BuddhistYear: 2566, Month: 10, Day: 10, DischargeRate: 1850},
		{BuddhistYear: 2554, Month: 10, Day: 15, DischargeRate: 3700},
	}
	require.NoError(t, repo.SaveRecords(records))

	// Re-importing a date replaces its discharge but keeps its position.
	require.NoError(t, repo.SaveRecords([]entities.HistoricalRecord{
		{BuddhistYear: 2566, Month: 10, Day: 20, DischargeRate: 1950},
	}))

	loaded, err := repo.LoadRecords()
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, 1950.0, loaded[0].DischargeRate)
	assert.Equal(t, 10, loaded[1].Day)

	years, err := repo.GetYears()
	require.NoError(t, err)
	assert.Equal(t, []int{2566, 2554}, years)
	require.NoError(t, repo.Close())

	store, err := LoadHistory(dbPath)
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())

	rec, ok := store.LookupNearest(2554, october15)
	require.True(t, ok)
	assert.Equal(t, 3700.0, rec.DischargeRate)
}
