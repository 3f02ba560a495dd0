package repository

import (
	"testing"

	"github.com/jmpark/tinydesk-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMetadataTest(t *testing.T) MetadataRepository {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return NewMetadataRepository(testDB)
}

func TestMetadataRepository_LastWriteWins(t *testing.T) {
	repo := setupMetadataTest(t)

	require.NoError(t, repo.Set("lastUpdate", "100"))
	require.NoError(t, repo.Set("lastUpdate", "200"))

	value, err := repo.Get("lastUpdate")
	require.NoError(t, err)
	assert.Equal(t, "200", value)
}

func TestMetadataRepository_GetMissingKey(t *testing.T) {
	repo := setupMetadataTest(t)

	value, err := repo.Get("never-written")
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestMetadataRepository_GetAll(t *testing.T) {
	repo := setupMetadataTest(t)

	require.NoError(t, repo.Set("lastUpdate", "100"))
	require.NoError(t, repo.Set("totalVideos", "42"))

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"lastUpdate":  "100",
		"totalVideos": "42",
	}, all)
}
