package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverMigrations_OrdersAndChecksums(t *testing.T) {
	fsys := fstest.MapFS{
		"002_tiers.sql":  {Data: []byte("ALTER TABLE x ADD y INT;")},
		"001_schema.sql": {Data: []byte("CREATE TABLE x ();")},
		"README.md":      {Data: []byte("notes")},
		"old/003_x.sql":  {Data: []byte("SELECT 1;")},
	}

	ms, err := DiscoverMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "001", ms[0].Version)
	assert.Equal(t, "002_tiers.sql", ms[1].Filename)
	assert.Len(t, ms[0].Checksum, 64)
	assert.NotEqual(t, ms[0].Checksum, ms[1].Checksum)
	assert.Equal(t, "CREATE TABLE x ();", ms[0].SQL)
}

func TestDiscoverMigrations_RejectsBadNames(t *testing.T) {
	_, err := DiscoverMigrations(fstest.MapFS{"schema.sql": {Data: []byte("")}})
	assert.Error(t, err)

	_, err = DiscoverMigrations(fstest.MapFS{
		"001_a.sql": {Data: []byte("")},
		"001_b.sql": {Data: []byte("")},
	})
	assert.ErrorContains(t, err, "duplicate migration version 001")
}
