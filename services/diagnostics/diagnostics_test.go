package diagnostics

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndQuery(t *testing.T) {
	svc, err := Open(openTestDB(t))
	require.NoError(t, err)

	require.NoError(t, svc.Record("fs", "info", "opened descriptor 1"))
	require.NoError(t, svc.Record("udp", "warn", "socket bind retried"))

	entries, err := svc.Query("", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "udp", entries[0].Source) // most recent first
}

func TestQueryFiltersBySource(t *testing.T) {
	svc, err := Open(openTestDB(t))
	require.NoError(t, err)
	require.NoError(t, svc.Record("fs", "info", "a"))
	require.NoError(t, svc.Record("udp", "info", "b"))

	entries, err := svc.Query("fs", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fs", entries[0].Source)
}

func TestDisplayIDIsShortAndDeterministic(t *testing.T) {
	a := DisplayID(1)
	b := DisplayID(1)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, DisplayID(2))
}
