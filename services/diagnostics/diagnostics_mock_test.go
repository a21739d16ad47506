package diagnostics

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQueryAgainstMockedDriver exercises the query path without a real
// sqlite file, the way the teacher mocks its database-backed tests.
func TestQueryAgainstMockedDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS diagnostics").WillReturnResult(sqlmock.NewResult(0, 0))

	rows := sqlmock.NewRows([]string{"id", "ts", "source", "level", "message"}).
		AddRow(1, int64(1700000000), "fs", "info", "opened descriptor 1")
	mock.ExpectQuery("SELECT id, ts, source, level, message FROM diagnostics ORDER BY id DESC LIMIT ?").
		WithArgs(10).
		WillReturnRows(rows)

	svc, err := Open(db)
	require.NoError(t, err)

	entries, err := svc.Query("", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fs", entries[0].Source)
	require.NoError(t, mock.ExpectationsWereMet())
}
