// Package diagnostics implements the Diagnostics core service (spec.md
// §4.2.4): a queryable event log backed by github.com/mattn/go-sqlite3,
// with human-readable id rendering via github.com/mr-tron/base58.
package diagnostics

import (
	"database/sql"
	"encoding/binary"
	"time"

	"github.com/mr-tron/base58"
	"github.com/teranos/qntx-runtime/rterr"
)

// Entry is one recorded diagnostic event.
type Entry struct {
	ID        int64
	Timestamp time.Time
	Source    string
	Level     string
	Message   string
}

// Service records and queries diagnostic events.
type Service struct {
	db *sql.DB
}

// Open creates the diagnostics table on db if it does not exist and
// returns a Service bound to db; the caller opens and owns db.
func Open(db *sql.DB) (*Service, error) {
	const ddl = `
CREATE TABLE IF NOT EXISTS diagnostics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	source TEXT NOT NULL,
	level TEXT NOT NULL,
	message TEXT NOT NULL
);`
	if _, err := db.Exec(ddl); err != nil {
		return nil, rterr.Internal("diagnostics schema: %v", err)
	}
	return &Service{db: db}, nil
}

// Record inserts one diagnostic entry.
func (s *Service) Record(source, level, message string) error {
	_, err := s.db.Exec(
		"INSERT INTO diagnostics (ts, source, level, message) VALUES (?, ?, ?, ?)",
		time.Now().Unix(), source, level, message,
	)
	if err != nil {
		return rterr.Internal("diagnostics insert: %v", err)
	}
	return nil
}

// Query implements diagnostics.query: returns entries matching an
// optional source filter, most recent first, bounded by limit.
func (s *Service) Query(source string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if source == "" {
		rows, err = s.db.Query("SELECT id, ts, source, level, message FROM diagnostics ORDER BY id DESC LIMIT ?", limit)
	} else {
		rows, err = s.db.Query("SELECT id, ts, source, level, message FROM diagnostics WHERE source = ? ORDER BY id DESC LIMIT ?", source, limit)
	}
	if err != nil {
		return nil, rterr.Internal("diagnostics query: %v", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.Source, &e.Level, &e.Message); err != nil {
			return nil, rterr.Internal("diagnostics scan: %v", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, nil
}

// DisplayID renders an entry id as a short base58 string suitable for
// operator-facing output (the diagnostics.query reply), the way the
// teacher renders compact ids rather than raw integers.
func DisplayID(id int64) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	// Trim leading zero bytes so small ids stay short.
	i := 0
	for i < len(buf)-1 && buf[i] == 0 {
		i++
	}
	return base58.Encode(buf[i:])
}
