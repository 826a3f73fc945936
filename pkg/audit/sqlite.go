package audit

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the default, durable, local audit trail. It requires no
// external service, matching this module's local-only deployment model.
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path
// and migrates it to the current audit schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers on one file

	base, err := newSQLStore(db, sqliteDialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{sqlStore: base}, nil
}
