package audit

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore is an optional shared audit trail backend for a
// self-hosted, multi-device deployment where several gateway instances
// (or an external auditor) need to read the same trail. The gateway
// itself still assumes a single writer; Append serializes through an
// in-process mutex, not a database-level lock.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore opens a connection to dsn and migrates it to the
// current audit schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open postgres: %w", err)
	}

	base, err := newSQLStore(db, postgresDialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresStore{sqlStore: base}, nil
}
