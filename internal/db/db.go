package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle holding snapshot and track history.
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the sqlite database at path. Use ":memory:" for
// an ephemeral database in tests. The schema is managed by migrations; call
// MigrateUp before using the stores.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent snapshot recording and API reads.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}

	return &DB{sqlDB}, nil
}
