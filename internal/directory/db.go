package directory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Open opens the employee database read-mostly. The directory is maintained
// by HR tooling outside this job; this side only queries it.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("directory: database path is required")
	}

	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("directory: ping: %w", err)
	}
	return db, nil
}

// Migrate creates the employees schema if it does not exist. Used by the
// -init-db verb and by tests; production databases are provisioned upstream.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS employees (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  agreement_code TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'A'
);`); err != nil {
		return fmt.Errorf("migrate employees: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_employees_code ON employees(agreement_code);`); err != nil {
		return fmt.Errorf("migrate employees index: %w", err)
	}
	return nil
}
