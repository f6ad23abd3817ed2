// Package postgres is the postgresql storage.Store backend accepted on the
// command line. It is not implemented yet. A supplied DSN is still validated
// eagerly, so a malformed connection string fails at startup exactly like a
// working backend would, rather than masking the error as "not implemented"
// for every misconfiguration.
package postgres

import (
	"fmt"

	"github.com/hatchway/clustersched/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New validates dsn as a pgx connection string and then reports that the
// postgresql backend is not implemented. It never dials the database.
func New(dsn string) (storage.Store, error) {
	if _, err := pgxpool.ParseConfig(dsn); err != nil {
		return nil, fmt.Errorf("postgres: invalid connection string: %w", err)
	}
	return nil, fmt.Errorf("postgres: %w", storage.ErrBackendNotImplemented)
}
