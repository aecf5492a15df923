package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the requested user or entry does not exist.
	ErrNotFound = errors.New("not_found")
	// ErrStoreOffline is returned by the in-memory store while it simulates an outage.
	ErrStoreOffline = errors.New("store_offline")
)

// isSerializationFailure reports whether err is a Postgres conflict that is
// safe to retry with a fresh transaction.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization_failure, deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
