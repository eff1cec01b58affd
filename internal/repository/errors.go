// Package repository holds the persistence primitives the engine relies on:
// point lookup by unique key, insert with duplicate-key detection, updates
// conditioned on a version token, and window range scans. None of them need
// multi-statement transactions.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by point lookups that match no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned by inserts that violate a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidData is returned when the store rejects a value itself: a
	// malformed id, a failed CHECK or NOT NULL, a dangling foreign key.
	// Retrying the same call cannot succeed.
	ErrInvalidData = errors.New("invalid data")
)

// Postgres SQLSTATE codes and classes the engine tells apart.
const (
	pgUniqueViolation      = "23505"
	pgClassDataException   = "22"
	pgClassIntegrityFailed = "23"
)

// translate maps driver errors onto the package sentinels. Errors it does
// not recognise are returned as is and treated by callers as transient.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueConstraintError(err):
		return errors.Join(ErrDuplicateKey, err)
	case isDataError(err):
		return errors.Join(ErrInvalidData, err)
	default:
		return err
	}
}

// isUniqueConstraintError checks if a GORM error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
		strings.Contains(msg, "duplicate key value violates unique constraint") // PostgreSQL
}

// isDataError reports whether the store rejected the statement's data rather
// than failing to run it.
func isDataError(err error) bool {
	if errors.Is(err, gorm.ErrCheckConstraintViolated) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		class := pgErr.Code[:min(2, len(pgErr.Code))]
		return class == pgClassDataException || class == pgClassIntegrityFailed
	}
	msg := err.Error()
	return strings.Contains(msg, "CHECK constraint failed") || // SQLite
		strings.Contains(msg, "NOT NULL constraint failed") ||
		strings.Contains(msg, "FOREIGN KEY constraint failed") ||
		strings.Contains(msg, "datatype mismatch")
}
