package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"docvault/internal/repository"
)

// IsNoRowsError reports whether err means the query matched no rows.
func IsNoRowsError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// SQLSTATEs that indicate the transaction lost a race with a concurrent writer.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// mapConflict translates concurrent-commit failures into repository.ErrConflict
// so the service layer can retry the whole operation. Other errors pass through.
func mapConflict(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
			return repository.ErrConflict
		}
	}
	return err
}

// withTx runs fn inside a transaction, rolling back on error or panic.
// The committed (or failed) result is passed through mapConflict.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return mapConflict(err)
	}
	return mapConflict(tx.Commit())
}

// Tags are persisted as a single comma-joined TEXT column to stay within
// database/sql's basic value types.

func joinTags(tags []string) sql.NullString {
	if len(tags) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.Join(tags, ","), Valid: true}
}

func splitTags(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	return strings.Split(s.String, ",")
}
