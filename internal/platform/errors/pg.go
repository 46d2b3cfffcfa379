package errors

// Postgres-specific helpers for mapping pgx errors to project ErrorCode and retry semantics

import (
	"context"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Common SQLSTATE codes we care about
const (
	pgErrUniqueViolation  = "23505"
	pgErrNotNullViolation = "23502"
	pgErrCheckViolation   = "23514"

	pgErrSerializationFailure = "40001"
	pgErrDeadlockDetected     = "40P01"
	pgErrLockNotAvailable     = "55P03"
	pgErrCannotConnectNow     = "57P03" // startup in progress
)

// ExtractPgError returns (*pgconn.PgError, true) if the root cause is a PgError
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(Root(err), &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsSQLState reports whether the error is a Postgres error with the given SQLSTATE code
func IsSQLState(err error, code string) bool {
	pgErr, ok := ExtractPgError(err)
	return ok && pgErr.Code == code
}

// IsDuplicateKey reports whether the error is a unique constraint violation
func IsDuplicateKey(err error) bool { return IsSQLState(err, pgErrUniqueViolation) }

// PgRetryable reports whether a database fault is transient (deadlock,
// serialization failure, connection churn) and the statement can be replayed
func PgRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.DeadlineExceeded) {
		return true
	}
	if pgErr, ok := ExtractPgError(err); ok {
		switch pgErr.Code {
		case pgErrSerializationFailure, pgErrDeadlockDetected, pgErrLockNotAvailable, pgErrCannotConnectNow:
			return true
		}
	}
	// pgx surfaces broken connections as plain errors
	s := Root(err).Error()
	return strings.Contains(s, "conn closed") || strings.Contains(s, "connection reset")
}

// FromPg maps a database error into a coded *Error
func FromPg(err error, op string) error {
	if err == nil {
		return nil
	}
	code := ErrorCodeDB
	switch {
	case PgRetryable(err):
		code = ErrorCodeUnavailable
	case IsSQLState(err, pgErrNotNullViolation), IsSQLState(err, pgErrCheckViolation):
		code = ErrorCodeInvalidArgument
	}
	return WithOp(Wrap(err, code, "postgres"), op)
}
