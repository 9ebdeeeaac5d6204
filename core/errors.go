package core

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned by the service layer. HTTP adapters translate
// these to status codes; anything not listed here is an internal failure.
var (
	ErrInvalidInput       = errors.New("invalid_input")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrAlreadyGranted     = errors.New("already_granted")
	ErrExpired            = errors.New("token_expired")
	ErrAlreadyUsed        = errors.New("token_already_used")
	ErrDependency         = errors.New("dependency_failed")

	// ErrProtectedDelete is returned by any path asked to hard-delete a
	// principal row. Users and admins are only ever disabled, never deleted.
	ErrProtectedDelete = errors.New("protected_principal_delete_refused")
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation. Unique indexes are the backstop for every check-then-insert
// path, so conflicts are expected under concurrency and classified rather
// than propagated raw.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
