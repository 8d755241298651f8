// Package common holds sentinel errors shared across the service and
// repository layers. Handlers translate them into HTTP statuses in a single
// place (internal/middleware/errors.go).
package common

import "errors"

var (
	// ErrNotFound is returned by mutations that target a missing user.
	// Read operations report absence through an ok bool instead.
	ErrNotFound = errors.New("user not found")

	// ErrAlreadyExists is returned when a username or email collides with an
	// existing user, whether caught by the service pre-check or by the
	// database unique index.
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidCredentials covers both unknown-user and wrong-password so
	// callers cannot distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
