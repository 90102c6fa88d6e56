// Package common defines shared sentinel errors and small helpers used across
// the gophvault client layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrLocalStore marks a read or write fault of the local durable store.
	// The in-memory collection stays authoritative when it is returned.
	ErrLocalStore = errors.New("local store fault")

	// ErrEmptyOverwrite is returned when a load path tries to replace a
	// non-empty local record set with an empty collection.
	ErrEmptyOverwrite = errors.New("refusing to overwrite non-empty local store with empty collection")

	// ErrValidation is wrapped by every admission policy violation.
	ErrValidation = errors.New("validation error")

	// Gate errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrLocked       = errors.New("vault is locked")
)
