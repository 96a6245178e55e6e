// Package repository defines error types that are reused across the
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios.
package repository

import "errors"

// ErrRunNotFound is returned when no run matches the requested key.
// Handlers should translate this into an HTTP 404 response.
var ErrRunNotFound = errors.New("run not found")

// ErrConflict is returned when a run with the same key was already
// stored. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
