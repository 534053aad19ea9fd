package repository

// Package repository contains data access layer abstractions.
// Implementations can live in subpackages (e.g., postgres) inside this directory.

import "errors"

// ErrConflict is returned by implementations when an atomic multi-row write
// failed because of a concurrent modification (serialization failure, deadlock,
// or a uniqueness race). Callers may retry the whole operation.
var ErrConflict = errors.New("concurrent modification conflict")
