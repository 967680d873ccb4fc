package repository

import "errors"

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a goal changed since it was read.
	ErrVersionConflict = errors.New("goal was modified concurrently")
	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("duplicate record")
)
