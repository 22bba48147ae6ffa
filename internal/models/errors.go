package models

import "errors"

var (
	// ErrNotFound indicates the requested document id is absent.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a caller-supplied document id is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput covers bad enum values, empty symbols, non-positive
	// limits and unregistered loader keys.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable indicates an external source could not be
	// reached or parsed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrDimensionMismatch indicates an embedding whose length differs from
	// the vectors already held by a store.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
