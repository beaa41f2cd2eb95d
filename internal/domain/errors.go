package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for malformed ids, unknown filter fields,
	// unsupported sort fields and out-of-range paging values
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict is returned when a uniqueness constraint is violated
	ErrConflict = errors.New("conflict")

	// ErrInternal is returned when the underlying store fails
	ErrInternal = errors.New("internal error")
)
