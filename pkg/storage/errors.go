package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a record does not exist or is not
	// visible in the active tenant scope.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a record violates a uniqueness constraint.
	ErrConflict = errors.New("record already exists")

	// ErrImmutableField is returned when an update touches a column that may
	// not change after creation.
	ErrImmutableField = errors.New("field is immutable")

	// ErrMissingOwner is returned when a tenant-owned record is created
	// without its ownership column.
	ErrMissingOwner = errors.New("ownership column not set")

	// ErrUnknownModel is returned for models absent from the schema registry.
	ErrUnknownModel = errors.New("unknown model")

	// ErrUnknownColumn is returned when a filter or record references a
	// column the model does not declare.
	ErrUnknownColumn = errors.New("unknown column")
)
