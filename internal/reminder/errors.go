package reminder

import "errors"

var (
	// ErrInvalidTime rejects hour/minute outside 0..23 / 0..59.
	ErrInvalidTime = errors.New("invalid reminder time")
	// ErrEmptyLabel rejects labels that are empty after trimming.
	ErrEmptyLabel = errors.New("reminder label is empty")
	// ErrDuplicateLabel rejects a second reminder with the same label for
	// one owner.
	ErrDuplicateLabel = errors.New("reminder label already exists")
)
