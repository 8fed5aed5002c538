package storage

import (
	"errors"
	"time"
)

// ErrNotFound reports a delete ordinal outside the owner's current list.
var ErrNotFound = errors.New("reminder not found")

// Config configures the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default (5s)
}
