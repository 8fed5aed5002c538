package reminder

import (
	"context"
	"fmt"
	"time"
)

// Reminder is a named, daily-recurring trigger owned by one user.
type Reminder struct {
	ID        int64
	OwnerID   int64
	Hour      int // 0..23, local to the scheduler's zone
	Minute    int // 0..59
	Label     string
	CreatedAt time.Time
}

// HHMM renders the trigger time as "HH:MM".
func (r Reminder) HHMM() string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

// Occurrence is one concrete due instance of a reminder at a specific
// calendar day's trigger instant. Occurrences are never persisted; one is
// "delivered" purely by the checkpoint having advanced past its instant.
type Occurrence struct {
	Reminder Reminder
	At       time.Time
}

// Failure records a single undeliverable occurrence within a dispatch pass.
type Failure struct {
	Occurrence Occurrence
	Err        error
}

// Report aggregates the outcome of one dispatch pass.
type Report struct {
	Delivered int
	Failed    []Failure
}

// Clock abstracts wall-clock time at minute granularity so the engine is
// deterministic under test.
type Clock interface {
	Now() time.Time
}

// Notifier is the outbound delivery capability (the chat transport).
type Notifier interface {
	Send(ctx context.Context, ownerID int64, text string) error
}

// Store is the persistence the reminder core depends on. Mutations are
// durable when the call returns.
type Store interface {
	CreateReminder(ctx context.Context, r *Reminder) error
	ListByOwner(ctx context.Context, ownerID int64) ([]Reminder, error)
	// DeleteByOrdinal removes the reminder at the 1-based position within
	// the owner's createdAt-ordered list and returns it.
	DeleteByOrdinal(ctx context.Context, ownerID int64, ordinal int) (Reminder, error)
	ScanAll(ctx context.Context) ([]Reminder, error)

	// Checkpoint returns the instant through which occurrences have been
	// dispatched; ok is false on a fresh install.
	Checkpoint(ctx context.Context) (t time.Time, ok bool, err error)
	SetCheckpoint(ctx context.Context, t time.Time) error
}

// FormatText builds the notification text for one reminder. The wording is
// part of the bot's user-facing contract.
func FormatText(r Reminder) string {
	return fmt.Sprintf("You have a reminder for '%s' at %s.", r.Label, r.HHMM())
}
