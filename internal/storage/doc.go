// Package storage provides the SQLite persistence layer for reminders and
// the scheduler checkpoint.
//
// Two tables: reminders(id, owner_id, hour, minute, label, created_at) and
// the single-row checkpoint(last_checked_at). Display ordinals are never
// stored; they are derived from the created_at ordering on every request.
package storage
