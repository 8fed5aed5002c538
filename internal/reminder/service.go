package reminder

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"remindbot/pkg/logx"
)

// Service is the command surface over the store: add, list and delete
// reminders for one owner. Display ordinals are computed per request from
// the createdAt ordering and are never persisted.
type Service struct {
	store Store
	log   logx.Logger
}

func NewService(store Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, log: log}
}

// Add validates and persists a new reminder. The reminder is durable when
// Add returns.
func (s *Service) Add(ctx context.Context, ownerID int64, hour, minute int, label string) (Reminder, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Reminder{}, fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, hour, minute)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return Reminder{}, ErrEmptyLabel
	}

	existing, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return Reminder{}, fmt.Errorf("list reminders: %w", err)
	}
	for _, r := range existing {
		if r.Label == label {
			return Reminder{}, fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
		}
	}

	r := Reminder{OwnerID: ownerID, Hour: hour, Minute: minute, Label: label}
	if err := s.store.CreateReminder(ctx, &r); err != nil {
		return Reminder{}, fmt.Errorf("create reminder: %w", err)
	}
	s.log.Info("reminder added",
		logx.Int64("owner", ownerID),
		logx.String("at", r.HHMM()),
		logx.String("label", r.Label))
	return r, nil
}

// List returns the owner's reminders ordered by creation; index+1 is the
// display ordinal.
func (s *Service) List(ctx context.Context, ownerID int64) ([]Reminder, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// Delete removes the reminder at the given 1-based ordinal and returns it.
func (s *Service) Delete(ctx context.Context, ownerID int64, ordinal int) (Reminder, error) {
	r, err := s.store.DeleteByOrdinal(ctx, ownerID, ordinal)
	if err != nil {
		return Reminder{}, err
	}
	s.log.Info("reminder deleted",
		logx.Int64("owner", ownerID),
		logx.Int("ordinal", ordinal),
		logx.String("label", r.Label))
	return r, nil
}

// ParseHHMM parses a "HH:MM" 24-hour string.
func ParseHHMM(raw string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	return h, m, nil
}
