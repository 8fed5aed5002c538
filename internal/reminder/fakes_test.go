package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memStore is an in-memory Store with injectable failures.
type memStore struct {
	mu        sync.Mutex
	reminders []Reminder
	nextID    int64

	cp    time.Time
	cpSet bool

	scanErr  error
	setCpErr error
}

func newMemStore() *memStore { return &memStore{nextID: 1} }

func (s *memStore) CreateReminder(_ context.Context, r *Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.nextID
	s.nextID++
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.reminders = append(s.reminders, *r)
	return nil
}

func (s *memStore) ListByOwner(_ context.Context, ownerID int64) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reminder
	for _, r := range s.reminders {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) DeleteByOrdinal(ctx context.Context, ownerID int64, ordinal int) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i, r := range s.reminders {
		if r.OwnerID != ownerID {
			continue
		}
		n++
		if n == ordinal {
			s.reminders = append(s.reminders[:i], s.reminders[i+1:]...)
			return r, nil
		}
	}
	return Reminder{}, fmt.Errorf("no reminder at ordinal %d", ordinal)
}

func (s *memStore) ScanAll(_ context.Context) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	out := make([]Reminder, len(s.reminders))
	copy(out, s.reminders)
	return out, nil
}

func (s *memStore) Checkpoint(_ context.Context) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cp, s.cpSet, nil
}

func (s *memStore) SetCheckpoint(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setCpErr != nil {
		return s.setCpErr
	}
	if !s.cpSet || t.After(s.cp) {
		s.cp, s.cpSet = t, true
	}
	return nil
}

func (s *memStore) checkpoint() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cp, s.cpSet
}

func (s *memStore) seed(r Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.nextID
	}
	if r.ID >= s.nextID {
		s.nextID = r.ID + 1
	}
	s.reminders = append(s.reminders, r)
}

type sentMessage struct {
	OwnerID int64
	Text    string
}

// captureNotifier records sends and can fail for selected owners.
type captureNotifier struct {
	mu         sync.Mutex
	sent       []sentMessage
	failOwners map[int64]error
}

func (n *captureNotifier) Send(_ context.Context, ownerID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failOwners[ownerID]; ok {
		return err
	}
	n.sent = append(n.sent, sentMessage{OwnerID: ownerID, Text: text})
	return nil
}

func (n *captureNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentMessage, len(n.sent))
	copy(out, n.sent)
	return out
}

// fixedClock returns a settable instant.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
