package bot

import (
	"context"
	"strconv"
	"time"

	"remindbot/internal/reminder"
	kit "remindbot/internal/transport"
)

type sessionState int

const (
	stateAddTime sessionState = iota
	stateAddLabel
	stateDeleteChoose
)

// session is a half-finished conversation for one owner. Sessions are
// in-memory only; a restart drops them, which matches the low stakes of
// a two-message prompt.
type session struct {
	state     sessionState
	hour      int
	minute    int
	updatedAt time.Time
}

func (r *Router) startSession(ownerID int64, state sessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[ownerID] = &session{state: state, updatedAt: time.Now()}
}

// session returns the owner's pending session, expiring it if it has
// been idle longer than the configured window.
func (r *Router) session(ownerID int64) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[ownerID]
	if !ok {
		return nil
	}
	if time.Since(s.updatedAt) > r.idle {
		delete(r.sessions, ownerID)
		return nil
	}
	s.updatedAt = time.Now()
	return s
}

func (r *Router) clearSession(ownerID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, ownerID)
}

func (r *Router) sessionInput(ctx context.Context, m kit.Message, s *session, text string) {
	switch s.state {
	case stateAddTime:
		hour, minute, err := reminder.ParseHHMM(text)
		if err != nil {
			r.reply(ctx, m, "That doesn't look like a time. Please use HH:MM, 24-hour format (for example 20:00):")
			return
		}
		s.hour, s.minute = hour, minute
		s.state = stateAddLabel
		r.reply(ctx, m, "What is the reminder about?")

	case stateAddLabel:
		r.clearSession(m.FromID)
		r.addReminder(ctx, m, s.hour, s.minute, text)

	case stateDeleteChoose:
		ordinal, err := strconv.Atoi(text)
		if err != nil {
			r.reply(ctx, m, "Please type a valid number.")
			return
		}
		r.clearSession(m.FromID)
		r.deleteReminder(ctx, m, ordinal)
	}
}
