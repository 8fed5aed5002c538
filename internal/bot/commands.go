package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"remindbot/internal/reminder"
	"remindbot/internal/storage"
	kit "remindbot/internal/transport"
	"remindbot/pkg/logx"
)

const helpText = `Welcome to the Reminder Bot!

Available commands:
/start - Show this help message.
/add <reminder time> <reminder name> - Add a new reminder.
    Example: /add 20:00 Medicine
/list - List all your reminders, numbered for deletion.
/delete <number> - Delete a reminder by its number from /list.
    Example: /delete 1
/cancel - Cancel a half-finished /add or /delete.

The bot will store your reminders and notify you at the specified time,
every day. Reminders missed while the bot was offline are delivered on
startup.`

const (
	addUsage     = "Usage: /add <reminder time> <reminder name>"
	addBadFormat = "Invalid format. Usage: /add <reminder time> <reminder name>\nExample: /add 20:00 Medicine"
	deleteUsage  = "Usage: /delete <number>\nUse /list to see reminder numbers."
	noReminders  = "You have no reminders set."
	storageSorry = "Sorry, something went wrong storing your reminders. Please try again."
)

func (r *Router) handleStart(ctx context.Context, m kit.Message) {
	r.reply(ctx, m, helpText)
}

func (r *Router) handleAdd(ctx context.Context, m kit.Message, args []string) {
	if len(args) == 0 {
		// Two-step conversation: ask for the time first.
		r.startSession(m.FromID, stateAddTime)
		r.reply(ctx, m, "Please type the time you want to be reminded at (HH:MM, 24-hour format):")
		return
	}
	if len(args) < 2 {
		r.reply(ctx, m, addUsage)
		return
	}

	hour, minute, err := reminder.ParseHHMM(args[0])
	if err != nil {
		r.reply(ctx, m, addBadFormat)
		return
	}
	label := strings.Join(args[1:], " ")
	r.addReminder(ctx, m, hour, minute, label)
}

func (r *Router) addReminder(ctx context.Context, m kit.Message, hour, minute int, label string) {
	rem, err := r.svc.Add(ctx, m.FromID, hour, minute, label)
	switch {
	case errors.Is(err, reminder.ErrDuplicateLabel):
		r.reply(ctx, m, fmt.Sprintf("You already have a reminder named '%s'. Please choose a different name.", strings.TrimSpace(label)))
	case errors.Is(err, reminder.ErrInvalidTime), errors.Is(err, reminder.ErrEmptyLabel):
		r.reply(ctx, m, addBadFormat)
	case err != nil:
		r.log.Error("add reminder failed", logx.Err(err))
		r.reply(ctx, m, storageSorry)
	default:
		r.reply(ctx, m, fmt.Sprintf("Ok, I'll remind you at %s for \"%s\".", rem.HHMM(), rem.Label))
	}
}

func (r *Router) handleList(ctx context.Context, m kit.Message) {
	reminders, err := r.svc.List(ctx, m.FromID)
	if err != nil {
		r.log.Error("list reminders failed", logx.Err(err))
		r.reply(ctx, m, storageSorry)
		return
	}
	if len(reminders) == 0 {
		r.reply(ctx, m, noReminders)
		return
	}
	r.reply(ctx, m, formatList(reminders))
}

func formatList(reminders []reminder.Reminder) string {
	var b strings.Builder
	b.WriteString("Your reminders:")
	for i, rem := range reminders {
		fmt.Fprintf(&b, "\n%d. %s - %s", i+1, rem.HHMM(), rem.Label)
	}
	return b.String()
}

func (r *Router) handleDelete(ctx context.Context, m kit.Message, args []string) {
	if len(args) == 0 {
		// Conversation variant: show the list, then ask for a number.
		reminders, err := r.svc.List(ctx, m.FromID)
		if err != nil {
			r.log.Error("list reminders failed", logx.Err(err))
			r.reply(ctx, m, storageSorry)
			return
		}
		if len(reminders) == 0 {
			r.reply(ctx, m, noReminders)
			return
		}
		r.startSession(m.FromID, stateDeleteChoose)
		r.reply(ctx, m, formatList(reminders)+"\n\nPlease type the number of the reminder you want to delete:")
		return
	}

	ordinal, err := strconv.Atoi(args[0])
	if err != nil {
		r.reply(ctx, m, deleteUsage)
		return
	}
	r.deleteReminder(ctx, m, ordinal)
}

func (r *Router) deleteReminder(ctx context.Context, m kit.Message, ordinal int) {
	rem, err := r.svc.Delete(ctx, m.FromID, ordinal)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		n := r.countReminders(ctx, m.FromID)
		r.reply(ctx, m, fmt.Sprintf("Invalid number. You have %d reminders.", n))
	case err != nil:
		r.log.Error("delete reminder failed", logx.Err(err))
		r.reply(ctx, m, storageSorry)
	default:
		r.reply(ctx, m, fmt.Sprintf("Deleted reminder %d: %s - %s", ordinal, rem.HHMM(), rem.Label))
	}
}

func (r *Router) countReminders(ctx context.Context, ownerID int64) int {
	reminders, err := r.svc.List(ctx, ownerID)
	if err != nil {
		return 0
	}
	return len(reminders)
}

func (r *Router) handleCancel(ctx context.Context, m kit.Message) {
	if r.session(m.FromID) == nil {
		r.reply(ctx, m, "Nothing to cancel.")
		return
	}
	r.clearSession(m.FromID)
	r.reply(ctx, m, "Cancelled.")
}
