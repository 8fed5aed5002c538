package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"remindbot/internal/reminder"
	kit "remindbot/internal/transport"
	"remindbot/pkg/logx"
)

// Sender is the slice of the transport adapter the router needs.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string) error
}

type Config struct {
	// SessionIdle expires a half-finished conversation after this long
	// without input. Default 5m.
	SessionIdle time.Duration
}

// Router dispatches inbound messages to command handlers and feeds
// non-command text into the owner's pending conversation session.
type Router struct {
	svc    *reminder.Service
	sender Sender
	log    logx.Logger
	idle   time.Duration

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewRouter(cfg Config, svc *reminder.Service, sender Sender, log logx.Logger) *Router {
	if cfg.SessionIdle <= 0 {
		cfg.SessionIdle = 5 * time.Minute
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		svc:      svc,
		sender:   sender,
		log:      log,
		idle:     cfg.SessionIdle,
		sessions: map[int64]*session{},
	}
}

// Run consumes messages until ctx is done or the channel closes.
func (r *Router) Run(ctx context.Context, updates <-chan kit.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-updates:
			if !ok {
				return nil
			}
			r.handle(ctx, m)
		}
	}
}

func (r *Router) handle(ctx context.Context, m kit.Message) {
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		r.handleCommand(ctx, m, text)
		return
	}

	// Non-command text only matters inside a pending conversation.
	if s := r.session(m.FromID); s != nil {
		r.sessionInput(ctx, m, s, text)
	}
}

func (r *Router) handleCommand(ctx context.Context, m kit.Message, text string) {
	fields := strings.Fields(text)
	cmd := strings.TrimPrefix(fields[0], "/")
	// "/add@my_bot" form used in groups
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	args := fields[1:]

	// Any command other than /cancel abandons a pending conversation; the
	// user clearly moved on.
	if cmd != "cancel" {
		r.clearSession(m.FromID)
	}

	switch cmd {
	case "start", "help":
		r.handleStart(ctx, m)
	case "add":
		r.handleAdd(ctx, m, args)
	case "list":
		r.handleList(ctx, m)
	case "delete":
		r.handleDelete(ctx, m, args)
	case "cancel":
		r.handleCancel(ctx, m)
	default:
		r.reply(ctx, m, "Unknown command. Use /start to see what I can do.")
	}
}

func (r *Router) reply(ctx context.Context, m kit.Message, text string) {
	if err := r.sender.SendText(ctx, kit.ChatTarget{ChatID: m.ChatID}, text); err != nil {
		r.log.Warn("reply failed",
			logx.Int64("chat", m.ChatID),
			logx.Err(err))
	}
}
