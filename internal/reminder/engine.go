package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/pkg/logx"
)

// tickSpec fires once per minute, matching the trigger granularity.
const tickSpec = "* * * * *"

// Engine is the scheduling authority: it owns the checkpoint, resolves due
// occurrences on a minute tick and hands them to the dispatcher. Exactly one
// engine runs per process.
//
// The checkpoint advances to "now" after the dispatch pass regardless of
// per-occurrence transport failures (they are not retryable by re-resolving
// the same instant tomorrow); it does NOT advance when the pass itself is
// aborted (storage error, shutdown), so the same window is re-resolved on
// the next tick.
type Engine struct {
	store    Store
	dispatch *Dispatcher
	clock    Clock
	loc      *time.Location
	log      logx.Logger

	mu     sync.Mutex
	c      *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

func NewEngine(store Store, dispatch *Dispatcher, clock Clock, loc *time.Location, log logx.Logger) *Engine {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = WallClock{Loc: loc}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{store: store, dispatch: dispatch, clock: clock, loc: loc, log: log}
}

// windowReport summarizes one resolve+dispatch pass.
type windowReport struct {
	initialized bool
	window      time.Duration
	occurrences int
	delivered   int
	failed      int
}

// CatchUp runs one window pass covering everything since the persisted
// checkpoint; the window may span multiple days of downtime. It must be
// called once, before Start. On a fresh install the checkpoint is
// initialized to now and nothing is delivered.
func (e *Engine) CatchUp(ctx context.Context) error {
	rep, err := e.runWindow(ctx)
	if err != nil {
		return err
	}
	switch {
	case rep.initialized:
		e.log.Info("checkpoint initialized (fresh install)")
	case rep.occurrences > 0:
		e.log.Info("catch-up complete",
			logx.Duration("window", rep.window),
			logx.Int("occurrences", rep.occurrences),
			logx.Int("delivered", rep.delivered),
			logx.Int("failed", rep.failed))
	default:
		e.log.Info("catch-up complete (nothing due)", logx.Duration("window", rep.window))
	}
	return nil
}

// Start begins ticking once per minute. Overlapping ticks are delayed, not
// dropped, so a slow dispatch pass can never race a second pass over the
// same checkpoint.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.c != nil {
		return nil
	}
	e.runCtx, e.cancel = context.WithCancel(ctx)

	cl := cronLogger{log: e.log.With(logx.String("comp", "cron"))}
	c := cron.New(
		cron.WithLocation(e.loc),
		cron.WithChain(cron.Recover(cl), cron.DelayIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(tickSpec, e.tick); err != nil {
		e.cancel()
		e.runCtx, e.cancel, e.c = nil, nil, nil
		return fmt.Errorf("register tick: %w", err)
	}
	e.c = c
	c.Start()
	e.log.Info("engine started", logx.String("tz", e.loc.String()))
	return nil
}

// Stop halts ticking and waits for an in-flight tick to finish (bounded by
// ctx).
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	c := e.c
	cancel := e.cancel
	e.c, e.runCtx, e.cancel = nil, nil, nil
	e.mu.Unlock()

	if c == nil {
		return
	}
	// Let the in-flight tick finish; cancel only if the caller's deadline
	// expires first.
	stopped := c.Stop().Done()
	select {
	case <-stopped:
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		<-stopped
	}
	if cancel != nil {
		cancel()
	}
	e.log.Info("engine stopped")
}

func (e *Engine) tick() {
	e.mu.Lock()
	ctx := e.runCtx
	e.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	rep, err := e.runWindow(ctx)
	if err != nil {
		// Checkpoint was not advanced; the same window is re-resolved on
		// the next tick.
		e.log.Error("tick failed", logx.Err(err))
		return
	}
	if rep.occurrences > 0 {
		e.log.Info("tick dispatched",
			logx.Int("occurrences", rep.occurrences),
			logx.Int("delivered", rep.delivered),
			logx.Int("failed", rep.failed))
	}
}

func (e *Engine) runWindow(ctx context.Context) (windowReport, error) {
	now := e.clock.Now().In(e.loc)

	last, ok, err := e.store.Checkpoint(ctx)
	if err != nil {
		return windowReport{}, fmt.Errorf("read checkpoint: %w", err)
	}
	if !ok {
		// Fresh install: never deliver history that predates the store.
		if err := e.store.SetCheckpoint(ctx, now); err != nil {
			return windowReport{}, fmt.Errorf("init checkpoint: %w", err)
		}
		return windowReport{initialized: true}, nil
	}
	if !now.After(last) {
		return windowReport{}, nil
	}

	rep := windowReport{window: now.Sub(last)}

	reminders, err := e.store.ScanAll(ctx)
	if err != nil {
		return windowReport{}, fmt.Errorf("scan reminders: %w", err)
	}

	occs := Resolve(reminders, last.In(e.loc), now)
	rep.occurrences = len(occs)
	if len(occs) > 0 {
		dr := e.dispatch.Dispatch(ctx, occs)
		rep.delivered = dr.Delivered
		rep.failed = len(dr.Failed)
	}
	if err := ctx.Err(); err != nil {
		// Shutdown mid-pass: keep the checkpoint so the window is retried.
		return rep, err
	}

	if err := e.store.SetCheckpoint(ctx, now); err != nil {
		return rep, fmt.Errorf("advance checkpoint: %w", err)
	}
	return rep, nil
}

// cronLogger adapts logx to cron.Logger for the Recover/DelayIfStillRunning
// wrappers.
type cronLogger struct {
	log logx.Logger
}

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.log.Debug(msg, logx.Any("kv", kv))
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.log.Error(msg, logx.Err(err), logx.Any("kv", kv))
}
