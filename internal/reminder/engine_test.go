package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"remindbot/pkg/logx"
)

func testEngine(store Store, n Notifier, clock Clock) *Engine {
	d := NewDispatcher(DispatcherConfig{SendTimeout: time.Second, RatePerSec: 1000}, n, logx.Nop(), nil)
	return NewEngine(store, d, clock, time.UTC, logx.Nop())
}

func TestCatchUpFreshInstallInitializesCheckpoint(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.seed(Reminder{ID: 1, OwnerID: 7, Hour: 8, Minute: 0, Label: "Medicine"})
	n := &captureNotifier{}
	clock := &fixedClock{now: day(10, 12, 0)}

	if err := testEngine(store, n, clock).CatchUp(context.Background()); err != nil {
		t.Fatalf("CatchUp error: %v", err)
	}
	if len(n.messages()) != 0 {
		t.Fatal("fresh install must not deliver history")
	}
	cp, ok := store.checkpoint()
	if !ok || !cp.Equal(day(10, 12, 0)) {
		t.Fatalf("checkpoint = %v (set=%v), want %v", cp, ok, day(10, 12, 0))
	}
}

func TestCatchUpDeliversMissedWindow(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.seed(Reminder{ID: 1, OwnerID: 7, Hour: 8, Minute: 0, Label: "Medicine"})
	store.cp, store.cpSet = day(10, 7, 59), true
	n := &captureNotifier{}
	clock := &fixedClock{now: day(10, 8, 1)}

	if err := testEngine(store, n, clock).CatchUp(context.Background()); err != nil {
		t.Fatalf("CatchUp error: %v", err)
	}
	msgs := n.messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgs))
	}
	if msgs[0].OwnerID != 7 || msgs[0].Text != "You have a reminder for 'Medicine' at 08:00." {
		t.Fatalf("unexpected message: %+v", msgs[0])
	}
	cp, _ := store.checkpoint()
	if !cp.Equal(day(10, 8, 1)) {
		t.Fatalf("checkpoint = %v, want %v", cp, day(10, 8, 1))
	}
}

func TestCatchUpMultiDayDowntime(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	created := day(1, 0, 0)
	store.seed(Reminder{ID: 1, OwnerID: 7, Hour: 8, Minute: 30, Label: "Medicine", CreatedAt: created})
	store.seed(Reminder{ID: 2, OwnerID: 9, Hour: 8, Minute: 30, Label: "Vitamins", CreatedAt: created.Add(time.Hour)})
	store.cp, store.cpSet = day(1, 8, 31), true
	n := &captureNotifier{}
	clock := &fixedClock{now: day(3, 9, 0)}

	if err := testEngine(store, n, clock).CatchUp(context.Background()); err != nil {
		t.Fatalf("CatchUp error: %v", err)
	}

	// Two owed days (day 2 and day 3) for each reminder, grouped by
	// instant, tie-broken by creation order.
	msgs := n.messages()
	wantOwners := []int64{7, 9, 7, 9}
	if len(msgs) != len(wantOwners) {
		t.Fatalf("sent %d messages, want %d", len(msgs), len(wantOwners))
	}
	for i, m := range msgs {
		if m.OwnerID != wantOwners[i] {
			t.Fatalf("message[%d] to owner %d, want %d", i, m.OwnerID, wantOwners[i])
		}
	}
	cp, _ := store.checkpoint()
	if !cp.Equal(day(3, 9, 0)) {
		t.Fatalf("checkpoint = %v, want %v", cp, day(3, 9, 0))
	}
}

func TestCheckpointHeldOnStorageError(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.seed(Reminder{ID: 1, OwnerID: 7, Hour: 8, Minute: 0, Label: "Medicine"})
	store.cp, store.cpSet = day(10, 7, 0), true
	store.scanErr = errors.New("disk gone")
	n := &captureNotifier{}
	clock := &fixedClock{now: day(10, 9, 0)}

	err := testEngine(store, n, clock).CatchUp(context.Background())
	if err == nil {
		t.Fatal("expected error from storage failure")
	}
	cp, _ := store.checkpoint()
	if !cp.Equal(day(10, 7, 0)) {
		t.Fatalf("checkpoint moved to %v; must stay at %v", cp, day(10, 7, 0))
	}
	if len(n.messages()) != 0 {
		t.Fatal("nothing should be delivered when the scan fails")
	}
}

func TestCheckpointHeldOnWriteError(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.seed(Reminder{ID: 1, OwnerID: 7, Hour: 8, Minute: 0, Label: "Medicine"})
	store.cp, store.cpSet = day(10, 7, 59), true
	store.setCpErr = errors.New("disk full")
	n := &captureNotifier{}
	clock := &fixedClock{now: day(10, 8, 1)}
	e := testEngine(store, n, clock)

	err := e.CatchUp(context.Background())
	if err == nil {
		t.Fatal("expected error from checkpoint write failure")
	}
	cp, _ := store.checkpoint()
	if !cp.Equal(day(10, 7, 59)) {
		t.Fatalf("checkpoint = %v; must stay at %v", cp, day(10, 7, 59))
	}
	// Dispatch ran before the failed write.
	if got := len(n.messages()); got != 1 {
		t.Fatalf("delivered %d times before the write failure, want 1", got)
	}

	// Once the store recovers, the same window is re-resolved and the
	// occurrence re-dispatched.
	store.mu.Lock()
	store.setCpErr = nil
	store.mu.Unlock()
	if err := e.CatchUp(context.Background()); err != nil {
		t.Fatalf("retry error: %v", err)
	}
	msgs := n.messages()
	if len(msgs) != 2 || msgs[1].OwnerID != 7 {
		t.Fatalf("messages = %+v, want a redelivery to owner 7", msgs)
	}
	cp, _ = store.checkpoint()
	if !cp.Equal(day(10, 8, 1)) {
		t.Fatalf("checkpoint = %v, want %v", cp, day(10, 8, 1))
	}
}

func TestCheckpointAdvancesDespiteSendFailures(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.seed(Reminder{ID: 1, OwnerID: 7, Hour: 8, Minute: 0, Label: "lost"})
	store.seed(Reminder{ID: 2, OwnerID: 9, Hour: 8, Minute: 0, Label: "kept"})
	store.cp, store.cpSet = day(10, 7, 59), true
	n := &captureNotifier{failOwners: map[int64]error{7: errors.New("blocked")}}
	clock := &fixedClock{now: day(10, 8, 1)}

	if err := testEngine(store, n, clock).CatchUp(context.Background()); err != nil {
		t.Fatalf("CatchUp error: %v", err)
	}
	// A transport failure is not retryable by re-resolving the same
	// instant, so the window still closes.
	cp, _ := store.checkpoint()
	if !cp.Equal(day(10, 8, 1)) {
		t.Fatalf("checkpoint = %v, want %v", cp, day(10, 8, 1))
	}
	msgs := n.messages()
	if len(msgs) != 1 || msgs[0].OwnerID != 9 {
		t.Fatalf("messages = %+v, want one to owner 9", msgs)
	}
}

func TestNoWindowWhenClockNotAhead(t *testing.T) {
	t.Parallel()
	for _, tt := range []struct {
		name string
		now  time.Time
	}{
		{name: "clock equal to checkpoint", now: day(10, 8, 0)},
		{name: "clock behind checkpoint", now: day(10, 7, 0)},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := newMemStore()
			store.seed(Reminder{ID: 1, OwnerID: 7, Hour: 7, Minute: 30, Label: "Medicine"})
			store.cp, store.cpSet = day(10, 8, 0), true
			n := &captureNotifier{}
			clock := &fixedClock{now: tt.now}

			if err := testEngine(store, n, clock).CatchUp(context.Background()); err != nil {
				t.Fatalf("CatchUp error: %v", err)
			}
			if len(n.messages()) != 0 {
				t.Fatal("no window means no delivery")
			}
			cp, _ := store.checkpoint()
			if !cp.Equal(day(10, 8, 0)) {
				t.Fatalf("checkpoint = %v, want unchanged %v", cp, day(10, 8, 0))
			}
		})
	}
}

func TestConsecutiveWindowsDeliverOnce(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.seed(Reminder{ID: 1, OwnerID: 7, Hour: 8, Minute: 0, Label: "Medicine"})
	store.cp, store.cpSet = day(10, 7, 59), true
	n := &captureNotifier{}
	clock := &fixedClock{now: day(10, 8, 0)}
	e := testEngine(store, n, clock)

	// Two back-to-back passes over adjacent windows: the 08:00 trigger is
	// in the first window only.
	if err := e.CatchUp(context.Background()); err != nil {
		t.Fatalf("first pass error: %v", err)
	}
	clock.set(day(10, 8, 1))
	if err := e.CatchUp(context.Background()); err != nil {
		t.Fatalf("second pass error: %v", err)
	}

	if got := len(n.messages()); got != 1 {
		t.Fatalf("delivered %d times, want exactly 1", got)
	}
}

func TestEngineStartStop(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.cp, store.cpSet = day(10, 8, 0), true
	e := testEngine(store, &captureNotifier{}, &fixedClock{now: day(10, 8, 0)})

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := e.Start(ctx); err != nil {
		t.Fatalf("second Start must be a no-op, got: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	e.Stop(stopCtx)
	// Stop on a stopped engine is safe.
	e.Stop(stopCtx)
}
