package reminder

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"remindbot/internal/eventbus"
	"remindbot/pkg/logx"
)

// DeliveryEvent is published on the event bus for each dispatch outcome.
type DeliveryEvent struct {
	OwnerID int64     `json:"owner_id"`
	Label   string    `json:"label"`
	At      time.Time `json:"at"`
	Error   string    `json:"error,omitempty"`
}

type DispatcherConfig struct {
	SendTimeout time.Duration // per-notification bound; default 10s
	RatePerSec  int           // outbound send rate; default 3
}

// Dispatcher delivers due occurrences through the Notifier.
//
// Sends run sequentially in resolver order, which preserves per-owner
// delivery order. A failed send is recorded in the report and never halts
// later occurrences: reminders are independent and a blocked user must not
// stall others.
type Dispatcher struct {
	notifier Notifier
	limiter  *rate.Limiter
	timeout  time.Duration
	log      logx.Logger
	bus      eventbus.Bus
}

func NewDispatcher(cfg DispatcherConfig, notifier Notifier, log logx.Logger, bus eventbus.Bus) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		timeout:  cfg.SendTimeout,
		log:      log,
		bus:      bus,
	}
}

// Dispatch sends every occurrence in order. The dispatcher makes no retry
// decision; retry policy belongs to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, occs []Occurrence) Report {
	var rep Report
	for i, oc := range occs {
		if err := ctx.Err(); err != nil {
			// Shutdown mid-pass: count the rest as failed so the caller
			// knows the window was not fully processed.
			for _, rest := range occs[i:] {
				rep.Failed = append(rep.Failed, Failure{Occurrence: rest, Err: err})
			}
			return rep
		}
		if err := d.limiter.Wait(ctx); err != nil {
			for _, rest := range occs[i:] {
				rep.Failed = append(rep.Failed, Failure{Occurrence: rest, Err: err})
			}
			return rep
		}

		sctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.notifier.Send(sctx, oc.Reminder.OwnerID, FormatText(oc.Reminder))
		cancel()

		if err != nil {
			rep.Failed = append(rep.Failed, Failure{Occurrence: oc, Err: err})
			d.log.Warn("delivery failed",
				logx.Int64("owner", oc.Reminder.OwnerID),
				logx.String("label", oc.Reminder.Label),
				logx.Time("due", oc.At),
				logx.Err(err))
			d.publish("reminder.failed", oc, err)
			continue
		}

		rep.Delivered++
		d.log.Debug("reminder delivered",
			logx.Int64("owner", oc.Reminder.OwnerID),
			logx.String("label", oc.Reminder.Label),
			logx.Time("due", oc.At))
		d.publish("reminder.delivered", oc, nil)
	}
	return rep
}

func (d *Dispatcher) publish(typ string, oc Occurrence, err error) {
	if d.bus == nil {
		return
	}
	ev := DeliveryEvent{OwnerID: oc.Reminder.OwnerID, Label: oc.Reminder.Label, At: oc.At}
	if err != nil {
		ev.Error = err.Error()
	}
	d.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}
