package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"hookbox/internal/event"
	"hookbox/internal/history"
	"hookbox/internal/rule"
)

// Recorder persists handler runs. *history.History implements it.
type Recorder interface {
	RecordRun(ctx context.Context, run *history.Run) (int64, error)
}

// Outcome describes a scheduled dispatch.
type Outcome struct {
	DispatchID string
	Rules      []string
}

// Dispatcher runs matched handlers in the background and tracks them until they finish.
type Dispatcher struct {
	logger   *slog.Logger
	recorder Recorder
	wg       sync.WaitGroup
}

// New creates a dispatcher. recorder may be nil to disable history.
func New(logger *slog.Logger, recorder Recorder) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		recorder: recorder,
	}
}

// Dispatch schedules every rule's handler for ev and returns immediately.
// No rules is a valid outcome and schedules nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, rules []*rule.Rule, ev *event.Event) Outcome {
	if len(rules) == 0 {
		return Outcome{}
	}

	out := Outcome{
		DispatchID: uuid.NewString(),
		Rules:      make([]string, len(rules)),
	}
	for i, r := range rules {
		out.Rules[i] = r.Name()
	}

	logger := d.logger.With(
		"dispatch_id", out.DispatchID,
		"delivery", ev.DeliveryID,
		"event", ev.Name,
	)
	logger.Info("dispatching", "rules", out.Rules)

	// Keep request-scoped values but not the request's cancellation
	hctx := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, r := range rules {
			d.run(hctx, logger, out.DispatchID, r, ev)
		}
	}()

	return out
}

// Wait blocks until every scheduled dispatch has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, logger *slog.Logger, dispatchID string, r *rule.Rule, ev *event.Event) {
	logger = logger.With("rule", r.Name())

	start := time.Now()
	err := invoke(ctx, r.Handler(), ev)
	duration := time.Since(start)

	run := &history.Run{
		DispatchID:      dispatchID,
		DeliveryID:      ev.DeliveryID,
		Event:           ev.Name,
		Rule:            r.Name(),
		Status:          history.StatusSuccess,
		StartedAt:       start,
		DurationSeconds: duration.Seconds(),
	}

	if err != nil {
		msg := err.Error()
		run.Status = history.StatusFailed
		run.ErrorMessage = &msg
		logger.Error("handler failed", "error", err, "duration_ms", duration.Milliseconds())
	} else {
		logger.Info("handler completed", "duration_ms", duration.Milliseconds())
	}

	if d.recorder == nil {
		return
	}
	if _, err := d.recorder.RecordRun(ctx, run); err != nil {
		logger.Error("failed to record handler run", "error", err)
	}
}

// invoke calls h and converts a panic into an error.
func invoke(ctx context.Context, h rule.Handler, ev *event.Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v\n%s", p, debug.Stack())
		}
	}()
	return h.Handle(ctx, ev)
}
