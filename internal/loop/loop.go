// Package loop runs a scheduler on a single goroutine.
//
// The loop owns the scheduler's event channel. Timer expiries wake it and it
// pumps the scheduler; work from other goroutines is posted to it and run in
// between. Everything that touches the scheduler goes through the loop.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/glizzus/callsched/internal/schedule"
)

var ErrStopped = errors.New("loop: stopped")

const inboxSize = 64

type Loop struct {
	log    *slog.Logger
	sched  *schedule.Scheduler
	events chan struct{}
	inbox  chan func()
	done   chan struct{}
}

// New creates a loop and its scheduler. opts are passed to schedule.New.
func New(log *slog.Logger, opts ...schedule.Option) (*Loop, error) {
	if log == nil {
		log = slog.Default()
	}
	events := make(chan struct{}, 1)
	sched, err := schedule.New(events, append([]schedule.Option{schedule.WithLogger(log)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}
	return &Loop{
		log:    log,
		sched:  sched,
		events: events,
		inbox:  make(chan func(), inboxSize),
		done:   make(chan struct{}),
	}, nil
}

// Scheduler returns the loop's scheduler. It may only be used from functions
// running on the loop: tasks, or functions passed to Post and Call.
func (l *Loop) Scheduler() *schedule.Scheduler {
	return l.sched
}

// Post queues fn to run on the loop. It blocks while the inbox is full and
// fails once the loop has stopped.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.inbox <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Call runs fn on the loop and waits for its result.
func (l *Loop) Call(ctx context.Context, fn func(*schedule.Scheduler) error) error {
	result := make(chan error, 1)
	err := l.Post(func() {
		result <- fn(l.sched)
	})
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// fn may have run just before the loop stopped.
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	}
}

// Run services the loop until ctx is cancelled, then tears the scheduler
// down. Pending callbacks are cancelled without running. Run may only be
// called once.
func (l *Loop) Run(ctx context.Context) error {
	l.log.InfoContext(ctx, "scheduler loop started")
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			return l.shutdown(ctx)
		case <-l.events:
			if n := l.sched.Pump(); n > 0 {
				l.log.DebugContext(ctx, "pumped scheduler", slog.Int("fired", n))
			}
		case fn := <-l.inbox:
			l.run(ctx, fn)
		}
	}
}

func (l *Loop) run(ctx context.Context, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			l.log.ErrorContext(ctx, "posted function panicked", slog.Any("panic", p))
		}
	}()
	fn()
}

func (l *Loop) shutdown(ctx context.Context) error {
	// Drain posted work so callers blocked in Call see a result.
	for drained := false; !drained; {
		select {
		case fn := <-l.inbox:
			l.run(ctx, fn)
		default:
			drained = true
		}
	}

	pending := l.sched.Stats().Pending
	if err := l.sched.Teardown(); err != nil {
		return fmt.Errorf("tearing down scheduler: %w", err)
	}
	l.log.Info("scheduler loop stopped", slog.Int("cancelled", pending))
	return nil
}
