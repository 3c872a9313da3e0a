package schedule

import (
	"fmt"
	"log/slog"
	"time"
)

// Recurring is a task that re-arms itself each time it runs.
type Recurring struct {
	Task *Task

	s    *Scheduler
	next func(now time.Time) (time.Time, bool)
}

// NewCronTask returns a recurring task that runs fn at every occurrence of
// the cron expression expr, evaluated on the scheduler's clock.
func NewCronTask(s *Scheduler, name, expr string, fn func(arg any)) (*Recurring, error) {
	e, err := parseCron(expr)
	if err != nil {
		return nil, err
	}
	return newRecurring(s, name, fn, func(now time.Time) (time.Time, bool) {
		next := e.Next(now)
		return next, !next.IsZero()
	})
}

// NewIntervalTask returns a recurring task that runs fn every interval.
func NewIntervalTask(s *Scheduler, name string, every time.Duration, fn func(arg any)) (*Recurring, error) {
	if every <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidRequest, every)
	}
	return newRecurring(s, name, fn, func(now time.Time) (time.Time, bool) {
		return now.Add(every), true
	})
}

func newRecurring(s *Scheduler, name string, fn func(arg any), next func(time.Time) (time.Time, bool)) (*Recurring, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: recurring task %s has no function", ErrInvalidRequest, name)
	}
	rt := &Recurring{s: s, next: next}
	task, err := s.NewTask(name, func(arg any) {
		// Re-arm first so fn can stop the series with Stop.
		if err := rt.arm(arg); err != nil {
			s.log.Error(
				"failed to re-arm recurring task",
				slog.String("task", name),
				slog.Any("error", err),
			)
		}
		fn(arg)
	})
	if err != nil {
		return nil, err
	}
	rt.Task = task
	return rt, nil
}

// Start arms the first occurrence for arg.
func (rt *Recurring) Start(arg any) error {
	return rt.arm(arg)
}

// Stop cancels the pending occurrence for arg.
func (rt *Recurring) Stop(arg any) error {
	return rt.s.Cancel(rt.Task, arg)
}

func (rt *Recurring) arm(arg any) error {
	now := rt.s.Now()
	at, ok := rt.next(now)
	if !ok {
		return nil
	}
	return rt.s.Schedule(rt.Task, arg, at.Sub(now))
}
