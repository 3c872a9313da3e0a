package schedule_test

import (
	"errors"
	"testing"
	"time"

	"github.com/glizzus/callsched/internal/schedule"
)

func TestIntervalTask(t *testing.T) {
	s, clock := newScheduler(t)

	runs := 0
	rt, err := schedule.NewIntervalTask(s, "tick", 10*time.Millisecond, func(any) { runs++ })
	if err != nil {
		t.Fatalf("NewIntervalTask() returned error: %v", err)
	}
	if err := rt.Start("ctx"); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	for i := range 3 {
		if n := advance(s, clock, 10*time.Millisecond); n != 1 {
			t.Fatalf("tick %d: expected 1 invocation, got %d", i, n)
		}
	}
	if runs != 3 {
		t.Errorf("expected 3 runs, got %d", runs)
	}

	if err := rt.Stop("ctx"); err != nil {
		t.Fatalf("Stop() returned error: %v", err)
	}
	if n := advance(s, clock, time.Second); n != 0 {
		t.Errorf("expected no runs after Stop, got %d", n)
	}
}

func TestIntervalTaskStopsItself(t *testing.T) {
	s, clock := newScheduler(t)

	runs := 0
	var rt *schedule.Recurring
	rt, err := schedule.NewIntervalTask(s, "self-stop", time.Millisecond, func(arg any) {
		runs++
		if runs == 2 {
			rt.Stop(arg)
		}
	})
	if err != nil {
		t.Fatalf("NewIntervalTask() returned error: %v", err)
	}
	rt.Start(nil)

	for range 5 {
		advance(s, clock, time.Millisecond)
	}
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
	if _, ok := s.Scheduled(rt.Task, nil); ok {
		t.Error("expected the series to be stopped")
	}
}

func TestCronTask(t *testing.T) {
	s, clock := newScheduler(t)

	var at []time.Time
	rt, err := schedule.NewCronTask(s, "every-five", "*/5 * * * *", func(any) {
		at = append(at, s.Now())
	})
	if err != nil {
		t.Fatalf("NewCronTask() returned error: %v", err)
	}
	rt.Start(nil)

	if n := advance(s, clock, 4*time.Minute); n != 0 {
		t.Fatalf("expected no run before 12:05, got %d", n)
	}
	if n := advance(s, clock, time.Minute); n != 1 {
		t.Fatalf("expected a run at 12:05, got %d", n)
	}

	next, ok := s.Scheduled(rt.Task, nil)
	if want := epoch.Add(10 * time.Minute); !ok || !next.Equal(want) {
		t.Errorf("expected next run at %v, got %v (%v)", want, next, ok)
	}
	if len(at) != 1 || !at[0].Equal(epoch.Add(5*time.Minute)) {
		t.Errorf("unexpected run times: %v", at)
	}
}

func TestRecurringTaskErrors(t *testing.T) {
	s, _ := newScheduler(t)
	noop := func(any) {}

	if _, err := schedule.NewCronTask(s, "bad", "not a cron", noop); err == nil {
		t.Error("expected an invalid cron expression to be rejected")
	}
	if _, err := schedule.NewIntervalTask(s, "zero", 0, noop); !errors.Is(err, schedule.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for a zero interval, got %v", err)
	}
	if _, err := schedule.NewIntervalTask(s, "nil", time.Second, nil); !errors.Is(err, schedule.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for a nil function, got %v", err)
	}
	if _, err := schedule.NewIntervalTask(nil, "nil-scheduler", time.Second, noop); !errors.Is(err, schedule.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}
