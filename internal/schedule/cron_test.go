package schedule_test

import (
	"errors"
	"testing"
	"time"

	"github.com/glizzus/callsched/internal/schedule"
	"github.com/google/go-cmp/cmp"
)

func TestNextRunTimesAfter(t *testing.T) {
	table := []struct {
		name  string
		cron  string
		after time.Time
		n     int
		want  []time.Time
	}{
		{
			name:  "daily at midnight",
			cron:  "0 0 * * *",
			after: time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC),
			n:     2,
			want: []time.Time{
				time.Date(2023, 10, 2, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 10, 3, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name:  "every five minutes from an occurrence",
			cron:  "*/5 * * * *",
			after: time.Date(1981, 8, 29, 12, 5, 0, 0, time.UTC),
			n:     3,
			want: []time.Time{
				time.Date(1981, 8, 29, 12, 10, 0, 0, time.UTC),
				time.Date(1981, 8, 29, 12, 15, 0, 0, time.UTC),
				time.Date(1981, 8, 29, 12, 20, 0, 0, time.UTC),
			},
		},
		{
			name:  "seconds field",
			cron:  "*/30 * * * * * *",
			after: time.Date(2024, 3, 1, 12, 0, 10, 0, time.UTC),
			n:     2,
			want: []time.Time{
				time.Date(2024, 3, 1, 12, 0, 30, 0, time.UTC),
				time.Date(2024, 3, 1, 12, 1, 0, 0, time.UTC),
			},
		},
		{
			name:  "monday mornings",
			cron:  "0 9 * * 1",
			after: time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC),
			n:     2,
			want: []time.Time{
				time.Date(2023, 10, 2, 9, 0, 0, 0, time.UTC),
				time.Date(2023, 10, 9, 9, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tc := range table {
		t.Run(tc.name, func(t *testing.T) {
			got, err := schedule.NextRunTimesAfter(tc.cron, tc.after, tc.n)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("run times mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNextRunTimesAfterRejects(t *testing.T) {
	table := []struct {
		name string
		cron string
		n    int
	}{
		{name: "invalid expression", cron: "whenever", n: 1},
		{name: "zero count", cron: "0 0 * * *", n: 0},
		{name: "negative count", cron: "0 0 * * *", n: -1},
	}

	for _, tc := range table {
		t.Run(tc.name, func(t *testing.T) {
			if got, err := schedule.NextRunTimesAfter(tc.cron, epoch, tc.n); err == nil {
				t.Fatalf("expected error, got %v", got)
			}
		})
	}
}

func TestValidateCron(t *testing.T) {
	if err := schedule.ValidateCron("@hourly"); err != nil {
		t.Errorf("expected @hourly to be valid, got %v", err)
	}
	if err := schedule.ValidateCron("* * *"); err == nil {
		t.Error("expected an expression with missing fields to be rejected")
	}
}

func TestSchedulerNextRunTimesFollowsClock(t *testing.T) {
	s, clock := newScheduler(t)

	got, err := s.NextRunTimes("*/5 * * * *", 2)
	if err != nil {
		t.Fatalf("NextRunTimes() returned error: %v", err)
	}
	want := []time.Time{epoch.Add(5 * time.Minute), epoch.Add(10 * time.Minute)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("run times mismatch (-want +got):\n%s", diff)
	}

	clock.Advance(7 * time.Minute)
	got, _ = s.NextRunTimes("*/5 * * * *", 1)
	if want := epoch.Add(10 * time.Minute); len(got) != 1 || !got[0].Equal(want) {
		t.Errorf("expected %v after advancing the clock, got %v", want, got)
	}
}

func TestCronTaskFiresAtNextRunTime(t *testing.T) {
	s, clock := newScheduler(t)

	next, err := s.NextRunTimes("0 13 * * *", 1)
	if err != nil {
		t.Fatalf("NextRunTimes() returned error: %v", err)
	}

	var at []time.Time
	rt, err := schedule.NewCronTask(s, "one-pm", "0 13 * * *", func(any) {
		at = append(at, s.Now())
	})
	if err != nil {
		t.Fatalf("NewCronTask() returned error: %v", err)
	}
	rt.Start(nil)

	deadline, ok := s.Scheduled(rt.Task, nil)
	if !ok || !deadline.Equal(next[0]) {
		t.Fatalf("expected task armed for %v, got %v (%v)", next[0], deadline, ok)
	}

	advance(s, clock, next[0].Sub(epoch))
	if diff := cmp.Diff(next, at); diff != "" {
		t.Errorf("run times mismatch (-want +got):\n%s", diff)
	}
}

func TestSchedulerNextRunTimesAfterTeardown(t *testing.T) {
	s, _ := newScheduler(t)
	s.Teardown()

	if _, err := s.NextRunTimes("* * * * *", 1); !errors.Is(err, schedule.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}
