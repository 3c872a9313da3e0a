package schedule

import (
	"fmt"
	"time"

	"github.com/hashicorp/cronexpr"
)

// parseCron is the single place cron expressions are parsed.
func parseCron(expr string) (*cronexpr.Expression, error) {
	e, err := cronexpr.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return e, nil
}

func ValidateCron(expr string) error {
	_, err := parseCron(expr)
	return err
}

// NextRunTimesAfter returns the next n occurrences of expr strictly after
// the given time. It fails for an invalid expression or n < 1.
func NextRunTimesAfter(expr string, after time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, fmt.Errorf("count must be greater than 0, got %d", n)
	}
	e, err := parseCron(expr)
	if err != nil {
		return nil, err
	}
	return e.NextN(after, uint(n)), nil
}

// NextRunTimes returns the next n occurrences of expr as seen from the
// scheduler's clock, which is where a cron task built by NewCronTask would
// fire.
func (s *Scheduler) NextRunTimes(expr string, n int) ([]time.Time, error) {
	if s == nil || !s.open {
		return nil, ErrNotInitialized
	}
	return NextRunTimesAfter(expr, s.Now(), n)
}
