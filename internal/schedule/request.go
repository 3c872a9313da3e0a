package schedule

import (
	"fmt"
	"time"
)

type requestKind int

const (
	kindDefer requestKind = iota + 1
	kindWithdraw
)

// Request is a tagged scheduling request accepted by Do. Build one with
// Defer or Withdraw; the zero Request is invalid.
type Request struct {
	kind  requestKind
	delay time.Duration
}

// Defer requests that a task run no sooner than d from now.
func Defer(d time.Duration) Request {
	return Request{kind: kindDefer, delay: d}
}

// Withdraw requests that a pending task be cancelled.
func Withdraw() Request {
	return Request{kind: kindWithdraw}
}

func (r Request) String() string {
	switch r.kind {
	case kindDefer:
		return "defer(" + r.delay.String() + ")"
	case kindWithdraw:
		return "withdraw"
	default:
		return "invalid"
	}
}

// Do applies req to (task, arg). Unlike Schedule, a Defer with a negative
// delay is rejected rather than treated as a cancellation.
func (s *Scheduler) Do(task *Task, arg any, req Request) error {
	switch req.kind {
	case kindDefer:
		if req.delay < 0 {
			return fmt.Errorf("%w: negative delay %s", ErrInvalidRequest, req.delay)
		}
		return s.Schedule(task, arg, req.delay)
	case kindWithdraw:
		return s.Cancel(task, arg)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidRequest, req)
	}
}
