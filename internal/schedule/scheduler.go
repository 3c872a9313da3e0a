package schedule

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glizzus/callsched/internal/generator"
	"github.com/glizzus/callsched/internal/timer"
)

// Fired describes one callback invocation. It is handed to the observer
// after the callback returns. The argument is borrowed from the caller, so
// only its text, formatted on the loop, travels with the record.
type Fired struct {
	TaskID   string
	TaskName string
	ArgText  string
	Deadline time.Time
	FiredAt  time.Time
	Lateness time.Duration
}

// Entry is one pending registration as reported by Pending.
type Entry struct {
	TaskID   string
	TaskName string
	Arg      any
	Deadline time.Time
}

type Stats struct {
	Pending      int
	PoolInUse    int
	PoolFree     int
	PoolCapacity int
	Timer        timer.Stats
	NextDeadline time.Time
}

// Scheduler defers task invocations by at least a requested delay.
//
// At most one registration exists per (task, arg) pair. Each registration
// owns one one-shot request on the scheduler's timer port; when it expires
// the owning event loop calls Pump, which detaches the registration and then
// runs the task.
//
// A Scheduler is not safe for concurrent use. Every method must be called
// from the goroutine that owns the event channel passed to New.
type Scheduler struct {
	log      *slog.Logger
	port     *timer.Port[Key]
	pool     *recordPool
	heap     deadlineHeap
	pending  map[Key]*record
	minDelay time.Duration
	observer func(Fired)
	ids      generator.Generator[string]

	pumping bool
	open    bool
}

// New creates a scheduler whose timer port signals events. The owner must
// call Pump whenever events is ready and Teardown when it is done.
func New(events chan<- struct{}, opts ...Option) (*Scheduler, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	port, err := timer.Open[Key](events, o.clock)
	if err != nil {
		return nil, fmt.Errorf("opening timer port: %w", err)
	}

	return &Scheduler{
		log:      o.logger,
		port:     port,
		pool:     newRecordPool(o.capacity),
		heap:     make(deadlineHeap, 0, initialChunk),
		pending:  make(map[Key]*record),
		minDelay: o.minDelay,
		observer: o.observer,
		ids:      o.ids,
		open:     true,
	}, nil
}

// Now returns the current time of the scheduler's clock.
func (s *Scheduler) Now() time.Time {
	return s.port.Now()
}

// Schedule arranges for task to run with arg no sooner than delay from now.
// If the pair is already pending it is moved to the new deadline instead.
// Delays below the minimum delay are raised to it. A negative delay cancels
// the pair, the same as Cancel.
func (s *Scheduler) Schedule(task *Task, arg any, delay time.Duration) error {
	if s == nil || !s.open {
		return ErrNotInitialized
	}
	if err := validKey(task, arg); err != nil {
		return err
	}
	if delay < 0 {
		return s.Cancel(task, arg)
	}
	delay = max(delay, s.minDelay)

	key := Key{Task: task, Arg: arg}
	if r, ok := s.pending[key]; ok {
		return s.reschedule(r, delay)
	}
	return s.create(key, delay)
}

// Cancel removes the pending registration for (task, arg). Cancelling a
// pair that is not pending succeeds and changes nothing. Once Cancel returns
// the task will not run for this registration, even if its timer had
// already expired.
func (s *Scheduler) Cancel(task *Task, arg any) error {
	if s == nil || !s.open {
		return ErrNotInitialized
	}
	if err := validKey(task, arg); err != nil {
		return err
	}

	r, ok := s.pending[Key{Task: task, Arg: arg}]
	if !ok {
		return nil
	}
	s.port.Abort(r.req)
	s.detach(r)
	s.log.Debug("cancelled callback", slog.String("task", task.Name), slog.String("taskID", task.ID))
	return nil
}

func (s *Scheduler) create(key Key, delay time.Duration) error {
	r, err := s.pool.get()
	if err != nil {
		return err
	}
	r.key = key
	r.deadline = s.port.Now().Add(delay)

	req, err := s.port.Request(key, delay)
	if err != nil {
		s.pool.put(r)
		return fmt.Errorf("requesting timer for task %s: %w", key.Task.Name, err)
	}
	r.req = req
	s.heap.insert(r)
	s.pending[key] = r

	s.log.Debug(
		"scheduled callback",
		slog.String("task", key.Task.Name),
		slog.String("taskID", key.Task.ID),
		slog.Duration("delay", delay),
	)
	return nil
}

func (s *Scheduler) reschedule(r *record, delay time.Duration) error {
	// Any completion the old request already queued no longer matches r.req
	// and is dropped by Pump.
	s.port.Abort(r.req)
	r.deadline = s.port.Now().Add(delay)

	req, err := s.port.Request(r.key, delay)
	if err != nil {
		name := r.key.Task.Name
		s.detach(r)
		return &RegistrationError{Task: name, Err: err}
	}
	r.req = req
	s.heap.fix(r)

	s.log.Debug(
		"rescheduled callback",
		slog.String("task", r.key.Task.Name),
		slog.String("taskID", r.key.Task.ID),
		slog.Duration("delay", delay),
	)
	return nil
}

// detach removes r from the registry and heap and returns it to the pool.
func (s *Scheduler) detach(r *record) {
	s.heap.remove(r)
	delete(s.pending, r.key)
	s.pool.put(r)
}

// Pump runs the task of every registration whose timer has expired and
// returns how many ran. It never blocks. Completions for registrations that
// were cancelled or rescheduled in the meantime are discarded.
//
// Each registration is detached before its task runs, so a task may
// schedule itself again. Pump must not be called from inside a task; such
// nested calls return 0.
func (s *Scheduler) Pump() int {
	if s == nil || !s.open {
		return 0
	}
	if s.pumping {
		s.log.Warn("ignoring nested pump from inside a callback")
		return 0
	}
	s.pumping = true
	defer func() { s.pumping = false }()

	fired := 0
	for s.open {
		c, ok := s.port.Pop()
		if !ok {
			break
		}
		r, ok := s.pending[c.Tag]
		if !ok {
			s.log.Debug("discarding completion for cancelled callback", slog.String("task", c.Tag.Task.Name))
			continue
		}
		if r.req != c.Request {
			s.log.Debug("discarding completion superseded by reschedule", slog.String("task", c.Tag.Task.Name))
			continue
		}

		task, arg, deadline := r.key.Task, r.key.Arg, r.deadline
		s.detach(r)

		if c.FiredAt.Before(deadline) {
			s.log.Warn(
				"timer expired before its deadline",
				slog.String("task", task.Name),
				slog.Time("deadline", deadline),
				slog.Time("firedAt", c.FiredAt),
			)
		}

		s.invoke(task, arg)
		fired++

		if s.observer != nil {
			s.observer(Fired{
				TaskID:   task.ID,
				TaskName: task.Name,
				ArgText:  argText(arg),
				Deadline: deadline,
				FiredAt:  c.FiredAt,
				Lateness: c.FiredAt.Sub(deadline),
			})
		}
	}
	return fired
}

func argText(arg any) string {
	if arg == nil {
		return ""
	}
	return fmt.Sprint(arg)
}

func (s *Scheduler) invoke(task *Task, arg any) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error(
				"scheduled callback panicked",
				slog.String("task", task.Name),
				slog.String("taskID", task.ID),
				slog.Any("panic", p),
			)
		}
	}()
	task.run(arg)
}

// Teardown cancels every pending registration without running it, then
// closes the timer port and releases the record pool. The scheduler cannot
// be used afterwards.
func (s *Scheduler) Teardown() error {
	if s == nil || !s.open {
		return ErrNotInitialized
	}

	records := s.heap.snapshot()
	for _, r := range records {
		s.port.Abort(r.req)
		s.detach(r)
	}
	if len(records) > 0 {
		s.log.Info("teardown cancelled pending callbacks", slog.Int("count", len(records)))
	}
	s.heap.reset()
	s.open = false

	var errs []error
	if err := s.port.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing timer port: %w", err))
	}
	if err := s.pool.release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Scheduled returns the deadline of the pending registration for
// (task, arg), if there is one.
func (s *Scheduler) Scheduled(task *Task, arg any) (time.Time, bool) {
	if s == nil || !s.open || validKey(task, arg) != nil {
		return time.Time{}, false
	}
	r, ok := s.pending[Key{Task: task, Arg: arg}]
	if !ok {
		return time.Time{}, false
	}
	return r.deadline, true
}

// NextDeadline returns the earliest pending deadline.
func (s *Scheduler) NextDeadline() (time.Time, bool) {
	if s == nil || !s.open {
		return time.Time{}, false
	}
	r := s.heap.min()
	if r == nil {
		return time.Time{}, false
	}
	return r.deadline, true
}

// Pending lists pending registrations ordered by deadline.
func (s *Scheduler) Pending() []Entry {
	if s == nil || !s.open {
		return nil
	}
	records := s.heap.sorted()
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, Entry{
			TaskID:   r.key.Task.ID,
			TaskName: r.key.Task.Name,
			Arg:      r.key.Arg,
			Deadline: r.deadline,
		})
	}
	return entries
}

func (s *Scheduler) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	st := Stats{
		Pending:      len(s.pending),
		PoolInUse:    s.pool.outstanding(),
		PoolFree:     s.pool.available(),
		PoolCapacity: s.pool.capacity,
		Timer:        s.port.Stats(),
	}
	if r := s.heap.min(); r != nil {
		st.NextDeadline = r.deadline
	}
	return st
}
