// Package timer provides the shared asynchronous one-shot timer port used by
// the scheduler.
//
// A Port is bound to the event channel of the goroutine that owns it. Every
// request expires at most once; on expiry a tagged Completion is queued on
// the port and the event channel is signalled. The owner drains completions
// with Pop whenever the channel is ready.
package timer

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrNoEventChannel = errors.New("timer: no event channel to bind to")
	ErrPortClosed     = errors.New("timer: port is closed")
)

// OutstandingError is returned by Close while requests are still in flight.
type OutstandingError struct {
	InFlight int
}

func (e *OutstandingError) Error() string {
	return fmt.Sprintf("timer: %d requests still in flight", e.InFlight)
}

var _ error = (*OutstandingError)(nil)

// Request is the handle of one outstanding one-shot request.
type Request struct {
	timer Stopper

	// posted is closed once the expiry has been queued (or dropped by a
	// closed port). Abort waits on it when Stop loses the race.
	posted chan struct{}

	done bool
}

// Completion is queued on the port when a request expires.
type Completion[T any] struct {
	Tag     T
	Request *Request
	FiredAt time.Time
}

// Stats is a point-in-time view of the port.
type Stats struct {
	Issued   uint64
	InFlight int
	Queued   int
}

type Port[T any] struct {
	clock  Clock
	events chan<- struct{}

	mu       sync.Mutex
	queue    []Completion[T]
	inFlight int
	issued   uint64
	closed   bool
}

// Open binds a new port to events. The owner should give events a buffer of
// at least one; signals are dropped, never blocked on, when it is full.
func Open[T any](events chan<- struct{}, clock Clock) (*Port[T], error) {
	if events == nil {
		return nil, ErrNoEventChannel
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Port[T]{
		clock:  clock,
		events: events,
		queue:  make([]Completion[T], 0, 16),
	}, nil
}

// Now returns the port clock's current time.
func (p *Port[T]) Now() time.Time {
	return p.clock.Now()
}

// Request issues a one-shot request that expires after d. It never blocks.
func (p *Port[T]) Request(tag T, d time.Duration) (*Request, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPortClosed
	}
	p.inFlight++
	p.issued++
	p.mu.Unlock()

	req := &Request{posted: make(chan struct{})}
	req.timer = p.clock.AfterFunc(d, func() {
		p.post(tag, req)
	})
	return req, nil
}

func (p *Port[T]) post(tag T, req *Request) {
	firedAt := p.clock.Now()

	p.mu.Lock()
	p.inFlight--
	if p.closed {
		p.mu.Unlock()
		close(req.posted)
		return
	}
	p.queue = append(p.queue, Completion[T]{Tag: tag, Request: req, FiredAt: firedAt})
	p.mu.Unlock()
	close(req.posted)

	select {
	case p.events <- struct{}{}:
	default:
		// A signal is already pending; the owner drains everything on wake.
	}
}

// Abort cancels req. It reports true if the request was stopped before it
// expired. Otherwise the expiry is already in progress and Abort blocks until
// its completion has been queued, so the caller can rely on the completion
// being visible to Pop once Abort returns.
func (p *Port[T]) Abort(req *Request) bool {
	if req == nil || req.done {
		return false
	}
	req.done = true

	if req.timer.Stop() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
		return true
	}
	<-req.posted
	return false
}

// Pop removes the oldest queued completion without blocking.
func (p *Port[T]) Pop() (Completion[T], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		var zero Completion[T]
		return zero, false
	}
	c := p.queue[0]
	p.queue[0] = Completion[T]{}
	p.queue = p.queue[1:]
	return c, true
}

// Close releases the port. Queued completions are discarded. Close fails if
// any request has neither been aborted nor expired.
func (p *Port[T]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	if p.inFlight > 0 {
		return &OutstandingError{InFlight: p.inFlight}
	}
	p.closed = true
	p.queue = nil
	return nil
}

func (p *Port[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Issued:   p.issued,
		InFlight: p.inFlight,
		Queued:   len(p.queue),
	}
}
