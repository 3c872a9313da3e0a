package schedule

import (
	"log/slog"
	"time"

	"github.com/glizzus/callsched/internal/config"
	"github.com/glizzus/callsched/internal/generator"
	"github.com/glizzus/callsched/internal/timer"
)

const (
	DefaultCapacity = 1024
	DefaultMinDelay = time.Millisecond
)

type options struct {
	logger   *slog.Logger
	clock    timer.Clock
	capacity int
	minDelay time.Duration
	observer func(Fired)
	ids      generator.Generator[string]
}

type Option func(*options)

func defaultOptions() options {
	return options{
		logger:   slog.Default(),
		clock:    timer.RealClock{},
		capacity: DefaultCapacity,
		minDelay: DefaultMinDelay,
		ids:      &generator.UUIDV4Generator{},
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces the runtime timers, mostly for tests.
func WithClock(c timer.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithCapacity bounds the number of registrations pending at once.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithMinDelay sets the smallest delay a timer is requested for. A zero
// delay is raised to it so a task that re-arms itself cannot spin.
func WithMinDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.minDelay = d
		}
	}
}

// WithObserver registers fn to be called on the event loop after every
// task invocation.
func WithObserver(fn func(Fired)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithIDGenerator sets where Scheduler.NewTask draws task IDs from.
func WithIDGenerator(g generator.Generator[string]) Option {
	return func(o *options) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithConfig applies the capacity and minimum delay from cfg.
func WithConfig(cfg *config.SchedulerConfig) Option {
	return func(o *options) {
		if cfg == nil {
			return
		}
		WithCapacity(cfg.MaxPending)(o)
		WithMinDelay(cfg.MinDelay)(o)
	}
}
