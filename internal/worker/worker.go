package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/glizzus/callsched/internal/schedule"
	"github.com/redis/go-redis/v9"
)

// FiredHandler records callback invocations off the event loop.
type FiredHandler interface {
	HandleFired(ctx context.Context, fired ...schedule.Fired) error
}

type PrintingFiredHandler struct{}

func (h *PrintingFiredHandler) HandleFired(ctx context.Context, fired ...schedule.Fired) error {
	for _, f := range fired {
		slog.InfoContext(
			ctx,
			"Callback fired",
			slog.String("taskID", f.TaskID),
			slog.String("task", f.TaskName),
			slog.String("arg", f.ArgText),
			slog.String("deadline", f.Deadline.Format("2006-01-02 15:04:05.000")),
			slog.Duration("lateness", f.Lateness),
		)
	}
	return nil
}

type MemoryFiredHandler struct {
	mu    sync.Mutex
	fired []schedule.Fired
}

func NewMemoryFiredHandler() *MemoryFiredHandler {
	return &MemoryFiredHandler{}
}

func (h *MemoryFiredHandler) HandleFired(ctx context.Context, fired ...schedule.Fired) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fired = append(h.fired, fired...)
	return nil
}

// Fired returns a copy of everything handled so far.
func (h *MemoryFiredHandler) Fired() []schedule.Fired {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]schedule.Fired(nil), h.fired...)
}

// RedisFiredHandler appends one stream entry per invocation.
type RedisFiredHandler struct {
	client *redis.Client
	stream string
}

func NewRedisFiredHandler(client *redis.Client, stream string) *RedisFiredHandler {
	return &RedisFiredHandler{client: client, stream: stream}
}

func (h *RedisFiredHandler) HandleFired(ctx context.Context, fired ...schedule.Fired) error {
	_, err := h.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, f := range fired {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: h.stream,
				Values: map[string]any{
					"taskID":   f.TaskID,
					"task":     f.TaskName,
					"arg":      f.ArgText,
					"deadline": f.Deadline.Format(time.RFC3339Nano),
					"firedAt":  f.FiredAt.Format(time.RFC3339Nano),
					"lateness": f.Lateness.String(),
				},
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add %d entries to stream %s: %w", len(fired), h.stream, err)
	}
	return nil
}

const defaultBacklog = 256

// Forwarder moves Fired records from the event loop to a FiredHandler.
// Observe never blocks; when the backlog is full the record is dropped.
type Forwarder struct {
	handler FiredHandler
	queue   chan schedule.Fired
	log     *slog.Logger
}

func NewForwarder(handler FiredHandler, backlog int, log *slog.Logger) *Forwarder {
	if backlog <= 0 {
		backlog = defaultBacklog
	}
	if log == nil {
		log = slog.Default()
	}
	return &Forwarder{
		handler: handler,
		queue:   make(chan schedule.Fired, backlog),
		log:     log,
	}
}

// Observe is meant to be passed to schedule.WithObserver.
func (f *Forwarder) Observe(fired schedule.Fired) {
	select {
	case f.queue <- fired:
	default:
		f.log.Warn(
			"dropping fired record, backlog full",
			slog.String("task", fired.TaskName),
			slog.String("taskID", fired.TaskID),
		)
	}
}

// Run hands queued records to the handler in batches until ctx is done,
// then flushes what is left.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return f.flush(context.WithoutCancel(ctx))
		case first := <-f.queue:
			batch := f.collect(first)
			if err := f.handler.HandleFired(ctx, batch...); err != nil {
				f.log.ErrorContext(ctx, "failed to handle fired records", slog.Int("count", len(batch)), slog.Any("error", err))
			}
		}
	}
}

func (f *Forwarder) collect(first schedule.Fired) []schedule.Fired {
	batch := []schedule.Fired{first}
	for len(batch) < cap(f.queue) {
		select {
		case next := <-f.queue:
			batch = append(batch, next)
		default:
			return batch
		}
	}
	return batch
}

func (f *Forwarder) flush(ctx context.Context) error {
	var batch []schedule.Fired
	for drained := false; !drained; {
		select {
		case next := <-f.queue:
			batch = append(batch, next)
		default:
			drained = true
		}
	}
	if len(batch) == 0 {
		return nil
	}
	return f.handler.HandleFired(ctx, batch...)
}
