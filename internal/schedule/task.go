package schedule

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/glizzus/callsched/internal/generator"
)

var (
	taskIDs     generator.Generator[string] = &generator.UUIDV4Generator{}
	fallbackIDs                             = &generator.SequenceGenerator{Prefix: "task"}
)

// Task is a schedulable callback. Its identity is the *Task pointer, so a
// caller creates a task once and reuses it for every schedule and cancel.
type Task struct {
	ID   string
	Name string
	run  func(arg any)
}

// NewTask wraps run. The returned task gets a random ID used to correlate
// log lines and audit entries. If no random ID can be drawn it gets a
// sequential one instead.
func NewTask(name string, run func(arg any)) *Task {
	id, err := taskIDs.Next()
	if err != nil {
		id, _ = fallbackIDs.Next()
		slog.Warn(
			"falling back to sequential task ID",
			slog.String("task", name),
			slog.String("taskID", id),
			slog.Any("error", err),
		)
	}
	return &Task{ID: id, Name: name, run: run}
}

// NewTask wraps run in a task whose ID comes from the scheduler's ID
// generator.
func (s *Scheduler) NewTask(name string, run func(arg any)) (*Task, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	id, err := s.ids.Next()
	if err != nil {
		return nil, fmt.Errorf("generating ID for task %s: %w", name, err)
	}
	return &Task{ID: id, Name: name, run: run}, nil
}

func (t *Task) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

// Key is the identity of a registration: the task and the argument it is
// invoked with. The argument is borrowed; the scheduler only compares it.
type Key struct {
	Task *Task
	Arg  any
}

func validKey(task *Task, arg any) error {
	if task == nil {
		return fmt.Errorf("%w: nil task", ErrInvalidRequest)
	}
	if task.run == nil {
		return fmt.Errorf("%w: task %s has no function", ErrInvalidRequest, task.Name)
	}
	if arg != nil && !reflect.ValueOf(arg).Comparable() {
		return fmt.Errorf("%w: argument of type %T is not comparable", ErrInvalidRequest, arg)
	}
	return nil
}
