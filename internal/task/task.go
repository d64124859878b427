// Package task holds the unit of work handed to the scheduler and the
// concurrent priority queue that orders it.
package task

import (
	"context"
	"strconv"
)

// Priority orders tasks in the queue. Lower values are served first.
type Priority int

const (
	PriorityHigh   Priority = 0
	PriorityMedium Priority = 5
	PriorityLow    Priority = 10
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return strconv.Itoa(int(p))
	}
}

// Job is caller work. The scheduler never looks inside it; it only hands it
// to a validator.
type Job func(ctx context.Context) error

// Task is an immutable (job, priority) pair.
type Task struct {
	Name     string
	Job      Job
	Priority Priority
}

type Option func(*Task)

func WithPriority(p Priority) Option {
	return func(t *Task) { t.Priority = p }
}

// WithName labels the task in logs, events and the journal.
func WithName(name string) Option {
	return func(t *Task) { t.Name = name }
}

// New creates a task with PriorityMedium unless overridden.
func New(job Job, opts ...Option) Task {
	t := Task{
		Name:     "task",
		Job:      job,
		Priority: PriorityMedium,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// Less reports whether t sorts before other. Only priority is compared.
func (t Task) Less(other Task) bool {
	return t.Priority < other.Priority
}
