// Package jobs builds the task jobs that can be declared in config.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ticksched/internal/config"
	"ticksched/internal/task"
	logx "ticksched/pkg/logx"
)

var ErrUnknownKind = errors.New("unknown job kind")

// ErrJobFailed is what the "fail" kind returns.
var ErrJobFailed = errors.New("job failed")

const (
	KindLog   = "log"
	KindFail  = "fail"
	KindSleep = "sleep"
	KindPanic = "panic"
)

// Kinds lists every supported kind in a stable order.
func Kinds() []string { return []string{KindLog, KindFail, KindSleep, KindPanic} }

// Build returns the job for spec. log is used by the "log" kind.
func Build(spec config.TaskConfig, log logx.Logger) (task.Job, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	name := strings.TrimSpace(spec.Name)
	msg := spec.Message

	switch strings.ToLower(strings.TrimSpace(spec.Kind)) {
	case KindLog:
		if msg == "" {
			msg = "tick"
		}
		l := log.With(logx.String("task", name))
		return func(context.Context) error {
			l.Info(msg)
			return nil
		}, nil

	case KindFail:
		if msg == "" {
			return func(context.Context) error { return ErrJobFailed }, nil
		}
		return func(context.Context) error { return fmt.Errorf("%w: %s", ErrJobFailed, msg) }, nil

	case KindSleep:
		d, err := config.ParseDurationField("duration", spec.Duration)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		}, nil

	case KindPanic:
		if msg == "" {
			msg = "panic job"
		}
		return func(context.Context) error { panic(msg) }, nil

	default:
		return nil, fmt.Errorf("%w: %q (use one of %s)", ErrUnknownKind, spec.Kind, strings.Join(Kinds(), ", "))
	}
}

// ParsePriority accepts "high", "medium", "low" or an integer. Empty means
// medium.
func ParsePriority(raw string) (task.Priority, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "", "medium":
		return task.PriorityMedium, nil
	case "high":
		return task.PriorityHigh, nil
	case "low":
		return task.PriorityLow, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid priority %q (use high, medium, low or an integer)", raw)
	}
	return task.Priority(n), nil
}

// Task builds the full task for spec: name, priority and job.
func Task(spec config.TaskConfig, log logx.Logger) (task.Task, error) {
	job, err := Build(spec, log)
	if err != nil {
		return task.Task{}, fmt.Errorf("task %q: %w", spec.Name, err)
	}
	p, err := ParsePriority(string(spec.Priority))
	if err != nil {
		return task.Task{}, fmt.Errorf("task %q: %w", spec.Name, err)
	}
	return task.New(job, task.WithName(strings.TrimSpace(spec.Name)), task.WithPriority(p)), nil
}

// Tasks builds every task in specs, collecting all errors.
func Tasks(specs []config.TaskConfig, log logx.Logger) ([]task.Task, error) {
	out := make([]task.Task, 0, len(specs))
	var errs []error
	for _, spec := range specs {
		t, err := Task(spec, log)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, t)
	}
	return out, errors.Join(errs...)
}
