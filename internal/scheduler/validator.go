package scheduler

import (
	"context"
	"errors"

	"ticksched/internal/task"
	logx "ticksched/pkg/logx"
)

// DefaultValidator executes the job. A job that succeeds is retried on a later
// tick; a job that fails is dropped.
func DefaultValidator(ctx context.Context, job task.Job) (Policy, error) {
	return PolicyFor(task.Execute(ctx, job)), nil
}

// PolicyFor maps an outcome to the policy DefaultValidator returns.
func PolicyFor(out task.Outcome) Policy {
	if out.Succeeded() {
		return PolicyRetry
	}
	return PolicyDrop
}

// LoggingValidator is DefaultValidator plus a debug line for failed jobs.
func LoggingValidator(log logx.Logger) Validator {
	return func(ctx context.Context, job task.Job) (Policy, error) {
		out := task.Execute(ctx, job)
		if !out.Succeeded() {
			fields := []logx.Field{logx.Err(out.Err)}
			var pe *task.PanicError
			if errors.As(out.Err, &pe) {
				fields = append(fields, logx.Stack(pe.Stack))
			}
			log.Debug("job failed; dropping task", fields...)
		}
		return PolicyFor(out), nil
	}
}

// RunOnce is a validator that executes the job and never re-queues it.
func RunOnce(ctx context.Context, job task.Job) (Policy, error) {
	_ = task.Execute(ctx, job)
	return PolicyDrop, nil
}

// RetryOnFailure executes the job and re-queues it only when it failed.
func RetryOnFailure(ctx context.Context, job task.Job) (Policy, error) {
	if task.Execute(ctx, job).Succeeded() {
		return PolicyDrop, nil
	}
	return PolicyRetry, nil
}
