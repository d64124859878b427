package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

var ErrNilJob = errors.New("task job is nil")

// Status is the two-case result of running a job.
type Status int

const (
	Succeeded Status = iota
	Failed
)

func (s Status) String() string {
	if s == Succeeded {
		return "succeeded"
	}
	return "failed"
}

// Outcome is what a job run produced. Err is set when Status is Failed.
type Outcome struct {
	Status Status
	Err    error
}

func (o Outcome) Succeeded() bool { return o.Status == Succeeded }

// PanicError carries a recovered job panic.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Execute runs job and folds a returned error or a panic into a Failed outcome.
func Execute(ctx context.Context, job Job) (out Outcome) {
	if job == nil {
		return Outcome{Status: Failed, Err: ErrNilJob}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Status: Failed, Err: &PanicError{Value: r, Stack: string(debug.Stack())}}
		}
	}()
	if err := job(ctx); err != nil {
		return Outcome{Status: Failed, Err: err}
	}
	return Outcome{Status: Succeeded}
}
