package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"ticksched/internal/task"
	logx "ticksched/pkg/logx"
)

func TestValidators(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	bad := func(context.Context) error { return errors.New("bad") }
	boom := func(context.Context) error { panic("boom") }

	tests := []struct {
		name      string
		validator Validator
		job       task.Job
		want      Policy
	}{
		{"default success retries", DefaultValidator, ok, PolicyRetry},
		{"default failure drops", DefaultValidator, bad, PolicyDrop},
		{"default panic drops", DefaultValidator, boom, PolicyDrop},
		{"default nil job drops", DefaultValidator, nil, PolicyDrop},
		{"logging success retries", LoggingValidator(logx.Nop()), ok, PolicyRetry},
		{"logging panic drops", LoggingValidator(logx.Nop()), boom, PolicyDrop},
		{"run once success", RunOnce, ok, PolicyDrop},
		{"run once failure", RunOnce, bad, PolicyDrop},
		{"retry on failure success", RetryOnFailure, ok, PolicyDrop},
		{"retry on failure failure", RetryOnFailure, bad, PolicyRetry},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := tc.validator(context.Background(), tc.job)
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPolicyFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PolicyRetry, PolicyFor(task.Outcome{Status: task.Succeeded}))
	assert.Equal(t, PolicyDrop, PolicyFor(task.Outcome{Status: task.Failed, Err: errors.New("x")}))
}
