package jobs

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticksched/internal/config"
	"ticksched/internal/task"
	logx "ticksched/pkg/logx"
)

func TestBuildKinds(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logx.NewJSON(&buf, "info")

	job, err := Build(config.TaskConfig{Name: "beat", Kind: "log", Message: "alive"}, log)
	require.NoError(t, err)
	require.NoError(t, job(context.Background()))
	assert.Contains(t, buf.String(), "alive")
	assert.Contains(t, buf.String(), `"task":"beat"`)

	job, err = Build(config.TaskConfig{Kind: "fail", Message: "nope"}, logx.Nop())
	require.NoError(t, err)
	err = job(context.Background())
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.ErrorContains(t, err, "nope")

	job, err = Build(config.TaskConfig{Kind: "panic"}, logx.Nop())
	require.NoError(t, err)
	out := task.Execute(context.Background(), job)
	assert.False(t, out.Succeeded())

	_, err = Build(config.TaskConfig{Kind: "teleport"}, logx.Nop())
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSleepHonoursContext(t *testing.T) {
	t.Parallel()

	job, err := Build(config.TaskConfig{Kind: "Sleep", Duration: "10ms"}, logx.Nop())
	require.NoError(t, err)
	assert.NoError(t, job(context.Background()))

	job, err = Build(config.TaskConfig{Kind: "sleep", Duration: "1h"}, logx.Nop())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, job(ctx), context.DeadlineExceeded)

	_, err = Build(config.TaskConfig{Kind: "sleep", Duration: "later"}, logx.Nop())
	assert.Error(t, err)
}

func TestParsePriority(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want task.Priority
	}{
		{"", task.PriorityMedium},
		{"high", task.PriorityHigh},
		{" LOW ", task.PriorityLow},
		{"medium", task.PriorityMedium},
		{"3", task.Priority(3)},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := ParsePriority("urgent")
	assert.Error(t, err)
}

func TestTasks(t *testing.T) {
	t.Parallel()

	ts, err := Tasks([]config.TaskConfig{
		{Name: "a", Kind: "log", Priority: "low"},
		{Name: "b", Kind: "fail", Priority: "high"},
	}, logx.Nop())
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, "a", ts[0].Name)
	assert.Equal(t, task.PriorityLow, ts[0].Priority)
	assert.Equal(t, task.PriorityHigh, ts[1].Priority)

	ts, err = Tasks([]config.TaskConfig{
		{Name: "ok", Kind: "log"},
		{Name: "bad", Kind: "nope"},
		{Name: "worse", Kind: "log", Priority: "whenever"},
	}, logx.Nop())
	require.Error(t, err)
	assert.Len(t, ts, 1)
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.ErrorContains(t, err, `"worse"`)
}
