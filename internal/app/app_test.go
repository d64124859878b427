package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticksched/internal/jobs"
	"ticksched/internal/journal"
	"ticksched/internal/scheduler"
	"ticksched/internal/status"
	logx "ticksched/pkg/logx"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "ticksched.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func isolated() Option { return WithSchedulerFactory(scheduler.New) }

func TestAppRunsSeededTasks(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "journal.db")
	cfgPath := writeConfig(t, fmt.Sprintf(`
logging: { level: error }
scheduler: { interval: 30ms }
journal: { driver: sqlite, path: %q }
status: { enabled: true, addr: "127.0.0.1:0" }
tasks:
  - { name: broken, kind: fail, priority: high }
  - { name: beat, kind: log, priority: low }
`, dbPath))

	a, err := New(cfgPath, isolated())
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))

	require.Eventually(t, func() bool {
		snap := a.Scheduler().Snapshot()
		return snap.Retried >= 2 && snap.Dropped >= 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(1), a.Scheduler().Snapshot().Dropped)

	resp, err := http.Get("http://" + a.StatusAddr() + "/status")
	require.NoError(t, err)
	var snap scheduler.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	_ = resp.Body.Close()
	assert.True(t, snap.Running)
	assert.Equal(t, 30*time.Millisecond, snap.Interval)
	assert.Equal(t, "beat", snap.Next)

	resp, err = http.Get("http://" + a.StatusAddr() + "/runtime")
	require.NoError(t, err)
	var rt status.Runtime
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rt))
	_ = resp.Body.Close()
	assert.Equal(t, 1, rt.Bus.Subscribers)
	assert.NotZero(t, rt.Bus.Published)
	var names []string
	for _, g := range rt.Goroutines.Goroutines {
		names = append(names, g.Name)
	}
	assert.Contains(t, names, "journal.recorder")
	assert.Contains(t, names, "config.watch")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Stop(ctx, StopAppStop))
	assert.False(t, a.Scheduler().Running())
	assert.Zero(t, a.Scheduler().Pending())

	st, err := journal.Open(journal.Config{Driver: "sqlite", Path: dbPath}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()
	entries, err := st.Recent(context.Background(), 1000)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	seen := map[string]bool{}
	for _, e := range entries {
		seen[e.Event] = true
	}
	assert.Equal(t, scheduler.EventStarted, entries[0].Event)
	for _, ev := range []string{scheduler.EventTickRetried, scheduler.EventTickDropped, scheduler.EventStopped} {
		assert.True(t, seen[ev], ev)
	}
}

func TestAppRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := New(writeConfig(t, "scheduler: { interval: '*/5 * * * *' }\n"), isolated())
	assert.ErrorContains(t, err, "scheduler.interval")

	_, err = New(writeConfig(t, "scheduler: { interval: 1s }\ntasks: [ { name: x, kind: teleport } ]\n"), isolated())
	assert.ErrorIs(t, err, jobs.ErrUnknownKind)

	_, err = New(filepath.Join(t.TempDir(), "missing.yaml"), isolated())
	assert.Error(t, err)
}

func TestAppValidatorSelection(t *testing.T) {
	t.Parallel()

	a, err := New(writeConfig(t, `
logging: { level: error }
scheduler: { interval: 1h, validator: run_once }
tasks: [ { name: once, kind: log } ]
`), isolated())
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	defer func() { _ = a.Stop(context.Background(), StopAppStop) }()

	require.Equal(t, 1, a.Scheduler().Pending())
	require.NoError(t, a.Scheduler().Run(context.Background()))
	assert.Zero(t, a.Scheduler().Pending())
	assert.Empty(t, a.StatusAddr())
}

func TestAppHotReloadsLogging(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "logging: { level: error }\nscheduler: { interval: 1h }\n")
	a, err := New(cfgPath, isolated())
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	defer func() { _ = a.Stop(context.Background(), StopAppStop) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging: { level: debug }\nscheduler: { interval: 2h }\n"), 0o644))

	require.Eventually(t, func() bool {
		return a.logs.Config().Level == "debug"
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, time.Hour, a.Scheduler().Interval())
	assert.Equal(t, "2h", a.Config().Scheduler.Interval)
}
