package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticksched/internal/journal"
	"ticksched/internal/runtime/supervisor"
	"ticksched/internal/scheduler"
	logx "ticksched/pkg/logx"
)

type fakeSource struct{ snap scheduler.Snapshot }

func (f fakeSource) Snapshot() scheduler.Snapshot { return f.snap }

type fakeRuntime struct{ rt Runtime }

func (f fakeRuntime) Runtime() Runtime { return f.rt }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndStatus(t *testing.T) {
	t.Parallel()

	src := fakeSource{snap: scheduler.Snapshot{Running: true, Interval: time.Second, Pending: 3, Retried: 7}}
	h := New(Config{}, src, nil, logx.Nop()).Handler()

	rec := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.Running)

	rec = get(t, h, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var snap scheduler.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 3, snap.Pending)
	assert.Equal(t, uint64(7), snap.Retried)
}

func TestRuntime(t *testing.T) {
	t.Parallel()

	rec := get(t, New(Config{}, fakeSource{}, nil, logx.Nop()).Handler(), "/runtime")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rt := Runtime{
		Goroutines: supervisor.Snapshot{
			Counters:   supervisor.Counters{Active: 2, Started: 3},
			Goroutines: []supervisor.GoroutineStats{{Name: "config.watch", Active: 1, Started: 1}},
		},
		Bus: BusStats{Subscribers: 1, Published: 9, Dropped: 2},
	}
	h := New(Config{}, fakeSource{}, nil, logx.Nop(), WithRuntime(fakeRuntime{rt: rt})).Handler()
	rec = get(t, h, "/runtime")
	require.Equal(t, http.StatusOK, rec.Code)

	var got Runtime
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(2), got.Goroutines.Counters.Active)
	require.Len(t, got.Goroutines.Goroutines, 1)
	assert.Equal(t, "config.watch", got.Goroutines.Goroutines[0].Name)
	assert.Equal(t, BusStats{Subscribers: 1, Published: 9, Dropped: 2}, got.Bus)
}

func TestJournalDisabled(t *testing.T) {
	t.Parallel()

	h := New(Config{}, fakeSource{}, nil, logx.Nop()).Handler()
	rec := get(t, h, "/journal")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), journal.ErrDisabled.Error())
}

func TestJournalRecent(t *testing.T) {
	t.Parallel()

	st, err := journal.Open(journal.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "j.jsonl")}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, st.Append(context.Background(), journal.Entry{ID: id, Event: scheduler.EventTickEmpty}))
	}

	h := New(Config{}, fakeSource{}, st, logx.Nop()).Handler()

	rec := get(t, h, "/journal?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []journal.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].ID)
	assert.Equal(t, "c", entries[1].ID)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/journal?limit=zero").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/journal?limit=-1").Code)
}

func TestPprofRoutesOptIn(t *testing.T) {
	t.Parallel()

	off := New(Config{}, fakeSource{}, nil, logx.Nop()).Handler()
	assert.Equal(t, http.StatusNotFound, get(t, off, "/debug/pprof/").Code)

	on := New(Config{Pprof: true}, fakeSource{}, nil, logx.Nop()).Handler()
	assert.Equal(t, http.StatusOK, get(t, on, "/debug/pprof/").Code)
	assert.Equal(t, http.StatusOK, get(t, on, "/debug/pprof/cmdline").Code)
}

func TestReadOnly(t *testing.T) {
	t.Parallel()

	h := New(Config{}, fakeSource{}, nil, logx.Nop()).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	srv := New(Config{Addr: "127.0.0.1:0"}, fakeSource{}, nil, logx.Nop())
	require.NoError(t, srv.Start())
	addr := srv.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	srv.Stop(ctx)
	assert.Empty(t, srv.Addr())
	srv.Stop(ctx)
}
