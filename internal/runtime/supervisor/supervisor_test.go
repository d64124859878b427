package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoRecoversPanic(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	s.Go("boom", func(context.Context) error { panic("bad") })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in boom")

	st := s.Stats("boom")
	assert.Equal(t, uint64(1), st.Panics)
	assert.Equal(t, int64(0), st.Active)
}

func TestGoCancelOnError(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), WithCancelOnError(true))
	s.Go("fails", func(context.Context) error { return errors.New("nope") })

	select {
	case <-s.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context not canceled after error")
	}
	assert.ErrorContains(t, s.Err(), "fails: nope")
}

func TestGoRestartRestartsAfterPanic(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	var runs atomic.Int32
	done := make(chan struct{})
	s.GoRestart("loop", func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			panic("first run")
		}
		close(done)
		<-ctx.Done()
		return ctx.Err()
	}, WithRestartBackoff(time.Millisecond, 5*time.Millisecond), WithPublishFirstError(true))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop was not restarted")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.Stop(ctx)

	st := s.Stats("loop")
	assert.Equal(t, uint64(1), st.Panics)
	assert.Equal(t, uint64(1), st.Restarts)
	assert.Equal(t, int32(2), runs.Load())
	assert.ErrorContains(t, s.Err(), "panic: first run")
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	s.Go("b", func(context.Context) error { return nil })
	s.Go("a", func(context.Context) error { return nil })
	require.NoError(t, s.Wait(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.Counters.Started)
	require.Len(t, snap.Goroutines, 2)
	assert.Equal(t, "a", snap.Goroutines[0].Name)
}
