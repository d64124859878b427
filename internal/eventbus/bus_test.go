package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFanout(t *testing.T) {
	t.Parallel()

	b := New()
	ch1, unsub1 := b.Subscribe(4)
	ch2, unsub2 := b.Subscribe(4)
	defer unsub1()
	defer unsub2()

	b.Publish(Event{Type: "tick.retried", Data: 1})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			assert.Equal(t, "tick.retried", e.Type)
			assert.False(t, e.Time.IsZero())
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestPublishDropsWhenSubscriberSlow(t *testing.T) {
	t.Parallel()

	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "a"})
	b.Publish(Event{Type: "b"})

	subs, published, dropped := b.Stats()
	assert.Equal(t, 1, subs)
	assert.Equal(t, uint64(2), published)
	assert.Equal(t, uint64(1), dropped)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()

	_, ok := <-ch
	require.False(t, ok)

	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Type: "x"})
	subs, _, _ := b.Stats()
	assert.Equal(t, 0, subs)
}

func TestHasPrefix(t *testing.T) {
	t.Parallel()

	assert.True(t, HasPrefix(Event{Type: "tick.retried"}, "tick"))
	assert.True(t, HasPrefix(Event{Type: "tick"}, "tick"))
	assert.False(t, HasPrefix(Event{Type: "ticker.x"}, "tick"))
	assert.False(t, HasPrefix(Event{Type: "scheduler.started"}, "tick"))
}
