package systemd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotifyOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")

	sent, err := Ready()
	assert.NoError(t, err)
	assert.False(t, sent)

	sent, err = Status("ticking")
	assert.NoError(t, err)
	assert.False(t, sent)

	sent, err = Stopping()
	assert.NoError(t, err)
	assert.False(t, sent)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, Watchdog(ctx))
}
