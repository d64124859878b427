package journal

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("journal disabled")

var errClosed = errors.New("journal closed")

// Config configures the journal.
//
// Driver values: "none" (or empty), "file", "sqlite".
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 keeps the driver default
}

// Entry is one journaled event. Keep it flat and schema-stable.
type Entry struct {
	ID       string    `json:"id"`
	RunID    string    `json:"run_id"`
	At       time.Time `json:"at"`
	Event    string    `json:"event"`
	Task     string    `json:"task,omitempty"`
	Priority int       `json:"priority"`
	Result   string    `json:"result,omitempty"`
	Policy   string    `json:"policy,omitempty"`
	TookMS   int64     `json:"took_ms"`
	Error    string    `json:"error,omitempty"`
	Pending  int       `json:"pending"`
	Flushed  int       `json:"flushed,omitempty"` // scheduler.stopped only
}

// Store persists entries.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// Recent returns up to n of the newest entries, oldest first.
	Recent(ctx context.Context, n int) ([]Entry, error)
	Close() error
}
