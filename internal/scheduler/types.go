package scheduler

import (
	"context"
	"time"

	"ticksched/internal/task"
)

// Policy is a validator's verdict for a popped task.
type Policy string

const (
	PolicyRetry Policy = "retry"
	PolicyDrop  Policy = "drop"
)

// Validator runs (or inspects) a job and decides what happens to its task.
//
// A returned error is surfaced from Run and logged by the tick loop; it is a
// caller bug, not a way to signal DROP.
type Validator func(ctx context.Context, job task.Job) (Policy, error)

const (
	DefaultInterval    = time.Second
	DefaultHistorySize = 100

	loopName = "tick-loop"
)

// Config is read once at construction; nothing here can change after Start.
type Config struct {
	Interval  time.Duration
	Validator Validator

	// JobTimeout bounds the context handed to the validator. 0 disables it.
	JobTimeout time.Duration

	HistorySize int

	// ErrorLogRate caps validator error logs per second (burst 1). 0 means 1/s.
	ErrorLogRate float64
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.ErrorLogRate <= 0 {
		c.ErrorLogRate = 1
	}
	if c.JobTimeout < 0 {
		c.JobTimeout = 0
	}
	return c
}

// Tick results as recorded in history, events and the journal.
const (
	ResultEmpty     = "empty"
	ResultRetried   = "retried"
	ResultDropped   = "dropped"
	ResultDiscarded = "discarded" // RETRY verdict arrived after Stop
	ResultFailed    = "failed"
)

// Event types published on the bus.
const (
	EventStarted     = "scheduler.started"
	EventStopped     = "scheduler.stopped"
	EventTickEmpty   = "tick.empty"
	EventTickRetried = "tick.retried"
	EventTickDropped = "tick.dropped"
	EventTickFailed  = "tick.failed"
)

// TickRecord describes one finished tick.
type TickRecord struct {
	At       time.Time     `json:"at"`
	Task     string        `json:"task,omitempty"`
	Priority int           `json:"priority"`
	Result   string        `json:"result"`
	Policy   Policy        `json:"policy,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// TickEvent is the bus payload for tick.* events.
type TickEvent struct {
	TickRecord
	Pending int `json:"pending"`
}

// LifecycleEvent is the bus payload for scheduler.* events.
type LifecycleEvent struct {
	Interval time.Duration `json:"interval"`
	NextCall time.Time     `json:"next_call"`
	Flushed  int           `json:"flushed"`
}

// Snapshot is a point-in-time view for diagnostics.
type Snapshot struct {
	Running  bool          `json:"running"`
	Interval time.Duration `json:"interval"`
	NextCall time.Time     `json:"next_call"`
	Pending  int           `json:"pending"`
	Next     string        `json:"next,omitempty"` // name of the task the next tick pops

	Ticks        uint64 `json:"ticks"`
	EmptyTicks   uint64 `json:"empty_ticks"`
	Retried      uint64 `json:"retried"`
	Dropped      uint64 `json:"dropped"`
	Failed       uint64 `json:"failed"`
	Flushed      uint64 `json:"flushed"`
	LoopRestarts uint64 `json:"loop_restarts"`

	History []TickRecord `json:"history"`
}
