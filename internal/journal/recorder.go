package journal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ticksched/internal/eventbus"
	"ticksched/internal/scheduler"
	logx "ticksched/pkg/logx"
)

const (
	appendTimeout  = 2 * time.Second
	recorderBuffer = 256
)

// Recorder copies scheduler events from the bus into a Store.
type Recorder struct {
	store Store
	log   logx.Logger
	runID string

	events <-chan eventbus.Event
	unsub  func()
}

// NewRecorder subscribes immediately, so events published before Run starts
// are buffered rather than lost. Every entry is tagged with a fresh run ID
// so runs sharing a journal can be told apart.
func NewRecorder(store Store, bus eventbus.Bus, log logx.Logger) *Recorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Recorder{store: store, log: log, runID: uuid.NewString()}
	if store != nil && bus != nil {
		r.events, r.unsub = bus.Subscribe(recorderBuffer)
	}
	return r
}

func (r *Recorder) RunID() string { return r.runID }

// Run consumes events until ctx is done, then drains what is already
// buffered. Append failures are logged and the event is dropped.
func (r *Recorder) Run(ctx context.Context) error {
	if r.events == nil {
		return ErrDisabled
	}
	defer r.unsub()

	for {
		select {
		case <-ctx.Done():
			r.drain()
			return nil
		case ev, ok := <-r.events:
			if !ok {
				return nil
			}
			r.record(ev)
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case ev, ok := <-r.events:
			if !ok {
				return
			}
			r.record(ev)
		default:
			return
		}
	}
}

func (r *Recorder) record(ev eventbus.Event) {
	e, ok := r.entry(ev)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	if err := r.store.Append(ctx, e); err != nil {
		r.log.Warn("journal append failed", logx.String("event", ev.Type), logx.Err(err))
	}
}

// entry maps a bus event to an Entry. Only the "scheduler" and "tick"
// namespaces are journaled.
func (r *Recorder) entry(ev eventbus.Event) (Entry, bool) {
	if !eventbus.HasPrefix(ev, "scheduler") && !eventbus.HasPrefix(ev, "tick") {
		return Entry{}, false
	}
	e := Entry{ID: uuid.NewString(), RunID: r.runID, At: ev.Time, Event: ev.Type}
	switch d := ev.Data.(type) {
	case scheduler.TickEvent:
		e.Task = d.Task
		e.Priority = d.Priority
		e.Result = d.Result
		e.Policy = string(d.Policy)
		e.TookMS = d.Duration.Milliseconds()
		e.Error = d.Error
		e.Pending = d.Pending
	case scheduler.LifecycleEvent:
		e.Flushed = d.Flushed
	default:
		return Entry{}, false
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	return e, true
}
