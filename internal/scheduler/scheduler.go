package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"ticksched/internal/eventbus"
	"ticksched/internal/runtime/supervisor"
	"ticksched/internal/task"
	logx "ticksched/pkg/logx"
)

type Scheduler struct {
	cfg   Config
	log   logx.Logger
	bus   eventbus.Bus
	queue *task.Queue

	errLimiter    *rate.Limiter
	errSuppressed atomic.Uint64

	mu       sync.Mutex
	running  bool
	nextCall time.Time
	gen      uint64 // bumped by Start and Stop; a tick only re-queues under the generation it started in
	sup      *supervisor.Supervisor
	restarts uint64 // loop restarts of supervisors already stopped
	done     chan struct{} // closed once the loops of every Start so far have exited

	ticks   atomic.Uint64
	empty   atomic.Uint64
	retried atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
	flushed atomic.Uint64

	hmu     sync.Mutex
	history []TickRecord
}

var (
	defaultOnce sync.Once
	defaultSch  *Scheduler
)

// Default returns the process-wide scheduler, creating it on first use.
// Arguments passed after the first call are ignored.
func Default(cfg Config, log logx.Logger, bus eventbus.Bus) *Scheduler {
	defaultOnce.Do(func() {
		defaultSch = New(cfg, log, bus)
	})
	return defaultSch
}

// New creates an independent scheduler. Most programs want Default.
func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = cfg.withDefaults()
	if cfg.Validator == nil {
		cfg.Validator = LoggingValidator(log)
	}
	return &Scheduler{
		cfg:        cfg,
		log:        log,
		bus:        bus,
		queue:      task.NewQueue(),
		errLimiter: rate.NewLimiter(rate.Limit(cfg.ErrorLogRate), 1),
		nextCall:   time.Now(),
	}
}

// Add queues t by priority. It never fails and may be called at any time.
func (s *Scheduler) Add(t task.Task) {
	s.queue.Push(t)
	s.log.Trace("task added", logx.String("task", t.Name), logx.Int("priority", int(t.Priority)))
}

// Start arms the next tick unless the scheduler is already running.
//
// The deadline is the previous anchor plus one interval, not now plus one
// interval; if that is already in the past the tick fires immediately.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	s.nextCall = s.nextCall.Add(s.cfg.Interval)
	s.running = true
	s.gen++
	gen := s.gen

	sup := supervisor.New(context.Background(), supervisor.WithLogger(s.log))
	s.sup = sup
	prev := s.done
	done := make(chan struct{})
	s.done = done
	sup.GoRestart(loopName, func(ctx context.Context) error {
		return s.loop(ctx, gen)
	},
		supervisor.WithRestartBackoff(10*time.Millisecond, max(s.cfg.Interval, 10*time.Millisecond)),
		supervisor.WithPublishFirstError(true),
	)
	go func() {
		_ = sup.Wait(context.Background())
		if prev != nil {
			<-prev
		}
		close(done)
	}()

	s.log.Info("scheduler started", logx.Duration("interval", s.cfg.Interval), logx.Time("next_call", s.nextCall), logx.Int("pending", s.queue.Len()))
	s.publish(EventStarted, LifecycleEvent{Interval: s.cfg.Interval, NextCall: s.nextCall})
}

// Stop cancels the pending tick and discards every queued task.
//
// A tick that is already running finishes, but its RETRY verdict is ignored.
// Stop does not wait for that tick; use Close for that.
func (s *Scheduler) Stop() { s.stop() }

// stop returns the done channel of the loops it stopped, nil if none ever ran.
func (s *Scheduler) stop() <-chan struct{} {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.gen++
	sup := s.sup
	s.sup = nil
	if sup != nil {
		s.restarts += sup.Stats(loopName).Restarts
	}
	nextCall := s.nextCall
	done := s.done
	s.mu.Unlock()

	if sup != nil {
		sup.Cancel()
	}

	n := s.queue.Flush()
	s.flushed.Add(uint64(n))

	if wasRunning || n > 0 {
		s.log.Info("scheduler stopped", logx.Bool("was_running", wasRunning), logx.Int("flushed", n))
	}
	s.publish(EventStopped, LifecycleEvent{Interval: s.cfg.Interval, NextCall: nextCall, Flushed: n})
	return done
}

// Close stops the scheduler and waits for the tick loop to exit, including a
// tick that is in flight.
func (s *Scheduler) Close(ctx context.Context) error {
	done := s.stop()
	if done == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.log.Warn("scheduler close timed out", logx.Err(ctx.Err()))
		return ctx.Err()
	}
}

func (s *Scheduler) Pending() int { return s.queue.Len() }

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) Interval() time.Duration { return s.cfg.Interval }

// NextCall is the anchor of the next (or last armed) tick.
func (s *Scheduler) NextCall() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextCall
}

func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	running := s.running
	nextCall := s.nextCall
	restarts := s.restarts
	if s.sup != nil {
		restarts += s.sup.Stats(loopName).Restarts
	}
	s.mu.Unlock()

	s.hmu.Lock()
	h := make([]TickRecord, len(s.history))
	copy(h, s.history)
	s.hmu.Unlock()

	var next string
	if t, ok := s.queue.Peek(); ok {
		next = t.Name
	}

	return Snapshot{
		Running:      running,
		Interval:     s.cfg.Interval,
		NextCall:     nextCall,
		Pending:      s.queue.Len(),
		Next:         next,
		Ticks:        s.ticks.Load(),
		EmptyTicks:   s.empty.Load(),
		Retried:      s.retried.Load(),
		Dropped:      s.dropped.Load(),
		Failed:       s.failed.Load(),
		Flushed:      s.flushed.Load(),
		LoopRestarts: restarts,
		History:      h,
	}
}

func (s *Scheduler) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Scheduler) publish(typ string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: data})
}

func (s *Scheduler) record(rec TickRecord) {
	s.hmu.Lock()
	s.history = append(s.history, rec)
	if len(s.history) > s.cfg.HistorySize {
		s.history = s.history[len(s.history)-s.cfg.HistorySize:]
	}
	s.hmu.Unlock()
}
