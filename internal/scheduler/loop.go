package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticksched/internal/task"
	logx "ticksched/pkg/logx"
)

// loop sleeps until the armed deadline, advances the anchor by one interval
// and only then runs the tick, so a slow tick shortens the next wait rather
// than shifting the cadence.
func (s *Scheduler) loop(ctx context.Context, gen uint64) error {
	tickCtx := context.WithoutCancel(ctx)
	for {
		s.mu.Lock()
		if !s.running || s.gen != gen {
			s.mu.Unlock()
			return nil
		}
		deadline := s.nextCall
		s.mu.Unlock()

		t := time.NewTimer(max(time.Until(deadline), 0))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}

		s.mu.Lock()
		if !s.running || s.gen != gen {
			s.mu.Unlock()
			return nil
		}
		s.nextCall = s.nextCall.Add(s.cfg.Interval)
		s.mu.Unlock()

		if err := s.runTick(tickCtx, gen); err != nil {
			s.logTickError(err)
		}
	}
}

// Run processes exactly one tick synchronously: pop the highest-priority
// task, hand its job to the validator and re-queue or drop it.
//
// An empty queue is not an error. A validator error is returned wrapped with
// the task name; a validator panic is not recovered.
func (s *Scheduler) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.runTick(ctx, s.generation())
}

func (s *Scheduler) runTick(ctx context.Context, gen uint64) error {
	s.ticks.Add(1)
	start := time.Now()

	t, err := s.queue.TryPop()
	if errors.Is(err, task.ErrQueueEmpty) {
		s.empty.Add(1)
		s.finish(EventTickEmpty, TickRecord{At: start, Result: ResultEmpty})
		return nil
	}

	rec := TickRecord{At: start, Task: t.Name, Priority: int(t.Priority)}

	vctx := ctx
	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		vctx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
	}

	policy, err := s.cfg.Validator(vctx, t.Job)
	rec.Duration = time.Since(start)
	if err != nil {
		s.failed.Add(1)
		rec.Result = ResultFailed
		rec.Error = err.Error()
		s.finish(EventTickFailed, rec)
		return fmt.Errorf("validate %q: %w", t.Name, err)
	}
	rec.Policy = policy

	switch policy {
	case PolicyRetry:
		if s.requeue(t, gen) {
			s.retried.Add(1)
			rec.Result = ResultRetried
		} else {
			rec.Result = ResultDiscarded
			s.log.Debug("retry discarded after stop", logx.String("task", t.Name))
		}
		s.finish(EventTickRetried, rec)
	case PolicyDrop:
		s.dropped.Add(1)
		rec.Result = ResultDropped
		s.finish(EventTickDropped, rec)
	default:
		s.dropped.Add(1)
		rec.Result = ResultDropped
		s.log.Debug("unknown policy; dropping task", logx.String("task", t.Name), logx.String("policy", string(policy)))
		s.finish(EventTickDropped, rec)
	}
	return nil
}

// requeue pushes t back unless the scheduler was stopped (or restarted)
// since the tick began. Holding s.mu keeps Stop from interleaving between
// the check and the push.
func (s *Scheduler) requeue(t task.Task, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.queue.Push(t)
	return true
}

func (s *Scheduler) finish(typ string, rec TickRecord) {
	s.record(rec)
	s.log.Debug("tick",
		logx.String("result", rec.Result),
		logx.String("task", rec.Task),
		logx.Int("priority", rec.Priority),
		logx.Duration("took", rec.Duration),
	)
	s.publish(typ, TickEvent{TickRecord: rec, Pending: s.queue.Len()})
}

func (s *Scheduler) logTickError(err error) {
	if !s.errLimiter.Allow() {
		s.errSuppressed.Add(1)
		return
	}
	fields := []logx.Field{logx.Err(err)}
	if n := s.errSuppressed.Swap(0); n > 0 {
		fields = append(fields, logx.Uint64("suppressed", n))
	}
	s.log.Error("tick failed", fields...)
}
