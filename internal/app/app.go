// Package app wires config, logging, the scheduler and its observers into
// one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"ticksched/internal/config"
	"ticksched/internal/eventbus"
	"ticksched/internal/jobs"
	"ticksched/internal/journal"
	"ticksched/internal/runtime/supervisor"
	"ticksched/internal/scheduler"
	"ticksched/internal/status"
	"ticksched/internal/task"
	logx "ticksched/pkg/logx"
)

// SchedulerFactory builds the scheduler. The default is scheduler.Default.
type SchedulerFactory func(cfg scheduler.Config, log logx.Logger, bus eventbus.Bus) *scheduler.Scheduler

type Option func(*App)

// WithSchedulerFactory replaces the process-wide scheduler, mainly for tests.
func WithSchedulerFactory(f SchedulerFactory) Option {
	return func(a *App) { a.newScheduler = f }
}

type App struct {
	cfgm *config.Manager
	cfg  *config.Config

	log  logx.Logger
	logs *logx.Service
	bus  *eventbus.MemBus

	store    journal.Store
	recorder *journal.Recorder
	sched    *scheduler.Scheduler
	status   *status.Server
	seed     []task.Task

	newScheduler SchedulerFactory
	sup          *supervisor.Supervisor
}

// New loads and validates the config at cfgPath and builds every component.
// Nothing runs until Start.
func New(cfgPath string, opts ...Option) (*App, error) {
	a := &App{newScheduler: scheduler.Default}
	for _, o := range opts {
		o(a)
	}

	bootLog := logx.NewConsole("info").With(logx.String("comp", "config"))
	a.cfgm = config.NewManager(cfgPath, bootLog)
	cfg, err := a.cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	a.logs, a.log = logx.New(cfg.Logging.Logx())
	a.log = a.log.With(logx.String("comp", "app"))
	a.cfgm.SetLogger(a.component("config"))

	a.bus = eventbus.New()

	seed, err := jobs.Tasks(cfg.Tasks, a.component("job"))
	if err != nil {
		return nil, err
	}
	a.seed = seed

	scfg, err := mapSchedulerConfig(cfg, a.component("validator"))
	if err != nil {
		return nil, err
	}
	a.sched = a.newScheduler(scfg, a.component("scheduler"), a.bus)

	jcfg, err := mapJournalConfig(cfg)
	if err != nil {
		return nil, err
	}
	if a.store, err = journal.Open(jcfg, a.component("journal")); err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if a.store != nil {
		a.recorder = journal.NewRecorder(a.store, a.bus, a.component("journal"))
		a.log.Info("journal enabled", logx.String("driver", jcfg.Driver), logx.String("path", jcfg.Path), logx.String("run_id", a.recorder.RunID()))
	}

	if cfg.Status.Enabled {
		a.status = status.New(status.Config{
			Addr:  cfg.Status.StatusAddr(),
			Pprof: cfg.Status.Pprof,
		}, a.sched, a.store, a.component("status"), status.WithRuntime(a))
	}
	return a, nil
}

func (a *App) component(name string) logx.Logger {
	return a.log.With(logx.String("comp", name))
}

func (a *App) Scheduler() *scheduler.Scheduler { return a.sched }

func (a *App) Config() *config.Config { return a.cfgm.Get() }

// Runtime reports the app's supervised goroutines and event bus delivery.
func (a *App) Runtime() status.Runtime {
	subs, published, dropped := a.bus.Stats()
	return status.Runtime{
		Goroutines: a.sup.Snapshot(),
		Bus:        status.BusStats{Subscribers: subs, Published: published, Dropped: dropped},
	}
}

// StatusAddr is the status server's listen address, or "" when disabled.
func (a *App) StatusAddr() string {
	if a.status == nil {
		return ""
	}
	return a.status.Addr()
}

// Done is closed when the app context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the app supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start seeds the scheduler, starts it and the observers.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if err := config.Validate(cfg); err != nil {
			return err
		}
		_, err := jobs.Tasks(cfg.Tasks, logx.Nop())
		return err
	})

	if a.status != nil {
		if err := a.status.Start(); err != nil {
			return fmt.Errorf("status server: %w", err)
		}
	}
	if a.recorder != nil {
		a.sup.Go("journal.recorder", a.recorder.Run)
	}

	for _, t := range a.seed {
		a.sched.Add(t)
	}
	a.sched.Start()

	reload := a.cfgm.Subscribe(4)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(reload)
		a.reloadLoop(c, reload)
		return nil
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	a.log.Info("app started",
		logx.Duration("interval", a.sched.Interval()),
		logx.Int("tasks", len(a.seed)),
		logx.String("status_addr", a.StatusAddr()),
	)
	return nil
}

// reloadLoop applies logging changes live and reports the rest.
func (a *App) reloadLoop(ctx context.Context, ch chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-ch:
			if !ok {
				return
			}
			sections, attrs, tasks := config.SummarizeConfigChange(last, next)
			last = next
			if len(sections) == 0 {
				a.log.Debug("config reload received, but no effective changes detected")
				continue
			}

			if slices.Contains(sections, "logging") {
				a.logs.Apply(next.Logging.Logx())
			}

			fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
			a.log.Info("config reloaded", fields...)
			if pending := config.RestartRequired(sections); len(pending) > 0 {
				a.log.Warn("config changes need a restart to take effect",
					logx.String("sections", strings.Join(pending, ",")),
					logx.Any("tasks", tasks),
				)
			}
		}
	}
}

// Stop shuts everything down in dependency order. Each step is bounded so a
// stuck component cannot stall the rest; ctx bounds the whole stop.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	var errs []error
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	// Scheduler first: its final events must reach the recorder before the
	// supervisor cancels it.
	step("scheduler", 3*time.Second, a.sched.Close)
	step("status", 2*time.Second, func(c context.Context) error {
		if a.status != nil {
			a.status.Stop(c)
		}
		return nil
	})

	step("supervisor", 2*time.Second, func(c context.Context) error {
		err := a.sup.Stop(c)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	step("journal", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped", logx.String("reason", string(reason)))
	_ = a.logs.Close()
	return errors.Join(errs...)
}
