package app

import (
	"time"

	"ticksched/internal/config"
	"ticksched/internal/journal"
	"ticksched/internal/scheduler"
	logx "ticksched/pkg/logx"
)

const defaultBusyTimeout = time.Second

func mapSchedulerConfig(cfg *config.Config, log logx.Logger) (scheduler.Config, error) {
	s, err := cfg.Scheduler.Resolve()
	if err != nil {
		return scheduler.Config{}, err
	}
	out := scheduler.Config{
		Interval:     s.Interval,
		JobTimeout:   s.JobTimeout,
		HistorySize:  s.HistorySize,
		ErrorLogRate: s.ErrorLogRate,
	}
	switch s.Validator {
	case config.ValidatorRunOnce:
		out.Validator = scheduler.RunOnce
	case config.ValidatorRetryOnFailure:
		out.Validator = scheduler.RetryOnFailure
	default:
		out.Validator = scheduler.LoggingValidator(log)
	}
	return out, nil
}

func mapJournalConfig(cfg *config.Config) (journal.Config, error) {
	driver := cfg.Journal.JournalDriver()
	if driver == config.JournalNone {
		return journal.Config{Driver: driver}, nil
	}
	path := cfg.Journal.Path
	if path == "" {
		path = config.DefaultJournalPath
		if driver == config.JournalFile {
			path = "./ticksched.journal.jsonl"
		}
	}
	busy, err := config.ParseDurationOrDefault("journal.busy_timeout", cfg.Journal.BusyTimeout, defaultBusyTimeout)
	if err != nil {
		return journal.Config{}, err
	}
	return journal.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
}
