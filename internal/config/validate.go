package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Validator names accepted by scheduler.validator.
const (
	ValidatorDefault        = "default"
	ValidatorRunOnce        = "run_once"
	ValidatorRetryOnFailure = "retry_on_failure"
)

// Journal drivers.
const (
	JournalNone   = "none"
	JournalFile   = "file"
	JournalSQLite = "sqlite"
)

// SchedulerSettings is SchedulerConfig with strings parsed.
type SchedulerSettings struct {
	Interval     time.Duration
	JobTimeout   time.Duration
	HistorySize  int
	ErrorLogRate float64
	Validator    string
}

func (c SchedulerConfig) Resolve() (SchedulerSettings, error) {
	var out SchedulerSettings
	var errs []error

	raw := c.Interval
	if strings.TrimSpace(raw) == "" {
		raw = "1s"
	}
	d, err := ParseInterval(raw)
	if err != nil {
		errs = append(errs, fmt.Errorf("scheduler.interval: %w", err))
	}
	out.Interval = d

	if out.JobTimeout, err = ParseDurationField("scheduler.job_timeout", c.JobTimeout); err != nil {
		errs = append(errs, err)
	}
	if c.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("scheduler.history_size: must be >= 0"))
	}
	out.HistorySize = c.HistorySize
	if c.ErrorLogRate < 0 {
		errs = append(errs, fmt.Errorf("scheduler.error_log_rate: must be >= 0"))
	}
	out.ErrorLogRate = c.ErrorLogRate

	switch v := strings.ToLower(strings.TrimSpace(c.Validator)); v {
	case "", ValidatorDefault:
		out.Validator = ValidatorDefault
	case ValidatorRunOnce, ValidatorRetryOnFailure:
		out.Validator = v
	default:
		errs = append(errs, fmt.Errorf("scheduler.validator: unknown %q", c.Validator))
	}
	return out, errors.Join(errs...)
}

// JournalDriver returns the normalized driver name ("none" when unset).
func (c JournalConfig) JournalDriver() string {
	d := strings.ToLower(strings.TrimSpace(c.Driver))
	if d == "" {
		return JournalNone
	}
	return d
}

// StatusAddr returns the listen address with the default applied.
func (c StatusConfig) StatusAddr() string {
	if a := strings.TrimSpace(c.Addr); a != "" {
		return a
	}
	return DefaultStatusAddr
}

// Validate checks everything that can be checked without building
// components. Task kinds are checked by the job builder.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if _, err := cfg.Scheduler.Resolve(); err != nil {
		errs = append(errs, err)
	}

	switch cfg.Journal.JournalDriver() {
	case JournalNone, JournalFile, JournalSQLite:
	default:
		errs = append(errs, fmt.Errorf("journal.driver: unknown %q (use none, file or sqlite)", cfg.Journal.Driver))
	}
	if _, err := ParseDurationField("journal.busy_timeout", cfg.Journal.BusyTimeout); err != nil {
		errs = append(errs, err)
	}

	if cfg.Status.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Status.StatusAddr()); err != nil {
			errs = append(errs, fmt.Errorf("status.addr: %w", err))
		}
	}

	seen := make(map[string]struct{}, len(cfg.Tasks))
	for i, t := range cfg.Tasks {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("tasks[%d].name: required", i))
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Errorf("tasks[%d].name: duplicate %q", i, name))
		}
		seen[name] = struct{}{}
		if _, err := ParseDurationField(fmt.Sprintf("tasks[%d].duration", i), t.Duration); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
