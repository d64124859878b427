package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	logx "ticksched/pkg/logx"
)

// Config is the on-disk configuration. All durations are Go duration strings.
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Journal   JournalConfig   `json:"journal,omitempty"`
	Status    StatusConfig    `json:"status,omitempty"`

	// Tasks seed the scheduler at startup. They are not reloaded.
	Tasks []TaskConfig `json:"tasks,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Logx converts the section to the logger's own config.
func (c LoggingConfig) Logx() logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File:    logx.FileConfig{Enabled: c.File.Enabled, Path: c.File.Path},
	}
}

// SchedulerConfig is read once at startup; the scheduler interval is fixed
// for the life of the process.
//
// Interval accepts a Go duration ("500ms"), HH:MM ("00:05") or a cron
// constant-delay descriptor ("@every 2s").
type SchedulerConfig struct {
	Interval     string  `json:"interval"`
	JobTimeout   string  `json:"job_timeout,omitempty"`
	HistorySize  int     `json:"history_size,omitempty"`
	ErrorLogRate float64 `json:"error_log_rate,omitempty"`

	// Validator selects the built-in policy: "default" (success retries,
	// failure drops), "run_once" or "retry_on_failure".
	Validator string `json:"validator,omitempty"`
}

// JournalConfig controls the optional tick journal.
//
// Example:
//
//	"journal": { "driver": "sqlite", "path": "./ticksched.db" }
type JournalConfig struct {
	Driver      string `json:"driver,omitempty"` // none|file|sqlite
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// StatusConfig controls the read-only HTTP status server.
//
// Prefer a loopback address; the server has no authentication.
type StatusConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:8089"
	Pprof   bool   `json:"pprof,omitempty"`
}

// TaskConfig declares one task to seed at startup.
type TaskConfig struct {
	Name     string       `json:"name"`
	Kind     string       `json:"kind"`
	Priority PriorityName `json:"priority,omitempty"`
	Message  string       `json:"message,omitempty"`
	Duration string       `json:"duration,omitempty"` // sleep kind
}

// PriorityName is "high", "medium", "low" or an integer. JSON numbers are
// accepted too, so YAML `priority: 3` works.
type PriorityName string

func (p *PriorityName) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = PriorityName(strings.TrimSpace(s))
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("priority: expected name or integer, got %s", b)
	}
	*p = PriorityName(strconv.Itoa(n))
	return nil
}

const (
	DefaultStatusAddr  = "127.0.0.1:8089"
	DefaultJournalPath = "./ticksched.db"
)

// Default returns the config used when no file is given.
func Default() *Config {
	return &Config{
		Logging:   LoggingConfig{Level: "info", Console: true},
		Scheduler: SchedulerConfig{Interval: "1s"},
		Journal:   JournalConfig{Driver: "none"},
	}
}
