package config

import (
	"reflect"
	"sort"
	"strings"

	logx "ticksched/pkg/logx"
)

// LiveSections are applied without a restart.
var LiveSections = map[string]bool{"logging": true}

// SummarizeConfigChange returns the sorted list of changed sections, log
// fields describing the new values, and the names of tasks that were added,
// removed or edited.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.interval", strings.TrimSpace(newCfg.Scheduler.Interval)),
			logx.String("scheduler.job_timeout", strings.TrimSpace(newCfg.Scheduler.JobTimeout)),
			logx.String("scheduler.validator", strings.TrimSpace(newCfg.Scheduler.Validator)),
		)
	}

	if oldCfg.Journal.JournalDriver() != newCfg.Journal.JournalDriver() ||
		strings.TrimSpace(oldCfg.Journal.Path) != strings.TrimSpace(newCfg.Journal.Path) ||
		strings.TrimSpace(oldCfg.Journal.BusyTimeout) != strings.TrimSpace(newCfg.Journal.BusyTimeout) {
		changed = append(changed, "journal")
		attrs = append(attrs,
			logx.String("journal.driver", newCfg.Journal.JournalDriver()),
			logx.Bool("journal.path_set", strings.TrimSpace(newCfg.Journal.Path) != ""),
		)
	}

	if oldCfg.Status.Enabled != newCfg.Status.Enabled ||
		oldCfg.Status.StatusAddr() != newCfg.Status.StatusAddr() ||
		oldCfg.Status.Pprof != newCfg.Status.Pprof {
		changed = append(changed, "status")
		attrs = append(attrs,
			logx.Bool("status.enabled", newCfg.Status.Enabled),
			logx.String("status.addr", newCfg.Status.StatusAddr()),
			logx.Bool("status.pprof", newCfg.Status.Pprof),
		)
	}

	tasksChanged := diffTasks(oldCfg.Tasks, newCfg.Tasks)
	if len(tasksChanged) > 0 {
		changed = append(changed, "tasks")
		attrs = append(attrs,
			logx.Int("tasks.changed_count", len(tasksChanged)),
			logx.Int("tasks.count", len(newCfg.Tasks)),
		)
	}

	sort.Strings(changed)
	return changed, attrs, tasksChanged
}

// RestartRequired filters changed down to sections that only take effect
// after a restart.
func RestartRequired(changed []string) []string {
	var out []string
	for _, s := range changed {
		if !LiveSections[s] {
			out = append(out, s)
		}
	}
	return out
}

func diffTasks(oldT, newT []TaskConfig) []string {
	index := func(ts []TaskConfig) map[string]TaskConfig {
		m := make(map[string]TaskConfig, len(ts))
		for _, t := range ts {
			m[strings.TrimSpace(t.Name)] = t
		}
		return m
	}
	o, n := index(oldT), index(newT)

	out := make([]string, 0)
	for name, ot := range o {
		if nt, ok := n[name]; !ok || ot != nt {
			out = append(out, name)
		}
	}
	for name := range n {
		if _, ok := o[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
