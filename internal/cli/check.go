package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ticksched/internal/config"
	"ticksched/internal/jobs"
	logx "ticksched/pkg/logx"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config file and print what it would run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkConfig(cmd.OutOrStdout(), root.configPath)
		},
	}
}

func checkConfig(w io.Writer, path string) error {
	cfg, err := config.NewManager(path, logx.Nop()).Parse()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	tasks, err := jobs.Tasks(cfg.Tasks, logx.Nop())
	if err != nil {
		return err
	}
	s, err := cfg.Scheduler.Resolve()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "config:    %s\n", path)
	fmt.Fprintf(w, "interval:  %s\n", s.Interval)
	fmt.Fprintf(w, "validator: %s\n", s.Validator)
	fmt.Fprintf(w, "journal:   %s\n", cfg.Journal.JournalDriver())
	if cfg.Status.Enabled {
		fmt.Fprintf(w, "status:    http://%s (pprof=%t)\n", cfg.Status.StatusAddr(), cfg.Status.Pprof)
	} else {
		fmt.Fprintln(w, "status:    disabled")
	}

	if len(tasks) == 0 {
		fmt.Fprintln(w, "tasks:     none")
		return nil
	}
	fmt.Fprintf(w, "tasks:     %d\n", len(tasks))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tKIND\tPRIORITY")
	for i, t := range tasks {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", t.Name, strings.ToLower(cfg.Tasks[i].Kind), t.Priority)
	}
	return tw.Flush()
}
