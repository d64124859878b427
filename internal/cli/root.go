// Package cli is the ticksched command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

// defaultConfig returns the config path, checking TICKSCHED_CONFIG first.
func defaultConfig() string {
	if p := os.Getenv("TICKSCHED_CONFIG"); p != "" {
		return p
	}
	return "./ticksched.yaml"
}

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "ticksched",
		Short:        "ticksched runs prioritized recurring tasks on a fixed tick",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfig(), "path to config file (json or yaml; TICKSCHED_CONFIG env)")

	root.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
	)
	return root
}
