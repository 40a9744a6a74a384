// Command todobot turns recent emails and chat messages into To Do tasks. It runs as an
// HTTP bot (serve), as one-shot commands (generate, add-task), or fully locally against
// a fixture-backed mock Graph (local).
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/shpitdev/commsync-todo/internal/config"
	"github.com/shpitdev/commsync-todo/internal/logging"
	"github.com/shpitdev/commsync-todo/internal/util"
	"github.com/shpitdev/commsync-todo/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// usageError marks configuration and argument problems; they exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", util.RedactSecrets(err.Error()))
		var ue usageError
		if errors.As(err, &ue) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "todobot",
		Short:         "Generate To Do tasks from emails and chat messages",
		Version:       version.Current,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", os.Getenv("TODOBOT_CONFIG"), "Path to a YAML config file (env: TODOBOT_CONFIG)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Override log.format (json, console)")

	root.AddCommand(
		newServeCmd(g),
		newGenerateCmd(g),
		newAddTaskCmd(g),
		newLocalCmd(g),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Current)
		},
	}
}

// setup loads configuration, applies flag overrides and builds the logger. mutate runs
// before validation.
func (g *globalFlags) setup(mutate func(*config.Config)) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, nil, usageError{err}
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if mutate != nil {
		mutate(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, usageError{fmt.Errorf("invalid config: %w", err)}
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return config.Config{}, nil, usageError{err}
	}
	return cfg, log, nil
}
