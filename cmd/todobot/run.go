package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/shpitdev/commsync-todo/internal/app"
	"github.com/spf13/cobra"
)

func newGenerateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate tasks from recent emails and chat messages once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.setup(nil)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			svc, err := app.Build(cmd.Context(), cfg, nil, log)
			if err != nil {
				return usageError{err}
			}
			_, err = svc.GenerateTodos(cmd.Context(), printer(cmd.OutOrStdout()))
			return err
		},
	}
}

func newAddTaskCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add-task <text...>",
		Short: "Expand a short message into one task and create it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.setup(nil)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			svc, err := app.Build(cmd.Context(), cfg, nil, log)
			if err != nil {
				return usageError{err}
			}
			_, err = svc.AddTask(cmd.Context(), strings.Join(args, " "), printer(cmd.OutOrStdout()))
			return err
		},
	}
}

// printer writes each flow message followed by a blank line.
func printer(w io.Writer) app.Notify {
	return func(msg string) {
		_, _ = fmt.Fprintf(w, "%s\n\n", msg)
	}
}
