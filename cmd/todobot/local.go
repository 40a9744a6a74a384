package main

import (
	"fmt"
	"net/http/httptest"

	"github.com/shpitdev/commsync-todo/internal/app"
	"github.com/shpitdev/commsync-todo/internal/config"
	"github.com/shpitdev/commsync-todo/internal/mockgraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const localToken = "local-token"

func newLocalCmd(g *globalFlags) *cobra.Command {
	var fixture string
	var addTask string
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Run the generate flow against an in-process mock Graph seeded from a fixture",
		Long: `Run against an in-process mock Graph instead of the real API.

The fixture seeds mail, chats, task lists and tasks (see examples/fixture.yaml). Only the
language model is real, so llm.api_key must be set.

Examples:
  todobot local --fixture examples/fixture.yaml
  todobot local --fixture examples/fixture.yaml --add-task "call Ana about the contract"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fixture == "" {
				return usageError{fmt.Errorf("local requires --fixture")}
			}
			f, err := mockgraph.LoadFixtureFile(fixture)
			if err != nil {
				return usageError{err}
			}
			srv := mockgraph.New()
			if err := srv.Load(f); err != nil {
				return usageError{fmt.Errorf("load fixture: %w", err)}
			}
			srv.RequireBearerToken(localToken)
			hs := httptest.NewServer(srv.Handler())
			defer hs.Close()

			cfg, log, err := g.setup(func(c *config.Config) {
				c.Graph = config.GraphConfig{BaseURL: hs.URL + mockgraph.BasePath, Token: localToken}
			})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runLocal(cmd, cfg, log, addTask)
		},
	}
	cmd.Flags().StringVar(&fixture, "fixture", "", "YAML fixture seeding the mock Graph (required)")
	cmd.Flags().StringVar(&addTask, "add-task", "", "Run the add-task flow with this text instead of generate")
	return cmd
}

func runLocal(cmd *cobra.Command, cfg config.Config, log *zap.Logger, addTask string) error {
	ctx := cmd.Context()
	svc, err := app.Build(ctx, cfg, nil, log)
	if err != nil {
		return usageError{err}
	}
	out := printer(cmd.OutOrStdout())
	if addTask != "" {
		_, err = svc.AddTask(ctx, addTask, out)
	} else {
		_, err = svc.GenerateTodos(ctx, out)
	}
	if err != nil {
		return err
	}
	return svc.OpenTasks(ctx, out)
}
