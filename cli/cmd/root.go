package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/BDNK1/durable/runtime"
	"github.com/BDNK1/durable/runtime/engine/dsl"
	"github.com/BDNK1/durable/runtime/engine/yaml"
	"github.com/BDNK1/durable/runtime/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

// env is the state shared by subcommands, prepared before each one runs.
type env struct {
	configPath string
	config     *runtime.Config
	logger     *slog.Logger
	providers  *telemetry.Providers
}

// NewRootCmd builds the durable command tree.
func NewRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "durable",
		Short: "Durable orchestration replay engine",
		Long: `durable decides orchestrations by replaying their history.

Each request carries the full event history of one orchestration instance;
the engine replays it, runs the orchestration up to its next pending
activity and answers with the actions the host should schedule.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.prepare(cmd.Context(), cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.close()
		},
	}

	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "Path to config file (YAML)")

	root.AddCommand(newServeCmd(e), newReplayCmd(e), newValidateCmd(e))
	return root
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (e *env) prepare(ctx context.Context, w io.Writer) error {
	cfg, err := runtime.LoadConfig(e.configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	providers, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("error setting up telemetry: %w", err)
	}

	e.config = cfg
	e.providers = providers
	e.logger = telemetry.NewLogger(cfg.Log, w, providers)
	return nil
}

func (e *env) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer cancel()
	if err := e.providers.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down telemetry: %w", err)
	}
	return nil
}

// newApp builds an App with both script engines and every orchestration
// found in the configured directory.
func (e *env) newApp() (*runtime.App, error) {
	app := runtime.NewApp()
	app.RegisterHost(runtime.EngineRisor, dsl.NewHost(e.logger))
	app.RegisterHost(runtime.EngineYAML, yaml.NewHost(e.logger, yaml.NewExpressionEvaluator()))
	app.RegisterLoader(dsl.NewLoader())
	app.RegisterLoader(yaml.NewLoader())

	for k, v := range e.config.Properties {
		app.Properties[k] = v
	}

	if err := app.LoadDir(e.config.Orchestrations); err != nil {
		return nil, fmt.Errorf("error loading orchestrations from %s: %w", e.config.Orchestrations, err)
	}
	return app, nil
}
