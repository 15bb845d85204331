package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/BDNK1/durable/client"
	"github.com/BDNK1/durable/runtime"
	"github.com/BDNK1/durable/runtime/history"
)

type replayOptions struct {
	historyPath string
	instanceID  string
	serverURL   string
}

func newReplayCmd(e *env) *cobra.Command {
	opts := replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay <orchestration>",
		Short: "Decide one orchestration pass from a history file",
		Long: `Replay runs one decision pass over a recorded history and prints the
resulting decision as JSON. The history file holds either a bare event
array or an object with "history", "instanceId" and "input".

With --server (or server.url in the config) the pass runs on a remote
durable server instead of in-process.

Example:
  durable replay order --history order-42.json
  durable replay order --history order-42.json --server http://localhost:8080
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.serverURL == "" {
				opts.serverURL = e.config.Server.URL
			}
			return e.replay(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.historyPath, "history", "", "Path to the history JSON file")
	cmd.Flags().StringVar(&opts.instanceID, "instance", "", "Instance id (overrides the payload's)")
	cmd.Flags().StringVar(&opts.serverURL, "server", "", "Base URL of a remote durable server")
	_ = cmd.MarkFlagRequired("history")
	return cmd
}

func (e *env) replay(ctx context.Context, w io.Writer, name string, opts replayOptions) error {
	data, err := os.ReadFile(opts.historyPath)
	if err != nil {
		return fmt.Errorf("error reading history: %w", err)
	}

	var decision *runtime.Decision
	if opts.serverURL != "" {
		decision, err = client.New(opts.serverURL).Decide(ctx, name, data, opts.instanceID)
	} else {
		decision, err = e.decideLocal(ctx, name, data, opts.instanceID)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(decision)
}

func (e *env) decideLocal(ctx context.Context, name string, data []byte, instanceID string) (*runtime.Decision, error) {
	payload, err := history.Decode(data)
	if err != nil {
		return nil, err
	}
	if instanceID == "" {
		instanceID = payload.InstanceID
	}

	app, err := e.newApp()
	if err != nil {
		return nil, err
	}
	if err := app.Container.Initialize(ctx); err != nil {
		return nil, err
	}
	defer app.Container.Shutdown(context.WithoutCancel(ctx))

	return runtime.NewRunner(e.logger, app).Run(ctx, runtime.Request{
		Orchestration: name,
		InstanceID:    instanceID,
		History:       payload.Log,
		Input:         payload.Input,
	})
}
