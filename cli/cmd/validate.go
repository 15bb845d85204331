package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config and load every orchestration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.newApp()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range app.Names() {
				o, _ := app.Orchestration(name)
				fmt.Fprintf(out, "%s\t%s\t%s\n", name, o.Engine, o.Source)
			}
			fmt.Fprintf(out, "%d orchestrations OK\n", len(app.Names()))
			return nil
		},
	}
}
