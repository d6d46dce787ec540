package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/app"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/submit"
)

func newProbeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check that the tacotruck helper can be run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			orch, err := app.NewOrchestrator(cfg, app.Options{Logger: log})
			if err != nil {
				return err
			}
			v, err := orch.Probe(cmd.Context(), submit.Host{Dir: cfg.Workspace})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Using TacoTruck CLI version: "+v)
			return nil
		},
	}
}
