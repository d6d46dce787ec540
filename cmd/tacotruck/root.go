package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/config"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/logger"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

type globalFlags struct {
	cfgFile string
	debug   bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "tacotruck",
		Short: "Submit test results to Testfiesta or TestRail",
		Long: `tacotruck submits a build's test results either through the
@testfiesta/tacotruck helper (external-tool mode) or directly to the
provider API (direct-http mode).`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.cfgFile, "config", "", "YAML config file")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug diagnostics")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newSubmitCmd(g), newProbeCmd(g), newVersionCmd())
	return root
}

// load reads configuration and builds the diagnostic logger.
func (g *globalFlags) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.cfgFile)
	if err != nil {
		return cfg, nil, err
	}
	if g.debug {
		cfg.Log.Level = "debug"
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return cfg, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tacotruck version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
