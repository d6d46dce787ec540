package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/app"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/config"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/logsink"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/submit"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/types"
)

type submitFlags struct {
	mode, provider, results, project, handle string
	runName, apiURL, credentialID, workspace string
	env                                      []string
	dryRun                                   bool
}

func newSubmitCmd(g *globalFlags) *cobra.Command {
	f := &submitFlags{}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit one run's test results",
		Example: `  # through the helper
  tacotruck submit --provider testfiesta --results results/junit.xml \
    --handle acme --project proj-1 --run-name nightly \
    --api-url https://api.testfiesta.com --credentials-id tf-token

  # straight to the API
  tacotruck submit --mode direct-http --run-name nightly --project proj-1 \
    --api-url https://api.testfiesta.com --credentials-id tf-token`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runSubmit(cmd, f, cfg, log)
		},
	}

	bindSubmitFlags(cmd.Flags(), f)
	return cmd
}

func bindSubmitFlags(fl *pflag.FlagSet, f *submitFlags) {
	fl.StringVar(&f.mode, "mode", "", "external-tool or direct-http")
	fl.StringVar(&f.provider, "provider", "", "testfiesta or testrail")
	fl.StringVar(&f.results, "results", "", "path to the results file")
	fl.StringVar(&f.project, "project", "", "project key")
	fl.StringVar(&f.handle, "handle", "", "organization handle")
	fl.StringVar(&f.runName, "run-name", "", "name of the test run")
	fl.StringVar(&f.apiURL, "api-url", "", "provider API base URL")
	fl.StringVar(&f.credentialID, "credentials-id", "", "identifier of the API token")
	fl.StringVar(&f.workspace, "workspace", "", "working directory of the helper")
	fl.StringArrayVar(&f.env, "env", nil, "extra helper environment as KEY=VALUE (repeatable)")
	fl.BoolVar(&f.dryRun, "dry-run", false, "render and log the helper command without running it")
}

func (f *submitFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	strs := map[string]struct {
		dst *string
		val string
	}{
		"provider":       {&cfg.Submission.Provider, f.provider},
		"results":        {&cfg.Submission.ResultsPath, f.results},
		"project":        {&cfg.Submission.Project, f.project},
		"handle":         {&cfg.Submission.Handle, f.handle},
		"run-name":       {&cfg.Submission.RunName, f.runName},
		"api-url":        {&cfg.Submission.APIURL, f.apiURL},
		"credentials-id": {&cfg.Submission.CredentialID, f.credentialID},
		"workspace":      {&cfg.Workspace, f.workspace},
	}
	for name, s := range strs {
		if fl.Changed(name) {
			*s.dst = s.val
		}
	}
	if fl.Changed("mode") {
		m, err := types.ParseMode(f.mode)
		if err != nil {
			return err
		}
		cfg.Submission.Mode = m
	}
	return nil
}

func parseEnv(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --env %q, want KEY=VALUE", p)
		}
		env[k] = v
	}
	return env, nil
}

func runSubmit(cmd *cobra.Command, f *submitFlags, cfg config.Config, log *zap.Logger) error {
	if err := f.apply(cmd, &cfg); err != nil {
		return err
	}
	env, err := parseEnv(f.env)
	if err != nil {
		return err
	}
	warnings, err := cfg.Validate()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Warn("config.warning", zap.String("warning", w))
	}

	orch, err := app.NewOrchestrator(cfg, app.Options{DryRun: f.dryRun, Logger: log})
	if err != nil {
		return err
	}
	sink := logsink.New(cmd.OutOrStdout())
	_, err = orch.Run(cmd.Context(), cfg.Submission, submit.Host{Dir: cfg.Workspace, Env: env, Sink: sink})
	return err
}

