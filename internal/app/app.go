// Package app wires a Config into a ready Orchestrator. Both the CLI and
// the daemon build their pipeline here.
package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/backend"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/command"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/config"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/credentials"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/submit"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/types"
	"github.com/testfiesta/tacotruck-jenkins-plugin/pkg/driver"
)

const (
	// DryRunOutput is what the helper "prints" for a submit in a dry run.
	DryRunOutput = "dry run: helper not executed"
	// DryRunVersion is the helper version reported in a dry run.
	DryRunVersion = "dry-run"
)

var ErrDryRunUnsupported = errors.New("dry run is only available in external-tool mode")

type Options struct {
	// DryRun replaces the process driver; nothing is spawned.
	DryRun bool
	Logger *zap.Logger
}

func CredentialStore(cfg config.CredentialsConfig) (credentials.Store, error) {
	chain := credentials.Chain{credentials.EnvStore{Prefix: cfg.EnvPrefix}}
	if cfg.File != "" {
		fs, err := credentials.LoadFileStore(cfg.File)
		if err != nil {
			return nil, err
		}
		chain = append(chain, fs)
	}
	return chain, nil
}

func NewOrchestrator(cfg config.Config, opts Options) (*submit.Orchestrator, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	store, err := CredentialStore(cfg.Credentials)
	if err != nil {
		return nil, err
	}

	var drv driver.Driver
	if opts.DryRun {
		if cfg.Submission.Mode == types.ModeDirectHTTP {
			return nil, ErrDryRunUnsupported
		}
		drv = dryRunDriver{}
	} else {
		drv = driver.NewExecDriver(driver.Config{
			StdoutLimitBytes: cfg.Helper.StdoutLimitBytes,
			TerminationGrace: cfg.Helper.TerminationGrace,
			Logger:           log,
		})
	}

	return submit.New(submit.Options{
		Driver:   drv,
		Resolver: credentials.NewResolver(store, log),
		Builder:  command.NewBuilder(cfg.Helper.Helper),
		Factory:  backend.NewFactory(backend.Options{HTTP: cfg.HTTP, Logger: log}),
		Logger:   log,
	}), nil
}

// dryRunDriver answers the version check and the submit separately so the
// log does not show submit output as a version.
type dryRunDriver struct{}

func (dryRunDriver) Execute(ctx context.Context, inv driver.Invocation) (driver.Outcome, error) {
	if command.IsVersion(inv) {
		return driver.Nop{Stdout: DryRunVersion}.Execute(ctx, inv)
	}
	return driver.Nop{Stdout: DryRunOutput}.Execute(ctx, inv)
}
