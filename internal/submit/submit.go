// Package submit runs one result submission end to end: version check,
// credential lookup, then either the tacotruck helper or a direct HTTP post.
// Every stage writes one line to the host's log sink.
package submit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/backend"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/command"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/credentials"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/logsink"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/types"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/version"
	"github.com/testfiesta/tacotruck-jenkins-plugin/pkg/driver"
)

var (
	// ErrSubmissionFailed means the pipeline ran but the provider or the
	// helper rejected the results (non-zero exit, non-2xx status).
	ErrSubmissionFailed = errors.New("submission failed")

	// ErrInvalidRequest means the request could not be interpreted.
	ErrInvalidRequest = errors.New("invalid submission request")
)

// IsCancelled reports whether err means the host aborted the invocation, as
// opposed to the submission being rejected.
func IsCancelled(err error) bool {
	return errors.Is(err, driver.ErrProcessCancelled) ||
		errors.Is(err, backend.ErrSubmissionCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Host is what the calling build system provides for one invocation.
type Host struct {
	// Dir is the working directory of the helper, usually the job workspace.
	Dir string
	// Env is merged over the process environment for the helper.
	Env map[string]string
	// Sink receives the human-readable trace. Nil discards it.
	Sink logsink.Sink
}

// Result describes a finished invocation. Exactly one of Execution and HTTP
// is set once the pipeline got far enough to submit.
type Result struct {
	InvocationID string
	Mode         types.Mode
	Provider     backend.Provider
	Version      string
	Execution    *driver.Outcome
	HTTP         *backend.Outcome
	Success      bool
}

type Options struct {
	Driver   driver.Driver
	Resolver *credentials.Resolver
	Builder  *command.Builder
	Factory  *backend.Factory
	Logger   *zap.Logger
}

// Orchestrator is safe for concurrent use; it keeps no per-invocation state.
type Orchestrator struct {
	drv      driver.Driver
	resolver *credentials.Resolver
	builder  *command.Builder
	factory  *backend.Factory
	log      *zap.Logger
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		drv:      opts.Driver,
		resolver: opts.Resolver,
		builder:  opts.Builder,
		factory:  opts.Factory,
		log:      opts.Logger,
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.drv == nil {
		o.drv = driver.NewExecDriver(driver.Config{Logger: o.log})
	}
	if o.builder == nil {
		o.builder = command.NewBuilder(command.DefaultHelper())
	}
	if o.resolver == nil {
		o.resolver = credentials.NewResolver(nil, o.log)
	}
	if o.factory == nil {
		o.factory = backend.NewFactory(backend.Options{Logger: o.log})
	}
	return o
}

// Run executes the pipeline for req. The returned Result is always
// populated as far as the pipeline got. The error is nil only on success;
// use IsCancelled to tell an aborted job from a failed submission.
func (o *Orchestrator) Run(ctx context.Context, req types.SubmissionRequest, host Host) (Result, error) {
	res := Result{InvocationID: uuid.NewString()}
	sink := host.Sink
	if sink == nil {
		sink = logsink.Discard
	}
	log := o.log.Named("submit").With(zap.String("invocation_id", res.InvocationID))

	mode, err := types.ParseMode(string(req.Mode))
	if err != nil {
		sink.Println("✗ " + err.Error())
		return res, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	res.Mode = mode
	provider, err := backend.ParseProvider(req.Provider)
	if err != nil {
		sink.Println("✗ " + err.Error())
		return res, err
	}
	res.Provider = provider
	log = log.With(zap.String("mode", string(mode)), zap.String("provider", provider.String()))
	log.Info("submit.start")

	var toolPath string
	if mode == types.ModeExternalTool {
		toolPath = o.locate(host)
		v, err := version.Probe(ctx, o.drv, o.withHost(o.builder.Version(toolPath), host, nil))
		if err != nil {
			if IsCancelled(err) {
				sink.Println("✗ TacoTruck CLI availability check was interrupted")
			} else {
				sink.Println("✗ " + err.Error())
			}
			log.Warn("submit.probe_failed", zap.String("tool", toolPath), zap.Error(err))
			return res, err
		}
		res.Version = v
		sink.Println("Using TacoTruck CLI version: " + v)
	}
	sink.Println("Starting test result submission for run: " + req.RunName)

	secret, err := o.resolver.Resolve(credentials.WithVars(ctx, host.Env), req.CredentialID)
	if err != nil {
		sink.Println("✗ Failed to retrieve API token from credentials: " + req.CredentialID)
		log.Warn("submit.credential_failed", zap.String("credentials_id", req.CredentialID), zap.Error(err))
		return res, err
	}

	if mode == types.ModeExternalTool {
		err = o.runTool(ctx, req, host, toolPath, secret, sink, &res)
	} else {
		err = o.runHTTP(ctx, req, sink, &res)
	}
	if err != nil {
		log.Warn("submit.finish", zap.Bool("success", false), zap.Bool("cancelled", IsCancelled(err)), zap.Error(err))
		return res, err
	}
	res.Success = true
	log.Info("submit.finish", zap.Bool("success", true))
	return res, nil
}

func (o *Orchestrator) runTool(ctx context.Context, req types.SubmissionRequest, host Host, toolPath, secret string, sink logsink.Sink, res *Result) error {
	label := res.Provider.Label()
	sink.Println("Submitting test results to " + label + " via TacoTruck CLI...")

	stderr := logsink.NewLineWriter(sink, func(s string) string { return driver.MaskSecret(s, secret) })
	inv := o.withHost(o.builder.Build(req, secret, toolPath), host, stderr)
	sink.Println("Executing: " + command.Redact(inv.Args))

	out, err := o.drv.Execute(ctx, inv)
	stderr.Flush()
	out.Stdout = driver.MaskSecret(out.Stdout, secret)
	res.Execution = &out
	if out.Stdout != "" {
		sink.Println(out.Stdout)
	}
	switch {
	case IsCancelled(err):
		sink.Println("✗ Test result submission was interrupted")
		return err
	case err != nil:
		sink.Println("✗ Error submitting test results: " + err.Error())
		return err
	case !out.Success:
		sink.Println(fmt.Sprintf("✗ TacoTruck CLI failed with exit code: %d", out.ExitCode))
		return fmt.Errorf("%w: tacotruck exited with code %d", ErrSubmissionFailed, out.ExitCode)
	}
	sink.Println("✓ Test results successfully submitted to " + label)
	return nil
}

func (o *Orchestrator) runHTTP(ctx context.Context, req types.SubmissionRequest, sink logsink.Sink, res *Result) error {
	b := o.factory.CreateFor(res.Provider, req.APIURL, req.CredentialID)
	label := b.ProviderName()
	if !b.ValidateConfiguration() {
		sink.Println("✗ " + label + " configuration is incomplete: API URL and credentials are required")
		return fmt.Errorf("%w: %s requires an API URL and a credential id", ErrInvalidRequest, label)
	}
	sink.Println("Submitting test results to " + label + "...")

	out, err := b.Submit(ctx, req.RunName, req.Project)
	switch {
	case IsCancelled(err):
		sink.Println("Test result submission was interrupted")
		return err
	case err != nil:
		sink.Println("Error submitting test results: " + err.Error())
		return err
	}
	res.HTTP = &out
	if !out.Success {
		sink.Println(fmt.Sprintf("Failed to submit test results. Status: %d, Response: %s", out.StatusCode, out.Body))
		return fmt.Errorf("%w: %w: status %d", ErrSubmissionFailed, backend.ErrNonSuccessStatus, out.StatusCode)
	}
	sink.Println("Test results submitted successfully to " + label)
	return nil
}

// locate resolves the launcher against the host PATH. An unresolved name is
// returned as is and fails at launch.
func (o *Orchestrator) locate(host Host) string {
	launcher := o.builder.Helper().Launcher
	if p := driver.LocateHelper(launcher, host.Env); p != "" {
		return p
	}
	return launcher
}

func (o *Orchestrator) withHost(inv driver.Invocation, host Host, stderr *logsink.LineWriter) driver.Invocation {
	inv.Dir = host.Dir
	inv.Env = host.Env
	if stderr != nil {
		inv.Stderr = stderr
	}
	return inv
}

// Probe reports the helper version as seen from host.
func (o *Orchestrator) Probe(ctx context.Context, host Host) (string, error) {
	tool := o.locate(host)
	return version.Probe(ctx, o.drv, o.withHost(o.builder.Version(tool), host, nil))
}
