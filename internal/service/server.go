// Package service exposes the submission pipeline over gRPC so a build host
// in another process can drive it.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/backend"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/logsink"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/submit"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/types"
)

// SubmissionServer adapts an Orchestrator to SubmissionService.
type SubmissionServer struct {
	orch *submit.Orchestrator
	// Defaults fills request fields the caller leaves empty.
	defaults types.SubmissionRequest
	// sink, if set, also receives every trace line.
	sink logsink.Sink
	log  *zap.Logger
}

type ServerOptions struct {
	Defaults types.SubmissionRequest
	Sink     logsink.Sink
	Logger   *zap.Logger
}

func NewSubmissionServer(orch *submit.Orchestrator, opts ServerOptions) *SubmissionServer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &SubmissionServer{orch: orch, defaults: opts.Defaults, sink: opts.Sink, log: log.Named("rpc")}
}

// Submit runs one pipeline. Rejected submissions come back as a response
// with success=false; only cancellation and malformed requests are RPC
// errors.
func (s *SubmissionServer) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, host, err := s.decode(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rec := logsink.NewRecorder(s.sink)
	host.Sink = rec

	res, runErr := s.orch.Run(ctx, req, host)
	switch {
	case submit.IsCancelled(runErr):
		return nil, status.Error(codes.Canceled, runErr.Error())
	case errors.Is(runErr, submit.ErrInvalidRequest), errors.Is(runErr, backend.ErrUnknownProvider):
		return nil, status.Error(codes.InvalidArgument, runErr.Error())
	}
	s.log.Debug("rpc.submit", zap.String("invocation_id", res.InvocationID), zap.Bool("success", res.Success))
	return encodeResult(res, runErr, rec.Lines())
}

// Probe reports the helper version visible to the daemon.
func (s *SubmissionServer) Probe(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	v, err := s.orch.Probe(ctx, submit.Host{})
	if err != nil {
		if submit.IsCancelled(err) {
			return nil, status.Error(codes.Canceled, err.Error())
		}
		return structpb.NewStruct(map[string]any{"available": false, "error": err.Error()})
	}
	return structpb.NewStruct(map[string]any{"available": true, "version": v})
}

func (s *SubmissionServer) decode(in *structpb.Struct) (types.SubmissionRequest, submit.Host, error) {
	req := s.defaults
	var host submit.Host
	fields := in.GetFields()

	strs := map[string]*string{
		"provider":       &req.Provider,
		"results_path":   &req.ResultsPath,
		"project":        &req.Project,
		"handle":         &req.Handle,
		"run_name":       &req.RunName,
		"api_url":        &req.APIURL,
		"credentials_id": &req.CredentialID,
		"workspace":      &host.Dir,
	}
	for key, dst := range strs {
		v, ok, err := stringField(fields, key)
		if err != nil {
			return req, host, err
		}
		if ok {
			*dst = v
		}
	}
	mode, ok, err := stringField(fields, "mode")
	if err != nil {
		return req, host, err
	}
	if ok {
		req.Mode = types.Mode(mode)
	}

	if v, ok := fields["env"]; ok {
		env := v.GetStructValue()
		if env == nil {
			return req, host, errors.New("env must be an object")
		}
		host.Env = make(map[string]string, len(env.GetFields()))
		for k, ev := range env.GetFields() {
			sv, isString := ev.GetKind().(*structpb.Value_StringValue)
			if !isString {
				return req, host, fmt.Errorf("env.%s must be a string", k)
			}
			host.Env[k] = sv.StringValue
		}
	}
	return req, host, nil
}

func stringField(fields map[string]*structpb.Value, key string) (string, bool, error) {
	v, ok := fields[key]
	if !ok {
		return "", false, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue, true, nil
	case *structpb.Value_NullValue:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("%s must be a string", key)
	}
}

func encodeResult(res submit.Result, runErr error, trace []string) (*structpb.Struct, error) {
	lines := make([]any, len(trace))
	for i, l := range trace {
		lines[i] = l
	}
	m := map[string]any{
		"invocation_id": res.InvocationID,
		"success":       res.Success,
		"mode":          string(res.Mode),
		"provider":      res.Provider.String(),
		"trace":         lines,
	}
	if res.Version != "" {
		m["version"] = res.Version
	}
	if res.Execution != nil {
		m["exit_code"] = res.Execution.ExitCode
		m["output"] = res.Execution.Stdout
	}
	if res.HTTP != nil {
		m["status_code"] = res.HTTP.StatusCode
		m["output"] = res.HTTP.Body
	}
	if runErr != nil {
		m["error"] = runErr.Error()
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
