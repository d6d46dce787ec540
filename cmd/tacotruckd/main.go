package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/app"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/config"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/logger"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/logsink"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/service"
)

const defaultSocket = "/var/run/tacotruck/submission.grpc"

func main() {
	var (
		sock    string
		cfgFile string
		verbose bool
		trace   bool
	)
	cmd := &cobra.Command{
		Use:           "tacotruckd",
		Short:         "Serve test result submissions over gRPC on a unix socket",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), sock, cfgFile, verbose, trace)
		},
	}
	cmd.Flags().StringVar(&sock, "socket", defaultSocket, "unix socket path")
	cmd.Flags().StringVar(&cfgFile, "config", "", "YAML config file")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug diagnostics")
	cmd.Flags().BoolVar(&trace, "trace", false, "echo every submission trace line to stdout")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "tacotruckd:", err)
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, sock, cfgFile string, verbose, trace bool) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	orch, err := app.NewOrchestrator(cfg, app.Options{Logger: log})
	if err != nil {
		return err
	}
	opts := service.ServerOptions{Defaults: cfg.Submission, Logger: log}
	if trace {
		opts.Sink = logsink.New(os.Stdout)
	}

	// Remove a stale socket left by a previous run.
	if err := os.MkdirAll(filepath.Dir(sock), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if _, err := os.Stat(sock); err == nil {
		_ = os.Remove(sock)
	}
	l, err := net.Listen("unix", sock)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer l.Close()
	_ = os.Chmod(sock, 0o766)

	grpcServer := grpc.NewServer()
	service.RegisterSubmissionServer(grpcServer, service.NewSubmissionServer(orch, opts))
	// Enable server reflection for grpcurl and other tools
	reflection.Register(grpcServer)

	log.Info("tacotruckd listening", zap.String("socket", sock))

	errc := make(chan error, 1)
	go func() { errc <- grpcServer.Serve(l) }()
	select {
	case <-ctx.Done():
		log.Info("shutting down")
		grpcServer.GracefulStop()
		return nil
	case err := <-errc:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	}
}
