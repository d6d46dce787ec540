package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Config controls the behavior of ExecDriver.
type Config struct {
	// Bytes of standard output kept; older output is dropped. Default 1 MiB.
	StdoutLimitBytes int

	// Grace period between SIGTERM and SIGKILL on cancellation. Default 5s.
	TerminationGrace time.Duration

	// Diagnostic logger. Nil disables diagnostics.
	Logger *zap.Logger
}

// ExecDriver executes a local helper binary in its own process group.
type ExecDriver struct {
	cfg Config
	log *zap.Logger
}

// NewExecDriver creates a Driver that spawns real child processes.
func NewExecDriver(cfg Config) *ExecDriver {
	if cfg.StdoutLimitBytes <= 0 {
		cfg.StdoutLimitBytes = 1 << 20
	}
	if cfg.TerminationGrace <= 0 {
		cfg.TerminationGrace = 5 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &ExecDriver{cfg: cfg, log: log.Named("exec")}
}

func (d *ExecDriver) Execute(ctx context.Context, inv Invocation) (Outcome, error) {
	if len(inv.Args) == 0 {
		err := fmt.Errorf("%w: empty command", ErrProcessLaunchFailed)
		return failed(-1, "", err), err
	}
	if ctx.Err() != nil {
		err := cancelled(ctx)
		return failed(-1, "", err), err
	}

	env := MergeEnv(os.Environ(), inv.Env)
	resolved, err := resolveExecutable(inv.Path(), env)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrProcessLaunchFailed, err)
		d.log.Warn("exec.spawn_error", zap.String("argv0", inv.Path()), zap.Error(err))
		return failed(-1, "", err), err
	}

	cmd := exec.Command(resolved, inv.Args[1:]...)
	cmd.Dir = inv.Dir
	cmd.Env = env
	// Own process group so TERM/KILL reaches the helper's children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout := newStdoutTail(d.cfg.StdoutLimitBytes)
	cmd.Stdout = stdout
	// A descendant that left the group can hold stdout open after the child
	// exits; stop waiting for it after the grace period.
	cmd.WaitDelay = d.cfg.TerminationGrace
	if inv.Stderr != nil {
		cmd.Stderr = inv.Stderr
	}

	start := time.Now()
	d.log.Debug("exec.start",
		zap.String("argv0", resolved),
		zap.Int("args_len", len(inv.Args)-1),
		zap.String("dir", inv.Dir),
	)
	if err := cmd.Start(); err != nil {
		err = fmt.Errorf("%w: %v", ErrProcessLaunchFailed, err)
		d.log.Warn("exec.spawn_error", zap.String("argv0", resolved), zap.Error(err))
		return failed(-1, "", err), err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
	interrupted := false
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		interrupted = true
		waitErr = d.terminateProcessGroup(cmd.Process.Pid, done)
	}

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	kept, dropped := stdout.Snapshot()
	output := strings.TrimSpace(kept)

	d.log.Debug("exec.finish",
		zap.String("argv0", resolved),
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("cancelled", interrupted),
		zap.Int64("stdout_dropped", dropped),
		zap.Error(waitErr),
	)

	if interrupted {
		err := cancelled(ctx)
		return failed(exitCode, output, err), err
	}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(waitErr, exec.ErrWaitDelay):
		d.log.Warn("exec.output_held", zap.String("argv0", resolved), zap.Duration("wait_delay", d.cfg.TerminationGrace))
	case waitErr != nil && !errors.As(waitErr, &exitErr):
		// Output copy failed after the child exited; the exit code still stands.
		d.log.Warn("exec.wait_error", zap.Error(waitErr))
	}
	return completed(exitCode, output), nil
}

// terminateProcessGroup sends SIGTERM to the group, then SIGKILL if the
// child has not exited within the grace period. It returns the Wait result,
// which WaitDelay bounds even when a stray descendant keeps stdout open.
func (d *ExecDriver) terminateProcessGroup(pid int, done <-chan error) error {
	// Negative PID targets the process group.
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	timer := time.NewTimer(d.cfg.TerminationGrace)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
	return <-done
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrProcessCancelled, ctx.Err())
}

// resolveExecutable returns argv0 unchanged when it names a path, otherwise
// searches PATH of the merged environment.
func resolveExecutable(argv0 string, env []string) (string, error) {
	if argv0 == "" {
		return "", errors.New("empty executable name")
	}
	if strings.ContainsRune(argv0, filepath.Separator) {
		return argv0, nil
	}
	vars := make(map[string]string, 1)
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			vars["PATH"] = strings.TrimPrefix(kv, "PATH=")
		}
	}
	p := LocateHelper(argv0, vars)
	if p == "" {
		return "", fmt.Errorf("executable %q not found in PATH", argv0)
	}
	return p, nil
}

// stdoutTail keeps the newest limit bytes of the child's output and counts
// what it had to discard.
type stdoutTail struct {
	mu      sync.Mutex
	buf     []byte
	limit   int
	dropped int64
}

func newStdoutTail(limit int) *stdoutTail {
	return &stdoutTail{buf: make([]byte, 0, min(limit, 64<<10)), limit: limit}
}

func (t *stdoutTail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.dropped += int64(over)
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

// Snapshot returns the kept output and the number of bytes dropped.
func (t *stdoutTail) Snapshot() (string, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf), t.dropped
}
