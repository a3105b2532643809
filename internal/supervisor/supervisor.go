package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/internal/app"
	"storefront/internal/config"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure"
)

// ListenerFD is the descriptor a pre-forked worker inherits its listener on
const ListenerFD = 3

// HookSet returns the hooks a worker runs for its application
type HookSet func(a *app.Application) []app.Hook

// Supervisor starts and stops workers
type Supervisor struct {
	cfg    *config.Config
	logger *slog.Logger
	hooks  []HookSet

	// Executable and Args start a pre-forked worker; Args receives the
	// worker id. They default to this binary's "worker --id N".
	Executable string
	Args       func(id int) []string
}

// New creates a supervisor
func New(cfg *config.Config, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Supervisor{
		cfg:    cfg,
		logger: infrastructure.WithComponent(logger, "supervisor"),
		Args: func(id int) []string {
			return []string{"worker", "--id", strconv.Itoa(id)}
		},
	}
}

// OnWorkerStart registers hooks run by every worker after its application
// is built and before it serves.
func (s *Supervisor) OnWorkerStart(sets ...HookSet) {
	s.hooks = append(s.hooks, sets...)
}

// Run serves until ctx is cancelled or a worker fails
func (s *Supervisor) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return apperrors.NewConfigError("failed to listen", err).WithContext("addr", s.cfg.Addr())
	}
	defer ln.Close()

	s.logger.InfoContext(ctx, "supervisor listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("mode", s.cfg.Supervisor.Mode),
		slog.Int("workers", s.cfg.Supervisor.Workers))

	switch s.cfg.Supervisor.Mode {
	case config.ModePrefork:
		return s.runPrefork(ctx, ln)
	default:
		return s.RunWorker(ctx, 0, ln)
	}
}

// RunWorker builds, starts and serves one worker on ln
func (s *Supervisor) RunWorker(ctx context.Context, id int, ln net.Listener) error {
	logger := infrastructure.WorkerLogger(s.logger, id)

	var metrics *infrastructure.MetricsProviders
	if s.cfg.Metrics.Enabled {
		m, err := infrastructure.InitializeMetrics(ctx, logger)
		if err != nil {
			return apperrors.NewWorkerError("failed to initialize metrics", err).WithContext("worker_id", id)
		}
		metrics = m
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.Shutdown(shutdownCtx); err != nil {
				infrastructure.WithError(logger, err).Warn("metrics shutdown failed")
			}
		}()
	}

	a, err := app.NewApplication(ctx, app.Options{Config: s.cfg, Logger: logger, Metrics: metrics})
	if err != nil {
		return err
	}

	w := app.NewWorker(id, a)
	var hooks []app.Hook
	for _, set := range s.hooks {
		hooks = append(hooks, set(a)...)
	}
	if err := w.Start(ctx, hooks...); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(err, w.Stop(stopCtx))
	}
	return w.Serve(ctx, ln)
}

// RunInheritedWorker serves the listener inherited from a prefork parent
func (s *Supervisor) RunInheritedWorker(ctx context.Context, id int) error {
	f := os.NewFile(uintptr(ListenerFD), "storefront-listener")
	if f == nil {
		return apperrors.NewWorkerError("no inherited listener", nil).WithContext("worker_id", id)
	}
	ln, err := net.FileListener(f)
	f.Close()
	if err != nil {
		return apperrors.NewWorkerError("failed to use inherited listener", err).WithContext("worker_id", id)
	}
	defer ln.Close()
	return s.RunWorker(ctx, id, ln)
}

func (s *Supervisor) runPrefork(ctx context.Context, ln net.Listener) error {
	tcp, ok := ln.(*net.TCPListener)
	if !ok {
		return apperrors.NewConfigError("prefork needs a TCP listener", nil)
	}
	lnFile, err := tcp.File()
	if err != nil {
		return apperrors.NewWorkerError("failed to share listener", err)
	}
	defer lnFile.Close()

	exe := s.Executable
	if exe == "" {
		if exe, err = os.Executable(); err != nil {
			return apperrors.NewWorkerError("failed to locate executable", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for id := 0; id < s.cfg.Supervisor.Workers; id++ {
		id := id
		g.Go(func() error {
			return s.runChild(gctx, exe, id, lnFile)
		})
	}

	err = g.Wait()
	if err != nil && ctx.Err() == nil {
		infrastructure.WithError(s.logger, err).ErrorContext(ctx, "supervisor stopped after worker failure")
		return err
	}
	s.logger.InfoContext(ctx, "supervisor stopped")
	return nil
}

// runChild runs one worker process until it exits. Cancelling ctx sends it
// SIGTERM; it is killed if still running after the shutdown timeout.
func (s *Supervisor) runChild(ctx context.Context, exe string, id int, lnFile *os.File) error {
	cmd := exec.Command(exe, s.Args(id)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{lnFile}
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%d", config.WorkerIDEnv, id))

	if err := cmd.Start(); err != nil {
		return apperrors.NewWorkerError("failed to start worker process", err).WithContext("worker_id", id)
	}
	logger := s.logger.With(slog.Int("worker_id", id), slog.Int("child_pid", cmd.Process.Pid))
	logger.InfoContext(ctx, "worker process started")

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("exited unexpectedly")
		}
		infrastructure.WithError(logger, err).ErrorContext(ctx, "worker process exited")
		return apperrors.NewWorkerError("worker process exited", err).WithContext("worker_id", id)
	case <-ctx.Done():
	}

	logger.Info("stopping worker process")
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		infrastructure.WithError(logger, err).Warn("failed to signal worker process")
	}

	timer := time.NewTimer(s.cfg.Server.ShutdownTimeout + time.Second)
	defer timer.Stop()
	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			return apperrors.NewWorkerError("worker process wait failed", err).WithContext("worker_id", id)
		}
		logger.Info("worker process stopped")
		return nil
	case <-timer.C:
		logger.Warn("worker process did not stop; killing")
		_ = cmd.Process.Kill()
		<-done
		return apperrors.NewWorkerError("worker process killed after shutdown timeout", nil).WithContext("worker_id", id)
	}
}
