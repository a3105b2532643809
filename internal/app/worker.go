package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure"
	"storefront/internal/middleware"
)

// RuntimeSampleInterval is how often a worker records runtime metrics
const RuntimeSampleInterval = 15 * time.Second

// Hook runs once in a worker before it serves
type Hook struct {
	Name string
	Run  func(ctx context.Context, w *Worker) error
}

// Worker serves one Application
type Worker struct {
	ID     int
	PID    int
	App    *Application
	Logger *slog.Logger

	mu          sync.Mutex
	middlewares []func(http.Handler) http.Handler
	onShutdown  []func(context.Context) error
	server      *http.Server
	runtime     *infrastructure.RuntimeCollector

	started  atomic.Bool
	stopOnce sync.Once
	stopErr  error
}

// NewWorker creates a worker for app
func NewWorker(id int, app *Application) *Worker {
	w := &Worker{
		ID:     id,
		PID:    os.Getpid(),
		App:    app,
		Logger: infrastructure.WorkerLogger(app.Logger, id),
	}

	if app.Metrics != nil {
		collector, err := infrastructure.NewRuntimeCollector(app.Metrics.Meter, id, RuntimeSampleInterval)
		if err != nil {
			w.Logger.Warn("runtime metrics disabled", slog.String("error", err.Error()))
		} else {
			w.runtime = collector
		}
	}
	return w
}

// Use adds middleware around the worker's handler. The first middleware
// added is the outermost. It has no effect once Serve has started.
func (w *Worker) Use(mw ...func(http.Handler) http.Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.server != nil {
		w.Logger.Warn("middleware added after serve started is ignored")
		return
	}
	w.middlewares = append(w.middlewares, mw...)
}

// OnShutdown registers fn to run when the worker stops. Callbacks run in
// reverse registration order.
func (w *Worker) OnShutdown(fn func(context.Context) error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onShutdown = append(w.onShutdown, fn)
}

// Start runs hooks once, in order. The first failing hook aborts the
// worker and later hooks do not run.
func (w *Worker) Start(ctx context.Context, hooks ...Hook) error {
	if !w.started.CompareAndSwap(false, true) {
		return apperrors.NewWorkerError("worker already started", nil).WithContext("worker_id", w.ID)
	}

	var bm *infrastructure.BootstrapMetrics
	if w.App.Metrics != nil {
		bm = w.App.Metrics.Metrics
	}

	begin := time.Now()
	for _, hook := range hooks {
		w.Logger.DebugContext(ctx, "running worker start hook", slog.String("hook", hook.Name))
		if err := hook.Run(ctx, w); err != nil {
			bm.RecordWorkerStart(ctx, w.ID, time.Since(begin), false)
			return apperrors.NewWorkerError(fmt.Sprintf("worker start hook %q failed", hook.Name), err).
				WithContext("worker_id", w.ID).
				WithContext("pid", w.PID)
		}
	}
	bm.RecordWorkerStart(ctx, w.ID, time.Since(begin), true)

	w.Logger.InfoContext(ctx, "worker started",
		slog.Int("hooks", len(hooks)),
		slog.Duration("duration", time.Since(begin)))
	return nil
}

// Handler builds the worker's handler chain. Middleware added with Use runs
// first, inside the router, so it sees the matched route pattern.
func (w *Worker) Handler() http.Handler {
	cfg := w.App.Config

	w.mu.Lock()
	mws := append([]func(http.Handler) http.Handler(nil), w.middlewares...)
	w.mu.Unlock()

	r := chi.NewRouter()
	r.Use(mws...)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(w.Logger))
	r.Use(middleware.Recoverer(w.Logger))
	r.Use(middleware.SecurityHeaders)
	if cfg.RateLimit.Enabled {
		r.Use(middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, w.Logger).Handler)
	}
	if cfg.Metrics.Enabled && w.App.Metrics != nil {
		r.Handle(cfg.Metrics.Path, w.App.Metrics.PrometheusHTTP)
	}
	r.Handle(cfg.Bootstrap.HealthPath, w.App.Handler)
	r.Handle("/*", w.App.Handler)
	return r
}

// Serve accepts connections on ln until ctx is cancelled, then stops
// gracefully. Start must have been called.
func (w *Worker) Serve(ctx context.Context, ln net.Listener) error {
	if !w.started.Load() {
		return apperrors.NewWorkerError("worker served before start", nil).WithContext("worker_id", w.ID)
	}

	cfg := w.App.Config.Server
	srv := &http.Server{
		Handler:        w.Handler(),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(w.Logger.Handler(), slog.LevelWarn),
	}

	w.mu.Lock()
	if w.server != nil {
		w.mu.Unlock()
		return apperrors.NewWorkerError("worker already serving", nil).WithContext("worker_id", w.ID)
	}
	w.server = srv
	w.mu.Unlock()

	if w.runtime != nil {
		go w.runtime.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	w.Logger.InfoContext(ctx, "worker serving", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return errors.Join(apperrors.NewWorkerError("server failed", err), w.Stop(stopCtx))
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return w.Stop(stopCtx)
}

// Stop shuts the server down and runs the shutdown callbacks. Only the
// first call does any work; later calls return its result.
func (w *Worker) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() {
		w.Logger.InfoContext(ctx, "worker stopping")

		w.mu.Lock()
		srv := w.server
		callbacks := append([]func(context.Context) error(nil), w.onShutdown...)
		w.mu.Unlock()

		var errs []error
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown: %w", err))
			}
		}
		if w.runtime != nil {
			w.runtime.Stop()
		}
		for i := len(callbacks) - 1; i >= 0; i-- {
			if err := callbacks[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}

		w.stopErr = errors.Join(errs...)
		if w.stopErr != nil {
			infrastructure.WithError(w.Logger, w.stopErr).ErrorContext(ctx, "worker stopped with errors")
			return
		}
		w.Logger.InfoContext(ctx, "worker stopped")
	})
	return w.stopErr
}
