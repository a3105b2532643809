// Package warmup sends one synthetic request through a handler so that
// lazily initialised state is built before real traffic arrives.
package warmup

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"time"

	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure"
)

// Request describes the synthetic request
type Request struct {
	Method     string
	Path       string
	RemoteAddr string
	ServerPort int

	// ServerName is called once, while the request is being built
	ServerName func() (string, error)
}

// Result reports what the handler did with the request
type Result struct {
	Status   int
	Bytes    int64
	Host     string
	Duration time.Duration
}

// Options carries optional collaborators
type Options struct {
	Logger  *slog.Logger
	Metrics *infrastructure.BootstrapMetrics
}

// Build creates the synthetic *http.Request
func (req Request) Build(ctx context.Context) (*http.Request, error) {
	if req.ServerName == nil {
		return nil, apperrors.NewWarmupError("no server name source", nil)
	}
	name, err := req.ServerName()
	if err != nil {
		return nil, apperrors.NewWarmupError("failed to resolve server name", err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	host := name
	if req.ServerPort != 0 && req.ServerPort != 80 {
		host = net.JoinHostPort(name, strconv.Itoa(req.ServerPort))
	}

	u := &url.URL{Scheme: "http", Host: host, Path: req.Path}
	r, err := http.NewRequestWithContext(ctx, method, u.String(), http.NoBody)
	if err != nil {
		return nil, apperrors.NewWarmupError("failed to build request", err).
			WithContext("path", req.Path)
	}
	r.RequestURI = u.RequestURI()
	r.RemoteAddr = net.JoinHostPort(req.RemoteAddr, "0")
	r.Header.Set("User-Agent", "storefront-warmup")
	return r, nil
}

// Run builds the request and serves it through h. A panic in h, a failure
// to build the request, or a 5xx response is returned as a WARMUP error.
func Run(ctx context.Context, h http.Handler, req Request, opts Options) (res Result, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	ctx = infrastructure.EnsureTraceID(ctx)
	start := time.Now()

	defer func() {
		res.Duration = time.Since(start)
		opts.Metrics.RecordWarmup(ctx, req.Path, res.Duration, err == nil)
		if err != nil {
			logger.ErrorContext(ctx, "warm-up request failed",
				slog.String("path", req.Path),
				slog.String("error", err.Error()))
			return
		}
		logger.InfoContext(ctx, "warm-up request finished",
			slog.String("path", req.Path),
			slog.String("host", res.Host),
			slog.Int("status", res.Status),
			slog.Duration("duration", res.Duration))
	}()

	r, err := req.Build(ctx)
	if err != nil {
		return res, err
	}
	res.Host = r.Host

	sink := &discardWriter{header: make(http.Header)}
	if err := serve(h, sink, r); err != nil {
		return res, err
	}

	res.Status = sink.status()
	res.Bytes = sink.written
	if res.Status >= http.StatusInternalServerError {
		return res, apperrors.NewWarmupError(
			fmt.Sprintf("%s %s answered %d", r.Method, req.Path, res.Status), nil).
			WithContext("status", res.Status)
	}
	return res, nil
}

func serve(h http.Handler, w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			err = apperrors.NewWarmupError(fmt.Sprintf("handler panicked: %v", rvr), nil).
				WithContext("stack", string(debug.Stack()))
		}
	}()
	h.ServeHTTP(w, r)
	return nil
}

// discardWriter accepts and drops the response body
type discardWriter struct {
	header  http.Header
	code    int
	written int64
}

func (w *discardWriter) Header() http.Header {
	return w.header
}

func (w *discardWriter) WriteHeader(code int) {
	if w.code == 0 {
		w.code = code
	}
}

func (w *discardWriter) Write(b []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}
	w.written += int64(len(b))
	return len(b), nil
}

func (w *discardWriter) status() int {
	if w.code == 0 {
		return http.StatusOK
	}
	return w.code
}
