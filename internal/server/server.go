// Package server exposes an engine over a small HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/engine"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// Options configures a Server.
type Options struct {
	Logger *zap.Logger
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// RequestTimeout bounds every request; 0 means 30s.
	RequestTimeout time.Duration
}

// Server routes API requests to one engine. Actions are serialized so two
// clients never interleave input.
type Server struct {
	engine  *engine.Engine
	logger  *zap.Logger
	timeout time.Duration
	mux     *http.ServeMux

	actionMu sync.Mutex
}

// New builds the API handler for e.
func New(e *engine.Engine, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:  e,
		logger:  logger.With(zap.String("component", "server")),
		timeout: opts.RequestTimeout,
		mux:     http.NewServeMux(),
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /windows", s.handleWindows)
	s.mux.HandleFunc("GET /monitors", s.handleMonitors)
	s.mux.HandleFunc("GET /tree", s.handleTree)
	s.mux.HandleFunc("POST /find", s.handleFind)
	s.mux.HandleFunc("POST /action", s.handleAction)
	s.mux.HandleFunc("POST /eval", s.handleEval)
	if opts.Metrics != nil {
		s.mux.Handle("GET /metrics", opts.Metrics)
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r.WithContext(ctx))
	s.logger.Debug("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("api listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// errorBody is the JSON form of a failed request.
type errorBody struct {
	OK    bool            `json:"ok"`
	Error *platform.Error `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var perr *platform.Error
	if !errors.As(err, &perr) {
		perr = platform.NewError(platform.CodeInternal, err.Error())
	}
	status := statusFor(perr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: perr})
}

func statusFor(code platform.ErrorCode) int {
	switch code {
	case platform.CodeInvalidArgument, platform.CodeInvalidSelector:
		return http.StatusBadRequest
	case platform.CodePermissionDenied:
		return http.StatusForbidden
	case platform.CodeElementNotFound:
		return http.StatusNotFound
	case platform.CodeElementDetached, platform.CodeElementNotVisible, platform.CodeElementNotEnabled,
		platform.CodeElementNotStable, platform.CodeElementObscured, platform.CodeScrollFailed:
		return http.StatusConflict
	case platform.CodeTimeout:
		return http.StatusGatewayTimeout
	case platform.CodeUnsupportedOperation, platform.CodeUnsupportedPlatform:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
