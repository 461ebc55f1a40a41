// Package daemon serves the runner over a unix stream socket: one JSON
// request in, one JSON response out, per connection.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/timvw/pane-runner/internal/history"
	"github.com/timvw/pane-runner/internal/model"
	protel "github.com/timvw/pane-runner/internal/otel"
	"github.com/timvw/pane-runner/internal/runner"
)

const (
	defaultBufferSize = 8 * 1024
	// ioTimeout bounds reading a request and writing its response. It does
	// not limit how long an action may wait for a command.
	ioTimeout = 30 * time.Second
)

var tracer = otel.Tracer(protel.ServiceName)

// HistoryReader serves the history action. *history.Store implements it.
type HistoryReader interface {
	Recent(ctx context.Context, q history.Query) ([]model.Execution, error)
}

// Options configures a Server.
type Options struct {
	SocketPath     string
	DefaultSession string
	// BufferSize is the largest accepted request, in bytes.
	BufferSize int
	Runner     *runner.Runner
	History    HistoryReader   // nil disables the history action
	Metrics    *protel.Metrics // nil-safe
	Logger     *zap.Logger
}

// Server accepts connections on a unix socket and dispatches actions.
type Server struct {
	opts   Options
	table  map[string]Action
	logger *zap.Logger

	mu       sync.Mutex
	listener *net.UnixListener
	closed   bool
}

// New returns a Server. Listen must be called before Serve.
func New(opts Options) *Server {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.DefaultSession == "" {
		opts.DefaultSession = "pane_runner"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{opts: opts, logger: opts.Logger}
	s.table = s.actions()
	return s
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.opts.SocketPath
}

// Listen binds the socket. The parent directory is created with mode 0700,
// a stale socket file is removed and the new socket is restricted to 0600.
func (s *Server) Listen() error {
	if s.opts.Runner == nil {
		return fmt.Errorf("runner is required")
	}
	path := s.opts.SocketPath
	if path == "" {
		return fmt.Errorf("socket path is required")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	// Shared directories such as /tmp keep their own mode.
	if dir != os.TempDir() && dir != "/tmp" {
		if err := os.Chmod(dir, 0o700); err != nil {
			return fmt.Errorf("chmod socket dir: %w", err)
		}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return fmt.Errorf("resolve unix addr: %w", err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fmt.Errorf("listen unix: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.closed = false
	s.mu.Unlock()

	s.logger.Info("listening", zap.String("socket", path), zap.Strings("actions", s.ActionNames()))
	return nil
}

// Serve accepts connections until ctx is cancelled, then waits for
// in-flight requests to finish and removes the socket file. Cancelling ctx
// also cancels waits in progress.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return fmt.Errorf("server is not listening")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		s.close()
		return nil
	})
	g.Go(func() error {
		for {
			conn, err := ln.AcceptUnix()
			if err != nil {
				if s.isClosed() {
					return nil
				}
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					continue
				}
				return fmt.Errorf("accept: %w", err)
			}
			g.Go(func() error {
				s.handleConn(gctx, conn)
				return nil
			})
		}
	})

	err := g.Wait()
	s.close()
	if rmErr := os.Remove(s.opts.SocketPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		s.logger.Warn("failed to remove socket", zap.Error(rmErr))
	}
	s.logger.Info("stopped")
	return err
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *Server) handleConn(ctx context.Context, conn *net.UnixConn) {
	defer conn.Close()

	id := uuid.NewString()
	log := s.logger.With(zap.String("request_id", id))

	_ = conn.SetReadDeadline(time.Now().Add(ioTimeout))
	req, errMsg := s.readRequest(conn)

	var resp model.Response
	if errMsg != "" {
		log.Warn("bad request", zap.String("error", errMsg))
		resp = failure(errMsg)
	} else {
		resp = s.Dispatch(ctx, id, req)
	}

	// Waiting actions may outlive the read deadline; the write gets its own.
	_ = conn.SetWriteDeadline(time.Now().Add(ioTimeout))
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.Warn("failed to write response", zap.Error(err))
	}
}

// readRequest decodes one request of at most BufferSize bytes. A non-empty
// message means the request was rejected.
func (s *Server) readRequest(r io.Reader) (model.Request, string) {
	lr := &io.LimitedReader{R: r, N: int64(s.opts.BufferSize) + 1}
	var req model.Request
	err := json.NewDecoder(lr).Decode(&req)
	switch {
	case lr.N <= 0:
		return req, "Request too large"
	case errors.Is(err, io.EOF):
		return req, "Empty request received"
	case err != nil:
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return req, "Connection timeout"
		}
		return req, fmt.Sprintf("Invalid JSON: %v", err)
	}
	return req, ""
}

// Dispatch runs one request through the action table. Handler panics are
// converted to error responses.
func (s *Server) Dispatch(ctx context.Context, requestID string, req model.Request) (resp model.Response) {
	ctx, span := tracer.Start(ctx, "request", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("action", req.Action),
	))
	defer span.End()

	log := s.logger.With(zap.String("request_id", requestID), zap.String("action", req.Action))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("action panicked", zap.Any("panic", r), zap.Stack("stack"))
			span.SetStatus(codes.Error, "panic")
			resp = failure(fmt.Sprintf("Internal error: %v", r))
		}
		s.opts.Metrics.RecordRequest(ctx, req.Action, resp.Success)
		span.SetAttributes(attribute.Bool("success", resp.Success))
		log.Info("request handled",
			zap.Bool("success", resp.Success),
			zap.Duration("duration", time.Since(start)))
	}()

	a, ok := s.table[req.Action]
	if !ok {
		return failure("Unknown action: " + req.Action)
	}
	return a.Handle(ctx, req.Data)
}
