// Package runner drives one command through the session backend, the
// completion detector and the output parser, and wraps the outcome in a
// response envelope.
//
// The daemon, the one-shot CLI commands and the watch TUI all go through a
// Runner, so the three surfaces agree on validation, waiting and analysis.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/timvw/pane-runner/internal/completion"
	"github.com/timvw/pane-runner/internal/guard"
	"github.com/timvw/pane-runner/internal/model"
	"github.com/timvw/pane-runner/internal/mux"
	protel "github.com/timvw/pane-runner/internal/otel"
	"github.com/timvw/pane-runner/internal/parser"
	"github.com/timvw/pane-runner/internal/render"
)

var tracer = otel.Tracer(protel.ServiceName)

// sessionStartDelay lets a freshly created shell print its first prompt
// before anything is typed into it.
const sessionStartDelay = 100 * time.Millisecond

// Recorder persists analyzed executions. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e model.Execution) error
}

// Runner executes commands in multiplexer sessions and analyzes their output.
type Runner struct {
	Backend  mux.Backend
	Detector *completion.Detector
	Locks    *completion.Locks
	Parsers  *parser.Registry
	Render   *render.Renderer
	Cache    *AnalysisCache  // nil disables caching
	History  Recorder        // nil disables history
	Metrics  *protel.Metrics // OTEL metric counters; nil-safe
	Logger   *zap.Logger

	// CaptureLines is the scrollback depth used by waits and captures.
	CaptureLines int
	// Now and Sleep are replaceable for tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Runner with default collaborators for backend.
func New(backend mux.Backend, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Backend:      backend,
		Detector:     completion.NewDetector(backend, logger.Named("completion")),
		Locks:        completion.NewLocks(),
		Parsers:      parser.NewRegistry(),
		Render:       render.New(render.DarkTheme()),
		Logger:       logger,
		CaptureLines: completion.DefaultCaptureLines,
		Now:          time.Now,
		Sleep:        sleep,
	}
}

// Exec describes one command to run and wait for.
type Exec struct {
	Session string
	Command string
	// CreateSession starts the session first when it does not exist.
	CreateSession bool
	MaxWait       time.Duration
	PollInterval  time.Duration
}

// Execute types a command into the session without waiting for it.
// The session is created when missing.
func (r *Runner) Execute(ctx context.Context, session, command string) model.Response {
	ctx, span := tracer.Start(ctx, "execute", trace.WithAttributes(
		attribute.String("session", session),
	))
	defer span.End()

	cmd, err := guard.Prepare(command)
	if err != nil {
		return model.Response{Success: false, Error: err.Error()}
	}

	release, err := r.Locks.Acquire(ctx, session)
	if err != nil {
		return model.Response{Success: false, Error: err.Error()}
	}
	defer release()

	if err := r.ensureSession(ctx, session); err != nil {
		return model.Response{Success: false, Error: err.Error()}
	}
	if err := r.send(ctx, session, cmd); err != nil {
		return model.Response{Success: false, Error: err.Error()}
	}

	r.Logger.Info("command sent", zap.String("session", session), zap.String("command", cmd))
	return model.Response{Success: true, Output: "✓ Executed: " + cmd}
}

// Run sends a command, waits for the session to settle on a prompt and
// analyzes the captured text.
func (r *Runner) Run(ctx context.Context, e Exec) model.Response {
	ctx, span := tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("session", e.Session),
		attribute.Int64("max_wait_ms", e.MaxWait.Milliseconds()),
	))
	defer span.End()

	cmd, err := guard.Prepare(e.Command)
	if err != nil {
		return r.Render.Error(e.Command, err.Error())
	}

	release, err := r.Locks.Acquire(ctx, e.Session)
	if err != nil {
		return r.Render.Error(cmd, err.Error())
	}
	defer release()

	if e.CreateSession {
		if err := r.ensureSession(ctx, e.Session); err != nil {
			return r.Render.Error(cmd, fmt.Sprintf("Failed to create session: %v", err))
		}
	}

	start := r.now()
	if err := r.send(ctx, e.Session, cmd); err != nil {
		return r.Render.Error(cmd, err.Error())
	}

	res, err := r.Detector.Wait(ctx, e.Session, cmd, completion.Options{
		MaxWait:      e.MaxWait,
		PollInterval: e.PollInterval,
		CaptureLines: r.CaptureLines,
	})
	duration := r.now().Sub(start)
	r.Metrics.RecordCompletion(ctx, res.Outcome.String())
	span.SetAttributes(
		attribute.String("completion.outcome", res.Outcome.String()),
		attribute.Int("completion.polls", res.Polls),
	)

	var resp model.Response
	switch {
	case err != nil && !isContextErr(err):
		r.recordBackendError(ctx, err)
		r.Logger.Warn("wait aborted", zap.String("session", e.Session), zap.Error(err))
		resp = r.Render.Error(cmd, err.Error())
	case res.Outcome == completion.Stable:
		parsed := r.analyze(ctx, res.Text, cmd)
		ms := duration.Milliseconds()
		parsed.Metadata.DurationMs = &ms
		resp = r.Render.Analyzed(parsed, cmd, 0)
	default:
		r.Logger.Info("command did not settle",
			zap.String("session", e.Session),
			zap.Duration("waited", duration),
			zap.Error(err))
		resp = r.Render.Timeout(cmd, res.Text)
		ms := duration.Milliseconds()
		resp.Metadata.DurationMs = &ms
	}

	r.record(ctx, e.Session, cmd, resp, duration)
	r.Logger.Info("command finished",
		zap.String("session", e.Session),
		zap.String("command", cmd),
		zap.String("status", resp.Status),
		zap.String("format", resp.Metadata.FormatDetected),
		zap.Duration("duration", duration))
	return resp
}

// WaitForPrompt waits for the session to settle without sending anything.
// The command, when given, is only used for echo detection.
func (r *Runner) WaitForPrompt(ctx context.Context, session, command string, maxWait, interval time.Duration) model.Response {
	ctx, span := tracer.Start(ctx, "wait_for_prompt", trace.WithAttributes(
		attribute.String("session", session),
	))
	defer span.End()

	release, err := r.Locks.Acquire(ctx, session)
	if err != nil {
		return model.Response{Success: false, Error: err.Error()}
	}
	defer release()

	res, err := r.Detector.Wait(ctx, session, command, completion.Options{
		MaxWait:      maxWait,
		PollInterval: interval,
		CaptureLines: r.CaptureLines,
	})
	r.Metrics.RecordCompletion(ctx, res.Outcome.String())

	if err != nil && !isContextErr(err) {
		r.recordBackendError(ctx, err)
		return model.Response{Success: false, Output: res.Text, Error: err.Error(), Exists: model.BoolPtr(false)}
	}
	if res.Outcome == completion.Stable {
		return model.Response{Success: true, Output: res.Text, Exists: model.BoolPtr(true)}
	}
	return model.Response{Success: false, Output: res.Text, Error: render.TimeoutMessage, Exists: model.BoolPtr(false)}
}

// Capture returns the raw text of the session's last lines.
func (r *Runner) Capture(ctx context.Context, session string, lines int) model.Response {
	text, err := r.capture(ctx, session, lines)
	if err != nil {
		return model.Response{Success: false, Error: err.Error()}
	}
	return model.Response{Success: true, Output: text}
}

// CaptureAnalyzed captures the session and analyzes the text as the output
// of command. Unchanged text within the cache TTL reuses the previous
// analysis.
func (r *Runner) CaptureAnalyzed(ctx context.Context, session, command string, lines int) model.Response {
	ctx, span := tracer.Start(ctx, "capture_analyzed", trace.WithAttributes(
		attribute.String("session", session),
	))
	defer span.End()

	text, err := r.capture(ctx, session, lines)
	if err != nil {
		return r.Render.Error(command, "Failed to capture output: "+err.Error())
	}

	if parsed, ok := r.Cache.Lookup(session, command, text); ok {
		r.Metrics.RecordCacheHit(ctx)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return r.Render.Analyzed(parsed, command, 0)
	}
	if r.Cache != nil {
		r.Metrics.RecordCacheMiss(ctx)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	parsed := r.analyze(ctx, text, command)
	r.Cache.Store(session, command, text, parsed)
	return r.Render.Analyzed(parsed, command, 0)
}

// Analyze classifies and extracts text without touching a session.
func (r *Runner) Analyze(ctx context.Context, text, command string) model.ParsedOutput {
	return r.analyze(ctx, text, command)
}

func (r *Runner) analyze(ctx context.Context, text, command string) model.ParsedOutput {
	parsed := r.Parsers.Parse(text, command)
	r.Metrics.RecordAnalysis(ctx, parsed.Metadata.FormatDetected, parsed.Findings)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("format", parsed.Metadata.FormatDetected),
		attribute.Int("findings", len(parsed.Findings)),
	)
	return parsed
}

func (r *Runner) capture(ctx context.Context, session string, lines int) (string, error) {
	if lines <= 0 {
		lines = r.CaptureLines
	}
	text, err := r.Backend.CaptureText(ctx, session, lines)
	if err != nil {
		r.recordBackendError(ctx, err)
		return "", err
	}
	return text, nil
}

// ensureSession creates the session when it does not exist yet.
func (r *Runner) ensureSession(ctx context.Context, session string) error {
	if r.Backend.Exists(ctx, session) {
		return nil
	}
	r.Logger.Info("creating session", zap.String("session", session))
	if err := r.Backend.Create(ctx, session); err != nil {
		r.recordBackendError(ctx, err)
		return err
	}
	return r.sleep(ctx, sessionStartDelay)
}

func (r *Runner) send(ctx context.Context, session, cmd string) error {
	if err := r.Backend.SendCommand(ctx, session, cmd); err != nil {
		r.recordBackendError(ctx, err)
		return err
	}
	r.Cache.Invalidate(session)
	return nil
}

func (r *Runner) record(ctx context.Context, session, command string, resp model.Response, d time.Duration) {
	if r.History == nil || resp.Analysis == nil {
		return
	}
	a := resp.Analysis
	e := model.Execution{
		ID:            uuid.NewString(),
		Session:       session,
		Command:       command,
		Status:        a.Status,
		Format:        a.Metadata.FormatDetected,
		Summary:       a.Summary,
		FindingCount:  len(a.Findings),
		CriticalCount: model.CountImportance(a.Findings, model.Critical),
		LineCount:     a.Metadata.LineCount,
		ByteCount:     a.Metadata.ByteCount,
		DurationMs:    d.Milliseconds(),
		CreatedAt:     r.now().UTC(),
	}
	if err := r.History.Record(ctx, e); err != nil {
		r.Logger.Warn("failed to record history", zap.String("command", command), zap.Error(err))
	}
}

func (r *Runner) recordBackendError(ctx context.Context, err error) {
	var me *mux.Error
	if errors.As(err, &me) {
		r.Metrics.RecordBackendError(ctx, me.Op)
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return sleep(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// preview returns the first n lines of text.
func preview(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
