package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/timvw/pane-runner/internal/completion"
	"github.com/timvw/pane-runner/internal/guard"
	"github.com/timvw/pane-runner/internal/model"
	"github.com/timvw/pane-runner/internal/render"
)

const (
	// DefaultBatchWait caps how long each batch command may run.
	DefaultBatchWait = 30 * time.Second
	// PreviewLines is the number of captured lines kept per batch command.
	PreviewLines = 6
)

// Batch describes commands to run one after another in a session.
type Batch struct {
	Session  string
	Commands []string
	// Explanations are matched to Commands by position; missing entries
	// are empty.
	Explanations []string
	// MaxWait applies to each command separately.
	MaxWait      time.Duration
	PollInterval time.Duration
}

// RunBatch executes the commands sequentially, waiting for each to settle
// before sending the next. Blank commands are skipped but still count
// toward the total. The session lock is held for the whole batch.
func (r *Runner) RunBatch(ctx context.Context, b Batch) (model.BatchResult, error) {
	ctx, span := tracer.Start(ctx, "batch", trace.WithAttributes(
		attribute.String("session", b.Session),
		attribute.Int("batch.commands", len(b.Commands)),
	))
	defer span.End()

	result := model.BatchResult{
		TotalCommands: len(b.Commands),
		Commands:      []model.BatchCommandResult{},
	}

	release, err := r.Locks.Acquire(ctx, b.Session)
	if err != nil {
		return result, err
	}
	defer release()

	if err := r.ensureSession(ctx, b.Session); err != nil {
		return result, fmt.Errorf("create session: %w", err)
	}

	maxWait := b.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultBatchWait
	}

	for i, raw := range b.Commands {
		command := strings.TrimSpace(raw)
		if command == "" {
			continue
		}
		cr := model.BatchCommandResult{
			Index:       i + 1,
			Command:     command,
			Explanation: explanationAt(b.Explanations, i),
		}
		r.runBatchCommand(ctx, b.Session, &cr, maxWait, b.PollInterval)

		if cr.Success {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Commands = append(result.Commands, cr)

		if ctx.Err() != nil {
			break
		}
	}

	result.Summary = fmt.Sprintf("Batch executed %d commands: %d succeeded, %d failed",
		result.TotalCommands, result.Successful, result.Failed)
	span.SetAttributes(
		attribute.Int("batch.successful", result.Successful),
		attribute.Int("batch.failed", result.Failed),
	)
	r.Logger.Info("batch finished",
		zap.String("session", b.Session),
		zap.Int("total", result.TotalCommands),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (r *Runner) runBatchCommand(ctx context.Context, session string, cr *model.BatchCommandResult, maxWait, interval time.Duration) {
	fail := func(status, msg string) {
		cr.Success = false
		cr.Status = status
		cr.Error = msg
	}

	cmd, err := guard.Prepare(cr.Command)
	if err != nil {
		fail(model.StatusError, err.Error())
		return
	}

	start := r.now()
	if err := r.send(ctx, session, cmd); err != nil {
		fail(model.StatusError, err.Error())
		return
	}

	res, err := r.Detector.Wait(ctx, session, cmd, completion.Options{
		MaxWait:      maxWait,
		PollInterval: interval,
		CaptureLines: r.CaptureLines,
	})
	r.Metrics.RecordCompletion(ctx, res.Outcome.String())
	cr.OutputPreview = preview(res.Text, PreviewLines)

	switch {
	case err != nil && !isContextErr(err):
		r.recordBackendError(ctx, err)
		fail(model.StatusError, err.Error())
	case res.Outcome != completion.Stable:
		fail(model.StatusTimeout, render.TimeoutMessage)
		r.record(ctx, session, cmd, r.Render.Timeout(cmd, res.Text), r.now().Sub(start))
	default:
		parsed := r.analyze(ctx, res.Text, cmd)
		cr.Success = true
		cr.Status = model.StatusSuccess
		cr.Format = parsed.Metadata.FormatDetected
		cr.Summary = parsed.Summary
		r.record(ctx, session, cmd, r.Render.Analyzed(parsed, cmd, 0), r.now().Sub(start))
	}
}

func explanationAt(explanations []string, i int) string {
	if i < len(explanations) {
		return explanations[i]
	}
	return ""
}
