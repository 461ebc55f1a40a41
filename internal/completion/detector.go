// Package completion decides when a command typed into a session has
// finished, using only what the session renders.
//
// There is no exit status to observe: the command runs inside an interactive
// shell. A command counts as done when the captured text has stopped changing
// for several polls and the last line looks like an idle shell prompt.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/timvw/pane-runner/internal/mux"
)

const (
	// DefaultMaxWait applies when Options.MaxWait is zero.
	DefaultMaxWait = 600 * time.Second
	// MaxWaitCap is the upper bound for any wait (3,600,000 ms).
	MaxWaitCap = time.Hour
	// DefaultPollInterval applies when Options.PollInterval is zero.
	DefaultPollInterval = 500 * time.Millisecond
	// MinPollInterval is the lower bound for the poll interval.
	MinPollInterval = 100 * time.Millisecond
	// StableThreshold is the number of consecutive identical captures
	// required before completion.
	StableThreshold = 3
	// DefaultCaptureLines is the scrollback depth inspected on every poll.
	DefaultCaptureLines = 100
)

// Outcome is the terminal state of a wait.
type Outcome int

const (
	TimedOut Outcome = iota
	Stable
)

func (o Outcome) String() string {
	if o == Stable {
		return "stable"
	}
	return "timed_out"
}

// Options tunes a single wait. Zero values select the defaults.
type Options struct {
	MaxWait         time.Duration
	PollInterval    time.Duration
	StableThreshold int
	CaptureLines    int
}

// Normalize fills defaults and applies the clamps.
func (o Options) Normalize() Options {
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultMaxWait
	}
	if o.MaxWait > MaxWaitCap {
		o.MaxWait = MaxWaitCap
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.PollInterval < MinPollInterval {
		o.PollInterval = MinPollInterval
	}
	if o.StableThreshold <= 0 {
		o.StableThreshold = StableThreshold
	}
	if o.CaptureLines <= 0 {
		o.CaptureLines = DefaultCaptureLines
	}
	return o
}

// Result is returned exactly once per wait.
//
// For Stable, Text is the full final capture. For TimedOut, Text is the last
// distinct capture observed (possibly empty).
type Result struct {
	Outcome Outcome
	Text    string
	Polls   int
	Elapsed time.Duration
}

// Capturer is the part of mux.Backend the detector needs.
type Capturer interface {
	CaptureText(ctx context.Context, name string, maxLines int) (string, error)
}

// Detector polls a session until its output settles on a prompt.
type Detector struct {
	Capture Capturer
	Logger  *zap.Logger

	// Now and Sleep are replaceable for tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewDetector returns a detector using the wall clock.
func NewDetector(c Capturer, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		Capture: c,
		Logger:  logger,
		Now:     time.Now,
		Sleep:   sleepCtx,
	}
}

// Wait polls the session until the command is judged complete or the
// deadline passes.
//
// Captures rejected as invalid text are skipped. Any other capture error
// ends the wait and is returned alongside a TimedOut result carrying the best
// text seen so far. Cancelling ctx does the same with ctx.Err().
func (d *Detector) Wait(ctx context.Context, session, command string, opts Options) (Result, error) {
	opts = opts.Normalize()
	now := d.Now
	if now == nil {
		now = time.Now
	}
	sleep := d.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	start := now()
	var (
		previous string
		stable   int
		polls    int
	)
	timedOut := func() Result {
		return Result{Outcome: TimedOut, Text: previous, Polls: polls, Elapsed: now().Sub(start)}
	}

	for {
		elapsed := now().Sub(start)
		if elapsed >= opts.MaxWait {
			log.Debug("completion wait timed out",
				zap.String("session", session),
				zap.Int("polls", polls),
				zap.Duration("elapsed", elapsed))
			return timedOut(), nil
		}

		interval := opts.PollInterval
		if remaining := opts.MaxWait - elapsed; remaining < interval {
			interval = remaining
		}
		if err := sleep(ctx, interval); err != nil {
			return timedOut(), err
		}

		current, err := d.Capture.CaptureText(ctx, session, opts.CaptureLines)
		polls++
		if err != nil {
			if errors.Is(err, mux.ErrInvalidText) {
				log.Debug("skipping undecodable capture", zap.String("session", session), zap.Int("poll", polls))
				continue
			}
			return timedOut(), fmt.Errorf("capture during wait: %w", err)
		}

		if current == previous {
			stable++
		} else {
			stable = 0
			previous = current
		}

		sig := Inspect(current, command)
		log.Debug("completion poll",
			zap.String("session", session),
			zap.Int("poll", polls),
			zap.Int("stable", stable),
			zap.Bool("prompt", sig.Prompt),
			zap.Bool("echoed", sig.Echoed),
			zap.Bool("secret", sig.Secret))

		if stable >= opts.StableThreshold && sig.Ready() {
			return Result{Outcome: Stable, Text: current, Polls: polls, Elapsed: now().Sub(start)}, nil
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
