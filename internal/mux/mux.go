// Package mux wraps the terminal multiplexer that hosts command sessions.
//
// This package is pure transport: it creates sessions, types into them and
// captures what they render. It never interprets the captured text.
package mux

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/timvw/pane-runner/internal/model"
)

var (
	// ErrBackend matches every failure reported by a Backend.
	ErrBackend = errors.New("session backend error")
	// ErrInvalidText is returned when captured bytes are not valid UTF-8.
	ErrInvalidText = errors.New("captured output is not valid UTF-8")
	// ErrInvalidSession is returned for session names the backend refuses to use.
	ErrInvalidSession = errors.New("invalid session name")
)

// Error describes a failed multiplexer operation.
type Error struct {
	Op      string // multiplexer subcommand, e.g. "capture-pane"
	Session string
	Err     error
}

func (e *Error) Error() string {
	if e.Session == "" {
		return fmt.Sprintf("tmux %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tmux %s (session %q): %v", e.Op, e.Session, e.Err)
}

// Unwrap lets errors.Is match both ErrBackend and the underlying cause.
func (e *Error) Unwrap() []error {
	return []error{ErrBackend, e.Err}
}

// Backend abstracts the session operations the daemon needs.
type Backend interface {
	// Name returns the multiplexer name (e.g., "tmux").
	Name() string

	// Exists reports whether the named session exists. A missing
	// multiplexer binary or server reports false.
	Exists(ctx context.Context, name string) bool

	// Create starts a detached session. Creating a session that already
	// exists is not an error.
	Create(ctx context.Context, name string) error

	// SendCommand types text into the session followed by Enter.
	// It does not wait for any output.
	SendCommand(ctx context.Context, name, text string) error

	// CaptureText returns the last maxLines lines of the session's
	// scrollback, most recent last.
	CaptureText(ctx context.Context, name string, maxLines int) (string, error)

	// Destroy kills the session.
	Destroy(ctx context.Context, name string) error

	// ListSessions returns all sessions known to the multiplexer server.
	ListSessions(ctx context.Context) ([]model.Session, error)

	// CurrentPath returns the working directory of the session's active pane.
	CurrentPath(ctx context.Context, name string) (string, error)
}

var sessionNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

// ValidateSessionName rejects names that tmux would reinterpret as target
// syntax (":" or ".") or that could be mistaken for flags.
func ValidateSessionName(name string) error {
	if !sessionNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q (use letters, digits, '.', '_' or '-', max 64 chars)", ErrInvalidSession, name)
	}
	return nil
}
