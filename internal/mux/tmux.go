package mux

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/timvw/pane-runner/internal/model"
)

// DefaultCaptureLines is the scrollback depth used when callers pass 0.
const DefaultCaptureLines = 100

// RunFunc executes tmux with the given argv and returns its stdout.
type RunFunc func(ctx context.Context, args ...string) ([]byte, error)

// Tmux implements Backend by shelling out to the tmux binary.
// Every argument is passed as its own argv token; nothing goes through a shell.
type Tmux struct {
	run RunFunc
}

// NewTmux creates a tmux backend that runs the real binary.
func NewTmux() *Tmux {
	return &Tmux{run: runTmux}
}

// NewTmuxWithRunner creates a tmux backend with a custom executor.
func NewTmuxWithRunner(run RunFunc) *Tmux {
	return &Tmux{run: run}
}

// Name returns "tmux".
func (t *Tmux) Name() string {
	return "tmux"
}

// Exists reports whether the session exists.
func (t *Tmux) Exists(ctx context.Context, name string) bool {
	if ValidateSessionName(name) != nil {
		return false
	}
	_, err := t.run(ctx, "has-session", "-t", "="+name)
	return err == nil
}

// Create starts a detached session.
func (t *Tmux) Create(ctx context.Context, name string) error {
	if err := ValidateSessionName(name); err != nil {
		return &Error{Op: "new-session", Session: name, Err: err}
	}
	if _, err := t.run(ctx, "new-session", "-d", "-s", name); err != nil {
		if strings.Contains(err.Error(), "duplicate session") {
			return nil
		}
		return &Error{Op: "new-session", Session: name, Err: err}
	}
	return nil
}

// SendCommand types text literally (-l), then presses Enter.
// Literal mode keeps words like "Enter" or "C-c" inside the command from
// being read as key names.
func (t *Tmux) SendCommand(ctx context.Context, name, text string) error {
	if err := ValidateSessionName(name); err != nil {
		return &Error{Op: "send-keys", Session: name, Err: err}
	}
	if text != "" {
		if _, err := t.run(ctx, "send-keys", "-t", name, "-l", text); err != nil {
			return &Error{Op: "send-keys", Session: name, Err: err}
		}
	}
	if _, err := t.run(ctx, "send-keys", "-t", name, "Enter"); err != nil {
		return &Error{Op: "send-keys", Session: name, Err: err}
	}
	return nil
}

// CaptureText captures the last maxLines lines of the session.
// Uses -p (stdout) and -J (join wrapped lines).
func (t *Tmux) CaptureText(ctx context.Context, name string, maxLines int) (string, error) {
	if err := ValidateSessionName(name); err != nil {
		return "", &Error{Op: "capture-pane", Session: name, Err: err}
	}
	if maxLines <= 0 {
		maxLines = DefaultCaptureLines
	}
	out, err := t.run(ctx, "capture-pane", "-p", "-J", "-t", name, "-S", "-"+strconv.Itoa(maxLines))
	if err != nil {
		return "", &Error{Op: "capture-pane", Session: name, Err: err}
	}
	if !utf8.Valid(out) {
		return "", &Error{Op: "capture-pane", Session: name, Err: ErrInvalidText}
	}
	return strings.ReplaceAll(string(out), "\r\n", "\n"), nil
}

// Destroy kills the session.
func (t *Tmux) Destroy(ctx context.Context, name string) error {
	if err := ValidateSessionName(name); err != nil {
		return &Error{Op: "kill-session", Session: name, Err: err}
	}
	if _, err := t.run(ctx, "kill-session", "-t", "="+name); err != nil {
		return &Error{Op: "kill-session", Session: name, Err: err}
	}
	return nil
}

// ListSessions returns all tmux sessions. No running server means no sessions.
func (t *Tmux) ListSessions(ctx context.Context) ([]model.Session, error) {
	// Format: name\twindows\tattached\tcreated(unix)
	format := "#{session_name}\t#{session_windows}\t#{session_attached}\t#{session_created}"
	out, err := t.run(ctx, "list-sessions", "-F", format)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "no server running") || strings.Contains(msg, "error connecting") {
			return nil, nil
		}
		return nil, &Error{Op: "list-sessions", Err: err}
	}

	var sessions []model.Session
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 4 {
			continue
		}
		windows, _ := strconv.Atoi(parts[1])
		attached, _ := strconv.Atoi(parts[2])
		s := model.Session{
			Name:     parts[0],
			Windows:  windows,
			Attached: attached > 0,
		}
		if created, err := strconv.ParseInt(parts[3], 10, 64); err == nil {
			s.Created = time.Unix(created, 0).UTC()
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// CurrentPath returns the working directory of the session's active pane.
func (t *Tmux) CurrentPath(ctx context.Context, name string) (string, error) {
	if err := ValidateSessionName(name); err != nil {
		return "", &Error{Op: "display-message", Session: name, Err: err}
	}
	out, err := t.run(ctx, "display-message", "-p", "-t", name, "#{pane_current_path}")
	if err != nil {
		return "", &Error{Op: "display-message", Session: name, Err: err}
	}
	path := strings.TrimSpace(string(out))
	if path == "" {
		return "", &Error{Op: "display-message", Session: name, Err: errors.New("empty pane path")}
	}
	return path, nil
}

// runTmux executes a tmux command and returns its stdout.
func runTmux(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "tmux", args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}
