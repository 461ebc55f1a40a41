// Package guard validates and sanitizes command text before it is typed
// into a session.
//
// This is a denylist, not a sandbox: it blocks input that would break the
// daemon's own session handling, not commands that are merely dangerous.
package guard

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxCommandBytes is the longest command accepted.
const MaxCommandBytes = 8192

// ErrRejected is wrapped by every validation failure.
var ErrRejected = errors.New("command rejected")

// deniedPatterns would detach, kill or nest the session the daemon drives.
var deniedPatterns = []string{
	"tmux kill-server",
	"tmux kill-session",
	"tmux detach",
	"tmux attach",
	"tmux new-session",
	"tmux send-keys",
}

// Sanitize removes NUL and carriage-return characters and trims whitespace.
func Sanitize(cmd string) string {
	cmd = strings.ReplaceAll(cmd, "\x00", "")
	cmd = strings.ReplaceAll(cmd, "\r", "")
	return strings.TrimSpace(cmd)
}

// Validate checks a command before it is sent.
func Validate(cmd string) error {
	if strings.TrimSpace(cmd) == "" {
		return fmt.Errorf("%w: command cannot be empty", ErrRejected)
	}
	if strings.ContainsRune(cmd, '\x00') {
		return fmt.Errorf("%w: command contains NUL bytes", ErrRejected)
	}
	if len(cmd) > MaxCommandBytes {
		return fmt.Errorf("%w: command is %d bytes (max %d)", ErrRejected, len(cmd), MaxCommandBytes)
	}
	if !utf8.ValidString(cmd) {
		return fmt.Errorf("%w: command is not valid UTF-8", ErrRejected)
	}

	lower := strings.ToLower(strings.TrimSpace(cmd))
	if lower == "exit" || strings.HasPrefix(lower, "exit ") {
		return fmt.Errorf("%w: exit would close the session", ErrRejected)
	}
	normalized := strings.Join(strings.Fields(lower), " ")
	for _, p := range deniedPatterns {
		if strings.Contains(normalized, p) {
			return fmt.Errorf("%w: %q interferes with the managed session", ErrRejected, p)
		}
	}
	return nil
}

// Prepare sanitizes then validates, returning the text to send.
func Prepare(cmd string) (string, error) {
	clean := Sanitize(cmd)
	if err := Validate(clean); err != nil {
		return "", err
	}
	return clean, nil
}

// Truncate shortens s to at most max runes, ending in "..." when cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return "..."
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}
