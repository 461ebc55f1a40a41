package mux

import (
	"fmt"
	"os/exec"
)

// Detect returns the tmux backend if the tmux binary is on PATH.
// A running server is not required; sessions are created on demand.
func Detect() (Backend, error) {
	if _, err := exec.LookPath("tmux"); err != nil {
		return nil, fmt.Errorf("%w: tmux not found in PATH", ErrBackend)
	}
	return NewTmux(), nil
}

// FromName creates a Backend by name. An empty name auto-detects.
func FromName(name string) (Backend, error) {
	switch name {
	case "":
		return Detect()
	case "tmux":
		return NewTmux(), nil
	case "zellij":
		return nil, fmt.Errorf("zellij support is not yet implemented")
	default:
		return nil, fmt.Errorf("unknown multiplexer: %q (supported: tmux)", name)
	}
}
