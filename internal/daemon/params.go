package daemon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/timvw/pane-runner/internal/completion"
)

// Per-action wait defaults, in seconds.
const (
	executeAndWaitDefault   = 300
	executeAnalyzedDefault  = 600
	waitForPromptDefault    = 600
	missingCommandParameter = "Missing command parameter"
)

// params is the union of every field an action reads from request data.
type params struct {
	Command    string  `json:"command"`
	Session    string  `json:"session"`
	Lines      int     `json:"lines"`
	MaxWait    float64 `json:"max_wait"` // seconds
	IntervalMs int     `json:"interval_ms"`

	// extract_directory
	TerminalOutput *string `json:"terminal_output"`

	// execute_batch
	Commands     []string `json:"commands"`
	Explanations []string `json:"explanations"`

	// history
	Limit        int    `json:"limit"`
	Format       string `json:"format"`
	OnlyCritical bool   `json:"only_critical"`
	SinceMinutes int    `json:"since_minutes"`
}

func decodeParams(data json.RawMessage) (params, error) {
	var p params
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return p, nil
	}
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return p, fmt.Errorf("decode request data: %w", err)
	}
	return p, nil
}

// maxWait returns the requested wait, or def seconds when none was given.
// Requests above the cap are clamped in seconds, before the conversion can
// overflow.
func (p params) maxWait(def int) time.Duration {
	if p.MaxWait <= 0 {
		return time.Duration(def) * time.Second
	}
	if p.MaxWait > completion.MaxWaitCap.Seconds() {
		return completion.MaxWaitCap
	}
	return time.Duration(p.MaxWait * float64(time.Second))
}

func (p params) interval() time.Duration {
	if p.IntervalMs > int(completion.MaxWaitCap.Milliseconds()) {
		return completion.MaxWaitCap
	}
	return time.Duration(p.IntervalMs) * time.Millisecond
}
