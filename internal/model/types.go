package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Importance is the severity tag of a Finding.
type Importance string

const (
	Critical Importance = "Critical"
	High     Importance = "High"
	Medium   Importance = "Medium"
	Low      Importance = "Low"
	Info     Importance = "Info"
)

// Rank orders importances from most (0) to least (4) severe.
// Unknown values rank after Info.
func (i Importance) Rank() int {
	switch i {
	case Critical:
		return 0
	case High:
		return 1
	case Medium:
		return 2
	case Low:
		return 3
	case Info:
		return 4
	}
	return 5
}

// ParseImportance accepts any casing of the five importance names.
func ParseImportance(s string) (Importance, error) {
	for _, imp := range []Importance{Critical, High, Medium, Low, Info} {
		if strings.EqualFold(s, string(imp)) {
			return imp, nil
		}
	}
	return "", fmt.Errorf("unknown importance %q", s)
}

// Finding is a single severity-tagged observation extracted from output.
type Finding struct {
	Category   string     `json:"category"`
	Message    string     `json:"message"`
	Importance Importance `json:"importance"`
}

// Metadata describes a raw output sample.
type Metadata struct {
	LineCount int `json:"line_count"`
	ByteCount int `json:"byte_count"`
	// DurationMs is the time between submitting the command and detecting
	// completion. Nil for pure captures.
	DurationMs     *int64 `json:"duration_ms"`
	FormatDetected string `json:"format_detected"`
}

// ParsedOutput is the classified and extracted form of one raw output sample.
type ParsedOutput struct {
	Raw        string    `json:"raw"`
	Structured any       `json:"structured"`
	Findings   []Finding `json:"findings"`
	Summary    string    `json:"summary"`
	Metadata   Metadata  `json:"metadata"`
}

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Request is one message received on the daemon socket.
type Request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Response is the single JSON object written back for every request.
//
// Simple actions use Output/Error/Exists. Actions that analyze command output
// embed an Analysis, whose fields are inlined into the same object.
type Response struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
	Exists  *bool  `json:"exists,omitempty"`

	*Analysis

	Batch    *BatchResult `json:"batch,omitempty"`
	Sessions []Session    `json:"sessions,omitempty"`
	History  []Execution  `json:"history,omitempty"`
}

// Analysis is the analyzed-output part of a Response.
type Analysis struct {
	Command      string    `json:"command"`
	Status       string    `json:"status"`
	ExitCode     int       `json:"exit_code"`
	Structured   any       `json:"structured"`
	Findings     []Finding `json:"findings"`
	Summary      string    `json:"summary"`
	Display      string    `json:"display"`
	DisplayPlain string    `json:"display_plain"`
	Metadata     Metadata  `json:"metadata"`
	RawOutput    string    `json:"raw_output"`
}

// Session is a multiplexer session as reported by the backend.
type Session struct {
	Name     string    `json:"name"`
	Windows  int       `json:"windows"`
	Attached bool      `json:"attached"`
	Created  time.Time `json:"created"`
}

// BatchResult aggregates a sequential batch of commands.
type BatchResult struct {
	TotalCommands int                  `json:"total_commands"`
	Successful    int                  `json:"successful"`
	Failed        int                  `json:"failed"`
	Commands      []BatchCommandResult `json:"commands"`
	Summary       string               `json:"summary"`
}

// BatchCommandResult is the outcome of one command within a batch.
type BatchCommandResult struct {
	// Index is 1-based, matching the position in the submitted list.
	Index         int    `json:"index"`
	Command       string `json:"command"`
	Explanation   string `json:"explanation"`
	Success       bool   `json:"success"`
	Status        string `json:"status"`
	Format        string `json:"format,omitempty"`
	Summary       string `json:"summary,omitempty"`
	OutputPreview string `json:"output_preview,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Execution is one analyzed command recorded in the history store.
type Execution struct {
	ID            string    `json:"id"`
	Session       string    `json:"session"`
	Command       string    `json:"command"`
	Status        string    `json:"status"`
	Format        string    `json:"format"`
	Summary       string    `json:"summary"`
	FindingCount  int       `json:"finding_count"`
	CriticalCount int       `json:"critical_count"`
	LineCount     int       `json:"line_count"`
	ByteCount     int       `json:"byte_count"`
	DurationMs    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// CountImportance returns how many findings carry the given importance.
func CountImportance(findings []Finding, imp Importance) int {
	n := 0
	for _, f := range findings {
		if f.Importance == imp {
			n++
		}
	}
	return n
}

// BoolPtr returns a pointer to b, for Response.Exists.
func BoolPtr(b bool) *bool {
	return &b
}
