package render

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/timvw/pane-runner/internal/model"
)

func TestAnalyzed(t *testing.T) {
	r := New(DarkTheme())
	parsed := model.ParsedOutput{
		Raw:        "hello\n",
		Structured: map[string]any{"type": "plain_text", "line_count": 1},
		Findings:   []model.Finding{},
		Summary:    "Output captured (1 lines)",
		Metadata:   model.Metadata{LineCount: 1, ByteCount: 6, FormatDetected: "plain_text"},
	}

	resp := r.Analyzed(parsed, "echo hello", 0)
	if !resp.Success {
		t.Error("expected success for exit code 0")
	}
	a := resp.Analysis
	if a.Status != model.StatusSuccess || a.Command != "echo hello" || a.RawOutput != "hello\n" {
		t.Errorf("unexpected analysis %+v", a)
	}
	if a.Summary != parsed.Summary {
		t.Errorf("summary: got %q, want %q", a.Summary, parsed.Summary)
	}
	if a.DisplayPlain != Plain(a.Display) || strings.Contains(a.DisplayPlain, "\x1b") {
		t.Errorf("display_plain is not the stripped display: %q", a.DisplayPlain)
	}

	if resp := r.Analyzed(parsed, "false", 1); resp.Success {
		t.Error("non-zero exit code must not succeed")
	}
}

func TestError(t *testing.T) {
	resp := New(DarkTheme()).Error("ls", "session missing")
	if resp.Success {
		t.Error("expected failure")
	}
	a := resp.Analysis
	if a.Status != model.StatusError || a.ExitCode != -1 || a.Metadata.FormatDetected != "error" {
		t.Errorf("unexpected analysis %+v", a)
	}
	if a.Summary != "Error: session missing" || a.RawOutput != "session missing" {
		t.Errorf("unexpected summary/raw %q / %q", a.Summary, a.RawOutput)
	}
	if diff := cmp.Diff(map[string]any{"error": "session missing"}, a.Structured); diff != "" {
		t.Errorf("structured mismatch (-want +got):\n%s", diff)
	}
	want := "✗ Command failed: ls\n  Error: session missing\n"
	if a.DisplayPlain != want {
		t.Errorf("display: got %q, want %q", a.DisplayPlain, want)
	}
}

func TestTimeout(t *testing.T) {
	resp := New(DarkTheme()).Timeout("sleep 100", "line1\nline2")
	a := resp.Analysis
	if resp.Success || a.Status != model.StatusTimeout || a.ExitCode != -1 {
		t.Errorf("unexpected response %+v / %+v", resp, a)
	}
	if a.Summary != "Command timeout" {
		t.Errorf("summary: got %q", a.Summary)
	}
	want := model.Metadata{LineCount: 2, ByteCount: 11, FormatDetected: "timeout"}
	if diff := cmp.Diff(want, a.Metadata); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"timeout": true, "partial_output": "line1\nline2"}, a.Structured); diff != "" {
		t.Errorf("structured mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(a.DisplayPlain, TimeoutMessage) {
		t.Errorf("display should mention the timeout: %q", a.DisplayPlain)
	}
}

func TestMessage(t *testing.T) {
	resp := New(DarkTheme()).Message("Executed: ls")
	if !resp.Success || resp.Output != "Executed: ls" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.DisplayPlain != "✓ Executed: ls\n" {
		t.Errorf("display: got %q", resp.DisplayPlain)
	}
	if resp.Metadata.FormatDetected != "simple" {
		t.Errorf("format: got %q", resp.Metadata.FormatDetected)
	}
}
