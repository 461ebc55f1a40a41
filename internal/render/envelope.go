package render

import (
	"strings"

	"github.com/timvw/pane-runner/internal/model"
)

// TimeoutMessage is shown when a command did not finish within its wait.
const TimeoutMessage = "Command timeout - may still be running"

// Analyzed wraps a parsed capture. The response succeeds only for exit
// code 0.
func (r *Renderer) Analyzed(parsed model.ParsedOutput, command string, exitCode int) model.Response {
	display := r.Pretty(parsed.Structured, parsed.Findings, command)
	return model.Response{
		Success: exitCode == 0,
		Analysis: &model.Analysis{
			Command:      command,
			Status:       model.StatusSuccess,
			ExitCode:     exitCode,
			Structured:   parsed.Structured,
			Findings:     parsed.Findings,
			Summary:      parsed.Summary,
			Display:      display,
			DisplayPlain: Plain(display),
			Metadata:     parsed.Metadata,
			RawOutput:    parsed.Raw,
		},
	}
}

// Error wraps a failure that happened before or instead of analysis.
func (r *Renderer) Error(command, msg string) model.Response {
	display := r.Failure(command, msg)
	return model.Response{
		Success: false,
		Error:   msg,
		Analysis: &model.Analysis{
			Command:      command,
			Status:       model.StatusError,
			ExitCode:     -1,
			Structured:   map[string]any{"error": msg},
			Findings:     []model.Finding{},
			Summary:      "Error: " + msg,
			Display:      display,
			DisplayPlain: Plain(display),
			Metadata:     model.Metadata{FormatDetected: "error"},
			RawOutput:    msg,
		},
	}
}

// Timeout wraps the best-known partial output of a command that did not
// reach a stable prompt.
func (r *Renderer) Timeout(command, partial string) model.Response {
	display := r.Failure(command, TimeoutMessage)
	return model.Response{
		Success: false,
		Error:   "Command timeout",
		Analysis: &model.Analysis{
			Command:  command,
			Status:   model.StatusTimeout,
			ExitCode: -1,
			Structured: map[string]any{
				"timeout":        true,
				"partial_output": partial,
			},
			Findings:     []model.Finding{},
			Summary:      "Command timeout",
			Display:      display,
			DisplayPlain: Plain(display),
			Metadata: model.Metadata{
				LineCount:      lineCount(partial),
				ByteCount:      len(partial),
				FormatDetected: "timeout",
			},
			RawOutput: partial,
		},
	}
}

// Message wraps a plain confirmation for actions that produce no output
// to analyze.
func (r *Renderer) Message(msg string) model.Response {
	display := r.Success(msg)
	return model.Response{
		Success: true,
		Output:  msg,
		Analysis: &model.Analysis{
			Status:       model.StatusSuccess,
			Structured:   map[string]any{"message": msg},
			Findings:     []model.Finding{},
			Summary:      msg,
			Display:      display,
			DisplayPlain: Plain(display),
			Metadata: model.Metadata{
				LineCount:      1,
				ByteCount:      len(msg),
				FormatDetected: "simple",
			},
			RawOutput: msg,
		},
	}
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
