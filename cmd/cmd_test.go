package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/timvw/pane-runner/internal/model"
)

func TestReadData(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		stdin   string
		want    string
		wantErr bool
	}{
		{"inline object", `{"command":"ls"}`, "", `{"command":"ls"}`, false},
		{"stdin", "-", `{"session":"work"}`, `{"session":"work"}`, false},
		{"empty stdin", "-", "  \n", "", false},
		{"invalid", `{"command":`, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readData(tt.arg, strings.NewReader(tt.stdin))
			if (err != nil) != tt.wantErr {
				t.Fatalf("readData error: got %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("readData: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisplayText(t *testing.T) {
	tests := []struct {
		name string
		resp model.Response
		want string
	}{
		{"analysis display", model.Response{Success: true, Analysis: &model.Analysis{Display: "rendered"}}, "rendered\n"},
		{"plain output", model.Response{Success: true, Output: "✓ Session closed"}, "✓ Session closed\n"},
		{"error", model.Response{Error: "Unknown action: nope"}, "✗ Unknown action: nope\n"},
		{"empty", model.Response{Success: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayText(tt.resp); got != tt.want {
				t.Errorf("displayText: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintResponse(t *testing.T) {
	defer func(j, p bool) { flagJSON, flagPlain = j, p }(flagJSON, flagPlain)

	resp := model.Response{Success: true, Analysis: &model.Analysis{
		Command:      "uptime",
		Status:       model.StatusSuccess,
		Display:      "\x1b[1mup\x1b[0m",
		DisplayPlain: "up",
	}}

	flagJSON, flagPlain = false, true
	var buf bytes.Buffer
	if err := printResponse(&buf, resp); err != nil {
		t.Fatalf("printResponse: %v", err)
	}
	if buf.String() != "up" {
		t.Errorf("plain: got %q, want %q", buf.String(), "up")
	}

	flagJSON = true
	buf.Reset()
	if err := printResponse(&buf, resp); err != nil {
		t.Fatalf("printResponse: %v", err)
	}
	if !strings.Contains(buf.String(), `"status": "success"`) {
		t.Errorf("json output missing status:\n%s", buf.String())
	}
}

func TestPrintResponse_Failures(t *testing.T) {
	defer func(j bool) { flagJSON = j }(flagJSON)
	flagJSON = true

	timeout := model.Response{Analysis: &model.Analysis{Command: "sleep 100", Status: model.StatusTimeout}}
	err := printResponse(&bytes.Buffer{}, timeout)
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("timeout: got %v", err)
	}

	if err := printResponse(&bytes.Buffer{}, model.Response{Error: "boom"}); err == nil {
		t.Error("expected error for unsuccessful response")
	}
}
