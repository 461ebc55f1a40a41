package render

import (
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/timvw/pane-runner/internal/model"
)

// --- Pretty Tests ---

func TestPretty_FlatObject(t *testing.T) {
	r := New(DarkTheme())
	structured := map[string]any{"type": "plain_text", "line_count": 1}

	got := Plain(r.Pretty(structured, nil, "echo hi"))
	want := "➜ Command: echo hi\n" +
		"\n┌─ Data\n" +
		"│ line_count: 1\n" +
		"│ type: plain_text\n" +
		"└─\n" +
		"\n✓ Summary: Command completed successfully\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestPretty_ColoredOutputHasEscapes(t *testing.T) {
	r := New(DarkTheme())
	out := r.Pretty(nil, nil, "true")
	if !strings.Contains(out, "\x1b[") {
		t.Errorf("expected ANSI escapes in %q", out)
	}
	if plain := Plain(out); strings.Contains(plain, "\x1b") {
		t.Errorf("plain copy still has escapes: %q", plain)
	}
}

func TestPretty_Findings(t *testing.T) {
	r := New(LightTheme())
	findings := []model.Finding{
		{Category: "Disk Space Critical", Message: "/dev/sda1 is 96% full", Importance: model.Critical},
		{Category: "Listening Ports", Message: "2 listening port(s)", Importance: model.Info},
	}
	got := Plain(r.Pretty(nil, findings, "df -h"))

	for _, want := range []string{
		"\n📊 Key Findings:\n",
		"  🔴 Disk Space Critical - /dev/sda1 is 96% full\n",
		"  ℹ️  Listening Ports - 2 listening port(s)\n",
		"\n✓ Summary: 1 critical issue(s) found\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestPretty_NestedRecordsAsTable(t *testing.T) {
	r := NewPlain()
	structured := map[string]any{
		"filesystems": []map[string]any{
			{"filesystem": "/dev/sda1", "usage_percent": 96, "mount": "/"},
		},
	}
	got := Plain(r.Pretty(structured, nil, "df"))
	for _, want := range []string{"┌─ filesystems", "filesystem", "usage_percent", "/dev/sda1", "96"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

// --- Data Section Tests ---

func TestDataSection_RowLimit(t *testing.T) {
	r := NewPlain()
	var rows []map[string]any
	for i := 0; i < MaxTableRows+5; i++ {
		rows = append(rows, map[string]any{"n": i})
	}
	got := Plain(r.DataSection(rows))
	if !strings.Contains(got, "  ... and 5 more rows") {
		t.Errorf("missing truncation note in:\n%s", got)
	}
	if strings.Contains(got, fmt.Sprintf("│ %d ", MaxTableRows)) {
		t.Errorf("row %d should not be shown:\n%s", MaxTableRows, got)
	}
}

func TestDataSection_CellWidthCapped(t *testing.T) {
	r := NewPlain()
	long := strings.Repeat("x", 120)
	got := Plain(r.DataSection([]map[string]any{{"v": long}}))
	if strings.Contains(got, long) {
		t.Fatal("long cell was not truncated")
	}
	for _, line := range strings.Split(got, "\n") {
		// Two borders plus one space of padding on each side.
		if w := ansi.StringWidth(line); w > MaxCellWidth+4 {
			t.Errorf("line too wide (%d): %q", w, line)
		}
	}
}

func TestDataSection_Hidden(t *testing.T) {
	r := NewPlain()
	tests := []struct {
		name string
		in   any
	}{
		{"nil", nil},
		{"empty list", []any{}},
		{"list of scalars", []string{"a", "b"}},
		{"nested object", map[string]any{"a": map[string]any{"b": 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.DataSection(tt.in); got != "" {
				t.Errorf("expected nothing, got %q", got)
			}
		})
	}
}

// --- Summary Tests ---

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		findings []model.Finding
		want     string
	}{
		{"none", nil, "Command completed successfully"},
		{"critical wins", []model.Finding{{Importance: model.High}, {Importance: model.Critical}}, "1 critical issue(s) found"},
		{"high", []model.Finding{{Importance: model.Info}, {Importance: model.High}, {Importance: model.High}}, "2 important finding(s) detected"},
		{"first message", []model.Finding{{Message: "a", Importance: model.Info}, {Message: "b", Importance: model.Low}}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.findings); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
