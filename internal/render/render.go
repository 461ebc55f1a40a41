// Package render turns parsed command output into the colored text shown
// to users, and wraps results in the response envelopes sent to clients.
//
// Rendering never depends on the terminal the daemon runs in: colors are
// produced for a fixed profile and a plain copy is derived by stripping
// escape sequences.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/timvw/pane-runner/internal/model"
)

const (
	// MaxTableRows is the number of rows shown for an array of records.
	MaxTableRows = 20
	// MaxCellWidth caps the display width of a table column.
	MaxCellWidth = 50
)

// Renderer formats results with a fixed color profile.
type Renderer struct {
	styles Styles
}

// New returns a Renderer that always emits ANSI colors, regardless of
// whether the process is attached to a terminal.
func New(t Theme) *Renderer {
	return newRenderer(t, termenv.ANSI256)
}

// NewPlain returns a Renderer that emits no escape sequences.
func NewPlain() *Renderer {
	return newRenderer(DarkTheme(), termenv.Ascii)
}

func newRenderer(t Theme, profile termenv.Profile) *Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(profile)
	return &Renderer{styles: NewStyles(r, t)}
}

// Styles exposes the renderer's styles for other views.
func (r *Renderer) Styles() Styles {
	return r.styles
}

// Pretty renders a command header, findings, a data section and a summary.
func (r *Renderer) Pretty(structured any, findings []model.Finding, command string) string {
	s := r.styles
	var b strings.Builder

	b.WriteString(s.Header.Render("➜ Command: " + command))
	b.WriteString("\n")

	if len(findings) > 0 {
		b.WriteString("\n")
		b.WriteString(s.Heading.Render("📊 Key Findings:"))
		b.WriteString("\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "  %s %s - %s\n",
				Icon(f.Importance), s.Category.Render(f.Category), s.Importance(f.Importance).Render(f.Message))
		}
	}

	if data := r.DataSection(structured); strings.TrimSpace(ansi.Strip(data)) != "" {
		b.WriteString(data)
	}

	b.WriteString("\n")
	b.WriteString(s.Summary.Render("✓ Summary: " + Summarize(findings)))
	b.WriteString("\n")
	return b.String()
}

// Failure renders a failed command and its error.
func (r *Renderer) Failure(command, msg string) string {
	s := r.styles
	return s.Failure.Render("✗ Command failed: "+command) + "\n" +
		s.Failure.Render("  Error: "+msg) + "\n"
}

// Success renders a one-line confirmation.
func (r *Renderer) Success(msg string) string {
	return r.styles.Summary.Render("✓ "+msg) + "\n"
}

// Summarize derives the display summary from findings: the critical count,
// else the high count, else the first message.
func Summarize(findings []model.Finding) string {
	if len(findings) == 0 {
		return "Command completed successfully"
	}
	if n := model.CountImportance(findings, model.Critical); n > 0 {
		return fmt.Sprintf("%d critical issue(s) found", n)
	}
	if n := model.CountImportance(findings, model.High); n > 0 {
		return fmt.Sprintf("%d important finding(s) detected", n)
	}
	return findings[0].Message
}

// Plain strips escape sequences from rendered text.
func Plain(s string) string {
	return ansi.Strip(s)
}

// DataSection renders structured data. A flat object becomes a key/value
// block, a list of records becomes a table, and record lists nested one
// level inside an object are shown as titled tables. Other shapes are not
// displayed.
func (r *Renderer) DataSection(structured any) string {
	switch v := normalize(structured).(type) {
	case map[string]any:
		if isFlat(v) {
			return r.keyValues(v)
		}
		var b strings.Builder
		for _, k := range sortedKeys(v) {
			rows, ok := records(v[k])
			if !ok {
				continue
			}
			b.WriteString("\n")
			b.WriteString(r.styles.Frame.Render("┌─ " + k))
			b.WriteString(r.recordTable(rows))
		}
		return b.String()
	case []any:
		if len(v) == 0 {
			return ""
		}
		if rows, ok := records(v); ok {
			return r.recordTable(rows)
		}
	}
	return ""
}

func (r *Renderer) keyValues(m map[string]any) string {
	s := r.styles
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(s.Frame.Render("┌─ Data"))
	b.WriteString("\n")
	for _, k := range sortedKeys(m) {
		fmt.Fprintf(&b, "%s %s: %s\n", s.Frame.Render("│"), s.Key.Render(k), scalar(m[k]))
	}
	b.WriteString(s.Frame.Render("└─"))
	b.WriteString("\n")
	return b.String()
}

func (r *Renderer) recordTable(rows []map[string]any) string {
	s := r.styles
	if len(rows) == 0 {
		return "\n" + s.Dim.Render("  (No data)") + "\n"
	}

	headers := sortedKeys(rows[0])
	shown := rows
	if len(shown) > MaxTableRows {
		shown = shown[:MaxTableRows]
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.TableHead
			}
			return s.TableCell
		})

	head := make([]string, len(headers))
	for i, h := range headers {
		head[i] = ansi.Truncate(h, MaxCellWidth, "...")
	}
	t.Headers(head...)

	for _, row := range shown {
		cells := make([]string, len(headers))
		for i, h := range headers {
			if v, ok := row[h]; ok {
				cells[i] = ansi.Truncate(scalar(v), MaxCellWidth, "...")
			}
		}
		t.Row(cells...)
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(t.Render())
	b.WriteString("\n")
	if extra := len(rows) - len(shown); extra > 0 {
		b.WriteString(s.Dim.Render(fmt.Sprintf("  ... and %d more rows", extra)))
		b.WriteString("\n")
	}
	return b.String()
}

// normalize converts typed structured values into the generic shapes
// produced by encoding/json, so maps of any value type are handled alike.
// Numbers decode as json.Number to keep their literal form.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil
	}
	return out
}

func isFlat(m map[string]any) bool {
	for _, v := range m {
		switch v.(type) {
		case map[string]any, []any:
			return false
		}
	}
	return true
}

// records returns v as a list of objects when every element is one.
func records(v any) ([]map[string]any, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	rows := make([]map[string]any, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		rows = append(rows, m)
	}
	return rows, true
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return fmt.Sprint(x)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
