// Package parser classifies captured command output and extracts
// structured facts from it.
//
// Classification picks exactly one Format per sample. Each Format has one
// Extractor, a total function that turns the raw text into a structured
// record, a list of findings and a one-line summary. Extractors never fail:
// lines they do not understand are skipped.
package parser

import (
	"fmt"
	"strings"

	"github.com/timvw/pane-runner/internal/model"
)

// Format names a recognized output layout.
type Format string

const (
	FormatNmap         Format = "nmap"
	FormatNetworkTable Format = "network_table"
	FormatProcessTable Format = "process_table"
	FormatLsLong       Format = "ls_long"
	FormatIPAddr       Format = "ip_addr"
	FormatSystemctl    Format = "systemctl"
	FormatDiskUsage    Format = "disk_usage"
	FormatBlockDevices Format = "block_devices"
	FormatJournalctl   Format = "journalctl"
	FormatJSON         Format = "json"
	FormatTable        Format = "table"
	FormatPlainText    Format = "plain_text"
)

// Formats lists every format in classification priority order.
func Formats() []Format {
	return []Format{
		FormatNmap, FormatNetworkTable, FormatProcessTable, FormatLsLong,
		FormatIPAddr, FormatSystemctl, FormatDiskUsage, FormatBlockDevices,
		FormatJournalctl, FormatJSON, FormatTable, FormatPlainText,
	}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Extraction is what an Extractor produces for one sample.
type Extraction struct {
	Structured any
	Findings   []model.Finding
	Summary    string
}

// Extractor turns raw text of one format into structured data.
type Extractor interface {
	// Format returns the format this extractor handles.
	Format() Format

	// Extract parses raw text. It must not panic or fail on any input.
	Extract(raw string) Extraction
}

// Registry maps each format to its extractor.
type Registry struct {
	extractors map[Format]Extractor
}

// NewRegistry creates a registry with an extractor for every format.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[Format]Extractor)}
	for _, e := range []Extractor{
		nmapExtractor{},
		networkExtractor{},
		processExtractor{},
		lsLongExtractor{},
		ipAddrExtractor{},
		systemctlExtractor{},
		diskUsageExtractor{},
		blockDeviceExtractor{},
		journalExtractor{},
		jsonExtractor{},
		genericExtractor{format: FormatTable},
		genericExtractor{format: FormatPlainText},
	} {
		r.Register(e)
	}
	return r
}

// Register adds or replaces the extractor for e.Format().
func (r *Registry) Register(e Extractor) {
	r.extractors[e.Format()] = e
}

// Parse classifies raw and runs the matching extractor.
func (r *Registry) Parse(raw, command string) model.ParsedOutput {
	return r.ParseAs(raw, Detect(raw, command))
}

// ParseAs runs the extractor for a known format. Formats without a
// registered extractor use the generic one, and still report the given
// format in the metadata.
func (r *Registry) ParseAs(raw string, format Format) model.ParsedOutput {
	meta := model.Metadata{
		LineCount:      countLines(raw),
		ByteCount:      len(raw),
		FormatDetected: string(format),
	}

	e, ok := r.extractors[format]
	if !ok {
		e = genericExtractor{format: format}
	}
	x := e.Extract(raw)

	findings := x.Findings
	if findings == nil {
		findings = []model.Finding{}
	}
	return model.ParsedOutput{
		Raw:        raw,
		Structured: x.Structured,
		Findings:   findings,
		Summary:    x.Summary,
		Metadata:   meta,
	}
}

// countLines counts lines the way a line iterator does: a trailing newline
// does not start a new line and empty input has none.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// splitLines splits raw text into lines, dropping a trailing "\r" from each.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func finding(category, message string, imp model.Importance) model.Finding {
	return model.Finding{Category: category, Message: message, Importance: imp}
}

// strs returns a non-nil slice so empty lists encode as [] rather than null.
func strs(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
