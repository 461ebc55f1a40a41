package parser

import (
	"fmt"
	"strings"

	"github.com/timvw/pane-runner/internal/model"
)

type systemctlExtractor struct{}

func (systemctlExtractor) Format() Format { return FormatSystemctl }

// Extract handles both one-line unit rows ("nginx.service loaded failed
// failed ...") and the two-line status layout, where the unit header
// ("● nginx.service - ...") is followed by an "Active: ..." line.
func (systemctlExtractor) Extract(raw string) Extraction {
	var (
		active, failed []string
		pending        string
	)
	record := func(name, lower string) bool {
		switch unitState(lower) {
		case "active":
			active = append(active, name)
		case "failed":
			failed = append(failed, name)
		default:
			return false
		}
		return true
	}

	for _, line := range splitLines(raw) {
		lower := strings.ToLower(line)
		if unit := unitField(strings.Fields(line)); unit != "" {
			name := strings.ReplaceAll(unit, ".service", "")
			pending = ""
			if !record(name, lower) {
				pending = name
			}
			continue
		}
		if pending != "" && strings.HasPrefix(strings.TrimSpace(lower), "active:") {
			record(pending, lower)
			pending = ""
		}
	}

	var findings []model.Finding
	if len(failed) > 0 {
		findings = append(findings, finding("Failed Services",
			fmt.Sprintf("%d service(s) in failed state: %s", len(failed), strings.Join(failed, ", ")), model.High))
	}
	if len(active) > 0 {
		findings = append(findings, finding("Active Services",
			fmt.Sprintf("%d service(s) active and running", len(active)), model.Info))
	}

	summary := fmt.Sprintf("%d active, %d failed", len(active), len(failed))
	if len(failed) > 0 {
		summary = fmt.Sprintf("%d failed services: %s", len(failed), strings.Join(failed, ", "))
	}

	return Extraction{
		Structured: map[string]any{
			"active_count":    len(active),
			"failed_count":    len(failed),
			"active_services": strs(active),
			"failed_services": strs(failed),
		},
		Findings: findings,
		Summary:  summary,
	}
}

// unitBullets are the status glyphs systemctl prints before a unit name.
var unitBullets = map[string]bool{"●": true, "○": true, "×": true, "*": true, "↻": true}

// unitField returns the leading ".service" token of a row, skipping one
// status glyph.
func unitField(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	first := fields[0]
	if unitBullets[first] && len(fields) > 1 {
		first = fields[1]
	}
	if strings.Contains(first, ".service") {
		return first
	}
	return ""
}

func unitState(lower string) string {
	switch {
	case strings.Contains(lower, "active") && strings.Contains(lower, "running"):
		return "active"
	case strings.Contains(lower, "failed"):
		return "failed"
	}
	return ""
}
