package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/timvw/pane-runner/internal/model"
)

// journalSampleLines caps how many error and warning lines are kept.
const journalSampleLines = 10

var serviceUnitRe = regexp.MustCompile(`([\w@.\-]+)\.service`)

type journalExtractor struct{}

func (journalExtractor) Format() Format { return FormatJournalctl }

// Extract sorts log lines into errors and warnings. Units named on an
// error line are reported once each, in order of first appearance.
func (journalExtractor) Extract(raw string) Extraction {
	var (
		errs, warns []string
		units       []string
		seen        = map[string]bool{}
	)
	for _, line := range splitLines(raw) {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "error") || strings.Contains(lower, "fail"):
			errs = append(errs, line)
			for _, m := range serviceUnitRe.FindAllStringSubmatch(line, -1) {
				if !seen[m[1]] {
					seen[m[1]] = true
					units = append(units, m[1])
				}
			}
		case strings.Contains(lower, "warn"):
			warns = append(warns, line)
		}
	}

	var findings []model.Finding
	if len(errs) > 0 {
		findings = append(findings, finding("Errors",
			fmt.Sprintf("%d error(s) found in logs", len(errs)), model.High))
	}
	if len(warns) > 0 {
		findings = append(findings, finding("Warnings",
			fmt.Sprintf("%d warning(s) found in logs", len(warns)), model.Medium))
	}
	if len(units) > 0 {
		findings = append(findings, finding("Failed Services",
			fmt.Sprintf("Services with issues: %s", strings.Join(units, ", ")), model.High))
	}

	summary := "No errors or warnings found"
	if len(errs) > 0 || len(warns) > 0 {
		summary = fmt.Sprintf("%d error(s), %d warning(s) in logs", len(errs), len(warns))
	}

	return Extraction{
		Structured: map[string]any{
			"error_count":     len(errs),
			"warning_count":   len(warns),
			"failed_services": strs(units),
			"errors":          strs(head(errs, journalSampleLines)),
			"warnings":        strs(head(warns, journalSampleLines)),
		},
		Findings: findings,
		Summary:  summary,
	}
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
