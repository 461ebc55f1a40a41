package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/timvw/pane-runner/internal/model"
)

type processExtractor struct{}

func (processExtractor) Format() Format { return FormatProcessTable }

// Extract counts non-blank rows that are not a PID header.
func (processExtractor) Extract(raw string) Extraction {
	count := 0
	for _, line := range splitLines(raw) {
		if strings.TrimSpace(line) == "" || strings.Contains(strings.ToLower(line), "pid") {
			continue
		}
		count++
	}

	var findings []model.Finding
	if count > 0 {
		findings = append(findings, finding("Process Count",
			fmt.Sprintf("%d process(es) listed", count), model.Info))
	}
	return Extraction{
		Structured: map[string]any{
			"process_count": count,
			"type":          "process_list",
		},
		Findings: findings,
		Summary:  fmt.Sprintf("%d processes", count),
	}
}

type lsLongExtractor struct{}

func (lsLongExtractor) Format() Format { return FormatLsLong }

// Extract counts entries by the file-type character of the mode column
// and sums the size column of regular files.
func (lsLongExtractor) Extract(raw string) Extraction {
	var (
		files, dirs int
		total       uint64
	)
	for _, line := range splitLines(raw) {
		switch {
		case strings.HasPrefix(line, "d"):
			dirs++
		case strings.HasPrefix(line, "-"):
			files++
			fields := strings.Fields(line)
			if len(fields) > 4 {
				if size, err := strconv.ParseUint(fields[4], 10, 64); err == nil {
					total += size
				}
			}
		}
	}

	var findings []model.Finding
	if files > 0 || dirs > 0 {
		findings = append(findings, finding("Directory Contents",
			fmt.Sprintf("%d file(s), %d director(ies)", files, dirs), model.Info))
	}
	return Extraction{
		Structured: map[string]any{
			"files":            files,
			"directories":      dirs,
			"total_size_bytes": total,
		},
		Findings: findings,
		Summary:  fmt.Sprintf("%d files, %d directories", files, dirs),
	}
}
