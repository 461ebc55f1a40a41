package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/timvw/pane-runner/internal/model"
)

// Disk usage thresholds. Both comparisons are strict.
const (
	diskCritical = 90
	diskWarning  = 80
)

type diskUsageExtractor struct{}

func (diskUsageExtractor) Format() Format { return FormatDiskUsage }

// Extract reads df rows: filesystem, size, used, available, use%, mount.
// The header's "Use%" does not parse as a number and is skipped.
func (diskUsageExtractor) Extract(raw string) Extraction {
	filesystems := []map[string]any{}
	var findings []model.Finding

	for _, line := range splitLines(raw) {
		if !strings.Contains(line, "%") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		usage, ok := usagePercent(fields)
		if !ok {
			continue
		}

		filesystems = append(filesystems, map[string]any{
			"filesystem":    fields[0],
			"size":          fields[1],
			"used":          fields[2],
			"available":     fields[3],
			"usage_percent": usage,
			"mount":         fieldAt(fields, 5),
		})

		msg := fmt.Sprintf("%s is %d%% full", fields[0], usage)
		switch {
		case usage > diskCritical:
			findings = append(findings, finding("Disk Space Critical", msg, model.Critical))
		case usage > diskWarning:
			findings = append(findings, finding("Disk Space Warning", msg, model.High))
		}
	}

	return Extraction{
		Structured: map[string]any{"filesystems": filesystems},
		Findings:   findings,
		Summary:    fmt.Sprintf("%d filesystem(s) checked", len(filesystems)),
	}
}

// usagePercent returns the first field ending in "%" parsed as 0-255.
func usagePercent(fields []string) (int, bool) {
	for _, f := range fields {
		if !strings.HasSuffix(f, "%") {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimRight(f, "%"), 10, 8)
		if err != nil {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func fieldAt(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}
