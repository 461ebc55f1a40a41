package parser

import (
	"encoding/json"
	"fmt"

	"github.com/timvw/pane-runner/internal/model"
)

type jsonExtractor struct{}

func (jsonExtractor) Format() Format { return FormatJSON }

// Extract decodes raw as a JSON document. Text that starts like JSON but
// does not decode is kept verbatim under "raw".
func (jsonExtractor) Extract(raw string) Extraction {
	var structured any
	if err := json.Unmarshal([]byte(raw), &structured); err != nil {
		structured = map[string]any{"raw": raw}
	}
	return Extraction{
		Structured: structured,
		Findings: []model.Finding{
			finding("Format", "JSON data detected and parsed", model.Info),
		},
		Summary: "JSON data parsed successfully",
	}
}

type genericExtractor struct {
	format Format
}

func (g genericExtractor) Format() Format { return g.format }

func (g genericExtractor) Extract(raw string) Extraction {
	n := countLines(raw)
	return Extraction{
		Structured: map[string]any{
			"type":       string(g.format),
			"line_count": n,
		},
		Summary: fmt.Sprintf("Output captured (%d lines)", n),
	}
}
