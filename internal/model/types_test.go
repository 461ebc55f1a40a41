package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestImportanceRank(t *testing.T) {
	order := []Importance{Critical, High, Medium, Low, Info}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("%s should rank before %s", order[i-1], order[i])
		}
	}
	if Importance("bogus").Rank() <= Info.Rank() {
		t.Errorf("unknown importance should rank after Info")
	}
}

func TestParseImportance(t *testing.T) {
	tests := []struct {
		in      string
		want    Importance
		wantErr bool
	}{
		{in: "critical", want: Critical},
		{in: "HIGH", want: High},
		{in: "Info", want: Info},
		{in: "urgent", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseImportance(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseImportance(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseImportance(%q): unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseImportance(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResponse_SimpleShapeOmitsAnalysis(t *testing.T) {
	resp := Response{Success: true, Exists: BoolPtr(true)}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if s != `{"success":true,"exists":true}` {
		t.Errorf("got %s", s)
	}
}

func TestResponse_AnalysisFieldsInlined(t *testing.T) {
	resp := Response{
		Success: true,
		Analysis: &Analysis{
			Command:  "df -h",
			Status:   StatusSuccess,
			ExitCode: 0,
			Findings: []Finding{},
			Metadata: Metadata{FormatDetected: "disk_usage"},
		},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{
		`"command":"df -h"`,
		`"status":"success"`,
		`"exit_code":0`,
		`"findings":[]`,
		`"duration_ms":null`,
		`"format_detected":"disk_usage"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
	if strings.Contains(s, `"analysis"`) {
		t.Errorf("analysis should be inlined, got %s", s)
	}

	var back Response
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Analysis == nil || back.Metadata.FormatDetected != "disk_usage" {
		t.Errorf("analysis not restored: %+v", back)
	}
}

func TestCountImportance(t *testing.T) {
	findings := []Finding{
		{Importance: Critical},
		{Importance: High},
		{Importance: Critical},
	}
	if got := CountImportance(findings, Critical); got != 2 {
		t.Errorf("critical: got %d, want 2", got)
	}
	if got := CountImportance(findings, Low); got != 0 {
		t.Errorf("low: got %d, want 0", got)
	}
}
