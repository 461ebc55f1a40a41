package parser

import (
	"fmt"
	"strings"

	"github.com/timvw/pane-runner/internal/model"
)

// establishedHigh is the connection count above which active connections
// become a High finding.
const establishedHigh = 50

type networkExtractor struct{}

func (networkExtractor) Format() Format { return FormatNetworkTable }

// Extract reads netstat and ss socket tables. A row counts when one of its
// columns is a socket state, so banner lines that merely mention
// "established" are ignored.
//
// netstat rows put the state last ("tcp 0 0 local remote ESTABLISHED");
// ss rows put it first or second ("ESTAB 0 0 local peer",
// "tcp ESTAB 0 0 local peer").
func (networkExtractor) Extract(raw string) Extraction {
	var (
		connections []map[string]string
		established int
		listening   int
	)
	for _, line := range splitLines(raw) {
		fields := strings.Fields(line)
		switch state := stateField(fields); {
		case state >= 0 && isEstablished(fields[state]):
			established++
			if c, ok := parseConnection(fields, state); ok {
				connections = append(connections, c)
			}
		case state >= 0:
			listening++
		}
	}

	var findings []model.Finding
	if established > 0 {
		imp := model.Info
		if established > establishedHigh {
			imp = model.High
		}
		findings = append(findings, finding("Active Connections",
			fmt.Sprintf("%d established connection(s)", established), imp))
	}
	if listening > 0 {
		findings = append(findings, finding("Listening Ports",
			fmt.Sprintf("%d listening port(s)", listening), model.Info))
	}

	if connections == nil {
		connections = []map[string]string{}
	}
	return Extraction{
		Structured: map[string]any{
			"connections":       connections,
			"established_count": established,
			"listening_count":   listening,
		},
		Findings: findings,
		Summary:  fmt.Sprintf("%d established, %d listening", established, listening),
	}
}

// stateField returns the index of the socket state column, or -1 for rows
// that are neither established nor listening, headers included.
func stateField(fields []string) int {
	for i, f := range fields {
		if isEstablished(f) || strings.EqualFold(f, "LISTEN") {
			return i
		}
	}
	return -1
}

func isEstablished(f string) bool {
	return strings.EqualFold(f, "ESTABLISHED") || strings.EqualFold(f, "ESTAB")
}

func parseConnection(fields []string, state int) (map[string]string, bool) {
	// ss layout: state, Recv-Q, Send-Q, local, peer.
	if state == 0 || state == 1 {
		if len(fields) < state+5 {
			return nil, false
		}
		proto := "tcp"
		if state == 1 {
			proto = fields[0]
		}
		return map[string]string{
			"protocol": proto,
			"local":    fields[state+3],
			"remote":   fields[state+4],
			"state":    "ESTABLISHED",
		}, true
	}

	// netstat layout: proto, Recv-Q, Send-Q, local, foreign, state.
	if len(fields) < 5 {
		return nil, false
	}
	return map[string]string{
		"protocol": fields[0],
		"local":    fields[3],
		"remote":   fields[4],
		"state":    "ESTABLISHED",
	}, true
}
