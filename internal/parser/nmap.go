package parser

import (
	"fmt"
	"strings"

	"github.com/timvw/pane-runner/internal/model"
)

// hostCountHigh is the number of live hosts above which the host count
// becomes a High finding.
const hostCountHigh = 10

type nmapExtractor struct{}

func (nmapExtractor) Format() Format { return FormatNmap }

// Extract counts "Host is up" lines and collects port rows such as
// "22/tcp open ssh".
func (nmapExtractor) Extract(raw string) Extraction {
	var (
		hostsUp  int
		ports    []string
		services []string
	)
	for _, line := range splitLines(raw) {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "host is up") {
			hostsUp++
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || !isPortSpec(fields[0]) || !strings.HasPrefix(strings.ToLower(fields[1]), "open") {
			continue
		}
		ports = append(ports, fields[0])
		if len(fields) > 2 {
			services = append(services, fields[2])
		}
	}

	var findings []model.Finding
	if hostsUp > 0 {
		imp := model.Medium
		if hostsUp > hostCountHigh {
			imp = model.High
		}
		findings = append(findings, finding("Host Count",
			fmt.Sprintf("Found %d active host(s) on network", hostsUp), imp))
	}
	if len(ports) > 0 {
		findings = append(findings, finding("Open Ports",
			fmt.Sprintf("Detected %d open port(s): %s", len(ports), strings.Join(ports, ", ")), model.High))
	}
	if len(services) > 0 {
		findings = append(findings, finding("Services",
			fmt.Sprintf("Services detected: %s", strings.Join(services, ", ")), model.Info))
	}

	summary := "Network scan complete - no hosts detected"
	if hostsUp > 0 {
		summary = fmt.Sprintf("Network scan complete - %d hosts active, %d open ports", hostsUp, len(ports))
	}

	return Extraction{
		Structured: map[string]any{
			"hosts_up":   hostsUp,
			"open_ports": strs(ports),
			"services":   strs(services),
			"scan_type":  "nmap",
		},
		Findings: findings,
		Summary:  summary,
	}
}

// isPortSpec matches "80/tcp" or "53/udp".
func isPortSpec(s string) bool {
	return strings.Contains(s, "/tcp") || strings.Contains(s, "/udp")
}
