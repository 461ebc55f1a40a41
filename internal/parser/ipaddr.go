package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/timvw/pane-runner/internal/model"
)

var (
	ifaceRe = regexp.MustCompile(`^\d+:\s+(\S+):`)
	inetRe  = regexp.MustCompile(`inet\s+(\d+\.\d+\.\d+\.\d+/\d+)`)
)

type ipAddrExtractor struct{}

func (ipAddrExtractor) Format() Format { return FormatIPAddr }

func (ipAddrExtractor) Extract(raw string) Extraction {
	var ifaces, addrs []string
	for _, line := range splitLines(raw) {
		if m := ifaceRe.FindStringSubmatch(line); m != nil {
			ifaces = append(ifaces, m[1])
		}
		if m := inetRe.FindStringSubmatch(line); m != nil {
			addrs = append(addrs, m[1])
		}
	}

	var findings []model.Finding
	if len(ifaces) > 0 {
		findings = append(findings, finding("Network Interfaces",
			fmt.Sprintf("%d interface(s) detected: %s", len(ifaces), strings.Join(ifaces, ", ")), model.Info))
	}
	if len(addrs) > 0 {
		findings = append(findings, finding("IP Addresses",
			fmt.Sprintf("%d IPv4 address(es): %s", len(addrs), strings.Join(addrs, ", ")), model.Info))
	}
	return Extraction{
		Structured: map[string]any{
			"interfaces":     strs(ifaces),
			"ipv4_addresses": strs(addrs),
		},
		Findings: findings,
		Summary:  fmt.Sprintf("%d interfaces, %d IPs", len(ifaces), len(addrs)),
	}
}
