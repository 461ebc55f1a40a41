package parser

import "strings"

// tableSeparatorLines is the number of lines containing a column separator
// that must be exceeded for content to count as a table.
const tableSeparatorLines = 3

// Detect classifies a raw output sample. The command name is checked first;
// only if no tool matches are content patterns considered. Every input maps
// to exactly one format, with FormatPlainText as the fallback.
func Detect(raw, command string) Format {
	if f, ok := detectByCommand(command); ok {
		return f
	}
	return detectByContent(raw)
}

func detectByCommand(command string) (Format, bool) {
	cmd := strings.ToLower(command)
	has := func(s string) bool { return strings.Contains(cmd, s) }

	switch {
	case has("nmap"):
		return FormatNmap, true
	case has("netstat") || has("ss"):
		return FormatNetworkTable, true
	case has("ps") || has("top"):
		return FormatProcessTable, true
	case has("ls") && (has("-l") || has("--long")):
		return FormatLsLong, true
	case has("ip") && (has("addr") || has("ip a")):
		return FormatIPAddr, true
	case has("systemctl"):
		return FormatSystemctl, true
	case has("df"):
		return FormatDiskUsage, true
	case has("lsblk"):
		return FormatBlockDevices, true
	case has("journalctl"):
		return FormatJournalctl, true
	}
	return "", false
}

func detectByContent(raw string) Format {
	lower := strings.ToLower(raw)

	switch {
	case strings.Contains(lower, "starting nmap") || strings.Contains(lower, "host is up"):
		return FormatNmap
	case strings.Contains(lower, "tcp") && strings.Contains(lower, "established"):
		return FormatNetworkTable
	case separatorLines(raw) > tableSeparatorLines:
		return FormatTable
	case strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "["):
		return FormatJSON
	}
	return FormatPlainText
}

func separatorLines(raw string) int {
	n := 0
	for _, line := range splitLines(raw) {
		if strings.ContainsAny(line, "|│") {
			n++
		}
	}
	return n
}
