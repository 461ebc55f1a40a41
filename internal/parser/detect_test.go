package parser

import (
	"math/rand"
	"strings"
	"testing"
)

func TestDetect_ByCommand(t *testing.T) {
	tests := []struct {
		command string
		want    Format
	}{
		{"nmap -sn 10.0.0.0/24", FormatNmap},
		{"sudo NMAP -p 22 host", FormatNmap},
		{"netstat -tulpn", FormatNetworkTable},
		{"ss -tan", FormatNetworkTable},
		{"ps aux", FormatProcessTable},
		{"top -bn1", FormatProcessTable},
		{"ls -la /etc", FormatLsLong},
		{"ls --long", FormatLsLong},
		{"ip addr show", FormatIPAddr},
		{"ip a", FormatIPAddr},
		{"systemctl status nginx", FormatSystemctl},
		{"df -h", FormatDiskUsage},
		{"lsblk", FormatBlockDevices},
		{"journalctl -p err -b", FormatJournalctl},
		// Command matching is by substring, so "passwd" hits "ss".
		{"cat /etc/passwd", FormatNetworkTable},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			if got := Detect("whatever", tt.command); got != tt.want {
				t.Errorf("Detect(_, %q) = %q, want %q", tt.command, got, tt.want)
			}
		})
	}
}

func TestDetect_CommandBeatsContent(t *testing.T) {
	raw := "Starting Nmap 7.94\nHost is up."
	if got := Detect(raw, "df -h"); got != FormatDiskUsage {
		t.Errorf("got %q, want %q", got, FormatDiskUsage)
	}
}

func TestDetect_ByContent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Format
	}{
		{"nmap banner", "Starting Nmap 7.94 ( https://nmap.org )\n", FormatNmap},
		{"host is up", "Nmap scan report for 10.0.0.1\nHost is up (0.01s latency).", FormatNmap},
		{"tcp established", "tcp 0 0 10.0.0.1:22 10.0.0.2:5000 ESTABLISHED", FormatNetworkTable},
		{"pipe table", "| a | b |\n| 1 | 2 |\n| 3 | 4 |\n| 5 | 6 |", FormatTable},
		{"box table", "│ a │\n│ b │\n│ c │\n│ d │", FormatTable},
		{"three separators is not a table", "| a |\n| b |\n| c |", FormatPlainText},
		{"json object", `{"a": 1}`, FormatJSON},
		{"json array", `[1, 2]`, FormatJSON},
		{"leading space is not json", ` {"a": 1}`, FormatPlainText},
		{"plain", "hello world", FormatPlainText},
		{"empty", "", FormatPlainText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.raw, "cat out.txt"); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDetect_Total(t *testing.T) {
	known := map[Format]bool{}
	for _, f := range Formats() {
		known[f] = true
	}

	rng := rand.New(rand.NewSource(7))
	alphabet := []rune("abc |│{[\n%/tcp ESTABLISHED nmap ls -l ")
	for i := 0; i < 500; i++ {
		var b strings.Builder
		for j := rng.Intn(80); j > 0; j-- {
			b.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		raw := b.String()
		cmd := raw
		if len(cmd) > 20 {
			cmd = cmd[:20]
		}
		if f := Detect(raw, cmd); !known[f] {
			t.Fatalf("Detect(%q, %q) returned unknown format %q", raw, cmd, f)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		got, err := ParseFormat(string(f))
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %q, %v", f, got, err)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
