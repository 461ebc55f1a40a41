package completion

import "strings"

// promptGlyphs mark the end of a typical shell prompt.
var promptGlyphs = []string{"$", "#", ">", "❯", "❮", "⚡"}

// secretMarkers mean the shell is waiting for a password, not idle.
var secretMarkers = []string{"password for", "[sudo]"}

// Signals describes the last non-empty line of a capture.
type Signals struct {
	LastLine string
	Prompt   bool // a prompt glyph is present
	Echoed   bool // the submitted command is still on the line
	Secret   bool // a password prompt is showing
}

// Ready reports whether the line looks like an idle prompt.
func (s Signals) Ready() bool {
	return s.Prompt && !s.Echoed && !s.Secret
}

// Inspect evaluates the completion signals for a capture.
//
// The echo check looks at the text after the first prompt glyph, so a
// prompt whose path happens to contain the command (e.g. "~/tools$" for
// "ls") is not mistaken for an echo.
func Inspect(text, command string) Signals {
	line := LastNonEmptyLine(text)
	sig := Signals{LastLine: line}

	first, end := -1, 0
	for _, g := range promptGlyphs {
		if i := strings.Index(line, g); i >= 0 {
			sig.Prompt = true
			if first < 0 || i < first {
				first, end = i, i+len(g)
			}
		}
	}

	if command != "" {
		region := line
		if first >= 0 {
			region = line[end:]
		}
		sig.Echoed = strings.Contains(region, command)
	}

	lower := strings.ToLower(line)
	for _, m := range secretMarkers {
		if strings.Contains(lower, m) {
			sig.Secret = true
			break
		}
	}
	return sig
}

// LastNonEmptyLine returns the last line with visible content, with trailing
// whitespace removed.
func LastNonEmptyLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return strings.TrimRight(lines[i], " \t\r")
		}
	}
	return ""
}
