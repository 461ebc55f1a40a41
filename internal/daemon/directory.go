package daemon

import "strings"

// promptScanLines is how many trailing lines are searched for a prompt.
const promptScanLines = 5

// directoryFromPrompt finds the working directory shown in a shell prompt
// near the end of terminal output. Recognized shapes, checked bottom-up:
//
//	user@host:/path$      (also # as terminator)
//	[user@host path]$
//	anything /path$       (path must start with / or ~)
func directoryFromPrompt(output string) (string, bool) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	start := max(len(lines)-promptScanLines, 0)

	for i := len(lines) - 1; i >= start; i-- {
		line := lines[i]
		if dir, ok := colonPrompt(line); ok {
			return dir, true
		}
		if dir, ok := bracketPrompt(line); ok {
			return dir, true
		}
		if dir, ok := trailingPathPrompt(line); ok {
			return dir, true
		}
	}
	return "", false
}

func colonPrompt(line string) (string, bool) {
	pos := strings.LastIndex(line, ":")
	if pos < 0 {
		return "", false
	}
	after := line[pos+1:]
	end := strings.Index(after, "$")
	if end < 0 {
		end = strings.Index(after, "#")
	}
	if end < 0 {
		return "", false
	}
	path := strings.TrimSpace(after[:end])
	return path, path != ""
}

func bracketPrompt(line string) (string, bool) {
	open := strings.LastIndex(line, "[")
	closing := strings.LastIndex(line, "]")
	if open < 0 || closing <= open {
		return "", false
	}
	inside := line[open+1 : closing]
	space := strings.LastIndex(inside, " ")
	if space < 0 {
		return "", false
	}
	path := strings.TrimSpace(inside[space+1:])
	return path, path != ""
}

func trailingPathPrompt(line string) (string, bool) {
	end := strings.LastIndex(line, "$")
	if end < 0 {
		end = strings.LastIndex(line, "#")
	}
	if end < 0 {
		return "", false
	}
	before := line[:end]
	space := strings.LastIndex(before, " ")
	if space < 0 {
		return "", false
	}
	path := strings.TrimSpace(before[space+1:])
	if path == "" || (!strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "~")) {
		return "", false
	}
	return path, true
}
