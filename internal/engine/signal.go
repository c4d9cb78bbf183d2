package engine

import (
	"regexp"
	"strings"
)

// detectCompletionSignal implements completion-signal detection: a
// preferred `<promise>SIGNAL</promise>` form matched anywhere, case
// insensitively, falling back to a restricted plain-signal match (end of
// output, optionally followed by punctuation, or alone on its own line).
// "not COMPLETE yet" must not match the plain form — neither case of the
// fallback can fire on it, since it is not at the end of the line/output
// nor alone on its own line.
func detectCompletionSignal(output, signal string) bool {
	if signal == "" {
		return false
	}
	if promiseSignalRegex(signal).MatchString(output) {
		return true
	}
	return detectPlainSignal(output, signal)
}

func promiseSignalRegex(signal string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)<promise>\s*` + regexp.QuoteMeta(signal) + `\s*</promise>`)
}

func detectPlainSignal(output, signal string) bool {
	trimmedEnd := strings.TrimRight(output, " \t\r\n")
	endPattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(signal) + `[\s.,;:!?]*$`)
	if endPattern.MatchString(trimmedEnd) {
		return true
	}

	for _, line := range strings.Split(output, "\n") {
		if strings.EqualFold(strings.TrimSpace(line), signal) {
			return true
		}
	}
	return false
}
