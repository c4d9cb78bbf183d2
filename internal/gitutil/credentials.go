package gitutil

import (
	"net/url"
	"regexp"
	"strings"
)

// redactPatterns catches credential material that can leak into git
// stderr (e.g. a remote configured with an embedded token) before it
// reaches a run log or a platform message.
var redactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(ghp_|gho_|github_pat_)[A-Za-z0-9_]{30,}`),
	regexp.MustCompile(`://([^:@/]+):([^@/]+)@`),
	regexp.MustCompile(`://([^@/]{20,})@`),
	regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-._~+/]+=*`),
}

// RedactString strips credential-shaped substrings from git output
// before it is logged or sent to a platform.
func RedactString(s string) string {
	result := s
	for _, pattern := range redactPatterns {
		switch {
		case strings.Contains(pattern.String(), "):([^@/]+)@"):
			result = pattern.ReplaceAllString(result, "://[REDACTED]:[REDACTED]@")
		case strings.Contains(pattern.String(), "://([^@/]{20,})@"):
			result = pattern.ReplaceAllString(result, "://[REDACTED]@")
		case strings.Contains(pattern.String(), "bearer"):
			result = pattern.ReplaceAllString(result, "${1}[REDACTED]")
		default:
			result = pattern.ReplaceAllString(result, "[REDACTED_GITHUB_TOKEN]")
		}
	}
	return result
}

// RedactURL redacts embedded userinfo from a remote URL, preserving the
// rest of the URL's structure.
func RedactURL(repoURL string) string {
	parsed, err := url.Parse(repoURL)
	if err != nil {
		return RedactString(repoURL)
	}
	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword("[REDACTED]", "[REDACTED]")
		} else if parsed.User.Username() != "" {
			parsed.User = url.User("[REDACTED]")
		}
	}
	return parsed.String()
}
