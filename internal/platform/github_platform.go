package platform

import "time"

// NewGitHubPlatform builds a WebhookPlatform pinned to the github
// platform type and batch streaming mode (PR/issue comments are edited
// as a whole, not streamed), matching the github-suppression
// rule.
func NewGitHubPlatform(url string, maxRetries int, timeout time.Duration) *WebhookPlatform {
	return NewWebhookPlatform(url, TypeGitHub, StreamingModeBatch, maxRetries, timeout)
}
