// Package platform adapts the engine's outbound/inbound Platform
// interface to concrete chat/VCS transports.
package platform

import "context"

// StreamingMode determines whether assistant chunks flow through
// immediately or accumulate until a step finishes.
type StreamingMode string

const (
	StreamingModeStream StreamingMode = "stream"
	StreamingModeBatch  StreamingMode = "batch"
)

// Type is a semantically meaningful platform tag; "github" suppresses
// the success-completion message and the artifact-commit notification.
type Type string

const (
	TypeGitHub   Type = "github"
	TypeTelegram Type = "telegram"
	TypeSlack    Type = "slack"
	TypeDiscord  Type = "discord"
	TypeTest     Type = "test"
)

// Platform is the engine's sole view of a chat/VCS adapter.
type Platform interface {
	SendMessage(ctx context.Context, conversationID, text string) error
	EnsureThread(ctx context.Context, conversationID string) (string, error)
	GetStreamingMode() StreamingMode
	GetPlatformType() Type
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
