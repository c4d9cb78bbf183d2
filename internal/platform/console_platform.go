package platform

import (
	"context"
	"fmt"
)

// ConsolePlatform writes every message straight to stdout; it backs the
// `archon run` CLI command where there is no chat transport to relay to.
type ConsolePlatform struct {
	Streamed bool
}

// NewConsolePlatform builds a ConsolePlatform. When streamed is true,
// GetStreamingMode reports "stream"; otherwise "batch".
func NewConsolePlatform(streamed bool) *ConsolePlatform {
	return &ConsolePlatform{Streamed: streamed}
}

func (p *ConsolePlatform) SendMessage(_ context.Context, _, text string) error {
	fmt.Println(text)
	return nil
}

func (p *ConsolePlatform) EnsureThread(_ context.Context, conversationID string) (string, error) {
	return conversationID, nil
}

func (p *ConsolePlatform) GetStreamingMode() StreamingMode {
	if p.Streamed {
		return StreamingModeStream
	}
	return StreamingModeBatch
}

func (p *ConsolePlatform) GetPlatformType() Type { return TypeTest }

func (p *ConsolePlatform) Start(context.Context) error { return nil }
func (p *ConsolePlatform) Stop(context.Context) error  { return nil }
