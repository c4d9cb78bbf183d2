package platform

import (
	"context"
	"sync"
)

// TestPlatform is an in-memory recorder used by the CLI harness and the
// engine's own tests; GetPlatformType() == "test".
type TestPlatform struct {
	mu       sync.Mutex
	Sent     []SentMessage
	Streamed bool
}

// SentMessage records one delivered message.
type SentMessage struct {
	ConversationID string
	Text           string
}

// NewTestPlatform builds a TestPlatform. When streamed is true,
// GetStreamingMode reports "stream"; otherwise "batch".
func NewTestPlatform(streamed bool) *TestPlatform {
	return &TestPlatform{Streamed: streamed}
}

func (p *TestPlatform) SendMessage(_ context.Context, conversationID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Sent = append(p.Sent, SentMessage{ConversationID: conversationID, Text: text})
	return nil
}

func (p *TestPlatform) EnsureThread(_ context.Context, conversationID string) (string, error) {
	return conversationID, nil
}

func (p *TestPlatform) GetStreamingMode() StreamingMode {
	if p.Streamed {
		return StreamingModeStream
	}
	return StreamingModeBatch
}

func (p *TestPlatform) GetPlatformType() Type { return TypeTest }

func (p *TestPlatform) Start(context.Context) error { return nil }
func (p *TestPlatform) Stop(context.Context) error  { return nil }

// Messages returns the text of every message sent to conversationID, in
// order.
func (p *TestPlatform) Messages(conversationID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.Sent {
		if m.ConversationID == conversationID {
			out = append(out, m.Text)
		}
	}
	return out
}
