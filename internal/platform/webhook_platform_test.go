package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestWebhookPlatformSendSucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewWebhookPlatform(server.URL, TypeSlack, StreamingModeStream, 1, time.Second)
	if err := p.SendMessage(context.Background(), "conv-1", "hello"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestWebhookPlatformRetriesThenSucceeds(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewWebhookPlatform(server.URL, TypeDiscord, StreamingModeBatch, 3, time.Second)
	if err := p.SendMessage(context.Background(), "conv-1", "hello"); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestWebhookPlatformExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewWebhookPlatform(server.URL, TypeTelegram, StreamingModeStream, 2, time.Second)
	if err := p.SendMessage(context.Background(), "conv-1", "hello"); err == nil {
		t.Fatalf("expected failure after exhausting retries")
	}
}

func TestGitHubPlatformTypeAndMode(t *testing.T) {
	p := NewGitHubPlatform("http://example.invalid", 1, time.Second)
	if p.GetPlatformType() != TypeGitHub {
		t.Fatalf("expected github type, got %s", p.GetPlatformType())
	}
	if p.GetStreamingMode() != StreamingModeBatch {
		t.Fatalf("expected batch streaming mode, got %s", p.GetStreamingMode())
	}
}
