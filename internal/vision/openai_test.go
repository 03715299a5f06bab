package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fieldrelay/internal/logger"
)

func newTestProvider(endpoint string) *OpenAIProvider {
	return NewOpenAIProvider(endpoint, "test-key", "gpt-4-vision-preview", "what do you see?", logger.Discard())
}

func chatReply(text string) string {
	return `{"choices":[{"message":{"content":"` + text + `"}}]}`
}

// ========================================
// Request / Response Tests
// ========================================

func TestOpenAIProvider_Success(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(chatReply("no hazards")))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	text, err := p.Analyze(context.Background(), "https://x/img1.jpg")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if text != "no hazards" {
		t.Errorf("Expected 'no hazards', got %q", text)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth)
	}
	if gotBody.Model != "gpt-4-vision-preview" {
		t.Errorf("Unexpected model: %q", gotBody.Model)
	}
	if len(gotBody.Messages) != 1 || len(gotBody.Messages[0].Content) != 2 {
		t.Fatalf("Expected one message with text + image parts, got %+v", gotBody.Messages)
	}
	if gotBody.Messages[0].Content[1].ImageURL.URL != "https://x/img1.jpg" {
		t.Errorf("Image reference not forwarded: %+v", gotBody.Messages[0].Content[1])
	}
}

// ========================================
// Error Classification Tests
// ========================================

func TestOpenAIProvider_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	_, err := p.Analyze(context.Background(), "https://x/img.jpg")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if IsPermanent(err) {
		t.Errorf("5xx responses must be transient, got permanent: %v", err)
	}
}

func TestOpenAIProvider_RateLimitIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	_, err := p.Analyze(context.Background(), "https://x/img.jpg")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if IsPermanent(err) {
		t.Errorf("429 responses must be transient, got permanent: %v", err)
	}
}

func TestOpenAIProvider_BadRequestIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad image", http.StatusBadRequest)
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	_, err := p.Analyze(context.Background(), "https://x/img.jpg")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !IsPermanent(err) {
		t.Errorf("4xx responses must be permanent, got transient: %v", err)
	}
}

func TestOpenAIProvider_TimeoutIsTransient(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(chatReply("late")))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Analyze(ctx, "https://x/img.jpg")
	<-started
	if err == nil {
		t.Fatal("Expected a timeout error")
	}
	if IsPermanent(err) {
		t.Errorf("Timeouts must be transient, got permanent: %v", err)
	}
}

func TestOpenAIProvider_ProviderErrorBodyIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"invalid image url","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	_, err := p.Analyze(context.Background(), "https://x/img.jpg")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !IsPermanent(err) {
		t.Errorf("Provider-reported errors must be permanent, got transient: %v", err)
	}
}

func TestOpenAIProvider_EmptyChoicesIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	_, err := p.Analyze(context.Background(), "https://x/img.jpg")
	if !IsPermanent(err) {
		t.Errorf("Empty choices must be permanent, got %v", err)
	}
}

// ========================================
// Classification Helper Tests
// ========================================

func TestIsPermanent(t *testing.T) {
	base := errors.New("boom")

	if IsPermanent(Transient(base)) {
		t.Error("Transient error classified as permanent")
	}
	if !IsPermanent(Permanent(base)) {
		t.Error("Permanent error classified as transient")
	}
	if IsPermanent(base) {
		t.Error("Unclassified errors should default to transient")
	}
	if IsPermanent(nil) {
		t.Error("nil is not permanent")
	}
}
