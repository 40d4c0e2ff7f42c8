package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mdocr/internal/config"
)

func testClient(baseURL string, retries int) *chatClient {
	return &chatClient{
		baseURL:    baseURL,
		model:      "test-model",
		maxRetries: retries,
		http:       &http.Client{Timeout: 5 * time.Second},
	}
}

func TestComplete_ReturnsChoiceContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %q", req.Model)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"# Converted"}}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	out, err := c.Complete(context.Background(), []Message{TextMessage("user", "hello")})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out != "# Converted" {
		t.Fatalf("unexpected content: %q", out)
	}
}

func TestComplete_RetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 2)
	out, err := c.Complete(context.Background(), []Message{TextMessage("user", "hi")})
	if err != nil {
		t.Fatalf("Complete error after retry: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected content: %q", out)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestComplete_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad prompt"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	_, err := c.Complete(context.Background(), []Message{TextMessage("user", "hi")})
	if err == nil {
		t.Fatalf("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("expected status in error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single call for client error, got %d", got)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	if _, err := c.Complete(context.Background(), []Message{TextMessage("user", "hi")}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
}

func TestNewClientFromConfig_SelectsModelAndTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.TextModel = "text-model"
	cfg.LLM.VisionModel = "vision-model"

	textClient, err := NewClientFromConfig(cfg, KindText)
	if err != nil {
		t.Fatalf("text client: %v", err)
	}
	if c := textClient.(*chatClient); c.model != "text-model" {
		t.Fatalf("expected text model, got %q", c.model)
	}

	visionClient, err := NewClientFromConfig(cfg, KindVision)
	if err != nil {
		t.Fatalf("vision client: %v", err)
	}
	if c := visionClient.(*chatClient); c.model != "vision-model" {
		t.Fatalf("expected vision model, got %q", c.model)
	}
}

func TestImagePart_DataURI(t *testing.T) {
	part := ImagePart("image/png", []byte{1, 2, 3}, "high")
	if part.Type != "image_url" || part.ImageURL == nil {
		t.Fatalf("expected image_url part, got %+v", part)
	}
	if !strings.HasPrefix(part.ImageURL.URL, "data:image/png;base64,") {
		t.Fatalf("expected data URI, got %q", part.ImageURL.URL)
	}
}
