package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mdocr/internal/config"
)

// Kind distinguishes the two logical completion clients.
type Kind string

const (
	KindText   Kind = "text"
	KindVision Kind = "vision"
)

// Message is one chat message. Content is always a list of parts so
// the same shape serves plain text messages and text+image messages.
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is a single part of a message: text, or an embedded image.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an image as a base64 data URI.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// TextMessage builds a single-part text message.
func TextMessage(role, text string) Message {
	return Message{
		Role:    role,
		Content: []ContentPart{{Type: "text", Text: text}},
	}
}

// ImagePart embeds raw image bytes as a data URI content part.
// Detail "high" asks vision models for full-resolution analysis.
func ImagePart(mimeType string, data []byte, detail string) ContentPart {
	encoded := base64.StdEncoding.EncodeToString(data)
	return ContentPart{
		Type: "image_url",
		ImageURL: &ImageURL{
			URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, encoded),
			Detail: detail,
		},
	}
}

// Client is the completion capability used by the page converter.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Ping(ctx context.Context) error
}

// chatClient implements Client against an OpenAI-compatible chat
// completions endpoint (Ollama or LM Studio).
type chatClient struct {
	baseURL    string
	model      string
	maxRetries int
	http       *http.Client
}

// NewClientFromConfig constructs the text or vision client from global
// config. Both are built once at startup; there is no lazy global state.
func NewClientFromConfig(cfg *config.Config, kind Kind) (Client, error) {
	baseURL := strings.TrimRight(cfg.LLM.BaseURL(), "/")
	if baseURL == "" {
		return nil, errors.New("llm base URL is not configured")
	}

	model := cfg.LLM.TextModel
	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	if kind == KindVision {
		model = cfg.LLM.ActiveVisionModel()
		timeout = time.Duration(cfg.LLM.VisionTimeoutSeconds) * time.Second
	}
	if model == "" {
		return nil, fmt.Errorf("no model configured for %s completions", kind)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &chatClient{
		baseURL:    baseURL,
		model:      model,
		maxRetries: cfg.LLM.MaxRetries,
		http:       &http.Client{Timeout: timeout},
	}, nil
}

// chatRequest is a minimal representation of the Chat Completions API.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// chatResponse decodes only the fields we use. The response side
// carries content as a plain string, unlike the request side.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *chatClient) Complete(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.0,
	})
	if err != nil {
		return "", err
	}

	endpoint := c.baseURL + "/chat/completions"

	var resp *http.Response
	attempts := c.maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if reqErr != nil {
			return "", reqErr
		}
		httpReq.Header.Set("Content-Type", "application/json")
		// Local endpoints ignore the key but the header must be present
		// for some OpenAI-compatible servers.
		httpReq.Header.Set("Authorization", "Bearer not-needed")

		resp, err = c.http.Do(httpReq)
		if err != nil {
			continue
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			err = fmt.Errorf("chat completion failed with status %d", resp.StatusCode)
			resp = nil
			continue
		}
		break
	}
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat completion failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

// Ping checks endpoint reachability via the models listing route. Used
// by the deep health check only.
func (c *chatClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("models endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
