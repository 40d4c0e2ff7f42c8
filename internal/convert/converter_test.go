package convert

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mdocr/internal/llm"
)

// fakeClient scripts completion responses for converter tests.
type fakeClient struct {
	reply    string
	err      error
	messages [][]llm.Message
}

func (f *fakeClient) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.messages = append(f.messages, messages)
	return f.reply, f.err
}

func (f *fakeClient) Ping(context.Context) error { return nil }

func TestConvertText_Success(t *testing.T) {
	text := &fakeClient{reply: "# Heading\n\nbody"}
	conv := New(text, nil, nil)

	res := conv.ConvertText(context.Background(), "raw page text", 0, "")
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success outcome, got %s", res.Outcome)
	}
	if res.Fragment != "# Heading\n\nbody" {
		t.Fatalf("unexpected fragment: %q", res.Fragment)
	}
}

func TestConvertText_IncludesContinuityMessage(t *testing.T) {
	text := &fakeClient{reply: "ok"}
	conv := New(text, nil, nil)

	conv.ConvertText(context.Background(), "raw", 1, "tail of previous page")

	msgs := text.messages[0]
	if len(msgs) != 3 {
		t.Fatalf("expected system + context + page messages, got %d", len(msgs))
	}
	if !strings.Contains(msgs[1].Content[0].Text, "tail of previous page") {
		t.Fatalf("continuity context missing from prompt: %q", msgs[1].Content[0].Text)
	}
}

func TestConvertText_NoContextOmitsContinuityMessage(t *testing.T) {
	text := &fakeClient{reply: "ok"}
	conv := New(text, nil, nil)

	conv.ConvertText(context.Background(), "raw", 0, "")

	if len(text.messages[0]) != 2 {
		t.Fatalf("expected system + page messages only, got %d", len(text.messages[0]))
	}
}

func TestConvertText_ProviderFailurePreservesRawText(t *testing.T) {
	text := &fakeClient{err: errors.New("connection refused")}
	conv := New(text, nil, nil)

	res := conv.ConvertText(context.Background(), "the raw extracted text", 2, "")
	if res.Outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", res.Outcome)
	}
	if !strings.Contains(res.Fragment, "> [Error: connection refused]") {
		t.Fatalf("expected inline error annotation, got %q", res.Fragment)
	}
	if !strings.Contains(res.Fragment, "the raw extracted text") {
		t.Fatalf("raw page text lost from fragment: %q", res.Fragment)
	}
}

func TestConvertVision_Success(t *testing.T) {
	vision := &fakeClient{reply: "## From image"}
	conv := New(&fakeClient{}, vision, nil)

	res := conv.ConvertVision(context.Background(), []byte{0x89, 0x50}, "image/png", 0, "", "fallback text")
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success outcome, got %s", res.Outcome)
	}
	if res.Fragment != "## From image" {
		t.Fatalf("unexpected fragment: %q", res.Fragment)
	}

	final := vision.messages[0][len(vision.messages[0])-1]
	if len(final.Content) != 2 || final.Content[1].ImageURL == nil {
		t.Fatalf("expected final message pairing text with an image part")
	}
	if !strings.HasPrefix(final.Content[1].ImageURL.URL, "data:image/png;base64,") {
		t.Fatalf("expected data URI image payload, got %q", final.Content[1].ImageURL.URL[:30])
	}
	if final.Content[1].ImageURL.Detail != "high" {
		t.Fatalf("expected high detail image, got %q", final.Content[1].ImageURL.Detail)
	}
}

func TestConvertVision_FallbackToTextWithoutAnnotation(t *testing.T) {
	vision := &fakeClient{err: errors.New("vision model unavailable")}
	text := &fakeClient{reply: "text-mode result"}
	conv := New(text, vision, nil)

	res := conv.ConvertVision(context.Background(), []byte{1}, "image/png", 0, "", "page text")
	if res.Outcome != OutcomeFallback {
		t.Fatalf("expected fallback outcome, got %s", res.Outcome)
	}
	// A successful fallback carries the plain text-mode result; no
	// error annotation is emitted.
	if res.Fragment != "text-mode result" {
		t.Fatalf("unexpected fallback fragment: %q", res.Fragment)
	}
}

func TestConvertVision_NoFallbackTextAnnotates(t *testing.T) {
	vision := &fakeClient{err: errors.New("timeout")}
	conv := New(&fakeClient{}, vision, nil)

	res := conv.ConvertVision(context.Background(), []byte{1}, "image/png", 3, "", "   ")
	if res.Outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", res.Outcome)
	}
	if !strings.Contains(res.Fragment, "[Error processing page 4: timeout]") {
		t.Fatalf("expected annotation naming the page and cause, got %q", res.Fragment)
	}
}

func TestConvertVision_BothFailuresNoted(t *testing.T) {
	vision := &fakeClient{err: errors.New("vision down")}
	text := &fakeClient{err: errors.New("text down")}
	conv := New(text, vision, nil)

	res := conv.ConvertVision(context.Background(), []byte{1}, "image/png", 0, "", "raw text")
	if res.Outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", res.Outcome)
	}
	if !strings.Contains(res.Fragment, "vision down") {
		t.Fatalf("vision failure missing from annotation: %q", res.Fragment)
	}
	if !strings.Contains(res.Fragment, "text down") {
		t.Fatalf("fallback failure missing from annotation: %q", res.Fragment)
	}
	if !strings.Contains(res.Fragment, "raw text") {
		t.Fatalf("raw page text lost from fragment: %q", res.Fragment)
	}
}
