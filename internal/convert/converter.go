package convert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mdocr/internal/llm"
	"mdocr/internal/metrics"
)

// Outcome tags how a page conversion concluded, making the fallback
// path a first-class branch instead of an exception handler.
type Outcome string

const (
	// OutcomeSuccess: the primary provider call produced the fragment.
	OutcomeSuccess Outcome = "success"
	// OutcomeFallback: the vision call failed but the text-mode
	// conversion of the extracted page text succeeded.
	OutcomeFallback Outcome = "fallback"
	// OutcomeFailed: all applicable provider calls failed; the
	// fragment carries an inline error annotation.
	OutcomeFailed Outcome = "failed"
)

// Result is the fragment produced for one page together with how it
// was obtained. Convert methods never return an error; every failure
// is folded into the fragment.
type Result struct {
	Outcome  Outcome
	Fragment string
}

// Converter builds per-page prompts and invokes completion providers.
type Converter struct {
	text   llm.Client
	vision llm.Client
	logger *slog.Logger
}

// New constructs a Converter. vision may be nil when vision mode is
// disabled; ConvertVision must not be called in that case.
func New(text, vision llm.Client, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{text: text, vision: vision, logger: logger}
}

// ConvertText reformats extracted page text into Markdown. On provider
// failure the raw page text is preserved behind an inline annotation
// rather than lost.
func (c *Converter) ConvertText(ctx context.Context, pageText string, pageIndex int, previousContext string) Result {
	pageNum := pageIndex + 1

	messages := []llm.Message{
		llm.TextMessage("system", textSystemPrompt(pageNum)),
	}
	if previousContext != "" {
		messages = append(messages, llm.TextMessage("user",
			fmt.Sprintf("Context from previous page:\n---\n%s\n---", previousContext)))
	}
	messages = append(messages, llm.TextMessage("user",
		fmt.Sprintf("Current page text to convert:\n---\n%s\n---", pageText)))

	out, err := c.text.Complete(ctx, messages)
	metrics.RecordCompletion(string(llm.KindText), err == nil)
	if err != nil {
		c.logger.Warn("text conversion failed", "page", pageNum, "error", err)
		return Result{
			Outcome:  OutcomeFailed,
			Fragment: fmt.Sprintf("\n\n> [Error: %v]\n\n%s", err, pageText),
		}
	}

	return Result{Outcome: OutcomeSuccess, Fragment: out}
}

// ConvertVision converts a rendered page image into Markdown via the
// vision provider. On failure it falls back to text-mode conversion of
// fallbackText; a successful fallback carries no error annotation.
func (c *Converter) ConvertVision(ctx context.Context, image []byte, mimeType string, pageIndex int, previousContext, fallbackText string) Result {
	pageNum := pageIndex + 1

	messages := []llm.Message{
		llm.TextMessage("system", visionSystemPrompt),
	}
	if previousContext != "" {
		messages = append(messages, llm.TextMessage("user", continuityMessage(previousContext, pageNum)))
	}
	messages = append(messages, llm.Message{
		Role: "user",
		Content: []llm.ContentPart{
			{Type: "text", Text: visionUserPrompt(pageNum)},
			llm.ImagePart(mimeType, image, "high"),
		},
	})

	out, err := c.vision.Complete(ctx, messages)
	metrics.RecordCompletion(string(llm.KindVision), err == nil)
	if err == nil {
		return Result{Outcome: OutcomeSuccess, Fragment: out}
	}

	c.logger.Warn("vision conversion failed, falling back to text", "page", pageNum, "error", err)

	if strings.TrimSpace(fallbackText) == "" {
		return Result{
			Outcome:  OutcomeFailed,
			Fragment: fmt.Sprintf("\n\n> [Error processing page %d: %v]\n\n", pageNum, err),
		}
	}

	res := c.ConvertText(ctx, fallbackText, pageIndex, previousContext)
	if res.Outcome == OutcomeFailed {
		// Both the vision call and the text fallback failed; annotate
		// with both causes and keep the raw page text.
		return Result{
			Outcome:  OutcomeFailed,
			Fragment: fmt.Sprintf("\n\n> [Error processing page %d with vision: %v | Fallback also failed]%s", pageNum, err, res.Fragment),
		}
	}

	return Result{Outcome: OutcomeFallback, Fragment: res.Fragment}
}
