package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mdocr/internal/convert"
	"mdocr/internal/document"
	"mdocr/internal/metrics"
)

// pageSeparator joins per-page fragments in the final artifact.
const pageSeparator = "\n\n---\n\n"

// PageConverter converts one page of content into a Markdown fragment.
// Implementations never return an error; failures are folded into the
// fragment as inline annotations.
type PageConverter interface {
	ConvertText(ctx context.Context, pageText string, pageIndex int, previousContext string) convert.Result
	ConvertVision(ctx context.Context, image []byte, mimeType string, pageIndex int, previousContext, fallbackText string) convert.Result
}

// ArtifactWriter persists the assembled Markdown for a job.
type ArtifactWriter interface {
	WriteArtifact(jobID string, content string) (ref string, err error)
}

// Orchestrator walks a document page by page, delegates conversion,
// carries continuity context forward, and drives the job record
// through its lifecycle. One Run call services one job, in its own
// goroutine; the registry is the only externally visible state.
type Orchestrator struct {
	registry  *Registry
	source    document.Source
	converter PageConverter
	artifacts ArtifactWriter
	useVision bool
	maxCtx    int
	logger    *slog.Logger
}

func NewOrchestrator(registry *Registry, source document.Source, converter PageConverter, artifacts ArtifactWriter, useVision bool, maxContextChars int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		registry:  registry,
		source:    source,
		converter: converter,
		artifacts: artifacts,
		useVision: useVision,
		maxCtx:    maxContextChars,
		logger:    logger,
	}
}

// Run processes one uploaded document to completion or failure. It
// never returns an error: every outcome is recorded on the job record.
// Per-page provider failures surface as inline annotations in the
// output; only an unreadable document or a failed artifact write
// aborts the job.
func (o *Orchestrator) Run(ctx context.Context, jobID, documentPath string) {
	o.registry.MarkProcessing(jobID)

	doc, err := o.source.Open(documentPath)
	if err != nil {
		o.fail(jobID, err)
		return
	}
	defer doc.Close()

	total := doc.PageCount()
	o.registry.SetTotalPages(jobID, total)
	o.logger.Info("processing document", "job_id", jobID, "pages", total, "vision", o.useVision)

	var fragments []string
	previousContext := ""

	for page := 0; page < total; page++ {
		o.registry.SetCurrentPage(jobID, page+1)

		var res convert.Result
		if o.useVision {
			res = o.convertVisionPage(ctx, doc, page, previousContext)
			metrics.RecordPage("vision", string(res.Outcome))
		} else {
			text, terr := doc.Text(page)
			if terr != nil {
				o.fail(jobID, terr)
				return
			}
			if strings.TrimSpace(text) == "" {
				o.logger.Debug("skipping empty page", "job_id", jobID, "page", page+1)
				continue
			}
			res = o.converter.ConvertText(ctx, text, page, previousContext)
			metrics.RecordPage("text", string(res.Outcome))
		}

		if strings.TrimSpace(res.Fragment) == "" {
			continue
		}
		fragments = append(fragments, res.Fragment)

		// Failed pages contribute their annotation to the output but
		// do not displace the last successful continuity context.
		if res.Outcome != convert.OutcomeFailed {
			previousContext = convert.NextContext(previousContext, res.Fragment, o.maxCtx)
		}
	}

	content := strings.Join(fragments, pageSeparator)

	ref, err := o.artifacts.WriteArtifact(jobID, content)
	if err != nil {
		o.fail(jobID, err)
		return
	}

	o.registry.MarkCompleted(jobID, ref)
	metrics.RecordJob(string(StatusCompleted))
	o.logger.Info("document completed", "job_id", jobID, "pages", total, "fragments", len(fragments))
}

// convertVisionPage renders the page and converts it via the vision
// provider. Rendering failures reuse the text fallback path so a bad
// raster does not abort the document.
func (o *Orchestrator) convertVisionPage(ctx context.Context, doc document.Document, page int, previousContext string) convert.Result {
	// Extracted text doubles as the vision fallback; extraction errors
	// are not fatal here because the raster is the primary input.
	text, _ := doc.Text(page)

	image, mimeType, err := doc.RenderImage(page)
	if err != nil {
		o.logger.Warn("page render failed", "page", page+1, "error", err)
		if strings.TrimSpace(text) == "" {
			return convert.Result{
				Outcome:  convert.OutcomeFailed,
				Fragment: fmt.Sprintf("\n\n> [Error processing page %d: %v]\n\n", page+1, err),
			}
		}
		res := o.converter.ConvertText(ctx, text, page, previousContext)
		if res.Outcome == convert.OutcomeSuccess {
			res.Outcome = convert.OutcomeFallback
		}
		return res
	}

	return o.converter.ConvertVision(ctx, image, mimeType, page, previousContext, text)
}

func (o *Orchestrator) fail(jobID string, cause error) {
	o.logger.Error("job failed", "job_id", jobID, "error", cause)
	o.registry.MarkFailed(jobID, cause.Error())
	metrics.RecordJob(string(StatusFailed))
}
