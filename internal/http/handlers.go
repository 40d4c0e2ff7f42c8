package http

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"mdocr/internal/jobs"
	"mdocr/internal/storage"
)

// uploadHandler accepts a multipart PDF upload, creates the job, and
// starts background conversion. The response returns immediately; the
// client polls /status/:id.
func uploadHandler(c *fiber.Ctx) error {
	registry := c.Locals("registry").(*jobs.Registry)
	store := c.Locals("storage").(*storage.Store)
	runner := c.Locals("runner").(Runner)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(UploadResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "A PDF file is required in the 'file' form field",
		})
	}

	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
		return c.Status(fiber.StatusBadRequest).JSON(UploadResponse{
			Success: false,
			Code:    "UNSUPPORTED_FILE_TYPE",
			Error:   "Only PDF files are supported",
		})
	}

	job := registry.Create(fileHeader.Filename)

	src, err := fileHeader.Open()
	if err != nil {
		registry.MarkFailed(job.ID, err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(UploadResponse{
			Success: false,
			Code:    "UPLOAD_FAILED",
			Error:   fmt.Sprintf("Could not read uploaded file: %v", err),
		})
	}
	defer src.Close()

	path, err := store.SaveUpload(job.ID, src)
	if err != nil {
		registry.MarkFailed(job.ID, err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(UploadResponse{
			Success: false,
			Code:    "UPLOAD_FAILED",
			Error:   fmt.Sprintf("Could not save file: %v", err),
		})
	}

	go runner.Run(context.Background(), job.ID, path)

	return c.JSON(UploadResponse{
		Success:  true,
		JobID:    job.ID,
		Filename: job.Filename,
		Status:   string(job.Status),
		Message:  "File uploaded successfully. Conversion started.",
	})
}

// statusHandler returns a snapshot of the job record.
func statusHandler(c *fiber.Ctx) error {
	registry := c.Locals("registry").(*jobs.Registry)

	job, err := registry.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(StatusResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "Job not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(StatusResponse{
			Success: false,
			Code:    "INTERNAL",
			Error:   err.Error(),
		})
	}

	return c.JSON(StatusResponse{Success: true, Job: &job})
}

// downloadHandler serves the converted Markdown once the job has
// completed. Not-ready is distinct from not-found.
func downloadHandler(c *fiber.Ctx) error {
	registry := c.Locals("registry").(*jobs.Registry)
	store := c.Locals("storage").(*storage.Store)

	job, err := registry.Get(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "Job not found",
		})
	}

	if job.Status != jobs.StatusCompleted {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_READY",
			Error:   fmt.Sprintf("File is not ready. Current status: %s", job.Status),
		})
	}

	content, err := store.ReadArtifact(job.OutputFile)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "Converted file not found on disk",
		})
	}

	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", strings.TrimSuffix(job.Filename, ".pdf")+".md"))
	return c.Send(content)
}
