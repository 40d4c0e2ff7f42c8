package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"

	"mdocr/internal/config"
	"mdocr/internal/jobs"
	"mdocr/internal/llm"
	"mdocr/internal/metrics"
	"mdocr/internal/storage"
)

// Runner is the background entry point for a created job. The server
// spawns one goroutine per upload; the orchestrator itself makes no
// assumption about how it is scheduled.
type Runner interface {
	Run(ctx context.Context, jobID, documentPath string)
}

type Server struct {
	app    *fiber.App
	config *config.Config
	logger *slog.Logger
}

func NewServer(cfg *config.Config, registry *jobs.Registry, store *storage.Store, runner Runner, textClient, visionClient llm.Client, logger *slog.Logger) *Server {
	// PDFs can be large; the default 4 MB body limit is far too small.
	app := fiber.New(fiber.Config{BodyLimit: 100 * 1024 * 1024})

	// Inject dependencies into context for handlers
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("registry", registry)
		c.Locals("storage", store)
		c.Locals("runner", runner)
		return c.Next()
	})

	// Permissive CORS for the local web frontend.
	app.Use(cors.New())

	// Request logging + metrics middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		// Ensure a request ID exists
		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)
		if logger != nil {
			c.Locals("logger", logger)
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		method := c.Method()
		path := c.Path()

		metrics.RecordRequest(method, path, status, latency.Milliseconds())

		if logger != nil {
			logger.Info("request",
				"request_id", reqID,
				"method", method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}

		return err
	})

	// Health endpoints
	app.Get("/healthz", func(c *fiber.Ctx) error {
		// Shallow health: process is up
		if c.Query("deep") != "true" {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		// Deep health: probe the completion endpoints.
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		status := "ok"

		textStatus := "ok"
		if err := textClient.Ping(ctx); err != nil {
			textStatus = "error"
			status = "error"
		}

		visionStatus := "disabled"
		if cfg.LLM.UseVision && visionClient != nil {
			visionStatus = "ok"
			if err := visionClient.Ping(ctx); err != nil {
				// The pipeline can still run with text fallback, so a
				// vision outage only degrades health.
				visionStatus = "error"
				if status == "ok" {
					status = "degraded"
				}
			}
		}

		resp := fiber.Map{
			"status":        status,
			"text_llm":      textStatus,
			"vision_llm":    visionStatus,
			"configuration": fiber.Map{
				"provider":     cfg.LLM.Provider,
				"textModel":    cfg.LLM.TextModel,
				"visionModel":  cfg.LLM.ActiveVisionModel(),
				"useVision":    cfg.LLM.UseVision,
				"pdfDpi":       cfg.PDF.DPI,
				"imageFormat":  cfg.PDF.ImageFormat,
				"contextChars": cfg.Context.MaxChars,
			},
		}
		if status == "error" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
		return c.JSON(resp)
	})

	// Prometheus-style metrics endpoint
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	v1 := app.Group("/api/v1")
	registerV1Routes(v1)

	return &Server{
		app:    app,
		config: cfg,
		logger: logger,
	}
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

func registerV1Routes(group fiber.Router) {
	group.Post("/upload", uploadHandler)
	group.Get("/status/:id", statusHandler)
	group.Get("/download/:id", downloadHandler)
}
