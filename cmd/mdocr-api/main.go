package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"mdocr/internal/config"
	"mdocr/internal/convert"
	"mdocr/internal/document"
	server "mdocr/internal/http"
	"mdocr/internal/jobs"
	"mdocr/internal/llm"
	"mdocr/internal/storage"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// Optional .env for local overrides; ignore if absent.
	_ = godotenv.Load()

	cfg := config.Load(*configPath)

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	store := storage.New(cfg.Storage.UploadDir, cfg.Storage.OutputDir)
	if err := store.EnsureDirs(); err != nil {
		log.Fatalf("storage setup failed: %v", err)
	}

	textClient, err := llm.NewClientFromConfig(cfg, llm.KindText)
	if err != nil {
		log.Fatalf("text llm client failed: %v", err)
	}

	var visionClient llm.Client
	if cfg.LLM.UseVision {
		visionClient, err = llm.NewClientFromConfig(cfg, llm.KindVision)
		if err != nil {
			log.Fatalf("vision llm client failed: %v", err)
		}
	}

	source := document.NewFitzSource(cfg.PDF.DPI, cfg.PDF.ImageFormat)
	converter := convert.New(textClient, visionClient, logger)
	registry := jobs.NewRegistry()
	orchestrator := jobs.NewOrchestrator(registry, source, converter, store, cfg.LLM.UseVision, cfg.Context.MaxChars, logger)

	s := server.NewServer(cfg, registry, store, orchestrator, textClient, visionClient, logger)
	logger.Info("listening", "host", cfg.Server.Host, "port", cfg.Server.Port,
		"provider", cfg.LLM.Provider, "vision", cfg.LLM.UseVision)
	if err := s.Listen(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
