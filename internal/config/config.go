package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StorageConfig struct {
	UploadDir string `yaml:"uploadDir"`
	OutputDir string `yaml:"outputDir"`
}

type OllamaConfig struct {
	BaseURL string `yaml:"baseURL"`
}

type LMStudioConfig struct {
	BaseURL string `yaml:"baseURL"`
}

// LLMConfig selects the local completion endpoint and the active
// models. Both Ollama and LM Studio expose OpenAI-compatible chat
// completion APIs, so a single client implementation serves either.
type LLMConfig struct {
	Provider             string         `yaml:"provider"`
	Ollama               OllamaConfig   `yaml:"ollama"`
	LMStudio             LMStudioConfig `yaml:"lmstudio"`
	TextModel            string         `yaml:"textModel"`
	VisionModel          string         `yaml:"visionModel"`
	UseVision            bool           `yaml:"useVision"`
	TimeoutSeconds       int            `yaml:"timeoutSeconds"`
	VisionTimeoutSeconds int            `yaml:"visionTimeoutSeconds"`
	MaxRetries           int            `yaml:"maxRetries"`
}

// PDFConfig controls page rasterization for vision processing.
type PDFConfig struct {
	DPI         int    `yaml:"dpi"`
	ImageFormat string `yaml:"imageFormat"`
}

// ContextConfig bounds the continuity context carried between pages.
type ContextConfig struct {
	MaxChars int `yaml:"maxChars"`
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	LLM     LLMConfig     `yaml:"llm"`
	PDF     PDFConfig     `yaml:"pdf"`
	Context ContextConfig `yaml:"context"`
}

// Default returns the built-in configuration, matching a local
// single-machine deployment with LM Studio on its default port.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Storage: StorageConfig{
			UploadDir: "uploads",
			OutputDir: "outputs",
		},
		LLM: LLMConfig{
			Provider:             "lm_studio",
			Ollama:               OllamaConfig{BaseURL: "http://localhost:11434/v1"},
			LMStudio:             LMStudioConfig{BaseURL: "http://localhost:1234/v1"},
			TextModel:            "zai-org/glm-4.6v-flash",
			TimeoutSeconds:       120,
			VisionTimeoutSeconds: 180,
			MaxRetries:           2,
		},
		PDF: PDFConfig{
			DPI:         200,
			ImageFormat: "png",
		},
		Context: ContextConfig{
			MaxChars: 500,
		},
	}
}

// Load reads configuration from the given yaml file, then applies
// environment overrides. A missing file is not an error; the defaults
// plus environment are enough for a local deployment.
func Load(path string) *Config {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("failed to open config file: %v", err)
		}
	} else {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			log.Fatalf("failed to decode config: %v", err)
		}
	}

	cfg.applyEnv()
	return cfg
}

// applyEnv overrides file values with environment variables where set.
func (c *Config) applyEnv() {
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		c.LLM.Ollama.BaseURL = v
	}
	if v := os.Getenv("LM_STUDIO_BASE_URL"); v != "" {
		c.LLM.LMStudio.BaseURL = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.TextModel = v
	}
	if v := os.Getenv("VISION_MODEL"); v != "" {
		c.LLM.VisionModel = v
	}
	if v := os.Getenv("USE_VISION_MODEL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.LLM.UseVision = b
		}
	}
	if v := os.Getenv("PDF_DPI"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.PDF.DPI = n
		}
	}
	if v := os.Getenv("IMAGE_FORMAT"); v != "" {
		c.PDF.ImageFormat = strings.ToLower(v)
	}
}

// BaseURL returns the completion endpoint for the active provider.
func (c *LLMConfig) BaseURL() string {
	if c.Provider == "ollama" {
		return c.Ollama.BaseURL
	}
	return c.LMStudio.BaseURL
}

// ActiveVisionModel returns the vision model, falling back to the text
// model when no dedicated vision model is configured.
func (c *LLMConfig) ActiveVisionModel() string {
	if c.VisionModel != "" {
		return c.VisionModel
	}
	return c.TextModel
}
