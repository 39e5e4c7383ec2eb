package main

import (
	"context"
	"errors"
	"log"
	"log/slog"

	"github.com/platelens/platelens/internal/config"
	"github.com/platelens/platelens/internal/db"
	"github.com/platelens/platelens/internal/llm"
	claudellm "github.com/platelens/platelens/internal/llm/claude"
	geminillm "github.com/platelens/platelens/internal/llm/gemini"
	ollamallm "github.com/platelens/platelens/internal/llm/ollama"
	"github.com/platelens/platelens/internal/logging"
	"github.com/platelens/platelens/internal/photostore"
	"github.com/platelens/platelens/internal/photostore/local"
	"github.com/platelens/platelens/internal/photostore/memory"
	s3store "github.com/platelens/platelens/internal/photostore/s3"
	"github.com/platelens/platelens/internal/search"
	"github.com/platelens/platelens/internal/service"
	"github.com/platelens/platelens/internal/store"
	"github.com/platelens/platelens/internal/web"
	"github.com/platelens/platelens/internal/web/templates"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	ctx := context.Background()

	photoStg, err := newPhotoStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize photo store", "error", err)
		return
	}

	model, err := newLLMClient(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize model client", "error", err)
		return
	}

	var searchAPI service.Searcher
	if cfg.TavilyAPIKey != "" {
		searchAPI = search.NewClient(cfg.TavilyAPIKey)
		logger.Info("web search tool enabled")
	}

	prompts, err := newPromptSource(cfg, logger)
	if err != nil {
		logger.Error("failed to load prompt file", "error", err)
		return
	}
	go func() {
		if err := prompts.Watch(ctx); err != nil {
			logger.Error("prompt watcher stopped", "error", err)
		}
	}()

	mealService := service.NewMealService(
		store.NewSessionStore(database),
		store.NewMealPhotoStore(database),
		store.NewTurnStore(database),
		store.NewEstimateStore(database),
		photoStg,
		model,
		searchAPI,
		prompts,
		cfg.MaxFollowups,
		logger,
	)
	server := web.NewServer(mealService, templates.FS, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func newLLMClient(cfg *config.Config, logger *slog.Logger) (llm.Client, error) {
	if cfg.TestMode {
		logger.Info("test mode enabled, model replies are canned")
		return llm.CannedClient{}, nil
	}
	switch cfg.LLMBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			return nil, errors.New("CLAUDE_API_KEY is required when LLM_BACKEND=claude")
		}
		logger.Info("using Claude backend", "model", cfg.ClaudeModel)
		return claudellm.NewClaudeClient(cfg.ClaudeAPIKey, cfg.ClaudeModel), nil
	case "ollama":
		logger.Info("using Ollama backend", "host", cfg.OllamaHost, "model", cfg.OllamaModel)
		return ollamallm.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel), nil
	default:
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is required when LLM_BACKEND=gemini")
		}
		logger.Info("using Gemini backend", "model", cfg.GeminiModel)
		return geminillm.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel), nil
	}
}

func newPhotoStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (photostore.PhotoStore, error) {
	switch cfg.PhotoBackend {
	case "local":
		logger.Info("using local photo store", "path", cfg.PhotoPath)
		return local.NewLocalPhotoStore(cfg.PhotoPath)
	case "s3":
		logger.Info("using S3 photo store", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
		return s3store.NewS3PhotoStore(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix)
	default:
		logger.Info("using in-memory photo store")
		return memory.NewMemoryPhotoStore(), nil
	}
}

func newPromptSource(cfg *config.Config, logger *slog.Logger) (*llm.PromptSource, error) {
	if cfg.PromptFile == "" {
		return llm.NewPromptSource(logger), nil
	}
	logger.Info("using prompt file", "path", cfg.PromptFile)
	return llm.NewPromptSourceFromFile(cfg.PromptFile, logger)
}
