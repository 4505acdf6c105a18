package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/shotcoach/internal/config"
	"github.com/vbonduro/shotcoach/internal/httpclient"
	"github.com/vbonduro/shotcoach/internal/logging"
	"github.com/vbonduro/shotcoach/internal/prompt"
	"github.com/vbonduro/shotcoach/internal/session"
	"github.com/vbonduro/shotcoach/internal/vision"
	claudevision "github.com/vbonduro/shotcoach/internal/vision/claude"
	geminivision "github.com/vbonduro/shotcoach/internal/vision/gemini"
	ollamavision "github.com/vbonduro/shotcoach/internal/vision/ollama"
	"github.com/vbonduro/shotcoach/internal/web"
	"github.com/vbonduro/shotcoach/internal/web/templates"
)

const sweepInterval = time.Minute

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg, logger); err != nil {
		logger.Error("shotcoach stopped", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prompts, err := prompt.New(cfg.CameraModel, cfg.CameraSystem, cfg.GuideLanguage)
	if err != nil {
		return fmt.Errorf("failed to build prompts: %w", err)
	}

	client := httpclient.New(httpclient.Options{PreferIPv4: cfg.PreferIPv4, Timeout: cfg.HTTPTimeout})

	visionAnalyzer, err := newVisionAnalyzer(ctx, cfg, client, prompts, logger)
	if err != nil {
		return err
	}

	sessions := session.NewStore(visionAnalyzer, session.Options{
		TTL:         cfg.SessionTTL,
		MaxSessions: cfg.MaxSessions,
		Logger:      logger,
	})
	server := web.NewServer(sessions, visionAnalyzer, templates.FS, web.Options{
		CameraModel:    cfg.CameraModel,
		MaxUploadBytes: cfg.MaxUploadBytes,
		ModelTimeout:   cfg.HTTPTimeout,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.ListenAddr)
	})
	g.Go(func() error {
		return sessions.Run(gctx, sweepInterval)
	})
	return g.Wait()
}

func newVisionAnalyzer(ctx context.Context, cfg *config.Config, client *http.Client, prompts *prompt.Builder, logger *slog.Logger) (vision.VisionAnalyzer, error) {
	switch cfg.VisionBackend {
	case "claude":
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewClaudeAnalyzer(cfg.ClaudeAPIKey, cfg.ClaudeModel, client, prompts, logger), nil
	case "ollama":
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return ollamavision.NewOllamaAnalyzer(cfg.OllamaHost, cfg.OllamaModel, client, prompts, logger), nil
	default:
		logger.Info("using Gemini vision backend", "model", cfg.GeminiModel)
		return geminivision.NewGeminiAnalyzer(ctx, geminivision.Options{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			BaseURL:    cfg.GeminiBaseURL,
			APIVersion: cfg.GeminiAPIVersion,
			HTTPClient: client,
			Prompts:    prompts,
			Logger:     logger,
		})
	}
}
