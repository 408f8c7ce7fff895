package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/yattcodes/ai-gateway/backend/internal/classifier"
	"github.com/yattcodes/ai-gateway/backend/internal/config"
	"github.com/yattcodes/ai-gateway/backend/internal/handler"
	"github.com/yattcodes/ai-gateway/backend/internal/ratelimit"
	chatService "github.com/yattcodes/ai-gateway/backend/internal/service/chat"
	"github.com/yattcodes/ai-gateway/backend/internal/service/document"
	"github.com/yattcodes/ai-gateway/backend/internal/service/generation"
	"github.com/yattcodes/ai-gateway/backend/internal/service/usage"
	"github.com/yattcodes/ai-gateway/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using system environment only")
	}

	cfg, err := config.Load("config.yaml")
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	if cfg.Auth.Secret == "" {
		logger.Fatal("AUTH_SECRET is required")
	}
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; upstream calls will be rejected")
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("using PostgreSQL storage",
			zap.String("host", cfg.Database.Host),
			zap.String("dbname", cfg.Database.DBName))
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}, logger)
		if err != nil {
			logger.Fatal("failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// The intent model trains once here and is immutable afterwards.
	clf := classifier.New()

	generator := generation.NewService(
		openai.NewClient(cfg.OpenAI.APIKey),
		cfg.OpenAI.Model,
		time.Duration(cfg.OpenAI.ImageTimeoutSeconds)*time.Second,
		logger,
	)

	tracker := usage.NewTracker(store, logger)
	imageQuota := ratelimit.NewWindow(
		cfg.RateLimit.ImageLimit,
		time.Duration(cfg.RateLimit.ImageWindowMinutes)*time.Minute,
	)

	chatSvc := chatService.NewService(store, tracker, clf, imageQuota, generator, logger)
	docSvc := document.NewService(document.NewPDFExtractor(), generator, tracker, logger)

	router := handler.NewRouter(handler.Options{
		ChatService:     chatSvc,
		DocumentService: docSvc,
		UploadDir:       cfg.Upload.Dir,
		AuthSecret:      cfg.Auth.Secret,
		CORSOrigin:      cfg.Server.CORSOrigin,
		GlobalLimit:     cfg.RateLimit.GlobalLimit,
		GlobalWindow:    time.Duration(cfg.RateLimit.GlobalWindowMinutes) * time.Minute,
		Logger:          logger,
	})

	startServer(ctx, logger, cfg.Server.Addr, router)
}

func startServer(ctx context.Context, logger *zap.Logger, addr string, router http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("gateway listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
