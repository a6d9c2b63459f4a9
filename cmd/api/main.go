package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chainpost/internal/adapter/repo"
	"chainpost/internal/http/handlers"
	"chainpost/internal/http/httpapi"
	"chainpost/internal/infra"
	"chainpost/internal/infra/credentials"
	"chainpost/internal/infra/geoip"
	"chainpost/internal/infra/google"
	"chainpost/internal/middleware"
	"chainpost/internal/processing"
	"chainpost/internal/providers/objectstore"
	"chainpost/internal/providers/postgen"
	"chainpost/internal/providers/transcribe"
	"chainpost/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	credStore := credentials.NewStore(runner)

	fileStore := mustFileStore(cfg, logger)
	store, err := objectstore.New(objectstore.Options{
		Endpoint:   cfg.StoreEndpoint,
		AccessKey:  cfg.StoreAccessKey,
		SecretKey:  cfg.StoreSecretKey,
		Bucket:     cfg.StoreBucket,
		UseSSL:     cfg.StoreUseSSL,
		CDNBaseURL: cfg.CDNBaseURL,
		FileStore:  fileStore,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure object store")
	}

	transcriber := buildTranscriber(ctx, cfg, credStore, logger)

	geminiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if geminiKey == "" {
		if key, err := credStore.GeminiAPIKey(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to load gemini api key from store")
		} else {
			geminiKey = key
		}
	}
	if geminiKey == "" {
		logger.Warn().Msg("gemini api key missing, post generation runs synthetic")
	}
	posts := postgen.NewClient(postgen.Options{
		APIKey:  geminiKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})

	projects := repo.NewProjectRepository(runner)
	users := repo.NewUserRepository(runner)
	orchestrator := processing.NewOrchestrator(projects, store, transcriber, posts, cfg.PublicBaseURL, cfg.QueueSigningKey, logger)

	var countryLookup middleware.CountryLookup
	if resolver, err := geoip.NewResolver(cfg.GeoIPDBPath); err != nil {
		logger.Warn().Err(err).Msg("geoip resolver unavailable")
	} else if resolver != nil {
		countryLookup = resolver.CountryCode
	}

	app := &handlers.App{
		SQL:             runner,
		Logger:          logger,
		JWTSecret:       cfg.JWTSecret,
		QueueSigningKey: cfg.QueueSigningKey,
		GoogleVerifier:  google.NewVerifier(cfg.GoogleIssuer, cfg.GoogleClientID),
		Users:           users,
		Projects:        projects,
		Jobs:            orchestrator,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		JWTSecret:       cfg.JWTSecret,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   "en",
		CountryLookup:   countryLookup,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("api listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func mustFileStore(cfg *infra.Config, logger infra.Logger) *storage.FileStore {
	storagePath := cfg.StoragePath
	if storagePath == "" {
		storagePath = "./storage"
	}
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	fileStore, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure local storage")
	}
	return fileStore
}

func buildTranscriber(ctx context.Context, cfg *infra.Config, credStore *credentials.Store, logger infra.Logger) processing.Transcriber {
	apiKey := strings.TrimSpace(cfg.TranscribeAPIKey)
	if apiKey == "" {
		if key, err := credStore.TranscribeAPIKey(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to load transcribe api key from store")
		} else {
			apiKey = key
		}
	}
	if apiKey != "" && cfg.TranscribeBaseURL != "" {
		client, err := transcribe.NewClient(transcribe.Options{
			APIKey:  apiKey,
			BaseURL: cfg.TranscribeBaseURL,
		})
		if err == nil {
			return client
		}
		logger.Warn().Err(err).Msg("failed to configure transcription client")
	}
	logger.Warn().Msg("transcription api key missing, using loopback transcriber")
	return transcribe.NewLoopback(nil, 2*time.Second)
}
