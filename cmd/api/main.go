package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/catalog"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/config"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/describe"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/gemini"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/generate"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/media"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/pipeline"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/products"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/qc"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()

	logger := newLogger(cfg.LogLevel)

	ctx := context.Background()

	var blobs media.Store
	var err error
	if cfg.Media.Bucket != "" && cfg.Media.Region != "" {
		blobs, err = media.NewS3Store(ctx, media.S3Config{
			Bucket:         cfg.Media.Bucket,
			Region:         cfg.Media.Region,
			Endpoint:       cfg.Media.Endpoint,
			KeyPrefix:      cfg.Media.KeyPrefix,
			ForcePathStyle: cfg.Media.ForcePathStyle,
			AccessKey:      cfg.Media.AccessKey,
			SecretKey:      cfg.Media.SecretKey,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("init s3 media store")
		}
		logger.Info().Str("bucket", cfg.Media.Bucket).Msg("media: using S3 storage")
	} else {
		blobs, err = media.NewLocalStore(cfg.StorageDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("init local media store")
		}
		logger.Info().Str("dir", cfg.StorageDir).Msg("media: using local storage")
	}

	store, err := catalog.New(ctx, cfg.DatabaseURL, cfg.StorageDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("init catalog store")
	}
	defer store.Close()
	cached := catalog.WithCache(store)

	model, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:            cfg.Gemini.APIKey,
		ImageModel:        cfg.Gemini.ImageModel,
		JudgeModel:        cfg.Gemini.JudgeModel,
		MaxCallsPerMinute: cfg.Gemini.MaxCallsPerMinute,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init gemini client")
	}
	if cfg.Gemini.APIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY not set, generation endpoints will fail")
	}

	describer := &describe.Describer{Model: model, Logger: logger}
	judge := &qc.Judge{Model: model, Logger: logger}

	pipe := &pipeline.Pipeline{
		Model:   model,
		Judge:   judge,
		Blobs:   blobs,
		Catalog: cached,
		Logger:  logger,
	}

	productHandler := products.Handler{
		Blobs:     blobs,
		Catalog:   cached,
		Describer: describer,
		Logger:    logger,
		BaseURL:   cfg.BaseURL,
	}
	generateHandler := generate.Handler{
		Pipe:    pipe,
		Blobs:   blobs,
		Catalog: cached,
		Logger:  logger,
		BaseURL: cfg.BaseURL,
	}

	srv := server.New(cfg.Port, logger, cfg.CORSOrigins, productHandler, generateHandler)
	logger.Info().Str("port", cfg.Port).Msg("server ready")

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}
