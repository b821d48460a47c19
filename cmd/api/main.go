package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"examprep/internal/http/handlers"
	httpapi "examprep/internal/http/httpapi"
	"examprep/internal/infra"
	"examprep/internal/infra/credentials"
	"examprep/internal/infra/geoip"
	"examprep/internal/middleware"
	"examprep/internal/providers/genai"
	"examprep/internal/providers/study"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, country lookups disabled")
	}
	var country middleware.CountryLookup
	if resolver != nil {
		country = resolver.CountryCode
	}

	generator := buildGenerator(ctx, cfg, runner, logger)

	app := handlers.NewApp(runner, logger, cfg.JWTSecret, generator)
	router := httpapi.NewRouter(app, cfg, country)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
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

// buildGenerator wires the configured AI provider with the static bank as
// fallback. When no API key is available anywhere, the static generator
// serves alone so the study surface keeps working.
func buildGenerator(ctx context.Context, cfg *infra.Config, runner *infra.SQLRunner, logger infra.Logger) study.Generator {
	fallback := study.NewStaticGenerator()
	onFallback := func(reason string, err error) {
		logger.Warn().Err(err).Str("reason", reason).Msg("provider fallback to static content")
	}
	credStore := credentials.NewStore(runner)

	switch strings.ToLower(cfg.StudyProvider) {
	case "openai":
		key := strings.TrimSpace(cfg.OpenAIAPIKey)
		if key == "" {
			stored, err := credStore.OpenAIAPIKey(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to load openai api key from store")
			}
			key = stored
		}
		if key == "" {
			logger.Warn().Msg("openai api key missing, serving static study content")
			return fallback
		}
		gen, err := study.NewOpenAIGenerator(study.OpenAIOptions{
			APIKey:     key,
			Model:      cfg.OpenAIModel,
			BaseURL:    cfg.OpenAIBaseURL,
			Fallback:   fallback,
			OnFallback: onFallback,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to configure openai client, serving static study content")
			return fallback
		}
		return gen
	case "static":
		return fallback
	default:
		key := strings.TrimSpace(cfg.GeminiAPIKey)
		if key == "" {
			stored, err := credStore.GeminiAPIKey(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to load gemini api key from store")
			}
			key = stored
		}
		if key == "" {
			logger.Warn().Msg("gemini api key missing, serving static study content")
			return fallback
		}
		client, err := genai.NewClient(genai.Options{
			APIKey:     key,
			BaseURL:    cfg.GeminiBaseURL,
			Model:      cfg.GeminiModel,
			HTTPClient: &http.Client{Timeout: 60 * time.Second},
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to configure gemini client, serving static study content")
			return fallback
		}
		gen, err := study.NewGeminiGenerator(study.GeminiOptions{
			Client:     client,
			Fallback:   fallback,
			OnFallback: onFallback,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to configure gemini generator, serving static study content")
			return fallback
		}
		return gen
	}
}
