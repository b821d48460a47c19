package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"examprep/internal/domain"
	"examprep/internal/infra"
	"examprep/internal/infra/credentials"
	"examprep/internal/providers/genai"
	"examprep/internal/providers/study"
	"examprep/internal/sqlinline"
)

// bankWorker keeps every subject's approved-question count at or above the
// configured floor by generating small batches between sweeps.
type bankWorker struct {
	runner    *infra.SQLRunner
	logger    infra.Logger
	generator study.Generator
	floor     int
	batchSize int
	interval  time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	generator, live := buildGenerator(ctx, cfg, runner, logger)
	if !live {
		logger.Warn().Msg("worker: no AI provider configured, bank refill disabled")
		<-ctx.Done()
		return
	}

	worker := &bankWorker{
		runner:    runner,
		logger:    logger,
		generator: generator,
		floor:     cfg.BankFloor,
		batchSize: cfg.BankBatchSize,
		interval:  cfg.WorkerInterval,
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// buildGenerator returns the configured provider without a static fallback;
// pre-generating fallback content into the bank would poison it with
// duplicates. The second return is false when no provider is usable.
func buildGenerator(ctx context.Context, cfg *infra.Config, runner *infra.SQLRunner, logger infra.Logger) (study.Generator, bool) {
	credStore := credentials.NewStore(runner)

	switch strings.ToLower(cfg.StudyProvider) {
	case "openai":
		key := strings.TrimSpace(cfg.OpenAIAPIKey)
		if key == "" {
			stored, err := credStore.OpenAIAPIKey(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("worker: failed to load openai api key from store")
			}
			key = stored
		}
		if key == "" {
			return nil, false
		}
		gen, err := study.NewOpenAIGenerator(study.OpenAIOptions{
			APIKey:  key,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to configure openai client")
			return nil, false
		}
		return gen, true
	case "static":
		return nil, false
	default:
		key := strings.TrimSpace(cfg.GeminiAPIKey)
		if key == "" {
			stored, err := credStore.GeminiAPIKey(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("worker: failed to load gemini api key from store")
			}
			key = stored
		}
		if key == "" {
			return nil, false
		}
		client, err := genai.NewClient(genai.Options{
			APIKey:     key,
			BaseURL:    cfg.GeminiBaseURL,
			Model:      cfg.GeminiModel,
			HTTPClient: &http.Client{Timeout: 60 * time.Second},
		})
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to configure gemini client")
			return nil, false
		}
		gen, err := study.NewGeminiGenerator(study.GeminiOptions{Client: client})
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to configure gemini generator")
			return nil, false
		}
		return gen, true
	}
}

func (w *bankWorker) Run(ctx context.Context) error {
	w.logger.Info().Int("floor", w.floor).Int("batch", w.batchSize).Msg("worker: started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep tops up each subject that has fallen below the floor.
func (w *bankWorker) sweep(ctx context.Context) {
	for _, subject := range domain.Subjects {
		if ctx.Err() != nil {
			return
		}
		count, err := w.subjectCount(ctx, subject)
		if err != nil {
			w.logger.Error().Err(err).Str("subject", string(subject)).Msg("worker: count failed")
			continue
		}
		if count >= w.floor {
			continue
		}
		need := w.floor - count
		if need > w.batchSize {
			need = w.batchSize
		}
		w.logger.Info().Str("subject", string(subject)).Int("have", count).Int("generating", need).Msg("worker: refilling bank")
		w.refill(ctx, subject, need)
	}
}

func (w *bankWorker) subjectCount(ctx context.Context, subject domain.Subject) (int, error) {
	row := w.runner.QueryRow(ctx, sqlinline.QCountQuestionsBySubject, string(subject))
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (w *bankWorker) refill(ctx context.Context, subject domain.Subject, need int) {
	for i := 0; i < need; i++ {
		if ctx.Err() != nil {
			return
		}
		q, err := w.generator.Question(ctx, string(subject))
		if err != nil {
			w.logger.Error().Err(err).Str("subject", string(subject)).Msg("worker: generate failed")
			return
		}
		if err := w.insert(ctx, subject, q); err != nil {
			w.logger.Error().Err(err).Str("subject", string(subject)).Msg("worker: insert failed")
		}
	}
}

func (w *bankWorker) insert(ctx context.Context, subject domain.Subject, q *domain.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	row := w.runner.QueryRow(
		ctx,
		sqlinline.QInsertQuestion,
		string(subject),
		q.Question,
		options,
		q.CorrectAnswer,
		q.Explanation,
		1.0,
		true,
	)
	var id string
	return row.Scan(&id)
}
