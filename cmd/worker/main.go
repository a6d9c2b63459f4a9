package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	jitterbug "github.com/lthibault/jitterbug/v2"

	"chainpost/internal/adapter/repo"
	"chainpost/internal/infra"
	"chainpost/internal/infra/credentials"
	"chainpost/internal/processing"
	"chainpost/internal/providers/queue"
)

const (
	drainBatchSize = 10
	sweepInterval  = time.Minute
)

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
	projects := repo.NewProjectRepository(runner)
	outbox := repo.NewOutboxRepository(runner)

	publisher := buildPublisher(ctx, cfg, credentials.NewStore(runner), logger)
	dispatcher := processing.NewDispatcher(outbox, projects, publisher, cfg.PublicBaseURL, cfg.ProcessingDeadline, logger)

	if err := run(ctx, dispatcher, cfg.OutboxPollInterval, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// run drains the outbox on a jittered interval so multiple workers do not
// align their polls, and sweeps stuck processing projects once a minute.
func run(ctx context.Context, dispatcher *processing.Dispatcher, pollInterval time.Duration, logger infra.Logger) error {
	logger.Info().Msg("worker: started")

	drainTicker := jitterbug.New(pollInterval, &jitterbug.Norm{Stdev: 100 * time.Millisecond, Mean: 0})
	defer drainTicker.Stop()
	sweepTicker := jitterbug.New(sweepInterval, &jitterbug.Norm{Stdev: time.Second, Mean: 0})
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-drainTicker.C:
			sent, err := dispatcher.DrainOutbox(ctx, drainBatchSize)
			if err != nil {
				logger.Error().Err(err).Msg("worker: outbox drain failed")
				continue
			}
			if sent > 0 {
				logger.Info().Int("sent", sent).Msg("worker: outbox drained")
			}
		case <-sweepTicker.C:
			expired, err := dispatcher.SweepStale(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("worker: stale sweep failed")
				continue
			}
			if expired > 0 {
				logger.Warn().Int("expired", expired).Msg("worker: expired stuck projects")
			}
		}
	}
}

func buildPublisher(ctx context.Context, cfg *infra.Config, credStore *credentials.Store, logger infra.Logger) processing.QueuePublisher {
	token := strings.TrimSpace(cfg.QueueToken)
	if token == "" {
		if stored, err := credStore.QueueToken(ctx); err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load queue token from store")
		} else {
			token = stored
		}
	}
	if token != "" {
		client, err := queue.NewClient(queue.Options{
			BaseURL:    cfg.QueueBaseURL,
			Token:      token,
			SigningKey: cfg.QueueSigningKey,
		})
		if err == nil {
			return client
		}
		logger.Warn().Err(err).Msg("worker: failed to configure queue client")
	}
	logger.Warn().Msg("worker: queue token missing, delivering callbacks directly")
	return queue.NewDirect(cfg.QueueSigningKey, nil)
}
