package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/detasker/adapters/event"
	"github.com/khoahotran/detasker/adapters/persistence"
	reputationUC "github.com/khoahotran/detasker/internal/application/usecase/reputation"
	"github.com/khoahotran/detasker/internal/config"
	"github.com/khoahotran/detasker/internal/ledger"
	"github.com/khoahotran/detasker/pkg/logger"
	"github.com/khoahotran/detasker/pkg/tracing"
)

func main() {
	fmt.Println("Starting Detasker Worker...")

	// Configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatalf("FATAL: KAFKA_BROKERS is required for the worker")
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewTracerProvider(cfg, appLogger, "detasker-worker")
	if err != nil {
		appLogger.Fatal("cannot init tracer", err)
	}
	defer tracing.Shutdown(tp, appLogger, 5*time.Second)

	// Redis leaderboard
	redisClient, err := persistence.NewRedisClient(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Redis", err)
	}
	defer redisClient.Close()
	leaderboard := persistence.NewRedisLeaderboardRepo(redisClient, appLogger)

	// Worker Use Case
	projectRatingUC := reputationUC.NewProjectRatingEventUseCase(leaderboard, appLogger)

	// Kafka Consumer
	consumer := event.NewLedgerEventConsumer(cfg, appLogger)
	defer consumer.Close()

	consumer.Handle(ledger.EventRatingCreated, projectRatingUC.Execute)
	consumer.Handle(ledger.EventJobSettled, func(_ context.Context, e ledger.Event) error {
		appLogger.Info("Job settled",
			zap.Uint64p("job_id", e.JobID),
			zap.Any("reason", e.Data["reason"]),
			zap.Any("paid", e.Data["paid"]),
		)
		return nil
	})
	consumer.Handle(ledger.EventDisputeResolved, func(_ context.Context, e ledger.Event) error {
		appLogger.Info("Dispute resolved",
			zap.Uint64p("job_id", e.JobID),
			zap.Any("outcome", e.Data["outcome"]),
			zap.Any("freelancer_amount", e.Data["freelancer_amount"]),
			zap.Any("requester_amount", e.Data["requester_amount"]),
		)
		return nil
	})

	if err := consumer.Run(ctx); err != nil {
		appLogger.Error("Worker stopped with error", err)
	}
	appLogger.Info("Worker exited")
}
