package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/detasker/adapters/event"
	httpAdapter "github.com/khoahotran/detasker/adapters/http"
	"github.com/khoahotran/detasker/adapters/media_storage"
	"github.com/khoahotran/detasker/adapters/persistence"
	disputeUC "github.com/khoahotran/detasker/internal/application/usecase/dispute"
	jobUC "github.com/khoahotran/detasker/internal/application/usecase/job"
	mediaUC "github.com/khoahotran/detasker/internal/application/usecase/media"
	profileUC "github.com/khoahotran/detasker/internal/application/usecase/profile"
	reputationUC "github.com/khoahotran/detasker/internal/application/usecase/reputation"
	skillUC "github.com/khoahotran/detasker/internal/application/usecase/skill"
	"github.com/khoahotran/detasker/internal/config"
	"github.com/khoahotran/detasker/internal/domain/rating"
	"github.com/khoahotran/detasker/internal/ledger"
	"github.com/khoahotran/detasker/pkg/auth"
	"github.com/khoahotran/detasker/pkg/logger"
	"github.com/khoahotran/detasker/pkg/tracing"
)

func main() {
	fmt.Println("Start Detasker Ledger API Server...")

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatalf("FATAL: JWT_SECRET is required")
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewTracerProvider(cfg, appLogger, "detasker-api")
	if err != nil {
		appLogger.Fatal("cannot init tracer", err)
	}
	defer tracing.Shutdown(tp, appLogger, 5*time.Second)

	// Journal storage
	dbPool, err := persistence.NewPostgresPool(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Postgres", err)
	}
	defer dbPool.Close()

	if err := persistence.RunMigrations(cfg.DB.MigrationsURL, cfg.DB.DSN, appLogger); err != nil {
		appLogger.Fatal("cannot migrate database", err)
	}
	journal := persistence.NewPostgresJournalRepo(dbPool, appLogger)

	// Event stream
	var publisher ledger.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := event.NewKafkaProducerClient(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("cannot init Kafka", err)
		}
		defer kafkaClient.Close()
		publisher = kafkaClient
	} else {
		appLogger.Warn("No Kafka brokers configured, ledger events will not be published")
	}

	// Ledger
	ledgerCfg, err := ledger.ConfigFromSettings(cfg.Ledger)
	if err != nil {
		appLogger.Fatal("invalid ledger config", err)
	}
	ldg := ledger.New(ledgerCfg, journal, publisher, appLogger)

	replayed, err := ldg.Replay(ctx)
	if err != nil {
		appLogger.Fatal("cannot replay ledger journal", err)
	}
	if err := ldg.Verify(); err != nil {
		appLogger.Fatal("ledger failed verification after replay", err)
	}
	latest, err := journal.LatestSeq(ctx)
	if err != nil {
		appLogger.Fatal("cannot read journal head", err)
	}
	if latest != ldg.Seq() {
		appLogger.Fatal("ledger replay stopped short of the journal head",
			fmt.Errorf("replayed to seq %d, journal head is %d", ldg.Seq(), latest))
	}
	appLogger.Info("Ledger ready",
		zap.Int("replayed_entries", replayed),
		zap.Uint64("seq", ldg.Seq()),
		zap.String("arbiter", ledgerCfg.Arbiter.String()),
		zap.Duration("confirmation_window", ledgerCfg.Window),
	)

	// Leaderboard projection (optional)
	var leaderboard rating.Leaderboard
	if cfg.Redis.Addr != "" {
		redisClient, err := persistence.NewRedisClient(ctx, cfg, appLogger)
		if err != nil {
			appLogger.Fatal("cannot connect Redis", err)
		}
		defer redisClient.Close()
		leaderboard = persistence.NewRedisLeaderboardRepo(redisClient, appLogger)
	}

	// Services
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan)

	// HTTP Handlers
	handlers := httpAdapter.Handlers{
		Profile: httpAdapter.NewProfileHandler(profileUC.NewProfileUseCase(ldg, appLogger), appLogger),
		Skill:   httpAdapter.NewSkillHandler(skillUC.NewSkillUseCase(ldg, appLogger), appLogger),
		Job: httpAdapter.NewJobHandler(
			jobUC.NewCreateJobUseCase(ldg, appLogger),
			jobUC.NewPublishJobUseCase(ldg, appLogger),
			jobUC.NewAssignJobUseCase(ldg, appLogger),
			jobUC.NewCompleteJobUseCase(ldg, appLogger),
			jobUC.NewDeleteJobUseCase(ldg, appLogger),
			jobUC.NewSettleJobUseCase(ldg, appLogger),
			jobUC.NewGetJobUseCase(ldg),
			jobUC.NewListJobsUseCase(ldg),
			appLogger,
		),
		Reputation: httpAdapter.NewReputationHandler(
			reputationUC.NewGiveFeedbackUseCase(ldg, appLogger),
			reputationUC.NewGetReputationUseCase(ldg, leaderboard, appLogger),
			appLogger,
		),
		Dispute: httpAdapter.NewDisputeHandler(disputeUC.NewDisputeUseCase(ldg, appLogger), appLogger),
	}
	if cfg.Cloudinary.CloudName != "" {
		uploader, err := media_storage.NewCloudinaryAdapter(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize uploader", err)
		}
		handlers.Media = httpAdapter.NewMediaHandler(mediaUC.NewUploadMediaUseCase(uploader, appLogger), appLogger)
	}

	// Setup Gin router
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	httpAdapter.RegisterRoutes(
		router,
		handlers,
		httpAdapter.AuthMiddleware(jwtSvc, appLogger),
		httpAdapter.ErrorMiddleware(appLogger),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}
	if err := ldg.Close(shutdownCtx); err != nil {
		appLogger.Error("Ledger events not fully published", err)
	}
	appLogger.Info("Server exited")
}
