package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	accountdomain "homeops-backend/internal/account/domain"
	accountRepo "homeops-backend/internal/account/repository"
	accountUsecase "homeops-backend/internal/account/usecase"
	assistantUsecase "homeops-backend/internal/assistant/usecase"
	dashboardUsecase "homeops-backend/internal/dashboard/usecase"
	inboxdomain "homeops-backend/internal/inbox/domain"
	inboxRepo "homeops-backend/internal/inbox/repository"
	inboxUsecase "homeops-backend/internal/inbox/usecase"
	"homeops-backend/internal/notification"
	taskdomain "homeops-backend/internal/task/domain"
	taskRepo "homeops-backend/internal/task/repository"
	taskUsecase "homeops-backend/internal/task/usecase"
	"homeops-backend/pkg/ai"
	"homeops-backend/pkg/cache"
	"homeops-backend/pkg/chroma"
	"homeops-backend/pkg/config"
	"homeops-backend/pkg/database"
	"homeops-backend/pkg/firebase"
	"homeops-backend/pkg/gmail"
	"homeops-backend/pkg/imap"
	"homeops-backend/pkg/logger"
	"homeops-backend/pkg/metrics"
	"homeops-backend/pkg/scoring"

	"github.com/rs/zerolog"
)

const shutdownTimeout = 15 * time.Second

// Serve wires every component from cfg and serves HTTP until ctx is done.
func Serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	models := []any{&accountdomain.Account{}, &taskdomain.Task{}}
	if cfg.StoreBackend != config.StoreBackendFirestore {
		models = append(models, &inboxdomain.ScoredEmail{}, &inboxdomain.SyncState{})
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Verdict storage
	var (
		scores     inboxRepo.ScoreRepository
		syncStates inboxRepo.SyncStateRepository
	)
	switch cfg.StoreBackend {
	case config.StoreBackendFirestore:
		fs, err := firebase.NewFirestore(ctx, cfg.FirebaseCredentials, cfg.FirebaseProjectID)
		if err != nil {
			return err
		}
		defer fs.Close()
		scores = inboxRepo.NewFirestoreScoreRepository(fs)
		syncStates = inboxRepo.NewFirestoreSyncStateRepository(fs)
	case config.StoreBackendPostgres, "":
		scores = inboxRepo.NewGormScoreRepository(db)
		syncStates = inboxRepo.NewGormSyncStateRepository(db)
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	log.Info().Str("backend", cfg.StoreBackend).Msg("verdict store ready")

	scorer, err := loadScorer(cfg)
	if err != nil {
		return err
	}
	log.Info().Str("rule_version", scorer.Rules().Version).Int("threshold", scorer.Threshold()).Msg("scorer ready")

	var categoryCache cache.Cache = cache.NewMemory()
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-memory cache")
		} else {
			defer redisCache.Close()
			categoryCache = redisCache
		}
	}

	m := metrics.New()
	settings := NewSettingsHandler(cfg.OllamaBaseURL, cfg.OllamaModel, ai.Ping)

	aiService, err := ai.NewService(ai.Config{
		Provider:         ai.ProviderType(cfg.AIProvider),
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenAIModel:      cfg.OpenAIModel,
		GetOllamaBaseURL: settings.OllamaBaseURL,
		GetOllamaModel:   settings.OllamaModel,
	})
	if err != nil {
		log.Warn().Err(err).Msg("text generation disabled")
		aiService = nil
	} else {
		log.Info().Str("provider", cfg.AIProvider).Msg("text generation ready")
	}

	var chromaClient *chroma.ChromaClient
	if cfg.ChromaAPIKey != "" {
		chromaClient, err = chroma.NewChromaClient(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("chroma unavailable, assistant retrieval disabled")
			chromaClient = nil
		}
	}

	// Accounts
	accounts := accountRepo.NewAccountRepository(db)
	accountUc := accountUsecase.NewAccountUsecase(accounts, cfg.JWTSecret)

	// Inbox
	deps := inboxUsecase.Dependencies{
		Scores:     scores,
		SyncStates: syncStates,
		Accounts:   accountUc,
		Gmail:      gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret),
		IMAP:       imap.NewService(),
		Cache:      categoryCache,
		Metrics:    m,
		Logger:     logger.Component(log, "inbox"),
		MaxResults: cfg.SyncMaxResults,
		PushTopic:  pushTopic(cfg),
	}
	if aiService != nil {
		deps.Categorizer = aiService
	}
	if chromaClient != nil {
		deps.Index = chromaClient
	}
	inboxUc := inboxUsecase.NewInboxUsecase(deps, scorer)
	settings.scorer = inboxUc

	worker := inboxUsecase.NewSyncWorker(inboxUc, cfg.SyncWorkers, logger.Component(log, "sync_worker"))
	worker.Start(ctx)
	defer worker.Stop()

	scheduler := inboxUsecase.NewSyncScheduler(accountUc, worker, cfg.SyncInterval, logger.Component(log, "sync_scheduler"))
	scheduler.Start()
	defer scheduler.Stop()

	// Gmail push
	if cfg.GoogleProjectID != "" {
		notifService, err := notification.NewService(ctx, cfg.GoogleProjectID, shortTopicName(cfg.GooglePubSubTopic), cfg.GoogleCredentials, accounts, worker, logger.Component(log, "notification"))
		if err != nil {
			log.Error().Err(err).Msg("gmail push disabled")
		} else {
			defer notifService.Close()
			go func() {
				if err := notifService.Start(ctx); err != nil && ctx.Err() == nil {
					log.Error().Err(err).Msg("notification service stopped")
				}
			}()
		}
	} else {
		log.Warn().Msg("GOOGLE_PROJECT_ID not configured, gmail push disabled")
	}

	// Tasks, dashboard, assistant
	var extractor taskUsecase.TaskExtractor
	var responder assistantUsecase.Responder
	if aiService != nil {
		extractor = aiService
		responder = aiService
	}
	var retriever assistantUsecase.Retriever
	if chromaClient != nil {
		retriever = chromaClient
	}
	taskUc := taskUsecase.NewTaskUsecase(taskRepo.NewGormTaskRepository(db), extractor, inboxUc, logger.Component(log, "tasks"))

	handler := NewHandler(Services{
		Accounts:  accountUc,
		Inbox:     inboxUc,
		SyncQueue: worker,
		Tasks:     taskUc,
		Dashboard: dashboardUsecase.NewDashboardUsecase(inboxUc, taskUc, logger.Component(log, "dashboard")),
		Assistant: assistantUsecase.NewAssistantUsecase(inboxUc, retriever, responder, logger.Component(log, "assistant")),
		Settings:  settings,
		Metrics:   m,
	}, logger.Component(log, "http"))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// shortTopicName extracts the topic id from a full resource name.
func shortTopicName(topic string) string {
	if parts := strings.Split(topic, "/"); len(parts) > 1 {
		topic = parts[len(parts)-1]
	}
	if topic == "" {
		topic = "gmail-updates"
	}
	return topic
}

// pushTopic is the full topic name Gmail watch requests need.
func pushTopic(cfg *config.Config) string {
	if strings.HasPrefix(cfg.GooglePubSubTopic, "projects/") {
		return cfg.GooglePubSubTopic
	}
	if cfg.GoogleProjectID == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/topics/%s", cfg.GoogleProjectID, shortTopicName(cfg.GooglePubSubTopic))
}

// loadScorer applies DISPLAY_THRESHOLD over the rule file's threshold when it is set.
func loadScorer(cfg *config.Config) (*scoring.Scorer, error) {
	scorer, err := scoring.Load(cfg.ScoringRulesFile)
	if err != nil {
		return nil, err
	}
	if cfg.DisplayThreshold >= 0 {
		scorer = scorer.WithThreshold(cfg.DisplayThreshold)
	}
	return scorer, nil
}
