package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"classboard/config"
	"classboard/internal/cache"
	"classboard/internal/repository"
	"classboard/internal/service"
	"classboard/internal/transport/rest"
	"classboard/internal/transport/ws"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		logger.Fatal("failed to ping MongoDB", zap.Error(err))
	}
	logger.Info("connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal("failed to ensure indexes", zap.Error(err))
	}

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Fatal("failed to ping Redis", zap.Error(err))
	}
	logger.Info("connected to Redis")

	// WebSocket hub
	wsHub := ws.NewHub(logger)

	// Repositories and caches
	sessionRepo := repository.NewSessionRepo(db)
	questionRepo := repository.NewQuestionRepo(db)
	sessionCache := cache.NewSessionCache(rdb)

	// Services
	members := service.NewMembershipDirectory(sessionRepo)
	guard := service.NewGuard(members)
	authSvc := service.NewAuthService(cfg.InstructorUsername, cfg.InstructorPassword, cfg.JWTSecret)
	sessionSvc := service.NewSessionService(sessionRepo, questionRepo, sessionCache, guard, logger, cfg.JoinCodeLength, cfg.JoinCodeAttempts)
	questionSvc := service.NewQuestionService(questionRepo, sessionRepo, guard, logger)

	// wsHub implements service.Broadcaster
	sessionSvc.SetBroadcaster(wsHub)
	questionSvc.SetBroadcaster(wsHub)

	router := rest.NewRouter(&rest.Container{
		AuthService:     authSvc,
		SessionService:  sessionSvc,
		QuestionService: questionSvc,
		Guard:           guard,
		WSHub:           wsHub,
		Logger:          logger,
		CORSOrigins:     cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen and serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
