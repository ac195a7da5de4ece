package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"ai-judge/internal/cache"
	"ai-judge/internal/config"
	"ai-judge/internal/db"
	httpSrv "ai-judge/internal/http"
	"ai-judge/internal/logging"
	"ai-judge/internal/migrations"
	"ai-judge/internal/storage"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run embedded migrations (idempotent)
	if err := migrations.Run(cfg.DatabaseURL); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}

	dbase, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer dbase.Close()

	s3c, err := storage.New(ctx, storage.Options{
		Endpoint:  cfg.MinioEndpoint,
		Bucket:    cfg.MinioBucket,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Region:    cfg.MinioRegion,
		PublicURL: cfg.MinioPublicURL,
	})
	if err != nil {
		log.Fatal("object storage unavailable", zap.Error(err))
	}

	asq := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer asq.Close()
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	subs := db.NewSubmissionStore(dbase)
	srv := httpSrv.NewServer(cfg.HTTPAddr, &httpSrv.Server{
		DB:          dbase,
		Judges:      db.NewJudgeStore(dbase),
		Assignments: db.NewAssignmentStore(dbase),
		Submissions: subs,
		Evaluations: db.NewEvaluationStore(dbase),
		Objects:     s3c,
		Progress:    cache.NewProgressStore(rdb, cfg.ProgressTTL),
		Asynq:       asq,
		Log:         log,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("api listening", zap.String("addr", cfg.HTTPAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("api stopped", zap.Error(err))
	}
}
