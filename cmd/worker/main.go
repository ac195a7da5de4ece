package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"ai-judge/internal/cache"
	"ai-judge/internal/config"
	"ai-judge/internal/db"
	"ai-judge/internal/evaluation"
	"ai-judge/internal/events"
	"ai-judge/internal/logging"
	"ai-judge/internal/qa"
	"ai-judge/internal/worker"
)

type eventPublisher interface {
	evaluation.Publisher
	Close() error
}

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

	dbase, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer dbase.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	var pub eventPublisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaEvaluationsTopic)
		log.Info("publishing evaluation events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaEvaluationsTopic))
	}
	defer pub.Close()

	invoker := qa.NewInvoker(qa.Options{
		APIKey:    cfg.OpenAIAPIKey,
		BaseURL:   cfg.OpenAIBaseURL,
		Provider:  cfg.LLMProvider,
		RateLimit: cfg.LLMRateLimit,
	}, log)
	if err := invoker.CheckConfig(); err != nil {
		// runs fail individually until a key is configured
		log.Warn("judge invoker not configured", zap.Error(err))
	}

	orch := evaluation.New(evaluation.Deps{
		Judges:      db.NewJudgeStore(dbase),
		Submissions: db.NewSubmissionStore(dbase),
		Assignments: db.NewAssignmentStore(dbase),
		Evaluations: db.NewEvaluationStore(dbase),
		Invoker:     invoker,
		Progress:    cache.NewProgressStore(rdb, cfg.ProgressTTL),
		Events:      pub,
	}, cfg.EvalConcurrency, log)

	log.Info("worker starting", zap.Int("concurrency", cfg.WorkerConcurrency), zap.Int("eval_concurrency", cfg.EvalConcurrency))
	if err := worker.Run(cfg.RedisAddr, cfg.WorkerConcurrency, orch, log); err != nil {
		log.Fatal("worker stopped", zap.Error(err))
	}
}
