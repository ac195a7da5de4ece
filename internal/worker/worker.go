package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"ai-judge/internal/errdefs"
	"ai-judge/internal/schemas"
)

const TypeRunEvaluations = "evaluations:run"

// NewRunTask builds a single-attempt task grading every submission of a queue.
func NewRunTask(queueID string) (*asynq.Task, error) {
	b, err := json.Marshal(schemas.RunRequest{QueueID: queueID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRunEvaluations, b, asynq.MaxRetry(0)), nil
}

type Runner interface {
	Run(ctx context.Context, queueID string) (schemas.Progress, error)
}

type Server struct {
	Runner Runner
	Log    *zap.Logger
}

func (s *Server) mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRunEvaluations, s.handleRun)
	return mux
}

func (s *Server) handleRun(ctx context.Context, t *asynq.Task) error {
	var req schemas.RunRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil || req.QueueID == "" {
		return fmt.Errorf("bad %s payload %q: %w", TypeRunEvaluations, t.Payload(), asynq.SkipRetry)
	}
	log := s.Log.With(zap.String("queue", req.QueueID))
	log.Info("starting evaluation run")

	p, err := s.Runner.Run(ctx, req.QueueID)
	if err != nil {
		if errors.Is(err, errdefs.ErrConfiguration) {
			log.Error("evaluation run misconfigured", zap.Error(err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		log.Error("evaluation run failed", zap.Error(err))
		return err
	}
	log.Info("evaluation run complete",
		zap.Int("planned", p.Planned), zap.Int("done", p.Done), zap.Int("failed", p.Failed))
	return nil
}

// Run blocks serving evaluation tasks until the process is signalled.
func Run(redisAddr string, concurrency int, runner Runner, log *zap.Logger) error {
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: concurrency,
		Logger:      log.Sugar(),
	})
	w := &Server{Runner: runner, Log: log}
	return srv.Run(w.mux())
}
