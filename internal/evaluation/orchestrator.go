package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ai-judge/internal/qa"
	"ai-judge/internal/schemas"
)

const DefaultConcurrency = 8

type JudgeLister interface {
	List(ctx context.Context) ([]schemas.Judge, error)
}

type SubmissionLister interface {
	List(ctx context.Context, queueID string) ([]schemas.Submission, error)
}

type AssignmentLister interface {
	List(ctx context.Context, queueID string) ([]schemas.Assignment, error)
}

type EvaluationAppender interface {
	Append(ctx context.Context, e schemas.Evaluation) error
}

type Invoker interface {
	CheckConfig() error
	Provider() string
	Invoke(ctx context.Context, req qa.Request) (*qa.JudgeResult, error)
}

// ProgressSink receives a snapshot after every counter change.
type ProgressSink interface {
	Publish(ctx context.Context, queueID string, p schemas.Progress) error
}

type Publisher interface {
	EvaluationAppended(ctx context.Context, e schemas.Evaluation) error
}

type Deps struct {
	Judges      JudgeLister
	Submissions SubmissionLister
	Assignments AssignmentLister
	Evaluations EvaluationAppender
	Invoker     Invoker
	// Progress and Events are optional.
	Progress ProgressSink
	Events   Publisher
}

// Task is one (submission, question, judge) triple to grade.
type Task struct {
	QueueID    string
	Submission *schemas.Submission
	Question   schemas.Question
	Answer     *schemas.Answer
	Judge      schemas.Judge
}

type Orchestrator struct {
	deps        Deps
	concurrency int
	log         *zap.Logger
	now         func() time.Time
}

func New(deps Deps, concurrency int, log *zap.Logger) *Orchestrator {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Orchestrator{
		deps:        deps,
		concurrency: concurrency,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Plan expands the queue's assignments into tasks. Questions without an
// assignment or without an active assigned judge are skipped.
func (o *Orchestrator) Plan(ctx context.Context, queueID string) ([]Task, error) {
	judges, err := o.deps.Judges.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list judges: %w", err)
	}
	subs, err := o.deps.Submissions.List(ctx, queueID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	assignments, err := o.deps.Assignments.List(ctx, queueID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	byID := make(map[string]schemas.Judge, len(judges))
	for _, j := range judges {
		j.ID = strings.TrimSpace(j.ID)
		if j.ID == "" {
			o.log.Warn("skipping judge without id", zap.String("name", j.Name))
			continue
		}
		byID[j.ID] = j
	}
	byTemplate := make(map[string]*schemas.Assignment, len(assignments))
	for i := range assignments {
		byTemplate[assignments[i].QuestionTemplateID] = &assignments[i]
	}

	var tasks []Task
	for i := range subs {
		sub := &subs[i]
		for _, q := range sub.Questions {
			a := byTemplate[q.Data.ID]
			if a == nil {
				a = byTemplate[schemas.AssignmentKey(queueID, q.Data.ID)]
			}
			if a == nil {
				o.log.Debug("no assignment for question",
					zap.String("submission", sub.ID), zap.String("question", q.Data.ID))
				continue
			}

			planned := 0
			for _, id := range a.JudgeIDs {
				j, ok := byID[strings.TrimSpace(id)]
				if !ok || !j.Active {
					continue
				}
				tasks = append(tasks, Task{
					QueueID:    queueID,
					Submission: sub,
					Question:   q,
					Answer:     sub.Answers[q.Data.ID],
					Judge:      j,
				})
				planned++
			}
			if planned == 0 {
				o.log.Info("no active judges for question",
					zap.String("submission", sub.ID), zap.String("question", q.Data.ID))
			}
		}
	}
	return tasks, nil
}

// Run plans and grades the queue, returning once every task has settled.
func (o *Orchestrator) Run(ctx context.Context, queueID string) (schemas.Progress, error) {
	return o.run(ctx, queueID, newRunHandle())
}

// Start runs the queue in the background.
func (o *Orchestrator) Start(ctx context.Context, queueID string) *RunHandle {
	h := newRunHandle()
	go func() {
		p, err := o.run(context.WithoutCancel(ctx), queueID, h)
		h.finish(p, err)
	}()
	return h
}

type outcome struct {
	task Task
	err  error
}

func (o *Orchestrator) run(ctx context.Context, queueID string, h *RunHandle) (schemas.Progress, error) {
	log := o.log.With(zap.String("queue", queueID))
	var p schemas.Progress

	if err := o.deps.Invoker.CheckConfig(); err != nil {
		o.publish(ctx, queueID, p)
		return p, err
	}

	tasks, err := o.Plan(ctx, queueID)
	if err != nil {
		// replace any snapshot left by an earlier run
		o.publish(ctx, queueID, p)
		return p, err
	}
	p.Planned = len(tasks)
	h.set(p)
	o.publish(ctx, queueID, p)
	log.Info("evaluation run planned", zap.Int("planned", p.Planned))
	if len(tasks) == 0 {
		return p, nil
	}

	taskCtx := context.WithoutCancel(ctx)
	results := make(chan outcome)
	go func() {
		var g errgroup.Group
		g.SetLimit(o.concurrency)
		for _, t := range tasks {
			g.Go(func() error {
				results <- outcome{task: t, err: o.execute(taskCtx, t)}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	for out := range results {
		if out.err != nil {
			p.Failed++
		} else {
			p.Done++
		}
		h.set(p)
		o.publish(taskCtx, queueID, p)
	}

	log.Info("evaluation run finished",
		zap.Int("planned", p.Planned), zap.Int("done", p.Done), zap.Int("failed", p.Failed))
	return p, nil
}

func (o *Orchestrator) execute(ctx context.Context, t Task) error {
	log := o.log.With(
		zap.String("submission", t.Submission.ID),
		zap.String("question", t.Question.Data.ID),
		zap.String("judge", t.Judge.ID),
	)

	answer := "null"
	if t.Answer != nil {
		if b, err := json.Marshal(t.Answer); err == nil {
			answer = string(b)
		}
	}

	eval := schemas.Evaluation{
		SubmissionID:       t.Submission.ID,
		QueueID:            t.QueueID,
		QuestionTemplateID: t.Question.Data.ID,
		JudgeID:            t.Judge.ID,
		Model:              t.Judge.GradingModel,
		Provider:           o.deps.Invoker.Provider(),
	}

	res, err := o.deps.Invoker.Invoke(ctx, qa.Request{
		JudgePrompt:  t.Judge.GradingPrompt,
		QuestionText: t.Question.Data.QuestionText,
		Answer:       answer,
		Model:        t.Judge.GradingModel,
		Attachments:  t.Submission.Attachments,
	})
	if err != nil {
		log.Warn("judge invocation failed", zap.Error(err))
		o.recordFailure(ctx, eval, err, log)
		return err
	}

	eval.ID = uuid.NewString()
	eval.Verdict = res.Verdict
	eval.Reasoning = res.Reasoning
	eval.LatencyMS = res.LatencyMS
	eval.CreatedAt = o.now()
	if err := o.deps.Evaluations.Append(ctx, eval); err != nil {
		log.Error("evaluation write failed", zap.Error(err))
		o.recordFailure(ctx, eval, err, log)
		return err
	}
	o.emit(ctx, eval, log)
	return nil
}

// recordFailure stores an inconclusive evaluation carrying the cause.
func (o *Orchestrator) recordFailure(ctx context.Context, eval schemas.Evaluation, cause error, log *zap.Logger) {
	eval.ID = uuid.NewString()
	eval.Verdict = schemas.VerdictInconclusive
	eval.Reasoning = ""
	eval.Error = cause.Error()
	eval.CreatedAt = o.now()
	if err := o.deps.Evaluations.Append(ctx, eval); err != nil {
		log.Error("failure record write failed", zap.Error(err))
		return
	}
	o.emit(ctx, eval, log)
}

func (o *Orchestrator) emit(ctx context.Context, eval schemas.Evaluation, log *zap.Logger) {
	if o.deps.Events == nil {
		return
	}
	if err := o.deps.Events.EvaluationAppended(ctx, eval); err != nil {
		log.Warn("evaluation event not published", zap.Error(err))
	}
}

func (o *Orchestrator) publish(ctx context.Context, queueID string, p schemas.Progress) {
	if o.deps.Progress == nil {
		return
	}
	if err := o.deps.Progress.Publish(ctx, queueID, p); err != nil {
		o.log.Warn("progress not published", zap.String("queue", queueID), zap.Error(err))
	}
}
