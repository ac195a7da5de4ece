package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ai-judge/internal/errdefs"
	"ai-judge/internal/schemas"
)

const evaluationColumns = `id, submission_id, queue_id, question_template_id, judge_id, verdict, reasoning, model, provider, latency_ms, created_at, error`

// EvaluationStore is append-only: reruns add rows, nothing is updated.
type EvaluationStore struct {
	DB *sqlx.DB
}

func NewEvaluationStore(dbx *sqlx.DB) *EvaluationStore {
	return &EvaluationStore{DB: dbx}
}

func (s *EvaluationStore) Append(ctx context.Context, e schemas.Evaluation) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.NamedExecContext(ctx,
		`insert into evaluations(`+evaluationColumns+`) values(:id, :submission_id, :queue_id, :question_template_id, :judge_id, :verdict, :reasoning, :model, :provider, :latency_ms, :created_at, :error)`,
		e)
	if err != nil {
		return &errdefs.PersistenceError{Op: "append evaluation", Err: err}
	}
	return nil
}

func (s *EvaluationStore) ListAll(ctx context.Context) ([]schemas.Evaluation, error) {
	return s.List(ctx, schemas.EvaluationFilter{})
}

// List returns evaluations newest first. Empty filter fields match everything.
func (s *EvaluationStore) List(ctx context.Context, f schemas.EvaluationFilter) ([]schemas.Evaluation, error) {
	where := make([]string, 0, 4)
	args := make([]any, 0, 4)
	if f.QueueID != "" {
		where = append(where, "queue_id = ?")
		args = append(args, f.QueueID)
	}
	if len(f.JudgeIDs) > 0 {
		where = append(where, "judge_id in (?)")
		args = append(args, f.JudgeIDs)
	}
	if len(f.QuestionIDs) > 0 {
		where = append(where, "question_template_id in (?)")
		args = append(args, f.QuestionIDs)
	}
	if len(f.Verdicts) > 0 {
		where = append(where, "verdict in (?)")
		args = append(args, f.Verdicts)
	}
	if f.Errored != nil {
		if *f.Errored {
			where = append(where, "error <> ''")
		} else {
			where = append(where, "error = ''")
		}
	}

	q := `select ` + evaluationColumns + ` from evaluations`
	if len(where) > 0 {
		q += " where " + strings.Join(where, " and ")
	}
	q += " order by created_at desc"

	if len(args) > 0 {
		var err error
		q, args, err = sqlx.In(q, args...)
		if err != nil {
			return nil, fmt.Errorf("build evaluation filter: %w", err)
		}
	}
	evals := make([]schemas.Evaluation, 0)
	if err := s.DB.SelectContext(ctx, &evals, s.DB.Rebind(q), args...); err != nil {
		return nil, err
	}
	return evals, nil
}

// PassRate is the share of pass verdicts among judged evals. Failure
// records carry an error and are left out; 0 when nothing was judged.
func PassRate(evals []schemas.Evaluation) float64 {
	judged, pass := 0, 0
	for _, e := range evals {
		if e.Error != "" {
			continue
		}
		judged++
		if e.Verdict == schemas.VerdictPass {
			pass++
		}
	}
	if judged == 0 {
		return 0
	}
	return float64(pass) / float64(judged)
}

// CountErrored returns how many evals are failure records.
func CountErrored(evals []schemas.Evaluation) int {
	n := 0
	for _, e := range evals {
		if e.Error != "" {
			n++
		}
	}
	return n
}
