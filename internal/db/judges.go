package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ai-judge/internal/schemas"
)

const judgeColumns = `id, name, grading_model, grading_prompt, active, created_at, updated_at`

type JudgeStore struct {
	DB  *sqlx.DB
	Now func() time.Time
}

func NewJudgeStore(dbx *sqlx.DB) *JudgeStore {
	return &JudgeStore{DB: dbx, Now: func() time.Time { return time.Now().UTC() }}
}

func (s *JudgeStore) List(ctx context.Context) ([]schemas.Judge, error) {
	judges := make([]schemas.Judge, 0)
	err := s.DB.SelectContext(ctx, &judges, `select `+judgeColumns+` from judges order by created_at`)
	return judges, err
}

func (s *JudgeStore) Get(ctx context.Context, id string) (*schemas.Judge, error) {
	var j schemas.Judge
	if err := s.DB.GetContext(ctx, &j, `select `+judgeColumns+` from judges where id=$1`, id); err != nil {
		return nil, notFound(err, "judge", id)
	}
	return &j, nil
}

func (s *JudgeStore) Create(ctx context.Context, in schemas.JudgeInput) (string, error) {
	id := uuid.NewString()
	now := s.Now()
	_, err := s.DB.ExecContext(ctx,
		`insert into judges(`+judgeColumns+`) values($1,$2,$3,$4,$5,$6,$7)`,
		id, strings.TrimSpace(in.Name), strings.TrimSpace(in.GradingModel), in.GradingPrompt, in.Active, now, now)
	if err != nil {
		return "", fmt.Errorf("insert judge: %w", err)
	}
	return id, nil
}

// Update applies the non-nil fields of p and always refreshes updated_at.
func (s *JudgeStore) Update(ctx context.Context, id string, p schemas.JudgePatch) error {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if p.Name != nil {
		add("name", strings.TrimSpace(*p.Name))
	}
	if p.GradingModel != nil {
		add("grading_model", strings.TrimSpace(*p.GradingModel))
	}
	if p.GradingPrompt != nil {
		add("grading_prompt", *p.GradingPrompt)
	}
	if p.Active != nil {
		add("active", *p.Active)
	}
	add("updated_at", s.Now())
	args = append(args, id)

	q := fmt.Sprintf(`update judges set %s where id=$%d`, strings.Join(sets, ", "), len(args))
	res, err := s.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update judge: %w", err)
	}
	return mustAffect(res, "judge", id)
}

func (s *JudgeStore) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `delete from judges where id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete judge: %w", err)
	}
	return mustAffect(res, "judge", id)
}
