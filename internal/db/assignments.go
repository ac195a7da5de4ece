package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ai-judge/internal/schemas"
)

type AssignmentStore struct {
	DB  *sqlx.DB
	Now func() time.Time
}

func NewAssignmentStore(dbx *sqlx.DB) *AssignmentStore {
	return &AssignmentStore{DB: dbx, Now: func() time.Time { return time.Now().UTC() }}
}

func (s *AssignmentStore) List(ctx context.Context, queueID string) ([]schemas.Assignment, error) {
	var rows []assignmentRow
	err := s.DB.SelectContext(ctx, &rows,
		`select id, queue_id, question_template_id, judge_ids, created_at from assignments where queue_id=$1 order by question_template_id`,
		queueID)
	if err != nil {
		return nil, err
	}
	out := make([]schemas.Assignment, 0, len(rows))
	for _, r := range rows {
		a, err := r.toAssignment()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Save replaces the judge set for one question of a queue. An empty set is
// stored as-is and leaves the question ungraded.
func (s *AssignmentStore) Save(ctx context.Context, queueID, questionTemplateID string, judgeIDs []string) error {
	b, err := json.Marshal(dedupe(judgeIDs))
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx,
		`insert into assignments(id, queue_id, question_template_id, judge_ids, created_at) values($1,$2,$3,$4,$5)
		 on conflict (id) do update set judge_ids=excluded.judge_ids, created_at=excluded.created_at`,
		schemas.AssignmentKey(queueID, questionTemplateID), queueID, questionTemplateID, b, s.Now())
	if err != nil {
		return fmt.Errorf("save assignment: %w", err)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
