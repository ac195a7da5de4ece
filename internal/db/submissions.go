package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ai-judge/internal/schemas"
)

const submissionColumns = `id, queue_id, labeling_task_id, created_at, questions, answers, attachments, uploaded_at`

type SubmissionStore struct {
	DB *sqlx.DB
}

func NewSubmissionStore(dbx *sqlx.DB) *SubmissionStore {
	return &SubmissionStore{DB: dbx}
}

func (s *SubmissionStore) List(ctx context.Context, queueID string) ([]schemas.Submission, error) {
	var rows []submissionRow
	err := s.DB.SelectContext(ctx, &rows,
		`select `+submissionColumns+` from submissions where queue_id=$1 order by created_at, id`, queueID)
	if err != nil {
		return nil, err
	}
	out := make([]schemas.Submission, 0, len(rows))
	for _, r := range rows {
		sub, err := r.toSubmission()
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *SubmissionStore) Get(ctx context.Context, id string) (*schemas.Submission, error) {
	var r submissionRow
	if err := s.DB.GetContext(ctx, &r, `select `+submissionColumns+` from submissions where id=$1`, id); err != nil {
		return nil, notFound(err, "submission", id)
	}
	sub, err := r.toSubmission()
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *SubmissionStore) ListQueues(ctx context.Context) ([]schemas.Queue, error) {
	queues := make([]schemas.Queue, 0)
	err := s.DB.SelectContext(ctx, &queues, `select id, created_at from queues order by id`)
	return queues, err
}

// UpsertBatch stores an uploaded batch and the queues it references. Existing
// attachments of a re-uploaded submission are kept.
func (s *SubmissionStore) UpsertBatch(ctx context.Context, subs []schemas.Submission) error {
	return WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		queues := make(map[string]struct{})
		for _, sub := range subs {
			questions, err := json.Marshal(sub.Questions)
			if err != nil {
				return err
			}
			answers, err := json.Marshal(sub.Answers)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`insert into submissions(id, queue_id, labeling_task_id, created_at, questions, answers) values($1,$2,$3,$4,$5,$6)
				 on conflict (id) do update set queue_id=excluded.queue_id, labeling_task_id=excluded.labeling_task_id,
				 created_at=excluded.created_at, questions=excluded.questions, answers=excluded.answers`,
				sub.ID, sub.QueueID, sub.LabelingTaskID, sub.CreatedAt, questions, answers)
			if err != nil {
				return fmt.Errorf("upsert submission %s: %w", sub.ID, err)
			}
			queues[sub.QueueID] = struct{}{}
		}
		for q := range queues {
			if _, err := tx.ExecContext(ctx, `insert into queues(id) values($1) on conflict (id) do nothing`, q); err != nil {
				return fmt.Errorf("upsert queue %s: %w", q, err)
			}
		}
		return nil
	})
}

// AppendAttachments adds atts to the submission, skipping filenames it already
// has (or that repeat within atts). It returns the attachments actually added
// and does not write when there are none.
func (s *SubmissionStore) AppendAttachments(ctx context.Context, submissionID string, atts []schemas.Attachment) ([]schemas.Attachment, error) {
	var added []schemas.Attachment
	err := WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		var raw []byte
		if err := tx.GetContext(ctx, &raw, `select attachments from submissions where id=$1 for update`, submissionID); err != nil {
			return notFound(err, "submission", submissionID)
		}
		sub := schemas.Submission{ID: submissionID}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &sub.Attachments); err != nil {
				return fmt.Errorf("submission %s attachments: %w", submissionID, err)
			}
		}
		for _, a := range atts {
			if sub.HasAttachment(a.Filename) {
				continue
			}
			sub.Attachments = append(sub.Attachments, a)
			added = append(added, a)
		}
		if len(added) == 0 {
			return nil
		}
		b, err := json.Marshal(sub.Attachments)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `update submissions set attachments=$1 where id=$2`, b, submissionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}
