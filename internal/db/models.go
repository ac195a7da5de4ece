package db

import (
	"encoding/json"
	"fmt"
	"time"

	"ai-judge/internal/schemas"
)

type assignmentRow struct {
	ID                 string    `db:"id"`
	QueueID            string    `db:"queue_id"`
	QuestionTemplateID string    `db:"question_template_id"`
	JudgeIDs           []byte    `db:"judge_ids"`
	CreatedAt          time.Time `db:"created_at"`
}

func (r assignmentRow) toAssignment() (schemas.Assignment, error) {
	a := schemas.Assignment{
		QueueID:            r.QueueID,
		QuestionTemplateID: r.QuestionTemplateID,
		JudgeIDs:           []string{},
		CreatedAt:          r.CreatedAt,
	}
	if len(r.JudgeIDs) > 0 {
		if err := json.Unmarshal(r.JudgeIDs, &a.JudgeIDs); err != nil {
			return a, fmt.Errorf("assignment %s judge_ids: %w", r.ID, err)
		}
	}
	return a, nil
}

type submissionRow struct {
	ID             string    `db:"id"`
	QueueID        string    `db:"queue_id"`
	LabelingTaskID string    `db:"labeling_task_id"`
	CreatedAt      int64     `db:"created_at"`
	Questions      []byte    `db:"questions"`
	Answers        []byte    `db:"answers"`
	Attachments    []byte    `db:"attachments"`
	UploadedAt     time.Time `db:"uploaded_at"`
}

func (r submissionRow) toSubmission() (schemas.Submission, error) {
	s := schemas.Submission{
		ID:             r.ID,
		QueueID:        r.QueueID,
		LabelingTaskID: r.LabelingTaskID,
		CreatedAt:      r.CreatedAt,
	}
	if err := json.Unmarshal(r.Questions, &s.Questions); err != nil {
		return s, fmt.Errorf("submission %s questions: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.Answers, &s.Answers); err != nil {
		return s, fmt.Errorf("submission %s answers: %w", r.ID, err)
	}
	if len(r.Attachments) > 0 {
		if err := json.Unmarshal(r.Attachments, &s.Attachments); err != nil {
			return s, fmt.Errorf("submission %s attachments: %w", r.ID, err)
		}
	}
	return s, nil
}
