package schemas

import (
	"strings"
	"time"
)

type Verdict string

const (
	VerdictPass         Verdict = "pass"
	VerdictFail         Verdict = "fail"
	VerdictInconclusive Verdict = "inconclusive"
)

// NormalizeVerdict maps s onto the closed verdict set; anything else is inconclusive.
func NormalizeVerdict(s string) Verdict {
	switch v := Verdict(strings.ToLower(strings.TrimSpace(s))); v {
	case VerdictPass, VerdictFail, VerdictInconclusive:
		return v
	}
	return VerdictInconclusive
}

type Judge struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	GradingModel  string    `json:"gradingModel" db:"grading_model"`
	GradingPrompt string    `json:"gradingPrompt" db:"grading_prompt"`
	Active        bool      `json:"active" db:"active"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

type JudgeInput struct {
	Name          string `json:"name"`
	GradingModel  string `json:"gradingModel"`
	GradingPrompt string `json:"gradingPrompt"`
	Active        bool   `json:"active"`
}

// JudgePatch is a partial update; nil fields are left untouched.
type JudgePatch struct {
	Name          *string `json:"name,omitempty"`
	GradingModel  *string `json:"gradingModel,omitempty"`
	GradingPrompt *string `json:"gradingPrompt,omitempty"`
	Active        *bool   `json:"active,omitempty"`
}

type Assignment struct {
	QueueID            string    `json:"queueId"`
	QuestionTemplateID string    `json:"questionTemplateId"`
	JudgeIDs           []string  `json:"judgeIds"`
	CreatedAt          time.Time `json:"createdAt"`
}

func AssignmentKey(queueID, questionTemplateID string) string {
	return queueID + "_" + questionTemplateID
}

type QuestionData struct {
	ID           string `json:"id"`
	QuestionType string `json:"questionType"`
	QuestionText string `json:"questionText"`
}

type Question struct {
	Rev  int          `json:"rev"`
	Data QuestionData `json:"data"`
}

type Answer struct {
	Choice    string `json:"choice,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
	FreeForm  string `json:"freeForm,omitempty"`
}

type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	StoragePath string `json:"storagePath"`
	DownloadURL string `json:"downloadURL"`
	ContentType string `json:"contentType"`
	// UploadedAt is unix milliseconds.
	UploadedAt int64 `json:"uploadedAt"`
}

type Submission struct {
	ID             string             `json:"id"`
	QueueID        string             `json:"queueId"`
	LabelingTaskID string             `json:"labelingTaskId"`
	CreatedAt      int64              `json:"createdAt"`
	Questions      []Question         `json:"questions"`
	Answers        map[string]*Answer `json:"answers"`
	Attachments    []Attachment       `json:"attachments,omitempty"`
}

// HasAttachment reports whether filename is already attached.
func (s *Submission) HasAttachment(filename string) bool {
	for _, a := range s.Attachments {
		if a.Filename == filename {
			return true
		}
	}
	return false
}

type Evaluation struct {
	ID                 string    `json:"id" db:"id"`
	SubmissionID       string    `json:"submissionId" db:"submission_id"`
	QueueID            string    `json:"queueId" db:"queue_id"`
	QuestionTemplateID string    `json:"questionTemplateId" db:"question_template_id"`
	JudgeID            string    `json:"judgeId" db:"judge_id"`
	Verdict            Verdict   `json:"verdict" db:"verdict"`
	Reasoning          string    `json:"reasoning" db:"reasoning"`
	Model              string    `json:"model" db:"model"`
	Provider           string    `json:"provider" db:"provider"`
	LatencyMS          int64     `json:"latencyMs" db:"latency_ms"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	Error              string    `json:"error,omitempty" db:"error"`
}

type EvaluationFilter struct {
	QueueID     string
	JudgeIDs    []string
	QuestionIDs []string
	Verdicts    []Verdict
	// Errored, when set, keeps only failed (true) or only judged (false) rows.
	Errored *bool
}

type Queue struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Progress is the live summary of one orchestration run.
type Progress struct {
	Planned int `json:"planned"`
	Done    int `json:"done"`
	Failed  int `json:"failed"`
}

// Settled reports whether every planned task reached a terminal outcome.
func (p Progress) Settled() bool {
	return p.Done+p.Failed == p.Planned
}

type RunRequest struct {
	QueueID string `json:"queueId"`
}

type EvaluationsOut struct {
	Evaluations []Evaluation `json:"evaluations"`
	Total       int          `json:"total"`
	Errored     int          `json:"errored"`
	PassRate    float64      `json:"passRate"`
}
