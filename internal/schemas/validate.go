package schemas

import (
	"fmt"
	"strings"

	"ai-judge/internal/errdefs"
)

const MinPromptLength = 10

func (in JudgeInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errdefs.NewValidation("name", "judge name is required")
	}
	if strings.TrimSpace(in.GradingModel) == "" {
		return errdefs.NewValidation("gradingModel", "model is required")
	}
	return validatePrompt(in.GradingPrompt)
}

func (p JudgePatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return errdefs.NewValidation("name", "judge name is required")
	}
	if p.GradingModel != nil && strings.TrimSpace(*p.GradingModel) == "" {
		return errdefs.NewValidation("gradingModel", "model is required")
	}
	if p.GradingPrompt != nil {
		return validatePrompt(*p.GradingPrompt)
	}
	return nil
}

func validatePrompt(prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return errdefs.NewValidation("gradingPrompt", "grading prompt is required")
	}
	if len(prompt) < MinPromptLength {
		return errdefs.NewValidation("gradingPrompt", "grading prompt must be at least %d characters", MinPromptLength)
	}
	return nil
}

// ValidateSubmissions checks an uploaded batch against the submission file format.
func ValidateSubmissions(subs []Submission) error {
	if len(subs) == 0 {
		return errdefs.NewValidation("", "batch contains no submissions")
	}
	for i := range subs {
		if err := subs[i].validate(fmt.Sprintf("[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Submission) validate(at string) error {
	switch {
	case s.ID == "":
		return errdefs.NewValidation(at+".id", "required")
	case s.QueueID == "":
		return errdefs.NewValidation(at+".queueId", "required")
	case s.LabelingTaskID == "":
		return errdefs.NewValidation(at+".labelingTaskId", "required")
	case s.CreatedAt <= 0:
		return errdefs.NewValidation(at+".createdAt", "must be a positive timestamp")
	case s.Questions == nil:
		return errdefs.NewValidation(at+".questions", "required")
	case s.Answers == nil:
		return errdefs.NewValidation(at+".answers", "required")
	}
	for j, q := range s.Questions {
		qat := fmt.Sprintf("%s.questions[%d].data", at, j)
		if q.Data.ID == "" {
			return errdefs.NewValidation(qat+".id", "required")
		}
		if q.Data.QuestionType == "" {
			return errdefs.NewValidation(qat+".questionType", "required")
		}
		if q.Data.QuestionText == "" {
			return errdefs.NewValidation(qat+".questionText", "required")
		}
	}
	for id, a := range s.Answers {
		if a == nil {
			return errdefs.NewValidation(fmt.Sprintf("%s.answers[%q]", at, id), "must be an object")
		}
	}
	return nil
}
