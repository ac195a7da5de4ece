package http

import (
	"net/http"
	"strconv"
	"strings"

	"ai-judge/internal/db"
	"ai-judge/internal/errdefs"
	"ai-judge/internal/schemas"
)

// queryList accepts both repeated keys and comma separated values.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) listEvaluations(w http.ResponseWriter, r *http.Request) {
	f := schemas.EvaluationFilter{
		QueueID:     r.URL.Query().Get("queue"),
		JudgeIDs:    queryList(r, "judge"),
		QuestionIDs: queryList(r, "question"),
	}
	for _, v := range queryList(r, "verdict") {
		verdict := schemas.Verdict(strings.ToLower(v))
		switch verdict {
		case schemas.VerdictPass, schemas.VerdictFail, schemas.VerdictInconclusive:
			f.Verdicts = append(f.Verdicts, verdict)
		default:
			s.writeErr(w, r, errdefs.NewValidation("verdict", "unknown verdict %q", v))
			return
		}
	}

	if v := r.URL.Query().Get("errored"); v != "" {
		errored, err := strconv.ParseBool(v)
		if err != nil {
			s.writeErr(w, r, errdefs.NewValidation("errored", "must be true or false"))
			return
		}
		f.Errored = &errored
	}

	evals, err := s.Evaluations.List(r.Context(), f)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schemas.EvaluationsOut{
		Evaluations: evals,
		Total:       len(evals),
		Errored:     db.CountErrored(evals),
		PassRate:    db.PassRate(evals),
	})
}
