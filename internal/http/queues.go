package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ai-judge/internal/errdefs"
	"ai-judge/internal/worker"
)

type assignmentReq struct {
	JudgeIDs []string `json:"judgeIds"`
}

type runResp struct {
	QueueID string `json:"queueId"`
	TaskID  string `json:"taskId"`
}

func (s *Server) listQueues(w http.ResponseWriter, r *http.Request) {
	queues, err := s.Submissions.ListQueues(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queues)
}

func (s *Server) listAssignments(w http.ResponseWriter, r *http.Request) {
	out, err := s.Assignments.List(r.Context(), chi.URLParam(r, "queueId"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// saveAssignment replaces the judge set of one question template.
func (s *Server) saveAssignment(w http.ResponseWriter, r *http.Request) {
	queueID := chi.URLParam(r, "queueId")
	templateID := chi.URLParam(r, "templateId")
	var req assignmentReq
	if err := decode(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if req.JudgeIDs == nil {
		s.writeErr(w, r, errdefs.NewValidation("judgeIds", "is required"))
		return
	}
	if err := s.Assignments.Save(r.Context(), queueID, templateID, req.JudgeIDs); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.Submissions.List(r.Context(), chi.URLParam(r, "queueId"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	queueID := chi.URLParam(r, "queueId")
	task, err := worker.NewRunTask(queueID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	info, err := s.Asynq.Enqueue(task)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, runResp{QueueID: queueID, TaskID: info.ID})
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.Progress.Get(r.Context(), chi.URLParam(r, "queueId"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
