package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	m "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"ai-judge/internal/errdefs"
	"ai-judge/internal/schemas"
)

type JudgeStore interface {
	List(ctx context.Context) ([]schemas.Judge, error)
	Get(ctx context.Context, id string) (*schemas.Judge, error)
	Create(ctx context.Context, in schemas.JudgeInput) (string, error)
	Update(ctx context.Context, id string, p schemas.JudgePatch) error
	Delete(ctx context.Context, id string) error
}

type AssignmentStore interface {
	List(ctx context.Context, queueID string) ([]schemas.Assignment, error)
	Save(ctx context.Context, queueID, questionTemplateID string, judgeIDs []string) error
}

type SubmissionStore interface {
	List(ctx context.Context, queueID string) ([]schemas.Submission, error)
	Get(ctx context.Context, id string) (*schemas.Submission, error)
	ListQueues(ctx context.Context) ([]schemas.Queue, error)
	UpsertBatch(ctx context.Context, subs []schemas.Submission) error
	AppendAttachments(ctx context.Context, submissionID string, atts []schemas.Attachment) ([]schemas.Attachment, error)
}

type EvaluationStore interface {
	List(ctx context.Context, f schemas.EvaluationFilter) ([]schemas.Evaluation, error)
}

type ObjectStore interface {
	Put(ctx context.Context, submissionID, filename, contentType string, body io.Reader) (*schemas.Attachment, error)
	Delete(ctx context.Context, att schemas.Attachment) error
}

type ProgressReader interface {
	Get(ctx context.Context, queueID string) (schemas.Progress, error)
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	DB          Pinger
	Judges      JudgeStore
	Assignments AssignmentStore
	Submissions SubmissionStore
	Evaluations EvaluationStore
	Objects     ObjectStore
	Progress    ProgressReader
	Asynq       Enqueuer
	Log         *zap.Logger
}

func NewServer(addr string, s *Server) *http.Server {
	return &http.Server{Addr: addr, Handler: s.Routes()}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(m.RequestID, m.RealIP, RequestLogger(s.Log), m.Recoverer)

	r.Route("/judges", func(r chi.Router) {
		r.Get("/", s.listJudges)
		r.Post("/", s.createJudge)
		r.Get("/{id}", s.getJudge)
		r.Patch("/{id}", s.updateJudge)
		r.Delete("/{id}", s.deleteJudge)
	})

	r.Get("/queues", s.listQueues)
	r.Route("/queues/{queueId}", func(r chi.Router) {
		r.Get("/assignments", s.listAssignments)
		r.Put("/assignments/{templateId}", s.saveAssignment)
		r.Get("/submissions", s.listSubmissions)
		r.Post("/runs", s.startRun)
		r.Get("/progress", s.getProgress)
	})

	r.Post("/submissions", s.uploadSubmissions)
	r.Post("/submissions/{id}/attachments", s.uploadAttachments)

	r.Get("/evaluations", s.listEvaluations)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.DB.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "db error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errdefs.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errResp{err.Error()})
	case errors.Is(err, errdefs.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResp{err.Error()})
	default:
		s.Log.Error("request failed",
			zap.String("request_id", m.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errResp{"internal error"})
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errdefs.NewValidation("", "invalid JSON body: %v", err)
	}
	return nil
}
