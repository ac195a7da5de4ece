package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ai-judge/internal/schemas"
)

func (s *Server) listJudges(w http.ResponseWriter, r *http.Request) {
	judges, err := s.Judges.List(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, judges)
}

func (s *Server) getJudge(w http.ResponseWriter, r *http.Request) {
	j, err := s.Judges.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) createJudge(w http.ResponseWriter, r *http.Request) {
	var in schemas.JudgeInput
	if err := decode(r, &in); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		s.writeErr(w, r, err)
		return
	}
	id, err := s.Judges.Create(r.Context(), in)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	j, err := s.Judges.Get(r.Context(), id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, j)
}

func (s *Server) updateJudge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var p schemas.JudgePatch
	if err := decode(r, &p); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := p.Validate(); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.Judges.Update(r.Context(), id, p); err != nil {
		s.writeErr(w, r, err)
		return
	}
	j, err := s.Judges.Get(r.Context(), id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) deleteJudge(w http.ResponseWriter, r *http.Request) {
	if err := s.Judges.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
