package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ai-judge/internal/errdefs"
	"ai-judge/internal/schemas"
)

const maxUploadMemory = 32 << 20

type uploadResp struct {
	Accepted int `json:"accepted"`
}

type attachmentsResp struct {
	Attachments []schemas.Attachment `json:"attachments"`
	Skipped     []string             `json:"skipped"`
}

func (s *Server) uploadSubmissions(w http.ResponseWriter, r *http.Request) {
	var subs []schemas.Submission
	if err := decode(r, &subs); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := schemas.ValidateSubmissions(subs); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.Submissions.UpsertBatch(r.Context(), subs); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResp{Accepted: len(subs)})
}

// uploadAttachments stores every file in the "files" field whose name is not
// already attached to the submission.
func (s *Server) uploadAttachments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeErr(w, r, errdefs.NewValidation("files", "invalid multipart body: %v", err))
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.writeErr(w, r, errdefs.NewValidation("files", "at least one file is required"))
		return
	}

	sub, err := s.Submissions.Get(r.Context(), id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	out := attachmentsResp{Attachments: []schemas.Attachment{}, Skipped: []string{}}
	seen := make(map[string]bool, len(files))
	var uploaded []schemas.Attachment
	for _, fh := range files {
		if sub.HasAttachment(fh.Filename) || seen[fh.Filename] {
			out.Skipped = append(out.Skipped, fh.Filename)
			continue
		}
		seen[fh.Filename] = true

		f, err := fh.Open()
		if err != nil {
			s.writeErr(w, r, fmt.Errorf("open %s: %w", fh.Filename, err))
			return
		}
		att, err := s.Objects.Put(r.Context(), id, fh.Filename, fh.Header.Get("Content-Type"), f)
		_ = f.Close()
		if err != nil {
			s.removeObjects(r, uploaded)
			s.writeErr(w, r, err)
			return
		}
		uploaded = append(uploaded, *att)
	}

	if len(uploaded) > 0 {
		added, err := s.Submissions.AppendAttachments(r.Context(), id, uploaded)
		if err != nil {
			s.removeObjects(r, uploaded)
			s.writeErr(w, r, err)
			return
		}
		kept := make(map[string]bool, len(added))
		for _, a := range added {
			kept[a.ID] = true
		}
		var orphans []schemas.Attachment
		for _, a := range uploaded {
			if !kept[a.ID] {
				// a concurrent upload attached the same filename first
				out.Skipped = append(out.Skipped, a.Filename)
				orphans = append(orphans, a)
			}
		}
		s.removeObjects(r, orphans)
		out.Attachments = append(out.Attachments, added...)
	}
	writeJSON(w, http.StatusCreated, out)
}

// removeObjects deletes stored objects that no submission references.
func (s *Server) removeObjects(r *http.Request, atts []schemas.Attachment) {
	for _, a := range atts {
		if err := s.Objects.Delete(r.Context(), a); err != nil {
			s.Log.Warn("orphaned attachment object",
				zap.String("storage_path", a.StoragePath),
				zap.Error(err),
			)
		}
	}
}
