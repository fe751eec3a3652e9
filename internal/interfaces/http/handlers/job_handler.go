package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/IUPAC-InChI/RInChI/internal/application/worker"
	"github.com/IUPAC-InChI/RInChI/internal/domain/job"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// JobService is implemented by worker.Submitter.
type JobService interface {
	Submit(ctx context.Context, in *worker.SubmitInput) (*job.Job, error)
	Status(ctx context.Context, id string) (*job.Job, error)
	ResultURL(ctx context.Context, id string, expiry time.Duration) (string, error)
}

const resultLinkExpiry = 15 * time.Minute

// JobHandler accepts batch uploads processed by the worker.
type JobHandler struct {
	svc     JobService
	logger  logging.Logger
	maxBody int64
}

func NewJobHandler(svc JobService, logger logging.Logger, maxBody int64) *JobHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	return &JobHandler{svc: svc, logger: logger, maxBody: maxBody}
}

type ResultResponse struct {
	JobID     string    `json:"job_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Submit handles POST /api/v1/jobs, a multipart form with a "file" part and
// the fields kind, format and force_equilibrium.
func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseMultipartForm(h.maxBody); err != nil {
		writeAppError(w, h.logger, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeAppError(w, h.logger, errors.InvalidParam("form part file is required"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeAppError(w, h.logger, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read upload"))
		return
	}

	kind := r.FormValue("kind")
	if kind == "" {
		kind = string(job.KindCompute)
	}
	j, err := h.svc.Submit(r.Context(), &worker.SubmitInput{
		Kind:             kind,
		FileName:         header.Filename,
		Data:             data,
		Format:           r.FormValue("format"),
		ForceEquilibrium: r.FormValue("force_equilibrium") == "true",
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	w.Header().Set("Location", "/api/v1/jobs/"+j.ID)
	writeJSON(w, http.StatusAccepted, j)
}

// Get handles GET /api/v1/jobs/{id}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, err := h.svc.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// Result handles GET /api/v1/jobs/{id}/result. ?redirect=true answers with
// a redirect to the download link.
func (h *JobHandler) Result(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	url, err := h.svc.ResultURL(r.Context(), id, resultLinkExpiry)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if queryBool(r, "redirect") {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse{JobID: id, URL: url, ExpiresAt: time.Now().UTC().Add(resultLinkExpiry)})
}
