package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IUPAC-InChI/RInChI/internal/application/registry"
	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 500
)

// ReactionHandler serves the reaction registry and the reaction network.
type ReactionHandler struct {
	svc     registry.Service
	logger  logging.Logger
	maxBody int64
}

func NewReactionHandler(svc registry.Service, logger logging.Logger, maxBody int64) *ReactionHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ReactionHandler{svc: svc, logger: logger, maxBody: maxBody}
}

type ReactionListResponse struct {
	Reactions  []*reaction.Record `json:"reactions"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

type ParticipationsResponse struct {
	InChIKey       string                   `json:"inchikey"`
	Participations []reaction.Participation `json:"participations"`
}

type SuccessorsResponse struct {
	Key        string   `json:"key"`
	Successors []string `json:"successors"`
}

// Register handles POST /api/v1/reactions.
func (h *ReactionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req FileRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	source := "api"
	if req.FileName != "" {
		source = "api:" + req.FileName
	}
	rec, err := h.svc.Register(r.Context(), req.input(), source)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// List handles GET /api/v1/reactions.
func (h *ReactionHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	res, err := h.svc.List(r.Context(), &registry.ListInput{Page: page, PageSize: pageSize})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ReactionListResponse{
		Reactions:  res.Reactions,
		Total:      res.Total,
		Page:       res.Page,
		PageSize:   res.PageSize,
		TotalPages: res.TotalPages,
	})
}

// Get handles GET /api/v1/reactions/{id}.
func (h *ReactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/v1/reactions/{id}.
func (h *ReactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Lookup handles GET /api/v1/reactions/lookup?key=. Any of the three keys
// is accepted.
func (h *ReactionHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeAppError(w, h.logger, errors.InvalidParam("query parameter key is required"))
		return
	}
	rec, err := h.svc.Lookup(r.Context(), key)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Successors handles GET /api/v1/reactions/successors?key=&limit=.
func (h *ReactionHandler) Successors(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeAppError(w, h.logger, errors.InvalidParam("query parameter key is required"))
		return
	}
	keys, err := h.svc.Successors(r.Context(), key, parseLimit(r, defaultQueryLimit, maxQueryLimit))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, SuccessorsResponse{Key: key, Successors: keys})
}

// ByComponent handles GET /api/v1/molecules/{inchikey}/reactions.
func (h *ReactionHandler) ByComponent(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.ByComponent(r.Context(), chi.URLParam(r, "inchikey"), parseLimit(r, defaultQueryLimit, maxQueryLimit))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if recs == nil {
		recs = []*reaction.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// Participations handles GET /api/v1/molecules/{inchikey}/participations.
func (h *ReactionHandler) Participations(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "inchikey")
	ps, err := h.svc.Participations(r.Context(), key)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if ps == nil {
		ps = []reaction.Participation{}
	}
	writeJSON(w, http.StatusOK, ParticipationsResponse{InChIKey: key, Participations: ps})
}
