package handlers

import (
	"net/http"

	"github.com/IUPAC-InChI/RInChI/internal/application/rinchi"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
)

// RInChIHandler exposes the stateless library operations.
type RInChIHandler struct {
	svc     rinchi.Service
	logger  logging.Logger
	maxBody int64
}

func NewRInChIHandler(svc rinchi.Service, logger logging.Logger, maxBody int64) *RInChIHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RInChIHandler{svc: svc, logger: logger, maxBody: maxBody}
}

type FileRequest struct {
	FileText         string `json:"file_text"`
	FileName         string `json:"file_name,omitempty"`
	Format           string `json:"format,omitempty"`
	ForceEquilibrium bool   `json:"force_equilibrium,omitempty"`
	KeyType          string `json:"key_type,omitempty"`
}

func (req *FileRequest) input() *rinchi.FileInput {
	return &rinchi.FileInput{
		Text:             req.FileText,
		Name:             req.FileName,
		Format:           req.Format,
		ForceEquilibrium: req.ForceEquilibrium,
	}
}

type IdentifierRequest struct {
	RInChI   string `json:"rinchi"`
	RAuxInfo string `json:"rauxinfo,omitempty"`
	Format   string `json:"format,omitempty"`
	KeyType  string `json:"key_type,omitempty"`
}

type InChIsRequest struct {
	Reactants   string `json:"reactants"`
	Products    string `json:"products"`
	Agents      string `json:"agents,omitempty"`
	Equilibrium bool   `json:"equilibrium,omitempty"`
}

type KeyResponse struct {
	KeyType string `json:"key_type"`
	Key     string `json:"key"`
}

type FileResponse struct {
	Format   string `json:"format"`
	FileText string `json:"file_text"`
}

// FromFile handles POST /api/v1/rinchi/from-file.
func (h *RInChIHandler) FromFile(w http.ResponseWriter, r *http.Request) {
	var req FileRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	ids, err := h.svc.FromFileText(r.Context(), req.input())
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// KeyFromFile handles POST /api/v1/rinchi/key-from-file.
func (h *RInChIHandler) KeyFromFile(w http.ResponseWriter, r *http.Request) {
	var req FileRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	key, err := h.svc.KeyFromFileText(r.Context(), req.input(), req.KeyType)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, KeyResponse{KeyType: req.KeyType, Key: key})
}

// ToFile handles POST /api/v1/rinchi/to-file. With ?raw=true the file is
// returned as is instead of wrapped in JSON.
func (h *RInChIHandler) ToFile(w http.ResponseWriter, r *http.Request) {
	var req IdentifierRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	text, err := h.svc.FileTextFromRInChI(r.Context(), req.RInChI, req.RAuxInfo, req.Format)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	format := "RXN"
	if len(text) >= 4 && text[:4] == "$RDF" {
		format = "RD"
	}
	if queryBool(r, "raw") {
		ct := "chemical/x-mdl-rxnfile"
		if format == "RD" {
			ct = "chemical/x-mdl-rdfile"
		}
		writeText(w, http.StatusOK, ct, text)
		return
	}
	writeJSON(w, http.StatusOK, FileResponse{Format: format, FileText: text})
}

// Decompose handles POST /api/v1/rinchi/decompose. ?format=text returns the
// line-oriented listing.
func (h *RInChIHandler) Decompose(w http.ResponseWriter, r *http.Request) {
	var req IdentifierRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	d, err := h.svc.Decompose(r.Context(), req.RInChI, req.RAuxInfo)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		writeText(w, http.StatusOK, "text/plain; charset=utf-8", d.Text())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// FromInChIs handles POST /api/v1/rinchi/from-inchis.
func (h *RInChIHandler) FromInChIs(w http.ResponseWriter, r *http.Request) {
	var req InChIsRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	ids, err := h.svc.FromInChIs(r.Context(), &rinchi.InChIsInput{
		Reactants:   req.Reactants,
		Products:    req.Products,
		Agents:      req.Agents,
		Equilibrium: req.Equilibrium,
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// Key handles POST /api/v1/rinchi/key.
func (h *RInChIHandler) Key(w http.ResponseWriter, r *http.Request) {
	var req IdentifierRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	key, err := h.svc.KeyFromRInChI(r.Context(), req.RInChI, req.KeyType)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, KeyResponse{KeyType: req.KeyType, Key: key})
}

// Keys handles POST /api/v1/rinchi/keys.
func (h *RInChIHandler) Keys(w http.ResponseWriter, r *http.Request) {
	var req IdentifierRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	ids, err := h.svc.Keys(r.Context(), req.RInChI)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}
