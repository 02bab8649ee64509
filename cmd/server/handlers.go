package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/brunobiangulo/orggraph"
	"github.com/brunobiangulo/orggraph/graph"
)

type handler struct {
	engine         orggraph.Engine
	validate       *validator.Validate
	maxImportBytes int64
}

func newHandler(e orggraph.Engine, maxImportBytes int64) *handler {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if maxImportBytes <= 0 {
		maxImportBytes = orggraph.DefaultConfig().MaxImportBytes
	}
	return &handler{engine: e, validate: v, maxImportBytes: maxImportBytes}
}

// GET /organizations
func (h *handler) handleForest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	forest, err := h.engine.Forest(ctx)
	if err != nil {
		h.writeEngineError(w, r, "building forest", err)
		return
	}
	writeJSON(w, http.StatusOK, forest)
}

// POST /organizations
// Accepts one nested organization, ingests it and returns the whole forest.
func (h *handler) handleStore(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var node graph.Node
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxImportBytes))
	if err := dec.Decode(&node); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected a JSON organization")
		return
	}

	if err := h.validate.Struct(node); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":  "validation failed",
				"fields": fieldErrors(verrs),
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.engine.Ingest(ctx, node)
	if err != nil {
		h.writeEngineError(w, r, "ingesting organization", err)
		return
	}
	slog.Info("organizations stored", "root", node.OrgName,
		"orgs_created", res.Stats.OrganizationsCreated, "edges_created", res.Stats.EdgesCreated,
		"request_id", requestIDFrom(r.Context()))

	forest, err := h.engine.Forest(ctx)
	if err != nil {
		h.writeEngineError(w, r, "building forest", err)
		return
	}
	writeJSON(w, http.StatusOK, forest)
}

// GET /organizations/{name}?page=N
func (h *handler) handleShow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	p, err := h.engine.RelationsPage(ctx, r.PathValue("name"), page)
	if errors.Is(err, orggraph.ErrOrganizationNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		h.writeEngineError(w, r, "classifying relations", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PUT, PATCH, DELETE /organizations/{name}
func (h *handler) handleNotImplemented(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotImplemented, "not implemented")
}

// POST /import
// Accepts a multipart hierarchy file (xlsx, json, yaml) in the "file" field.
func (h *handler) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxImportBytes)
	if err := r.ParseMultipartForm(h.maxImportBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	// Sanitise filename to prevent path traversal.
	safeName := filepath.Base(header.Filename)

	tmpDir, err := os.MkdirTemp("", "orggraph-import-")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process file")
		slog.Error("creating temp dir", "error", err)
		return
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, safeName)
	dst, err := os.Create(tmpPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process file")
		slog.Error("creating temp file", "error", err)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, "failed to save file")
		slog.Error("saving uploaded file", "error", err)
		return
	}
	dst.Close()

	res, err := h.engine.ImportFile(ctx, tmpPath)
	if err != nil {
		h.writeEngineError(w, r, "importing file", err)
		return
	}

	forest, err := h.engine.Forest(ctx)
	if err != nil {
		h.writeEngineError(w, r, "building forest", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"filename": safeName,
		"result":   res,
		"forest":   forest,
	})
}

// GET /stats
func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		h.writeEngineError(w, r, "reading stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeEngineError maps engine errors onto HTTP statuses and logs the
// unexpected ones.
func (h *handler) writeEngineError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, orggraph.ErrOrganizationNotFound):
		writeError(w, http.StatusNotFound, "organization not found")
	case errors.Is(err, orggraph.ErrInvalidNode):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, orggraph.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, orggraph.ErrCycle):
		writeError(w, http.StatusConflict, "stored hierarchy contains a cycle")
		slog.Error(op, "error", err, "request_id", requestIDFrom(r.Context()))
	default:
		writeError(w, http.StatusInternalServerError, op+" failed")
		slog.Error(op, "error", err, "request_id", requestIDFrom(r.Context()))
	}
}

// fieldErrors flattens validator errors into {"daughters[0].org_name": "required"}.
func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		msg := fe.Tag()
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		out[ns] = msg
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
