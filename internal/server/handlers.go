package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/render"
	"github.com/MeKo-Tech/checkcode/internal/symbol"
	"github.com/MeKo-Tech/checkcode/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes {"success":false,"error":msg}.
func writeErrorResponse(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}

// writeServiceError maps domain errors onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		encErr  *symbol.EncodingError
		rendErr *render.RenderError
		perErr  *registry.PersistenceError
	)
	switch {
	case errors.As(err, &encErr), errors.As(err, &rendErr):
		writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, barcode.ErrNotFound):
		writeErrorResponse(w, "no QR code found", http.StatusUnprocessableEntity)
	case errors.Is(err, registry.ErrInvalidRecord):
		writeErrorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, registry.ErrNotFound):
		writeErrorResponse(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &perErr):
		retry := perErr.Retryable()
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Retryable: &retry})
	default:
		slog.Error("Request failed", "error", err)
		writeErrorResponse(w, "internal error", http.StatusInternalServerError)
	}
}

// decodeJSON reads a JSON body of at most the upload limit.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		writeErrorResponse(w, fmt.Sprintf("invalid JSON body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

// readUpload returns the bytes of the multipart file field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, *multipart.FileHeader, bool) {
	limit := s.maxUploadMB * 1024 * 1024
	if r.ContentLength > limit {
		writeErrorResponse(w, "file too large", http.StatusRequestEntityTooLarge)
		return nil, nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorResponse(w, "file too large", http.StatusRequestEntityTooLarge)
			return nil, nil, false
		}
		writeErrorResponse(w, "failed to parse form data", http.StatusBadRequest)
		return nil, nil, false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		writeErrorResponse(w, fmt.Sprintf("no %s file provided", field), http.StatusBadRequest)
		return nil, nil, false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorResponse(w, "failed to read upload", http.StatusInternalServerError)
		return nil, nil, false
	}
	return data, header, true
}

// checkOrigin accepts websocket upgrades from the configured CORS origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return s.corsOrigin == "*" || origin == "" || origin == s.corsOrigin
}
