package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/checkcode/internal/pdf"
)

// scanPDFHandler classifies the first code found in an uploaded PDF.
// Optional form fields: pages (e.g. "1-3,5") and password.
func (s *Server) scanPDFHandler(w http.ResponseWriter, r *http.Request) {
	data, header, ok := s.readUpload(w, r, "pdf")
	if !ok {
		scansTotal.WithLabelValues("pdf", "error").Inc()
		return
	}

	path, cleanup, err := writeTempUpload(data, header.Filename)
	if err != nil {
		scansTotal.WithLabelValues("pdf", "error").Inc()
		writeErrorResponse(w, "failed to store upload", http.StatusInternalServerError)
		return
	}
	defer cleanup()

	ctx, cancel := s.requestContext(r)
	defer cancel()

	opts := pdf.Options{Pages: r.FormValue("pages"), Password: r.FormValue("password")}
	c, hit, err := s.svc.VerifyPDF(ctx, path, opts)
	observeScan("pdf", c, err)
	if err != nil {
		if isPDFInputError(err) {
			writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeServiceError(w, err)
		return
	}
	resp := newScanResponse(c)
	resp.Page = hit.Page
	writeJSON(w, http.StatusOK, resp)
}

// writeTempUpload stores data so pdfcpu can read it from disk.
func writeTempUpload(data []byte, name string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "checkcode-upload-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || filepath.Ext(base) != ".pdf" {
		base = "upload.pdf"
	}
	path := filepath.Join(dir, base)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write upload: %w", err)
	}
	return path, cleanup, nil
}

func isPDFInputError(err error) bool {
	var inErr *pdf.InputError
	return errors.As(err, &inErr)
}
