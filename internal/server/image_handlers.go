package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/utils"
	"github.com/MeKo-Tech/checkcode/internal/verify"
)

// requestContext bounds a request by the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeoutSec > 0 {
		return context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
	}
	return context.WithCancel(r.Context())
}

func observeScan(mode string, c verify.Classification, err error) {
	result := string(c.Status)
	switch {
	case errors.Is(err, barcode.ErrNotFound):
		result = "no_code"
	case err != nil:
		result = "error"
	}
	scansTotal.WithLabelValues(mode, result).Inc()
}

func newScanResponse(c verify.Classification) ScanResponse {
	resp := ScanResponse{
		Success: true,
		Status:  c.Status,
		Content: c.Content,
		Action:  c.Action,
	}
	if c.Record != nil {
		wr := registry.ToWire(*c.Record)
		resp.Record = &wr
	}
	return resp
}

// scanImageHandler classifies the code in an uploaded image.
func (s *Server) scanImageHandler(w http.ResponseWriter, r *http.Request) {
	data, _, ok := s.readUpload(w, r, "image")
	if !ok {
		scansTotal.WithLabelValues("image", "error").Inc()
		return
	}
	img, _, err := utils.DecodeImageBytes(data)
	if err != nil {
		scansTotal.WithLabelValues("image", "error").Inc()
		writeErrorResponse(w, "invalid image format", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	c, err := s.svc.Verify(ctx, img)
	observeScan("image", c, err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newScanResponse(c))
}
