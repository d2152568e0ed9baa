package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/utils"
	"github.com/MeKo-Tech/checkcode/internal/verify"
)

const maxBatchImages = 50

// BatchScanRequest carries several images to classify. Data is base64 in
// JSON.
type BatchScanRequest struct {
	Images []BatchImage `json:"images"`
}

// BatchImage is one named image in a batch.
type BatchImage struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// BatchScanResult is the outcome for one image.
type BatchScanResult struct {
	Name string `json:"name"`
	// Status is verified, unverified, no_code or error.
	Status   string        `json:"status"`
	Success  bool          `json:"success"`
	Result   *ScanResponse `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration float64       `json:"duration_seconds"`
}

// BatchScanSummary counts outcomes.
type BatchScanSummary struct {
	Total      int     `json:"total"`
	Verified   int     `json:"verified"`
	Unverified int     `json:"unverified"`
	NoCode     int     `json:"no_code"`
	Failed     int     `json:"failed"`
	Duration   float64 `json:"duration_seconds"`
}

// BatchScanResponse is returned by POST /scan/batch.
type BatchScanResponse struct {
	Success bool              `json:"success"`
	Results []BatchScanResult `json:"results"`
	Summary BatchScanSummary  `json:"summary"`
}

// scanBatchHandler classifies each image independently. One bad image does
// not fail the batch.
func (s *Server) scanBatchHandler(w http.ResponseWriter, r *http.Request) {
	var req BatchScanRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Images) == 0 {
		writeErrorResponse(w, "no images provided", http.StatusBadRequest)
		return
	}
	if len(req.Images) > maxBatchImages {
		writeErrorResponse(w, "too many images in batch", http.StatusRequestEntityTooLarge)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	resp := BatchScanResponse{Success: true, Results: make([]BatchScanResult, 0, len(req.Images))}
	for _, item := range req.Images {
		res := s.scanBatchItem(ctx, item)
		resp.Results = append(resp.Results, res)
		switch res.Status {
		case string(verify.Verified):
			resp.Summary.Verified++
		case string(verify.Unverified):
			resp.Summary.Unverified++
		case "no_code":
			resp.Summary.NoCode++
		default:
			resp.Summary.Failed++
		}
	}
	resp.Summary.Total = len(req.Images)
	resp.Summary.Duration = time.Since(start).Seconds()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) scanBatchItem(ctx context.Context, item BatchImage) BatchScanResult {
	start := time.Now()
	res := BatchScanResult{Name: item.Name, Status: "error"}

	img, _, err := utils.DecodeImageBytes(item.Data)
	if err != nil {
		scansTotal.WithLabelValues("batch", "error").Inc()
		res.Error = "invalid image format"
		res.Duration = time.Since(start).Seconds()
		return res
	}
	c, err := s.svc.Verify(ctx, img)
	observeScan("batch", c, err)
	res.Duration = time.Since(start).Seconds()
	switch {
	case errors.Is(err, barcode.ErrNotFound):
		res.Status = "no_code"
		res.Error = "no QR code found"
	case err != nil:
		res.Error = err.Error()
	default:
		sr := newScanResponse(c)
		res.Status = string(c.Status)
		res.Success = true
		res.Result = &sr
	}
	return res
}
