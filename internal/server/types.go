// Package server exposes the registry API, generation and scanning over
// HTTP.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/service"
	"github.com/MeKo-Tech/checkcode/internal/verify"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	svc         *service.Service
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	frameBuffer int
	rateLimiter *RateLimiter
	upgrader    websocket.Upgrader
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	// FrameBuffer is the number of camera frames queued per websocket
	// session before new frames are dropped.
	FrameBuffer int
	RateLimit   RateLimitConfig
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Retryable *bool  `json:"retryable,omitempty"`
}

// ValidateRequest is the body of POST /qr/validate/.
type ValidateRequest struct {
	Content string `json:"content"`
}

// ValidateResponse answers whether content is registered.
type ValidateResponse struct {
	Exists bool                 `json:"exists"`
	QR     *registry.WireRecord `json:"qr,omitempty"`
}

// GenerateResponse is returned by POST /generate.
type GenerateResponse struct {
	Success bool                `json:"success"`
	Record  registry.WireRecord `json:"record"`
	Image   string              `json:"image"`
	Version int                 `json:"version"`
	Modules int                 `json:"modules"`
	Level   string              `json:"level"`
	Logo    *LogoInfo           `json:"logo,omitempty"`
}

// LogoInfo describes the logo actually drawn.
type LogoInfo struct {
	Ratio    float64 `json:"ratio"`
	Diameter int     `json:"diameter"`
	Clamped  bool    `json:"clamped"`
}

// ScanResponse is the classification of one scanned code.
type ScanResponse struct {
	Success bool                 `json:"success"`
	Status  verify.Status        `json:"status"`
	Content string               `json:"content"`
	Action  verify.Action        `json:"action"`
	Record  *registry.WireRecord `json:"record,omitempty"`
	Page    int                  `json:"page,omitempty"`
}

// NewServer creates a server around svc.
func NewServer(config Config, svc *service.Service) *Server {
	s := &Server{
		svc:         svc,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		frameBuffer: config.FrameBuffer,
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 10
	}
	if s.frameBuffer <= 0 {
		s.frameBuffer = 4
	}
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(config.RateLimit)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.SetupRoutes(r)
	return r
}

// SetupRoutes configures the HTTP routes on r. Content in paths is matched
// in its escaped form and never cleaned, so encoded slashes and dot-only
// content stay inside one segment.
func (s *Server) SetupRoutes(r *mux.Router) {
	r.UseEncodedPath()
	r.SkipClean(true)
	r.Use(s.recoveryMiddleware, s.corsMiddleware, s.loggingMiddleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorResponse(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.rateLimitMiddleware)

	api.HandleFunc("/qr/", s.createRecordHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/qr/", s.listRecordsHandler).Methods(http.MethodGet)
	api.HandleFunc("/qr/public/", s.listPublicHandler).Methods(http.MethodGet)
	api.HandleFunc("/qr/search/", s.searchHandler).Methods(http.MethodGet)
	api.HandleFunc("/qr/validate/", s.validateHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/qr/content/{content}/", s.findByContentHandler).Methods(http.MethodGet)
	api.HandleFunc("/qr/content/{content}/image.png", s.recordImageHandler).Methods(http.MethodGet)

	api.HandleFunc("/generate", s.generateHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/scan/image", s.scanImageHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/scan/pdf", s.scanPDFHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/scan/batch", s.scanBatchHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/ws/scan", s.scanWebSocketHandler).Methods(http.MethodGet)
}
