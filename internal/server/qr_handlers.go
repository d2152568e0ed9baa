package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/render"
	"github.com/MeKo-Tech/checkcode/internal/service"
	"github.com/MeKo-Tech/checkcode/internal/symbol"
)

func observeRegistry(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrNotFound):
		result = "not_found"
	case errors.Is(err, registry.ErrInvalidRecord):
		result = "invalid"
	default:
		result = "error"
	}
	registryOperations.WithLabelValues(op, result).Inc()
}

func (s *Server) createRecordHandler(w http.ResponseWriter, r *http.Request) {
	var body registry.WireRecord
	if !s.decodeJSON(w, r, &body) {
		return
	}
	in, err := body.NewRecord()
	if err != nil {
		writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec, err := s.svc.Registry().Create(r.Context(), in)
	observeRegistry("create", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registry.ToWire(rec))
}

func (s *Server) listRecordsHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.Registry().List(r.Context())
	observeRegistry("list", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registry.ToWireList(recs))
}

func (s *Server) listPublicHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.Registry().ListPublic(r.Context())
	observeRegistry("list_public", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registry.ToWireList(recs))
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	field, err := registry.ParseField(r.URL.Query().Get("field"))
	if err != nil {
		writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	recs, err := s.svc.Registry().Search(r.Context(), registry.Query{Text: r.URL.Query().Get("q"), Field: field})
	observeRegistry("search", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registry.ToWireList(recs))
}

// contentVar returns the unescaped {content} path segment.
func contentVar(r *http.Request) (string, bool) {
	c, err := url.PathUnescape(mux.Vars(r)["content"])
	if err != nil || c == "" {
		return "", false
	}
	return c, true
}

func (s *Server) findByContentHandler(w http.ResponseWriter, r *http.Request) {
	content, ok := contentVar(r)
	if !ok {
		writeErrorResponse(w, "invalid content in path", http.StatusBadRequest)
		return
	}
	rec, err := s.svc.Registry().FindByContent(r.Context(), content)
	observeRegistry("find", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registry.ToWire(rec))
}

// validateHandler is a stateless membership check.
func (s *Server) validateHandler(w http.ResponseWriter, r *http.Request) {
	var body ValidateRequest
	if !s.decodeJSON(w, r, &body) {
		return
	}
	if body.Content == "" {
		writeErrorResponse(w, "content is required", http.StatusBadRequest)
		return
	}
	c, err := s.svc.Lookup(r.Context(), body.Content)
	observeRegistry("validate", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := ValidateResponse{Exists: c.IsVerified()}
	if c.Record != nil {
		wr := registry.ToWire(*c.Record)
		resp.QR = &wr
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) recordImageHandler(w http.ResponseWriter, r *http.Request) {
	content, ok := contentVar(r)
	if !ok {
		writeErrorResponse(w, "invalid content in path", http.StatusBadRequest)
		return
	}
	rec, err := s.svc.Registry().FindByContent(r.Context(), content)
	observeRegistry("find", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := s.svc.RenderRecord(r.Context(), rec)
	observeRender(err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	renderDuration.Observe(res.Duration.Seconds())
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(res.PNG)))
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	_, _ = w.Write(res.PNG)
}

func observeRender(err error) {
	var (
		encErr  *symbol.EncodingError
		rendErr *render.RenderError
	)
	switch {
	case err == nil:
		rendersTotal.WithLabelValues("ok").Inc()
	case errors.As(err, &encErr):
		rendersTotal.WithLabelValues("encoding_error").Inc()
	case errors.As(err, &rendErr):
		rendersTotal.WithLabelValues("render_error").Inc()
	default:
		rendersTotal.WithLabelValues("error").Inc()
	}
}

// generateHandler renders and registers a code in one step.
func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	var body registry.WireRecord
	if !s.decodeJSON(w, r, &body) {
		return
	}
	in, err := body.NewRecord()
	if err != nil {
		writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, res, err := s.svc.Generate(r.Context(), service.GenerateRequest{
		Name:        in.Name,
		ContentType: in.ContentType,
		Content:     in.Content,
		Author:      in.Author,
		Style:       in.Style,
		Visibility:  in.Visibility,
	})
	var perErr *registry.PersistenceError
	if !errors.As(err, &perErr) {
		observeRender(err)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	renderDuration.Observe(res.Duration.Seconds())

	resp := GenerateResponse{
		Success: true,
		Record:  registry.ToWire(rec),
		Image:   res.DataURL(),
		Version: res.Version,
		Modules: res.Modules,
		Level:   string(res.Level),
	}
	if res.Logo != nil {
		resp.Logo = &LogoInfo{Ratio: res.Logo.Ratio, Diameter: res.Logo.Diameter, Clamped: res.Logo.Clamped}
	}
	writeJSON(w, http.StatusCreated, resp)
}
