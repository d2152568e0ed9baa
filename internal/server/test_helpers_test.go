package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/pipeline"
	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/registry/memdb"
	"github.com/MeKo-Tech/checkcode/internal/service"
	"github.com/MeKo-Tech/checkcode/internal/style"
	"github.com/MeKo-Tech/checkcode/internal/utils"
)

func newTestService(t *testing.T, reg registry.Registry) *service.Service {
	t.Helper()
	p, err := pipeline.NewBuilder().Build()
	require.NoError(t, err)
	if reg == nil {
		reg, err = memdb.New()
		require.NoError(t, err)
	}
	return service.New(p, reg, barcode.NewDecoder(barcode.DefaultOptions()))
}

// newTestServer returns a server over an in-memory registry and its
// routed handler.
func newTestServer(t *testing.T, cfg Config) (*Server, http.Handler) {
	t.Helper()
	s := NewServer(cfg, newTestService(t, nil))
	return s, s.Handler()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, target, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// codePNG renders content as a styled code without registering it.
func codePNG(t *testing.T, svc *service.Service, content string) []byte {
	t.Helper()
	res, err := svc.Render(context.Background(), content, style.Default())
	require.NoError(t, err)
	return res.PNG
}

func blankPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	data, err := utils.EncodePNG(img)
	require.NoError(t, err)
	return data
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func register(t *testing.T, s *Server, name, content string, public bool) registry.Record {
	t.Helper()
	rec, err := s.svc.Registry().Create(context.Background(), registry.NewRecord{
		Name:       name,
		Content:    content,
		Author:     "tester",
		Style:      style.Default(),
		Visibility: registry.VisibilityOf(public),
	})
	require.NoError(t, err)
	return rec
}
