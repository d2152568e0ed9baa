// Package service ties generation, the registry and verification together
// for the CLI and the HTTP server.
package service

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/pdf"
	"github.com/MeKo-Tech/checkcode/internal/pipeline"
	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/scan"
	"github.com/MeKo-Tech/checkcode/internal/style"
	"github.com/MeKo-Tech/checkcode/internal/verify"
)

// GenerateRequest is a request to render and register a code.
type GenerateRequest struct {
	Name        string
	ContentType style.ContentType
	Content     string
	Author      string
	Style       style.Style
	Visibility  registry.Visibility
}

// Service is safe for concurrent use.
type Service struct {
	pipe    *pipeline.Pipeline
	reg     registry.Registry
	decoder *barcode.Decoder
}

// New creates a service.
func New(pipe *pipeline.Pipeline, reg registry.Registry, dec *barcode.Decoder) *Service {
	return &Service{pipe: pipe, reg: reg, decoder: dec}
}

// Registry returns the backing registry.
func (s *Service) Registry() registry.Registry { return s.reg }

// Decoder returns the shared decoder.
func (s *Service) Decoder() *barcode.Decoder { return s.decoder }

// Pipeline returns the generation pipeline.
func (s *Service) Pipeline() *pipeline.Pipeline { return s.pipe }

// Generate renders first and registers second, so an encoding or render
// failure never leaves a record behind.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (registry.Record, *pipeline.Result, error) {
	in := registry.NewRecord{
		Name:        req.Name,
		ContentType: req.ContentType,
		Content:     req.Content,
		Author:      req.Author,
		Style:       req.Style,
		Visibility:  req.Visibility,
	}
	if in.ContentType == "" {
		in.ContentType = style.DetectContentType(req.Content)
	}
	if in.Visibility == "" {
		in.Visibility = registry.Private
	}

	res, err := s.pipe.Generate(ctx, req.Content, req.Style)
	if err != nil {
		return registry.Record{}, nil, err
	}
	rec, err := s.reg.Create(ctx, in)
	if err != nil {
		return registry.Record{}, nil, err
	}
	slog.Info("Generated code", "id", rec.ID, "version", res.Version, "logo", res.Logo != nil)
	return rec, res, nil
}

// Render renders content without registering it.
func (s *Service) Render(ctx context.Context, content string, st style.Style) (*pipeline.Result, error) {
	return s.pipe.Generate(ctx, content, st)
}

// RenderRecord regenerates the bitmap of a stored record.
func (s *Service) RenderRecord(ctx context.Context, rec registry.Record) (*pipeline.Result, error) {
	return s.pipe.Generate(ctx, rec.Content, rec.Style)
}

// Lookup classifies content without a long-lived resolver.
func (s *Service) Lookup(ctx context.Context, content string) (verify.Classification, error) {
	return verify.Safely(func() (verify.Classification, error) {
		return verify.NewResolver(s.reg).Resolve(ctx, content)
	})
}

// Verify decodes img and classifies its payload. A decode failure returns
// barcode.ErrNotFound.
func (s *Service) Verify(ctx context.Context, img image.Image) (verify.Classification, error) {
	r := verify.NewResolver(s.reg)
	if err := r.Begin(); err != nil {
		return verify.Classification{}, err
	}
	text, err := s.decoder.Decode(ctx, img)
	if err != nil {
		r.Fail()
		return verify.Classification{}, err
	}
	return verify.Safely(func() (verify.Classification, error) {
		return r.Resolve(ctx, text)
	})
}

// VerifyPDF classifies the first QR code found in a PDF.
func (s *Service) VerifyPDF(ctx context.Context, path string, opts pdf.Options) (verify.Classification, scan.PDFHit, error) {
	hit, err := scan.DecodePDF(ctx, s.decoder, path, opts)
	if err != nil {
		return verify.Classification{}, scan.PDFHit{}, err
	}
	c, err := s.Lookup(ctx, hit.Text)
	return c, hit, err
}

// IsClientError reports whether err is the caller's fault (bad content,
// style or image) rather than a store or server fault.
func IsClientError(err error) bool {
	return errors.Is(err, registry.ErrInvalidRecord) || errors.Is(err, barcode.ErrNotFound)
}
