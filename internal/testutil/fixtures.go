package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/checkcode/internal/pipeline"
	"github.com/MeKo-Tech/checkcode/internal/style"
)

// Fixture is a sample code with its registration metadata.
type Fixture struct {
	Name    string      `json:"name"`
	File    string      `json:"file"`
	Content string      `json:"content"`
	Author  string      `json:"author"`
	Public  bool        `json:"isPublic"`
	Style   style.Style `json:"style"`
}

// Fixtures returns the sample set: every shape combination, a gradient and
// each content type.
func Fixtures() []Fixture {
	navy := style.MustParseColor("#1B2A4A")
	teal := style.MustParseColor("#0B6E69")

	fixtures := []Fixture{
		{Name: "Website", File: "website.png", Content: "https://example.com/", Author: "Marketing", Public: true, Style: style.Default()},
		{Name: "Support mail", File: "email.png", Content: "support@example.com", Author: "Support", Public: true,
			Style: style.Style{Primary: navy, EyeShape: style.ShapeRounded, DotShape: style.ShapeCircle}},
		{Name: "Hotline", File: "phone.png", Content: "+49 30 1234567", Author: "Support", Public: false,
			Style: style.Default().WithSecondary(teal)},
		{Name: "Wifi note", File: "text.png", Content: "Guest network: checkcode-guest", Author: "IT", Public: true,
			Style: style.Style{Primary: teal, EyeShape: style.ShapeCircle, DotShape: style.ShapeRounded}},
	}

	for _, eye := range style.Shapes() {
		for _, dot := range style.Shapes() {
			name := fmt.Sprintf("shape-%s-%s", eye, dot)
			fixtures = append(fixtures, Fixture{
				Name:    name,
				File:    name + ".png",
				Content: "https://example.com/shapes/" + string(eye) + "/" + string(dot),
				Author:  "Design",
				Public:  true,
				Style:   style.Style{Primary: style.Black, EyeShape: eye, DotShape: dot},
			})
		}
	}
	return fixtures
}

// WriteFixtures renders every fixture into dir and writes a manifest.json
// describing them.
func WriteFixtures(ctx context.Context, p *pipeline.Pipeline, dir string) ([]Fixture, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	fixtures := Fixtures()
	for _, f := range fixtures {
		res, err := p.Generate(ctx, f.Content, f.Style)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", f.Name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, f.File), res.PNG, 0o600); err != nil {
			return nil, err
		}
	}

	manifest, err := json.MarshalIndent(fixtures, "", "  ")
	if err != nil {
		return nil, err
	}
	return fixtures, os.WriteFile(filepath.Join(dir, "manifest.json"), manifest, 0o600)
}
