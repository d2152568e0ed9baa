package benchmark

import (
	"context"
	"encoding/csv"
	"fmt"
	"image"
	"image/color"
	"io"
	"runtime"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/pipeline"
	"github.com/MeKo-Tech/checkcode/internal/style"
)

// Case is one code rendered and decoded by the benchmark.
type Case struct {
	Name    string
	Content string
	Style   style.Style
	Logo    image.Image
	// Angle rotates the rendered code for the photo decode benchmark.
	Angle float64
}

// DefaultCases covers short and long payloads, round shapes, gradients and
// a centered logo.
func DefaultCases() []Case {
	navy := style.MustParseColor("#1B2A4A")
	teal := style.MustParseColor("#0B6E69")

	logo := image.NewRGBA(image.Rect(0, 0, 96, 96))
	for y := range 96 {
		for x := range 96 {
			logo.Set(x, y, color.RGBA{R: uint8(x * 2), G: 90, B: uint8(y * 2), A: 255}) //nolint:gosec // G115: x, y < 128
		}
	}

	return []Case{
		{Name: "short_url", Content: "https://example.com/", Style: style.Default(), Angle: 8},
		{Name: "long_text", Content: strings.Repeat("checkcode ", 60), Style: style.Default(), Angle: 5},
		{Name: "rounded", Content: "https://example.com/rounded", Angle: 12,
			Style: style.Style{Primary: navy, EyeShape: style.ShapeRounded, DotShape: style.ShapeCircle}},
		{Name: "gradient", Content: "+49 30 1234567", Style: style.Default().WithSecondary(teal), Angle: 15},
		{Name: "logo", Content: "https://example.com/logo", Style: style.Default(), Logo: logo, Angle: 6},
	}
}

// CodeBenchmark times generation, decoding of the clean render and decoding
// of a rotated photo-like copy for each case.
type CodeBenchmark struct {
	*Suite
	pipe    *pipeline.Pipeline
	decoder *barcode.Decoder
	cases   []Case
}

// NewCodeBenchmark prepares the suite. Every case is rendered once up front so
// that the decode benchmarks measure decoding only.
func NewCodeBenchmark(ctx context.Context, p *pipeline.Pipeline, dec *barcode.Decoder, cases []Case) (*CodeBenchmark, error) {
	b := &CodeBenchmark{Suite: NewSuite(), pipe: p, decoder: dec, cases: cases}

	for _, c := range cases {
		res, err := b.generate(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("prepare %s: %w", c.Name, err)
		}
		clean := res.Image
		photo := imaging.Paste(
			imaging.New(clean.Bounds().Dx()+160, clean.Bounds().Dy()+120, color.Gray{Y: 200}),
			imaging.Rotate(clean, c.Angle, color.White),
			image.Pt(40, 30),
		)

		b.Add("Generate_"+c.Name, func(ctx context.Context) error {
			_, err := b.generate(ctx, c)
			return err
		})
		b.Add("Decode_"+c.Name, b.decodeFunc(clean, c.Content))
		b.Add("DecodePhoto_"+c.Name, b.decodeFunc(photo, c.Content))
	}
	return b, nil
}

func (b *CodeBenchmark) generate(ctx context.Context, c Case) (*pipeline.Result, error) {
	if c.Logo != nil {
		return b.pipe.GenerateWithLogo(ctx, c.Content, c.Style, c.Logo)
	}
	return b.pipe.Generate(ctx, c.Content, c.Style)
}

func (b *CodeBenchmark) decodeFunc(img image.Image, want string) Func {
	return func(ctx context.Context) error {
		got, err := b.decoder.Decode(ctx, img)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("decoded %q, want %q", got, want)
		}
		return nil
	}
}

// PrintDetailedResults writes a human-readable report of the last run.
func (b *CodeBenchmark) PrintDetailedResults(w io.Writer) {
	results := b.Results()
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "No benchmark results available")
		return
	}

	_, _ = fmt.Fprintln(w, strings.Repeat("=", 72))
	_, _ = fmt.Fprintln(w, "checkcode generate/decode benchmark")
	_, _ = fmt.Fprintln(w, strings.Repeat("=", 72))
	_, _ = fmt.Fprintf(w, "GOOS/GOARCH: %s/%s, NumCPU: %d, Go: %s\n\n",
		runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.Version())

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
		_, _ = fmt.Fprintf(w, "  %s\n", r.String())
	}
	_, _ = fmt.Fprintf(w, "\n%d benchmarks, %d failed\n", len(results), failed)
}

// WriteCSV writes the last run as CSV.
func (b *CodeBenchmark) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	rows := [][]string{{"benchmark", "iterations", "avg_ms", "total_ms", "alloc_per_op_kb", "error"}}
	for _, r := range b.Results() {
		errText := ""
		if r.Error != nil {
			errText = r.Error.Error()
		}
		rows = append(rows, []string{
			r.Name,
			strconv.Itoa(r.Iterations),
			strconv.FormatFloat(float64(r.Average().Microseconds())/1000, 'f', 3, 64),
			strconv.FormatFloat(float64(r.Duration.Microseconds())/1000, 'f', 3, 64),
			strconv.FormatUint(r.AllocatedPerOp()/1024, 10),
			errText,
		})
	}
	return cw.WriteAll(rows)
}
