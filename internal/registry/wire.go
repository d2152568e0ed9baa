package registry

import (
	"fmt"
	"time"

	"github.com/MeKo-Tech/checkcode/internal/style"
)

// WireRecord is the JSON shape of a record on the HTTP API.
type WireRecord struct {
	ID        string            `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string            `json:"name" yaml:"name"`
	Type      style.ContentType `json:"type" yaml:"type"`
	Content   string            `json:"content" yaml:"content"`
	Author    string            `json:"author" yaml:"author"`
	Color1    string            `json:"color1" yaml:"color1"`
	Color2    string            `json:"color2,omitempty" yaml:"color2,omitempty"`
	EyeStyle  style.Shape       `json:"eyeStyle" yaml:"eyeStyle"`
	DotStyle  style.Shape       `json:"dotStyle" yaml:"dotStyle"`
	LogoImage string            `json:"logoImage,omitempty" yaml:"logoImage,omitempty"`
	CreatedAt *time.Time        `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	IsPublic  bool              `json:"isPublic" yaml:"isPublic"`
}

// ToWire converts a stored record to its JSON shape.
func ToWire(r Record) WireRecord {
	created := r.CreatedAt.UTC()
	w := WireRecord{
		ID:        r.ID,
		Name:      r.Name,
		Type:      r.ContentType,
		Content:   r.Content,
		Author:    r.Author,
		Color1:    r.Style.Primary.Hex(),
		EyeStyle:  r.Style.EyeShape,
		DotStyle:  r.Style.DotShape,
		LogoImage: r.Style.Logo,
		CreatedAt: &created,
		IsPublic:  r.Visibility.IsPublic(),
	}
	if r.Style.Secondary != nil {
		w.Color2 = r.Style.Secondary.Hex()
	}
	return w
}

// ToWireList converts a slice of records, never returning nil.
func ToWireList(recs []Record) []WireRecord {
	out := make([]WireRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, ToWire(r))
	}
	return out
}

// NewRecord parses the caller-supplied fields. ID and CreatedAt are ignored.
func (w WireRecord) NewRecord() (NewRecord, error) {
	st, err := w.style()
	if err != nil {
		return NewRecord{}, err
	}
	return NewRecord{
		Name:        w.Name,
		ContentType: w.Type,
		Content:     w.Content,
		Author:      w.Author,
		Style:       st,
		Visibility:  VisibilityOf(w.IsPublic),
	}, nil
}

// Record parses a full record as returned by the server.
func (w WireRecord) Record() (Record, error) {
	n, err := w.NewRecord()
	if err != nil {
		return Record{}, err
	}
	if w.ID == "" || w.CreatedAt == nil {
		return Record{}, fmt.Errorf("%w: missing id or createdAt", ErrInvalidRecord)
	}
	return Record{
		ID:          w.ID,
		Name:        n.Name,
		ContentType: n.ContentType,
		Content:     n.Content,
		Author:      n.Author,
		Style:       n.Style,
		CreatedAt:   w.CreatedAt.UTC(),
		Visibility:  n.Visibility,
	}, nil
}

func (w WireRecord) style() (style.Style, error) {
	st := style.Default()
	if w.Color1 != "" {
		c, err := style.ParseColor(w.Color1)
		if err != nil {
			return style.Style{}, fmt.Errorf("color1: %w", err)
		}
		st.Primary = c
	}
	if w.Color2 != "" {
		c, err := style.ParseColor(w.Color2)
		if err != nil {
			return style.Style{}, fmt.Errorf("color2: %w", err)
		}
		st.Secondary = &c
	}
	if w.EyeStyle != "" {
		st.EyeShape = w.EyeStyle
	}
	if w.DotStyle != "" {
		st.DotShape = w.DotStyle
	}
	st.Logo = w.LogoImage
	return st, nil
}
