package registry

import (
	"strings"

	"golang.org/x/text/cases"
)

// Matcher tests records against a query using Unicode case folding.
// A Matcher is not safe for concurrent use; create one per query.
type Matcher struct {
	field  Field
	needle string
	fold   cases.Caser
}

// NewMatcher prepares q for repeated matching.
func NewMatcher(q Query) *Matcher {
	fold := cases.Fold()
	field := q.Field
	if field == "" {
		field = FieldAll
	}
	return &Matcher{field: field, needle: fold.String(q.Text), fold: fold}
}

// Match reports whether rec satisfies the query. Visibility is not checked.
func (m *Matcher) Match(rec Record) bool {
	if m.needle == "" {
		return true
	}
	switch m.field {
	case FieldName:
		return m.contains(rec.Name)
	case FieldAuthor:
		return m.contains(rec.Author)
	case FieldContent:
		return m.contains(rec.Content)
	default:
		return m.contains(rec.Name) || m.contains(rec.Author) || m.contains(rec.Content)
	}
}

func (m *Matcher) contains(s string) bool {
	return strings.Contains(m.fold.String(s), m.needle)
}

// FilterPublic returns the public records of recs matching q, keeping order.
func FilterPublic(recs []Record, q Query) []Record {
	m := NewMatcher(q)
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if r.Visibility.IsPublic() && m.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Earliest picks the record FindByContent must return among duplicates:
// the smallest CreatedAt, then the first in insertion order. recs must be
// in insertion order.
func Earliest(recs []Record) (Record, bool) {
	if len(recs) == 0 {
		return Record{}, false
	}
	best := recs[0]
	for _, r := range recs[1:] {
		if r.CreatedAt.Before(best.CreatedAt) {
			best = r
		}
	}
	return best, true
}
