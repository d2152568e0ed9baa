package style

import (
	"fmt"
	"regexp"
	"strings"
)

// ContentType is advisory metadata about a payload. It never changes how
// content is encoded.
type ContentType string

const (
	ContentURL   ContentType = "url"
	ContentEmail ContentType = "email"
	ContentPhone ContentType = "phone"
	ContentText  ContentType = "text"
)

// ParseContentType parses a content type name. Empty input yields text.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case ContentURL:
		return ContentURL, nil
	case ContentEmail:
		return ContentEmail, nil
	case ContentPhone:
		return ContentPhone, nil
	case ContentText, "":
		return ContentText, nil
	}
	return "", fmt.Errorf("invalid content type %q (must be one of: url, email, phone, text)", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ContentType) UnmarshalText(b []byte) error {
	parsed, err := ParseContentType(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

var phoneSeparators = regexp.MustCompile(`[\s\-()]`)

// DetectContentType guesses the content type of a payload:
// http(s) links are urls, anything with "@" and "." is an email, a leading
// "+" or an all-digit string (ignoring spaces, dashes and parentheses) is a
// phone number, and everything else is text.
func DetectContentType(content string) ContentType {
	lower := strings.ToLower(content)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return ContentURL
	case strings.Contains(content, "@") && strings.Contains(content, "."):
		return ContentEmail
	case strings.HasPrefix(content, "+"), isDigits(phoneSeparators.ReplaceAllString(content, "")):
		return ContentPhone
	}
	return ContentText
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
