// Package normalize provides field normalization for reconciliation matching.
// All functions are pure; "absent" is expressed as the zero value and never
// replaced with a guessed default here.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Normalizer is a function that normalizes a string value.
type Normalizer func(string) string

// registry holds all registered normalizers by name.
var registry = make(map[string]Normalizer)

func init() {
	Register("text", Text)
	Register("invoice_ref", InvoiceRef)
	Register("lowercase", strings.ToLower)
	Register("trim", strings.TrimSpace)
	Register("alphanumeric", Alphanumeric)
	Register("collapse_whitespace", CollapseWhitespace)
}

// Register adds a normalizer to the registry.
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Apply applies a named normalizer to a value. Unknown names are a no-op.
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// Chain applies multiple normalizers in sequence.
func Chain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Text canonicalizes free text for matching: trim, collapse internal
// whitespace runs to a single space, lowercase. Placeholder tokens that
// spreadsheet exports produce for empty cells ("nan", "none", "nat")
// normalize to the empty string and are treated as absent.
func Text(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "nan", "none", "nat", "null":
		return ""
	}
	return CollapseWhitespace(s)
}

// CollapseWhitespace replaces every whitespace run with a single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Alphanumeric keeps only letters and digits.
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// InvoiceRef normalizes an invoice reference into its match key: Text
// normalization followed by stripping everything that is not a lowercase
// letter or digit. "DDT-45/A" and "ddt 45 a" produce the same key.
func InvoiceRef(s string) string {
	return Alphanumeric(Text(s))
}

// Amount parses a monetary value from heterogeneous source cells. Numeric
// inputs pass through (NaN yields 0). Text inputs are stripped of currency
// symbols and spaces, then the decimal separator is disambiguated: when both
// ',' and '.' appear the rightmost one is decimal; a lone ',' is decimal.
// Unparsable input yields 0, which callers must treat as "absent".
func Amount(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		if math.IsNaN(n) {
			return 0
		}
		return n
	case float32:
		return Amount(float64(n))
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}

	text := strings.TrimSpace(toString(v))
	replacer := strings.NewReplacer("€", "", "$", "", " ", "", " ", "")
	text = replacer.Replace(text)
	if text == "" {
		return 0
	}

	comma := strings.LastIndex(text, ",")
	dot := strings.LastIndex(text, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			text = strings.ReplaceAll(text, ".", "")
			text = strings.ReplaceAll(text, ",", ".")
		} else {
			text = strings.ReplaceAll(text, ",", "")
		}
	case comma >= 0:
		text = strings.ReplaceAll(text, ".", "")
		text = strings.ReplaceAll(text, ",", ".")
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return f
}

// dateLayouts are tried in order; day-first layouts come before the ISO form
// because the sources are predominantly day-first.
var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"02.01.2006",
	"2/1/2006",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Date parses a date from heterogeneous source cells. Native time values pass
// through truncated to the day. Unparsable input yields nil, never a guessed
// default; any fallback (today, +30 days) is an explicit caller decision.
func Date(v any) *time.Time {
	switch d := v.(type) {
	case nil:
		return nil
	case time.Time:
		if d.IsZero() {
			return nil
		}
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		return &day
	case *time.Time:
		if d == nil {
			return nil
		}
		return Date(*d)
	}

	text := strings.TrimSpace(toString(v))
	if Text(text) == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			return &day
		}
	}
	return nil
}

// Settled parses the settlement marker column. Empty and zero-like cells are
// Unknown/False; explicit affirmative tokens and nonzero numbers are True.
// Any other non-empty text is also True: under this schema a filled cell,
// whatever it contains, signals "settled". That is a documented legacy
// ambiguity and must not be silently tightened.
func Settled(v any) models.Tristate {
	if v == nil {
		return models.Unknown
	}
	if f, ok := v.(float64); ok {
		if math.IsNaN(f) {
			return models.Unknown
		}
		if f == 0 {
			return models.False
		}
		return models.True
	}

	s := strings.ToLower(strings.TrimSpace(toString(v)))
	switch s {
	case "", "nan", "none", "nat":
		return models.Unknown
	case "0", "0.0", "0,0":
		return models.False
	case "x", "✓", "si", "sì", "yes", "true", "y", "1":
		return models.True
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
		if f == 0 {
			return models.False
		}
		return models.True
	}
	return models.True
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case *string:
		if s == nil {
			return ""
		}
		return *s
	default:
		return ""
	}
}
