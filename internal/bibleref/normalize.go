// Package bibleref canonicalizes Czech biblical citations and extracts them
// from lectionary headings and sermon parentheticals.
//
// A canonical reference has the form "[<digit>]<Book> <chapter>,<verses>",
// e.g. "1Kor 12,1-11" or "Mt 4,1-11". Canonical references are compared by
// exact string equality.
package bibleref

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxPasses bounds the fixed-point iteration in Normalize.
const maxPasses = 4

var (
	romanPrefix = regexp.MustCompile(`(?s)^(III|II|IV|I|V)(?:\.\s*|\s+)(\p{L}.*)$`)
	digitPrefix = regexp.MustCompile(`(?s)^([1-5])\.?\s*(\p{L}.*)$`)
	bookSplit   = regexp.MustCompile(`(?s)^(\p{L}+\.?)\s*(.*)$`)
	dashRun     = regexp.MustCompile(`[-‐‒–—―−]+`)
)

var romanValues = map[string]string{
	"I": "1", "II": "2", "III": "3", "IV": "4", "V": "5",
}

// Result is the outcome of normalizing one citation fragment.
type Result struct {
	// Value is the canonical reference, or the trimmed input when the
	// fragment has no recognizable book token.
	Value string

	// Parsed reports whether Value is a well-formed canonical reference.
	// Unparsed values are kept for auditing but never match anything.
	Parsed bool
}

// Normalizer holds the immutable alias and correction tables. It is safe for
// concurrent use.
type Normalizer struct {
	aliases     map[string]string
	corrections []Correction
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithAliases layers extra book aliases over the built-in table. Keys are
// lower-cased and stripped of a trailing dot.
func WithAliases(extra map[string]string) Option {
	return func(n *Normalizer) {
		for k, v := range extra {
			n.aliases[strings.TrimSuffix(strings.ToLower(k), ".")] = v
		}
	}
}

// WithCorrections appends OCR corrections after the built-in ones.
func WithCorrections(c ...Correction) Option {
	return func(n *Normalizer) {
		n.corrections = append(n.corrections, c...)
	}
}

// NewNormalizer builds a Normalizer from the built-in tables and opts.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		aliases:     DefaultAliases(),
		corrections: append([]Correction(nil), defaultCorrections...),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Default is the process-wide normalizer built from the built-in tables.
var Default = NewNormalizer()

// Normalize canonicalizes raw with the Default normalizer.
func Normalize(raw string) Result {
	return Default.Normalize(raw)
}

// Canonical returns only the normalized value of raw.
func Canonical(raw string) string {
	return Default.Normalize(raw).Value
}

// Normalize canonicalizes a single citation fragment such as
// "I. Kor. 12, 1—11" into "1Kor 12,1-11". It never fails: input without a
// book token comes back trimmed and unparsed.
//
// The pipeline is repeated until its output is stable, so normalizing a
// canonical value is always a no-op.
func (n *Normalizer) Normalize(raw string) Result {
	cur := strings.TrimSpace(norm.NFC.String(raw))
	res := n.pass(cur)
	for i := 1; i < maxPasses && res.Value != cur; i++ {
		cur = res.Value
		res = n.pass(cur)
	}
	return res
}

// Book returns the canonical book for a token, if the token is a known alias.
func (n *Normalizer) Book(token string) (string, bool) {
	b, ok := n.aliases[strings.TrimSuffix(strings.ToLower(token), ".")]
	return b, ok
}

func (n *Normalizer) pass(s string) Result {
	ref := strings.TrimSpace(strings.TrimSuffix(s, "."))

	for _, c := range n.corrections {
		if c.Pattern.MatchString(ref) {
			ref = c.Pattern.ReplaceAllString(ref, c.Replacement)
		}
	}

	prefix, rest := splitPrefix(ref)

	m := bookSplit.FindStringSubmatch(rest)
	if m == nil {
		return Result{Value: s}
	}

	token := strings.TrimSuffix(m[1], ".")
	book, ok := n.aliases[strings.ToLower(token)]
	if !ok {
		book = token
	}

	value := prefix + book
	if cv := cleanChapterVerse(m[2]); cv != "" {
		value += " " + cv
	}

	_, err := ParseCanonical(value)
	return Result{Value: value, Parsed: err == nil}
}

// splitPrefix separates a book numbering prefix ("I.", "II", "1", "2.") and
// returns it as an Arabic digit.
func splitPrefix(ref string) (string, string) {
	if m := romanPrefix.FindStringSubmatch(ref); m != nil {
		return romanValues[m[1]], m[2]
	}
	if m := digitPrefix.FindStringSubmatch(ref); m != nil {
		return m[1], m[2]
	}
	return "", ref
}

// cleanChapterVerse turns "22, 37—46." into "22,37-46".
func cleanChapterVerse(cv string) string {
	cv = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cv)
	cv = dashRun.ReplaceAllString(cv, "-")
	return strings.TrimRight(cv, ".")
}

// BookOf returns the book part of a canonical reference ("1Kor 12,1" → "1Kor").
func BookOf(ref string) string {
	if i := strings.IndexByte(ref, ' '); i >= 0 {
		return ref[:i]
	}
	return ref
}

// hasDigit reports whether s contains an ASCII digit.
func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

// hasLetter reports whether s contains any letter.
func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
