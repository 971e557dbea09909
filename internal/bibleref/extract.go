package bibleref

import (
	"regexp"
	"strings"
)

// ReadingType classifies a lectionary heading. It is informational only;
// matching ignores it.
type ReadingType string

const (
	ReadingFirst   ReadingType = "first"
	ReadingSecond  ReadingType = "second"
	ReadingGospel  ReadingType = "gospel"
	ReadingUnknown ReadingType = "unknown"
)

// Reading is one level-2 heading of a lectionary page.
type Reading struct {
	Heading string
	Type    ReadingType
	Refs    []string
}

// Readings is everything extracted from a lectionary page.
type Readings struct {
	Readings []Reading

	// All is the ordered, de-duplicated union of every reading's refs.
	All []string
}

// Parenthetical is the content of a sermon's citation block.
type Parenthetical struct {
	Refs       []string
	Liturgical string
}

var (
	headingMarker  = regexp.MustCompile(`^#{1,4}\s*`)
	level2Heading  = regexp.MustCompile(`(?m)^##\s+(.+)$`)
	readingLabel   = `(?:(?:První|Druhé|Třetí)\s+čtení|Evangelium|Epištola)`
	labelToColon   = regexp.MustCompile(`(?i)^` + readingLabel + `[^:–—\-\d]*[:–—-]\s*`)
	labelOnly      = regexp.MustCompile(`(?i)^` + readingLabel + `\s*`)
	epistleLabel   = regexp.MustCompile(`(?i)Epištola\s*(?:ke?\s+)?`)
	gospelLabel    = regexp.MustCompile(`(?i)Evangelium\s*`)
	packedSplit    = regexp.MustCompile(`\)\s*\(?|;\s*`)
	parenRemover   = strings.NewReplacer("(", "", ")", "")
	liturgicalDash = regexp.MustCompile(`(?i)^(Ned(?:ěle|\.)?\s*(?:\d+|[IVX]+)\.?\s*(?:po\s+)?(?:sv\.\s*D\.?|Třech\s+králích|adventní|postní|velikon\p{L}*|Zjev\p{L}*\.?)[^,:—–\-\d]*?)\s*[,—–-]\s*`)
)

// Extractor pulls canonical references out of headings and parentheticals.
type Extractor struct {
	normalizer      *Normalizer
	liturgicalColon *regexp.Regexp
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*extractorConfig)

type extractorConfig struct {
	keywords []string
}

// WithLiturgicalKeywords adds keywords (regular expression fragments) that
// open a liturgical-calendar prefix such as "Neděle" or "Svátek".
func WithLiturgicalKeywords(kw ...string) ExtractorOption {
	return func(c *extractorConfig) {
		c.keywords = append(c.keywords, kw...)
	}
}

// NewExtractor builds an Extractor that normalizes through n. A nil n uses
// Default. It panics if a configured keyword is not a valid expression
// fragment; validate user keywords with ValidateKeyword first.
func NewExtractor(n *Normalizer, opts ...ExtractorOption) *Extractor {
	if n == nil {
		n = Default
	}
	cfg := &extractorConfig{keywords: append([]string(nil), defaultLiturgicalKeywords...)}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Extractor{
		normalizer:      n,
		liturgicalColon: regexp.MustCompile(liturgicalColonExpr(cfg.keywords)),
	}
}

// ValidateKeyword reports whether kw can be used as a liturgical keyword.
func ValidateKeyword(kw string) error {
	_, err := regexp.Compile(liturgicalColonExpr([]string{kw}))
	return err
}

func liturgicalColonExpr(keywords []string) string {
	return `(?i)^((?:` + strings.Join(keywords, "|") + `)[^:)]*?):\s*`
}

// DefaultExtractor uses the Default normalizer and built-in keywords.
var DefaultExtractor = NewExtractor(Default)

// FromHeading extracts references from a lectionary heading:
//
//	"## Evangelium – Mt 4,1-11"                  → ["Mt 4,1-11"]
//	"## První čtení z Písma: Gn 2,7-9; 3,1-7"    → ["Gn 2,7-9", "Gn 3,1-7"]
func (e *Extractor) FromHeading(heading string) []string {
	text := headingMarker.ReplaceAllString(strings.TrimSpace(heading), "")
	if loc := labelToColon.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
	} else {
		text = labelOnly.ReplaceAllString(text, "")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return e.normalizeParts(strings.Split(text, ";"))
}

// FromParenthetical extracts references and the liturgical label from a
// sermon's citation block:
//
//	"(Ned. I. postní: Mat. 4, 1—11.)" → refs ["Mt 4,1-11"], liturgical "Ned. I. postní"
func (e *Extractor) FromParenthetical(raw string) Parenthetical {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "(")
	text = strings.TrimSpace(strings.TrimSuffix(text, ")"))

	var out Parenthetical
	if m := e.liturgicalColon.FindStringSubmatchIndex(text); m != nil {
		out.Liturgical = strings.TrimSpace(text[m[2]:m[3]])
		text = text[m[1]:]
	} else if m := liturgicalDash.FindStringSubmatchIndex(text); m != nil {
		out.Liturgical = strings.TrimSpace(text[m[2]:m[3]])
		text = text[m[1]:]
	}

	text = strings.TrimSpace(epistleLabel.ReplaceAllString(text, ""))
	text = strings.TrimSpace(gospelLabel.ReplaceAllString(text, ""))

	var parts []string
	for _, part := range packedSplit.Split(text, -1) {
		part = strings.TrimSpace(parenRemover.Replace(part))
		if part == "" || !hasDigit(part) {
			continue
		}
		parts = append(parts, part)
	}
	out.Refs = e.normalizeParts(parts)
	return out
}

// FromMarkdown extracts references from every level-2 heading of a
// lectionary page.
func (e *Extractor) FromMarkdown(markdown string) Readings {
	var out Readings
	seen := make(map[string]struct{})

	for _, m := range level2Heading.FindAllStringSubmatch(markdown, -1) {
		heading := strings.TrimSpace(m[1])
		refs := e.FromHeading("## " + heading)
		out.Readings = append(out.Readings, Reading{
			Heading: heading,
			Type:    classify(heading),
			Refs:    refs,
		})
		for _, r := range refs {
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			out.All = append(out.All, r)
		}
	}
	return out
}

// normalizeParts normalizes split citation parts. A part with no letters
// ("3,1-7") continues the book of the part before it.
func (e *Extractor) normalizeParts(parts []string) []string {
	var (
		refs     []string
		prevBook string
	)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if prevBook != "" && !hasLetter(part) {
			part = prevBook + " " + part
		}
		res := e.normalizer.Normalize(part)
		if !hasDigit(res.Value) {
			continue
		}
		refs = append(refs, res.Value)
		if hasLetter(res.Value) {
			prevBook = BookOf(res.Value)
		}
	}
	return refs
}

func classify(heading string) ReadingType {
	h := strings.ToLower(heading)
	switch {
	case strings.Contains(h, "první"):
		return ReadingFirst
	case strings.Contains(h, "druhé"):
		return ReadingSecond
	case strings.Contains(h, "evangelium"):
		return ReadingGospel
	default:
		return ReadingUnknown
	}
}
