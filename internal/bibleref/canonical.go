package bibleref

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Citation is the structured form of a canonical reference.
type Citation struct {
	// Prefix is the book number ("1" in "1Kor"), 0 when absent.
	Prefix int

	// Book is the canonical book token without its prefix.
	Book string

	// Chapter is 0 for book-only references.
	Chapter int

	// Spans are the verse spans after the comma, in source order.
	Spans []VerseSpan
}

// VerseSpan is one verse or verse range of a citation. A range that crosses
// into another chapter ("Gn 2,7-3,7") sets EndChapter.
type VerseSpan struct {
	Start      int
	StartPart  string
	EndChapter int
	End        int
	EndPart    string
}

//nolint:govet // participle grammar tags are not standard struct tags
type canonicalGrammar struct {
	Prefix  *int            `@Int?`
	Book    string          `@Word`
	Chapter *chapterGrammar `@@?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type chapterGrammar struct {
	Number int            `@Int`
	Spans  []*spanGrammar `( "," @@ ( "." @@ )* )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type spanGrammar struct {
	Start int           `@Int`
	Part  *string       `@Word?`
	Range *rangeGrammar `( "-" @@ )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type rangeGrammar struct {
	First int     `@Int`
	Verse *int    `( "," @Int )?`
	Part  *string `@Word?`
}

var canonicalLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Word", Pattern: `\p{L}+`},
	{Name: "Punct", Pattern: `[,.\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var canonicalParser = participle.MustBuild[canonicalGrammar](
	participle.Lexer(canonicalLexer),
	participle.Elide("Whitespace"),
)

// ParseCanonical parses a canonical reference such as "1Kor 12,1-11",
// "Gn 2,7-9.15" or "Ž 23". It rejects anything that is not already in
// canonical shape; use Normalize first for raw citations.
func ParseCanonical(s string) (*Citation, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty reference")
	}

	parsed, err := canonicalParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("invalid canonical reference %q: %w", s, err)
	}

	c := &Citation{Book: parsed.Book}
	if parsed.Prefix != nil {
		if *parsed.Prefix < 1 || *parsed.Prefix > 5 {
			return nil, fmt.Errorf("invalid canonical reference %q: book number %d out of range", s, *parsed.Prefix)
		}
		c.Prefix = *parsed.Prefix
	}

	if parsed.Chapter != nil {
		c.Chapter = parsed.Chapter.Number
		for _, sp := range parsed.Chapter.Spans {
			span := VerseSpan{Start: sp.Start, StartPart: deref(sp.Part)}
			if r := sp.Range; r != nil {
				if r.Verse != nil {
					span.EndChapter = r.First
					span.End = *r.Verse
				} else {
					span.End = r.First
				}
				span.EndPart = deref(r.Part)
			}
			c.Spans = append(c.Spans, span)
		}
	}

	return c, nil
}

// String renders the citation in canonical form.
func (c *Citation) String() string {
	var sb strings.Builder
	if c.Prefix > 0 {
		sb.WriteString(strconv.Itoa(c.Prefix))
	}
	sb.WriteString(c.Book)
	if c.Chapter == 0 {
		return sb.String()
	}

	sb.WriteString(" ")
	sb.WriteString(strconv.Itoa(c.Chapter))
	for i, sp := range c.Spans {
		if i == 0 {
			sb.WriteString(",")
		} else {
			sb.WriteString(".")
		}
		sb.WriteString(strconv.Itoa(sp.Start))
		sb.WriteString(sp.StartPart)
		if sp.End > 0 {
			sb.WriteString("-")
			if sp.EndChapter > 0 {
				sb.WriteString(strconv.Itoa(sp.EndChapter))
				sb.WriteString(",")
			}
			sb.WriteString(strconv.Itoa(sp.End))
			sb.WriteString(sp.EndPart)
		}
	}
	return sb.String()
}

// FullBook returns the book token including its numbering prefix.
func (c *Citation) FullBook() string {
	if c.Prefix > 0 {
		return strconv.Itoa(c.Prefix) + c.Book
	}
	return c.Book
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
