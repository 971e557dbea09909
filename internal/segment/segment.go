// Package segment splits an OCR transcript of the serial into postil records.
//
// Every record starts at a marker line such as
// "Český zápas, ročník 1921, číslo 12" and runs until the next marker. The
// segmenter walks an indexed line buffer with a cursor through named phases:
// marker scan, number recovery, editorial note, title, citation, body. A
// final pass interpolates sequence numbers that OCR lost.
package segment

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/blackmichael/postily/internal/bibleref"
	"github.com/blackmichael/postily/internal/domain"
)

// Options tunes the heuristics to a particular scan.
type Options struct {
	// SerialName is the title printed on every marker line.
	SerialName string

	// LookBehind is how many lines before a marker are searched for the
	// postil number.
	LookBehind int

	// NumberWindow accepts an undotted number only if it lies within this
	// distance of the expected sequence number. Page numbers are usually far
	// off-sequence and carry no dot.
	NumberWindow int

	// EditorialPrefixes identify the optional editorial note right after
	// the marker, e.g. "(Upraveno v Naší postyle, ...)".
	EditorialPrefixes []string

	// CitationMaxLines caps a citation block whose closing paren was lost.
	CitationMaxLines int

	// BodyHeaderLines is the number of leading body lines in which a
	// standalone number is kept as text.
	BodyHeaderLines int
}

// DefaultOptions returns the tuning for the 1921–1924 Český zápas run.
func DefaultOptions() Options {
	return Options{
		SerialName:        "Český zápas",
		LookBehind:        10,
		NumberWindow:      5,
		EditorialPrefixes: []string{"(Upraven"},
		CitationMaxLines:  3,
		BodyHeaderLines:   5,
	}
}

// Stats summarizes a segmentation run. None of these are errors.
type Stats struct {
	Total           int
	Unnumbered      int
	Unresolved      int
	WithoutCitation int
	Years           []int
}

var (
	standaloneNumber = regexp.MustCompile(`^(\d{1,3})(\.?)$`)
	pageNumber       = regexp.MustCompile(`^\d{1,3}$`)
	quoteReplacer    = strings.NewReplacer(",,", `"`, "„", `"`, "“", `"`, "”", `"`, "«", `"`, "»", `"`)
	quoteStarts      = []string{",", "„", "«", `"`, "“"}
)

// Segmenter turns transcript lines into postil records.
type Segmenter struct {
	opts      Options
	marker    *regexp.Regexp
	extractor *bibleref.Extractor
	logger    *slog.Logger
}

// New creates a Segmenter. Zero-valued options fall back to DefaultOptions,
// except NumberWindow where zero demands an exact sequence match and only a
// negative value selects the default. A nil extractor uses
// bibleref.DefaultExtractor.
func New(opts Options, extractor *bibleref.Extractor, logger *slog.Logger) *Segmenter {
	def := DefaultOptions()
	if opts.SerialName == "" {
		opts.SerialName = def.SerialName
	}
	if opts.LookBehind <= 0 {
		opts.LookBehind = def.LookBehind
	}
	if opts.NumberWindow < 0 {
		opts.NumberWindow = def.NumberWindow
	}
	if opts.EditorialPrefixes == nil {
		opts.EditorialPrefixes = def.EditorialPrefixes
	}
	if opts.CitationMaxLines <= 0 {
		opts.CitationMaxLines = def.CitationMaxLines
	}
	if opts.BodyHeaderLines <= 0 {
		opts.BodyHeaderLines = def.BodyHeaderLines
	}
	if extractor == nil {
		extractor = bibleref.DefaultExtractor
	}
	if logger == nil {
		logger = slog.Default()
	}

	words := strings.Fields(opts.SerialName)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	expr := `(?i)` + strings.Join(words, `\s*`) + `\s*,?\s*ročník\s*(\d{4})\s*,?\s*číslo\s*(\d{1,2})`

	return &Segmenter{
		opts:      opts,
		marker:    regexp.MustCompile(expr),
		extractor: extractor,
		logger:    logger,
	}
}

// marker is a located "<serial>, ročník <YYYY>, číslo <NN>" line.
type marker struct {
	line   int
	year   int
	issue  int
	number int // recovered postil number, 0 if none
	numAt  int // line holding the number, -1 if none
}

// Segment parses the transcript. It never fails: damaged input yields fewer
// or sparser records and is reflected only in Stats.
func (s *Segmenter) Segment(lines []string) ([]domain.Postil, Stats) {
	markers := s.scanMarkers(lines)
	if len(markers) == 0 {
		s.logger.Warn("no serial markers found in transcript", "lines", len(lines))
		return []domain.Postil{}, Stats{}
	}

	for i := range markers {
		floor := 0
		if i > 0 {
			floor = markers[i-1].line + 1
		}
		markers[i].number, markers[i].numAt = s.recoverNumber(lines, markers[i].line, floor, i+1)
	}

	postils := make([]domain.Postil, 0, len(markers))
	for i, m := range markers {
		end := len(lines)
		if i+1 < len(markers) {
			end = markers[i+1].line
			if markers[i+1].numAt >= 0 {
				end = markers[i+1].numAt
			}
		}
		postils = append(postils, s.buildRecord(lines, m, end))
	}

	stats := Stats{Total: len(postils)}
	years := make(map[int]struct{})
	for _, p := range postils {
		if p.PostilNumber == 0 {
			stats.Unnumbered++
		}
		if len(p.BiblicalReferences) == 0 {
			stats.WithoutCitation++
		}
		years[p.Year] = struct{}{}
	}
	for y := range years {
		stats.Years = append(stats.Years, y)
	}
	sort.Ints(stats.Years)

	interpolateNumbers(postils)
	for _, p := range postils {
		if p.PostilNumber <= 0 {
			stats.Unresolved++
		}
	}

	s.logger.Info("segmented transcript",
		"postily", stats.Total,
		"unnumbered", stats.Unnumbered,
		"unresolved", stats.Unresolved,
		"without_citation", stats.WithoutCitation,
		"years", stats.Years,
	)
	return postils, stats
}

func (s *Segmenter) scanMarkers(lines []string) []marker {
	var out []marker
	for i, line := range lines {
		m := s.marker.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		issue, _ := strconv.Atoi(m[2])
		out = append(out, marker{line: i, year: year, issue: issue, numAt: -1})
	}
	return out
}

// recoverNumber looks back from the marker for a standalone number. A number
// with a trailing dot is trusted; one without must sit near expected.
func (s *Segmenter) recoverNumber(lines []string, at, floor, expected int) (int, int) {
	stop := at - s.opts.LookBehind
	if stop < floor {
		stop = floor
	}
	for i := at - 1; i >= stop; i-- {
		m := standaloneNumber.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		if n == 0 {
			continue
		}
		if m[2] == "." || abs(n-expected) <= s.opts.NumberWindow {
			return n, i
		}
	}
	return 0, -1
}

func (s *Segmenter) buildRecord(lines []string, m marker, end int) domain.Postil {
	c := &cursor{lines: lines, pos: m.line + 1, end: end}

	s.skipEditorialNote(c)
	title := collectTitle(c)
	rawRefs := s.collectCitation(c)
	body := s.collectBody(c)
	excerpt, commentary := splitExcerpt(body)
	if commentary == "" {
		commentary = body
	}

	p := domain.Postil{
		PostilNumber:       m.number,
		Title:              title,
		BiblicalReferences: []string{},
		BiblicalRefsRaw:    rawRefs,
		Year:               m.year,
		IssueNumber:        m.issue,
		SourceRef:          fmt.Sprintf("%s, ročník %d, číslo %d", s.opts.SerialName, m.year, m.issue),
		BiblicalText:       excerpt,
		Content:            commentary,
		IsActive:           true,
	}
	if rawRefs != "" {
		paren := s.extractor.FromParenthetical(rawRefs)
		if len(paren.Refs) > 0 {
			p.BiblicalReferences = paren.Refs
		}
		p.LiturgicalContext = paren.Liturgical
	}
	return p
}

func (s *Segmenter) skipEditorialNote(c *cursor) {
	c.skipBlank()
	if c.done() {
		return
	}
	line := c.text()
	for _, prefix := range s.opts.EditorialPrefixes {
		if strings.HasPrefix(line, prefix) {
			c.pos++
			c.skipBlank()
			return
		}
	}
}

// collectTitle gathers consecutive non-blank lines up to the citation or the
// opening quote of the scripture excerpt.
func collectTitle(c *cursor) string {
	var parts []string
	for !c.done() {
		line := c.text()
		if line == "" {
			if len(parts) > 0 {
				break
			}
			c.pos++
			continue
		}
		if strings.HasPrefix(line, "(") {
			break
		}
		if len(parts) > 0 && isQuoteStart(line) {
			break
		}
		parts = append(parts, line)
		c.pos++
	}
	title := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	return quoteReplacer.Replace(title)
}

// collectCitation reads the parenthetical citation block and an immediately
// following second one (typically the epistle after the gospel).
func (s *Segmenter) collectCitation(c *cursor) string {
	c.skipBlank()
	if c.done() || !strings.HasPrefix(c.text(), "(") {
		return ""
	}
	raw := s.collectParen(c)

	c.skipBlank()
	if !c.done() {
		next := c.text()
		if strings.HasPrefix(next, "(Epištola") || (strings.HasPrefix(next, "(") && strings.ContainsAny(next, "0123456789")) {
			raw += " " + s.collectParen(c)
		}
	}
	return raw
}

func (s *Segmenter) collectParen(c *cursor) string {
	var parts []string
	for n := 0; !c.done() && n < s.opts.CitationMaxLines; n++ {
		line := c.text()
		parts = append(parts, line)
		c.pos++
		if strings.Contains(line, ")") {
			break
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// collectBody returns the rest of the span, dropping standalone page numbers
// past the first few lines.
func (s *Segmenter) collectBody(c *cursor) string {
	c.skipBlank()
	start := c.pos
	var out []string
	for ; !c.done(); c.pos++ {
		line := c.lines[c.pos]
		if c.pos > start+s.opts.BodyHeaderLines && pageNumber.MatchString(strings.TrimSpace(line)) {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// splitExcerpt separates a leading quoted scripture passage from the
// commentary. The passage ends at a blank line followed by a line starting
// with a capital letter.
func splitExcerpt(body string) (string, string) {
	if !isQuoteStart(body) {
		return "", body
	}
	lines := strings.Split(body, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			continue
		}
		j := i + 1
		for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
			j++
		}
		if j < len(lines) && startsUpper(strings.TrimSpace(lines[j])) {
			excerpt := strings.TrimSpace(strings.Join(lines[:i], "\n"))
			commentary := strings.TrimSpace(strings.Join(lines[j:], "\n"))
			return excerpt, commentary
		}
	}
	return "", body
}

// interpolateNumbers fills unresolved (zero) numbers from the nearest
// resolved neighbour: preceding number plus the gap, else following number
// minus the gap. A corpus with no resolved numbers is numbered by position.
func interpolateNumbers(postils []domain.Postil) {
	known := make([]bool, len(postils))
	anyKnown := false
	for i, p := range postils {
		known[i] = p.PostilNumber > 0
		anyKnown = anyKnown || known[i]
	}

	for i := range postils {
		if known[i] {
			continue
		}
		if !anyKnown {
			postils[i].PostilNumber = i + 1
			continue
		}

		prev := -1
		for j := i - 1; j >= 0; j-- {
			if known[j] {
				prev = j
				break
			}
		}
		if prev >= 0 {
			postils[i].PostilNumber = postils[prev].PostilNumber + (i - prev)
			continue
		}

		for j := i + 1; j < len(postils); j++ {
			if known[j] {
				if n := postils[j].PostilNumber - (j - i); n > 0 {
					postils[i].PostilNumber = n
				}
				break
			}
		}
	}
}

func isQuoteStart(s string) bool {
	for _, q := range quoteStarts {
		if strings.HasPrefix(s, q) {
			return true
		}
	}
	return false
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
