package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/blackmichael/postily/internal/bibleref"
	"github.com/blackmichael/postily/internal/segment"
)

// File is the YAML tuning file. Every section is optional and extends the
// built-in tables rather than replacing them.
//
//	aliases:
//	  "Evang.": Ev
//	ocr_corrections:
//	  - pattern: '(?i)^0z\b'
//	    replacement: Oz
//	liturgical_keywords: [Památka]
//	segmenter:
//	  serial_name: Český zápas
//	  number_window: 3
//	import_batch_size: 50
type File struct {
	Aliases            map[string]string `yaml:"aliases"`
	OCRCorrections     []Correction      `yaml:"ocr_corrections"`
	LiturgicalKeywords []string          `yaml:"liturgical_keywords"`
	Segmenter          Segmenter         `yaml:"segmenter"`
	ImportBatchSize    int               `yaml:"import_batch_size"`
}

// Correction is an OCR fix applied before book lookup.
type Correction struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// Segmenter overrides segment.DefaultOptions field by field.
type Segmenter struct {
	SerialName        string   `yaml:"serial_name"`
	LookBehind        int      `yaml:"look_behind"`
	NumberWindow      *int     `yaml:"number_window"`
	EditorialPrefixes []string `yaml:"editorial_prefixes"`
	CitationMaxLines  int      `yaml:"citation_max_lines"`
	BodyHeaderLines   int      `yaml:"body_header_lines"`
}

// LoadFile reads and validates a tuning file. Unknown keys are rejected.
func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	f, err := ParseFile(raw)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return f, nil
}

// ParseFile decodes and validates a tuning file.
func ParseFile(raw []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if _, err := f.corrections(); err != nil {
		return nil, err
	}
	for _, kw := range f.LiturgicalKeywords {
		if err := bibleref.ValidateKeyword(kw); err != nil {
			return nil, fmt.Errorf("liturgical keyword %q: %w", kw, err)
		}
	}
	if f.ImportBatchSize < 0 {
		return nil, fmt.Errorf("import_batch_size must be positive, got %d", f.ImportBatchSize)
	}
	return &f, nil
}

func (f *File) corrections() ([]bibleref.Correction, error) {
	out := make([]bibleref.Correction, 0, len(f.OCRCorrections))
	for _, c := range f.OCRCorrections {
		fix, err := bibleref.CompileCorrection(c.Pattern, c.Replacement)
		if err != nil {
			return nil, fmt.Errorf("ocr correction %q: %w", c.Pattern, err)
		}
		out = append(out, fix)
	}
	return out, nil
}

// Extractor builds the reference extractor with the configured tables. A
// nil File yields bibleref.DefaultExtractor.
func (c *Config) Extractor() (*bibleref.Extractor, error) {
	if c.File == nil {
		return bibleref.DefaultExtractor, nil
	}
	fixes, err := c.File.corrections()
	if err != nil {
		return nil, err
	}
	n := bibleref.NewNormalizer(
		bibleref.WithAliases(c.File.Aliases),
		bibleref.WithCorrections(fixes...),
	)
	return bibleref.NewExtractor(n, bibleref.WithLiturgicalKeywords(c.File.LiturgicalKeywords...)), nil
}

// SegmentOptions returns segment.DefaultOptions with file overrides applied.
func (c *Config) SegmentOptions() segment.Options {
	opts := segment.DefaultOptions()
	if c.File == nil {
		return opts
	}
	s := c.File.Segmenter
	if s.SerialName != "" {
		opts.SerialName = s.SerialName
	}
	if s.LookBehind > 0 {
		opts.LookBehind = s.LookBehind
	}
	if s.NumberWindow != nil {
		opts.NumberWindow = *s.NumberWindow
	}
	if len(s.EditorialPrefixes) > 0 {
		opts.EditorialPrefixes = s.EditorialPrefixes
	}
	if s.CitationMaxLines > 0 {
		opts.CitationMaxLines = s.CitationMaxLines
	}
	if s.BodyHeaderLines > 0 {
		opts.BodyHeaderLines = s.BodyHeaderLines
	}
	return opts
}
