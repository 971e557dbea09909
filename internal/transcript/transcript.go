// Package transcript reads OCR transcripts into normalized lines.
package transcript

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
	"golang.org/x/text/unicode/norm"
)

const maxLineSize = 1 << 20

// ReadLines splits r into lines. A UTF-8 byte order mark and carriage returns
// are dropped and every line is NFC-normalized so that decomposed diacritics
// match the marker and reference patterns.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(norm.NFC.Reader(r))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if len(lines) == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return lines, nil
}

// Open reads the transcript at path. Files ending in ".xz" are decompressed.
func Open(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		xr, err := xz.NewReader(bufio.NewReader(f))
		if err != nil {
			return nil, fmt.Errorf("open xz stream %s: %w", path, err)
		}
		r = xr
	}

	lines, err := ReadLines(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lines, nil
}
