package transcript

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
)

func TestReadLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"plain", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"bom", "\ufeffČeský zápas\n", []string{"Český zápas"}},
		{"decomposed", "C\u030ceský\n", []string{"Český"}},
		{"keeps blank lines", "a\n\nb", []string{"a", "", "b"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadLines(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ReadLines failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReadLines(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOpenXZ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zapas.txt.xz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w, err := xz.NewWriter(f)
	if err != nil {
		t.Fatalf("xz.NewWriter failed: %v", err)
	}
	if _, err := w.Write([]byte("1.\nČeský zápas, ročník 1921, číslo 5\n")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	want := []string{"1.", "Český zápas, ročník 1921, číslo 5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Open = %q, want %q", got, want)
	}
}

func TestOpenPlainAndMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zapas.txt")
	if err := os.WriteFile(path, []byte("x\ny"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Open(path)
	if err != nil || len(got) != 2 {
		t.Errorf("Open = %q, %v", got, err)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
