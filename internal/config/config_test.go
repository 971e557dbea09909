package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_DRIVER", "DATABASE_URL", "CACHE_TTL", "POSTILY_CONFIG", "IMPORT_BATCH_SIZE", "POSTILY_API_URL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 3000 || cfg.DatabaseDriver != DriverSQLite || cfg.DatabaseURL != "postily.db" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.CacheTTL != 6*time.Hour || cfg.APIURL != "http://localhost:3000" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.File != nil || cfg.ImportBatchSize != 0 {
		t.Errorf("unexpected file config: %+v", cfg)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CACHE_TTL", "15m")
	t.Setenv("IMPORT_BATCH_SIZE", "7")
	t.Setenv("POSTILY_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8080 || cfg.DatabaseDriver != DriverPostgres || cfg.CacheTTL != 15*time.Minute || cfg.ImportBatchSize != 7 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.DatabaseURL == "" || cfg.DatabaseURL == "postily.db" {
		t.Errorf("DatabaseURL = %q, want postgres default", cfg.DatabaseURL)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PORT", "abc"},
		{"DATABASE_DRIVER", "mysql"},
		{"CACHE_TTL", "soon"},
		{"IMPORT_BATCH_SIZE", "0"},
		{"POSTILY_CONFIG", "/nonexistent/postily.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			for _, k := range []string{"PORT", "DATABASE_DRIVER", "CACHE_TTL", "IMPORT_BATCH_SIZE", "POSTILY_CONFIG"} {
				t.Setenv(k, "")
			}
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load with %s=%q: expected error", tt.key, tt.value)
			}
		})
	}
}

const tuning = `
aliases:
  "Evang.": Ev
ocr_corrections:
  - pattern: '(?i)^0z\b'
    replacement: Oz
liturgical_keywords: [Památka]
segmenter:
  serial_name: Naše postila
  number_window: 0
import_batch_size: 50
`

func TestLoadWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postily.yaml")
	if err := os.WriteFile(path, []byte(tuning), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POSTILY_CONFIG", path)
	t.Setenv("IMPORT_BATCH_SIZE", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("PORT", "")
	t.Setenv("CACHE_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ImportBatchSize != 50 {
		t.Errorf("ImportBatchSize = %d, want 50", cfg.ImportBatchSize)
	}

	ex, err := cfg.Extractor()
	if err != nil {
		t.Fatalf("Extractor failed: %v", err)
	}
	got := ex.FromParenthetical("(Památka zesnulých: 0z 11, 1; Evang. 1, 2)")
	if got.Liturgical != "Památka zesnulých" {
		t.Errorf("Liturgical = %q", got.Liturgical)
	}
	if len(got.Refs) != 2 || got.Refs[0] != "Oz 11,1" || got.Refs[1] != "Ev 1,2" {
		t.Errorf("Refs = %q", got.Refs)
	}

	opts := cfg.SegmentOptions()
	if opts.SerialName != "Naše postila" || opts.NumberWindow != 0 || opts.LookBehind != 10 {
		t.Errorf("SegmentOptions = %+v", opts)
	}
}

func TestParseFileRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":    "colour: blue\n",
		"bad correction": "ocr_corrections:\n  - pattern: '('\n    replacement: x\n",
		"bad keyword":    "liturgical_keywords: ['Sv[áa']\n",
		"negative batch": "import_batch_size: -1\n",
		"not a map":      "- a\n- b\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseFile([]byte(raw)); err == nil {
				t.Errorf("ParseFile(%q): expected error", raw)
			}
		})
	}
}

func TestParseFileEmpty(t *testing.T) {
	f, err := ParseFile(nil)
	if err != nil {
		t.Fatalf("ParseFile(nil) failed: %v", err)
	}
	cfg := &Config{File: f}
	if cfg.SegmentOptions().SerialName != "Český zápas" {
		t.Errorf("empty file changed defaults")
	}
}
