package bibleref

import "testing"

func TestParseCanonical(t *testing.T) {
	tests := []struct {
		input   string
		want    Citation
		wantErr bool
	}{
		{
			input: "1Kor 12,1-11",
			want:  Citation{Prefix: 1, Book: "Kor", Chapter: 12, Spans: []VerseSpan{{Start: 1, End: 11}}},
		},
		{
			input: "Mt 4,1-11",
			want:  Citation{Book: "Mt", Chapter: 4, Spans: []VerseSpan{{Start: 1, End: 11}}},
		},
		{
			input: "Gn 2,7-9.15",
			want:  Citation{Book: "Gn", Chapter: 2, Spans: []VerseSpan{{Start: 7, End: 9}, {Start: 15}}},
		},
		{
			input: "Gn 2,7-3,7",
			want:  Citation{Book: "Gn", Chapter: 2, Spans: []VerseSpan{{Start: 7, EndChapter: 3, End: 7}}},
		},
		{
			input: "Mk 1,1a-8b",
			want:  Citation{Book: "Mk", Chapter: 1, Spans: []VerseSpan{{Start: 1, StartPart: "a", End: 8, EndPart: "b"}}},
		},
		{
			input: "Ž 23",
			want:  Citation{Book: "Ž", Chapter: 23},
		},
		{input: "12,3", wantErr: true},
		{input: "Mt 4:1", wantErr: true},
		{input: "9Kor 1,1", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCanonical(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCanonical(%q) expected error, got %+v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCanonical(%q) failed: %v", tt.input, err)
			}
			if got.Prefix != tt.want.Prefix || got.Book != tt.want.Book || got.Chapter != tt.want.Chapter {
				t.Errorf("ParseCanonical(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			if len(got.Spans) != len(tt.want.Spans) {
				t.Fatalf("Spans = %+v, want %+v", got.Spans, tt.want.Spans)
			}
			for i := range got.Spans {
				if got.Spans[i] != tt.want.Spans[i] {
					t.Errorf("Spans[%d] = %+v, want %+v", i, got.Spans[i], tt.want.Spans[i])
				}
			}
			if s := got.String(); s != tt.input {
				t.Errorf("String() = %q, want %q", s, tt.input)
			}
		})
	}
}

func TestCitationFullBook(t *testing.T) {
	c, err := ParseCanonical("2Sol 3,6-12")
	if err != nil {
		t.Fatalf("ParseCanonical failed: %v", err)
	}
	if got := c.FullBook(); got != "2Sol" {
		t.Errorf("FullBook() = %q, want %q", got, "2Sol")
	}
	if got := BookOf("2Sol 3,6-12"); got != "2Sol" {
		t.Errorf("BookOf() = %q, want %q", got, "2Sol")
	}
}
