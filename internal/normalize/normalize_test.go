package normalize

import (
	"errors"
	"testing"

	"github.com/arman/vod-catalog/internal/model"
	"github.com/arman/vod-catalog/internal/util"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "The Matrix", "matrix"},
		{"leading article the", "The Godfather", "godfather"},
		{"leading article a", "A Separation", "separation"},
		{"article only at start", "Back To The Future", "back to the future"},
		{"diacritics", "Amélie", "amelie"},
		{"bracketed quality tag", "Inception [1080p BluRay]", "inception"},
		{"paren language tag", "Metri Shish O Nim (Dubbed)", "metri shish o nim"},
		{"trailing noise token", "Shaghayegh Dubbed", "shaghayegh"},
		{"multiple tags", "The Salesman (Persian Sub) [720p]", "salesman"},
		{"punctuation", "What's Up, Doc?", "whats up doc"},
		{"ampersand", "Law & Order", "law and order"},
		{"whitespace collapse", "  Khane    Pedari  ", "khane pedari"},
		{"unicode persian unaffected", "متری شیش و نیم", "متری شیش و نیم"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTitle(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitleDeterministic(t *testing.T) {
	input := "The Grand Budapest Hôtel (Extended) [4K]"
	first := NormalizeTitle(input)
	for i := 0; i < 10; i++ {
		if got := NormalizeTitle(input); got != first {
			t.Fatalf("normalization not deterministic: %q vs %q", got, first)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	rec := model.ScrapedRecord{
		Platform:   "filimo",
		SourceID:   "f-123",
		Title:      "The Matrix (Dubbed)",
		ExternalID: "tt0133093",
		Year:       1999,
		MediaType:  "movie",
	}

	key, err := Normalize(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if key.NormalizedTitle != "matrix" {
		t.Errorf("expected normalized title 'matrix', got %q", key.NormalizedTitle)
	}
	if key.Year != 1999 {
		t.Errorf("expected year 1999, got %d", key.Year)
	}
	if key.MediaType != model.MediaTypeMovie {
		t.Errorf("expected media type movie, got %s", key.MediaType)
	}
	if key.ExternalKey() != "ext:tt0133093" {
		t.Errorf("unexpected external key: %q", key.ExternalKey())
	}
	if key.CompositeKey() != "title:matrix|1999|movie" {
		t.Errorf("unexpected composite key: %q", key.CompositeKey())
	}
}

func TestNormalizeRejectsUnusableTitle(t *testing.T) {
	rec := model.ScrapedRecord{
		Platform: "namava",
		SourceID: "n-9",
		Title:    "[1080p] (Dubbed)",
	}

	_, err := Normalize(rec)
	if err == nil {
		t.Fatal("expected error for title that normalizes to empty")
	}
	if !errors.Is(err, util.ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestNormalizeDefaultsMediaType(t *testing.T) {
	rec := model.ScrapedRecord{Platform: "filimo", SourceID: "x", Title: "Some Film"}

	key, err := Normalize(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.MediaType != model.MediaTypeMovie {
		t.Errorf("expected default media type movie, got %s", key.MediaType)
	}
	if key.Year != 0 {
		t.Errorf("expected unknown year to stay 0, got %d", key.Year)
	}
	if key.ExternalKey() != "" {
		t.Errorf("expected empty external key, got %q", key.ExternalKey())
	}
}
