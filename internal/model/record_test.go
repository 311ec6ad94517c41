package model

import (
	"errors"
	"testing"
	"time"

	"github.com/arman/vod-catalog/internal/util"
)

func TestValidateRequiredFields(t *testing.T) {
	valid := ScrapedRecord{Platform: "Filimo", SourceID: " m-1 ", Title: " The Matrix "}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if valid.Platform != "filimo" {
		t.Errorf("platform = %q, want lowered filimo", valid.Platform)
	}
	if valid.SourceID != "m-1" || valid.Title != "The Matrix" {
		t.Errorf("fields not trimmed: %+v", valid)
	}
	if valid.ScrapedAt.IsZero() {
		t.Error("ScrapedAt not defaulted")
	}

	bad := []ScrapedRecord{
		{SourceID: "m-1", Title: "x"},
		{Platform: "filimo", Title: "x"},
		{Platform: "filimo", SourceID: "m-1"},
	}
	for i, rec := range bad {
		if err := rec.Validate(); !errors.Is(err, util.ErrInvalidRecord) {
			t.Errorf("record %d: err = %v, want ErrInvalidRecord", i, err)
		}
	}
}

func TestValidateImplausibleYearBecomesUnknown(t *testing.T) {
	for _, year := range []int{-5, 1500, time.Now().Year() + 10} {
		rec := ScrapedRecord{Platform: "filimo", SourceID: "m-1", Title: "x", Year: year}
		if err := rec.Validate(); err != nil {
			t.Fatalf("Validate(year=%d): %v", year, err)
		}
		if rec.Year != 0 {
			t.Errorf("year %d kept, want 0", year)
		}
	}

	rec := ScrapedRecord{Platform: "filimo", SourceID: "m-1", Title: "x", Year: 1999}
	rec.Validate()
	if rec.Year != 1999 {
		t.Errorf("plausible year rewritten to %d", rec.Year)
	}
}

func TestParseMediaType(t *testing.T) {
	cases := map[string]MediaType{
		"movie":  MediaTypeMovie,
		"series": MediaTypeSeries,
		"Show":   MediaTypeSeries,
		"tv":     MediaTypeSeries,
		"":       MediaTypeMovie,
		"junk":   MediaTypeMovie,
	}
	for in, want := range cases {
		if got := ParseMediaType(in); got != want {
			t.Errorf("ParseMediaType(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseCreditRole(t *testing.T) {
	if ParseCreditRole("Director") != RoleDirector {
		t.Error("director not parsed")
	}
	if ParseCreditRole("producer") != RoleProducer {
		t.Error("producer not parsed")
	}
	if ParseCreditRole("anything else") != RoleActor {
		t.Error("unknown role should default to actor")
	}
}
