package match

import (
	"errors"
	"testing"

	"github.com/arman/vod-catalog/internal/model"
	"github.com/arman/vod-catalog/internal/normalize"
	"github.com/arman/vod-catalog/internal/store"
	"github.com/arman/vod-catalog/internal/util"
)

// fixedScorer returns preset scores keyed by candidate title
type fixedScorer struct {
	scores map[string]float64
}

func (f *fixedScorer) Score(_, b string) float64 {
	return f.scores[b]
}

func newTestMatcher(t *testing.T, scorer Scorer) *Matcher {
	t.Helper()
	m, err := New(DefaultConfig(), scorer)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func movieKey(title string, year int, extID string) normalize.Key {
	return normalize.Key{
		NormalizedTitle: title,
		Year:            year,
		MediaType:       model.MediaTypeMovie,
		ExternalID:      extID,
	}
}

func entity(id int64, title string, year int, extID string) *store.Entity {
	return &store.Entity{
		ID:              id,
		NormalizedTitle: title,
		Year:            year,
		MediaType:       model.MediaTypeMovie,
		ExternalID:      extID,
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []Config{
		{Threshold: 0, TieMargin: 0.05, YearTolerance: 1},
		{Threshold: 1.5, TieMargin: 0.05, YearTolerance: 1},
		{Threshold: 0.85, TieMargin: -0.1, YearTolerance: 1},
		{Threshold: 0.85, TieMargin: 0.05, YearTolerance: -1},
	}
	for _, cfg := range bad {
		if err := cfg.Validate(); !errors.Is(err, util.ErrInvalidConfig) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidConfig", cfg, err)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestMatchExternalIDWinsOverEverything(t *testing.T) {
	m := newTestMatcher(t, nil)
	candidates := []*store.Entity{
		entity(1, "matrix", 1999, ""),
		entity(2, "completely different title", 1980, "tt0133093"),
	}

	d, err := m.Match(movieKey("matrix", 1999, "tt0133093"), candidates)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if d.Outcome != OutcomeMatched || d.EntityID != 2 {
		t.Fatalf("got %+v, want matched entity 2", d)
	}
	if d.Confidence != ConfidenceCertain {
		t.Errorf("confidence = %s, want certain", d.Confidence)
	}
}

func TestMatchExactCompositeKey(t *testing.T) {
	m := newTestMatcher(t, nil)
	candidates := []*store.Entity{
		entity(1, "matrix", 1999, ""),
		entity(2, "matrix", 2021, ""),
	}

	d, err := m.Match(movieKey("matrix", 1999, ""), candidates)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if d.Outcome != OutcomeMatched || d.EntityID != 1 {
		t.Fatalf("got %+v, want matched entity 1", d)
	}
	if d.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %s, want high", d.Confidence)
	}
	if d.NeedsUpgrade {
		t.Error("NeedsUpgrade set without an external id on the record")
	}
}

func TestMatchExactCompositeKeyFlagsUpgrade(t *testing.T) {
	m := newTestMatcher(t, nil)
	candidates := []*store.Entity{entity(1, "matrix", 1999, "")}

	d, err := m.Match(movieKey("matrix", 1999, "tt0133093"), candidates)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !d.NeedsUpgrade {
		t.Error("expected NeedsUpgrade when record has external id and entity has none")
	}

	// entity already carries a different external id; no upgrade
	candidates = []*store.Entity{entity(1, "matrix", 1999, "tt9999999")}
	d, err = m.Match(movieKey("matrix", 1999, "tt0133093"), candidates)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if d.NeedsUpgrade {
		t.Error("NeedsUpgrade set although entity already has an external id")
	}
}

func TestMatchFuzzyThresholdBoundary(t *testing.T) {
	key := movieKey("dark knight", 2008, "")

	// exactly at threshold counts
	m := newTestMatcher(t, &fixedScorer{scores: map[string]float64{"dark night": 0.85}})
	d, err := m.Match(key, []*store.Entity{entity(1, "dark night", 2008, "")})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if d.Outcome != OutcomeMatched || d.Confidence != ConfidenceFuzzy {
		t.Fatalf("score at threshold: got %+v, want fuzzy match", d)
	}
	if d.Score != 0.85 {
		t.Errorf("Score = %.3f, want 0.85", d.Score)
	}

	// just below threshold does not
	m = newTestMatcher(t, &fixedScorer{scores: map[string]float64{"dark night": 0.849}})
	d, err = m.Match(key, []*store.Entity{entity(1, "dark night", 2008, "")})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if d.Outcome != OutcomeCreateNew {
		t.Fatalf("score below threshold: got %+v, want create-new", d)
	}
}

func TestMatchFuzzyTieIsAmbiguous(t *testing.T) {
	m := newTestMatcher(t, &fixedScorer{scores: map[string]float64{
		"plan a": 0.90,
		"plan b": 0.88,
	}})
	key := movieKey("plan", 2020, "")
	candidates := []*store.Entity{
		entity(1, "plan a", 2020, ""),
		entity(2, "plan b", 2020, ""),
	}

	_, err := m.Match(key, candidates)
	if !errors.Is(err, util.ErrAmbiguous) {
		t.Fatalf("Match = %v, want ErrAmbiguous", err)
	}
}

func TestMatchFuzzyClearWinnerBeatsRunnerUp(t *testing.T) {
	m := newTestMatcher(t, &fixedScorer{scores: map[string]float64{
		"plan a": 0.95,
		"plan b": 0.86,
	}})
	key := movieKey("plan", 2020, "")
	candidates := []*store.Entity{
		entity(1, "plan a", 2020, ""),
		entity(2, "plan b", 2020, ""),
	}

	d, err := m.Match(key, candidates)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if d.EntityID != 1 || d.Confidence != ConfidenceFuzzy {
		t.Fatalf("got %+v, want fuzzy match on entity 1", d)
	}
}

func TestMatchFuzzyRunnerUpBelowThresholdIsNotATie(t *testing.T) {
	m := newTestMatcher(t, &fixedScorer{scores: map[string]float64{
		"plan a": 0.86,
		"plan b": 0.84,
	}})
	key := movieKey("plan", 2020, "")
	candidates := []*store.Entity{
		entity(1, "plan a", 2020, ""),
		entity(2, "plan b", 2020, ""),
	}

	d, err := m.Match(key, candidates)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if d.Outcome != OutcomeMatched || d.EntityID != 1 {
		t.Fatalf("got %+v, want matched entity 1", d)
	}
}

func TestMatchYearToleranceDisqualifies(t *testing.T) {
	scorer := &fixedScorer{scores: map[string]float64{"matrix reloaded": 1.0}}
	m := newTestMatcher(t, scorer)

	// one year off is within tolerance
	d, err := m.Match(movieKey("matrix reloded", 2003, ""),
		[]*store.Entity{entity(1, "matrix reloaded", 2004, "")})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if d.Outcome != OutcomeMatched {
		t.Fatalf("year within tolerance: got %+v, want matched", d)
	}

	// three years off is not, even with a perfect score
	d, err = m.Match(movieKey("matrix reloded", 2003, ""),
		[]*store.Entity{entity(1, "matrix reloaded", 2006, "")})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if d.Outcome != OutcomeCreateNew {
		t.Fatalf("year beyond tolerance: got %+v, want create-new", d)
	}
}

func TestMatchUnknownYearIsCompatible(t *testing.T) {
	scorer := &fixedScorer{scores: map[string]float64{"matrix": 1.0}}
	m := newTestMatcher(t, scorer)

	d, err := m.Match(movieKey("matrix", 0, ""),
		[]*store.Entity{entity(1, "matrix", 1999, "")})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if d.Outcome != OutcomeMatched {
		t.Fatalf("unknown record year: got %+v, want matched", d)
	}

	d, err = m.Match(movieKey("matrix", 1999, ""),
		[]*store.Entity{entity(1, "matrix", 0, "")})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if d.Outcome != OutcomeMatched {
		t.Fatalf("unknown entity year: got %+v, want matched", d)
	}
}

func TestMatchMediaTypeNeverCrosses(t *testing.T) {
	scorer := &fixedScorer{scores: map[string]float64{"matrix": 1.0}}
	m := newTestMatcher(t, scorer)

	series := entity(1, "matrix", 1999, "")
	series.MediaType = model.MediaTypeSeries

	d, err := m.Match(movieKey("matrix", 1999, ""), []*store.Entity{series})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if d.Outcome != OutcomeCreateNew {
		t.Fatalf("movie vs series: got %+v, want create-new", d)
	}
}

func TestMatchEmptyCandidatesCreatesNew(t *testing.T) {
	m := newTestMatcher(t, nil)
	d, err := m.Match(movieKey("brand new film", 2024, ""), nil)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if d.Outcome != OutcomeCreateNew || d.Confidence != ConfidenceNone {
		t.Fatalf("got %+v, want create-new/none", d)
	}
}

func TestTitleScorerRealTitles(t *testing.T) {
	s := NewTitleScorer()

	if got := s.Score("matrix", "matrix"); got != 1.0 {
		t.Errorf("identical titles score %.3f, want 1.0", got)
	}
	if got := s.Score("shawshank redemption", "shawshank redemtion"); got < 0.85 {
		t.Errorf("near-identical titles score %.3f, want >= 0.85", got)
	}
	if got := s.Score("matrix", "finding nemo"); got >= 0.85 {
		t.Errorf("unrelated titles score %.3f, want < 0.85", got)
	}
	// token order must not matter for the token-set component
	if got := s.Score("fast and furious", "furious and fast"); got != 1.0 {
		t.Errorf("reordered tokens score %.3f, want 1.0", got)
	}
}
