package match

import (
	"fmt"
	"sort"

	"github.com/arman/vod-catalog/internal/normalize"
	"github.com/arman/vod-catalog/internal/store"
	"github.com/arman/vod-catalog/internal/util"
)

// Confidence is the strength of a match decision. Used for auditing only;
// it never alters persistence semantics.
type Confidence string

const (
	ConfidenceCertain Confidence = "certain" // external-id equality
	ConfidenceHigh    Confidence = "high"    // exact composite-key equality
	ConfidenceFuzzy   Confidence = "fuzzy"   // similarity above threshold
	ConfidenceNone    Confidence = "none"    // no match, create new
)

// Outcome of a match decision
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeCreateNew Outcome = "create-new"
)

// Config holds the matching policy. The right threshold, margin and year
// tolerance are catalog-dependent; they are configuration, not constants.
type Config struct {
	// Threshold is the minimum similarity score for a fuzzy match
	Threshold float64
	// TieMargin is the minimum lead the best fuzzy candidate must have
	// over the runner-up; near-ties are rejected, never guessed
	TieMargin float64
	// YearTolerance is the maximum year distance for fuzzy candidates;
	// a concrete mismatch beyond it disqualifies a candidate outright
	YearTolerance int
}

// DefaultConfig returns the default matching policy
func DefaultConfig() Config {
	return Config{
		Threshold:     0.85,
		TieMargin:     0.05,
		YearTolerance: 1,
	}
}

// Validate checks the policy values are usable
func (c Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: fuzzy threshold %.2f outside (0, 1]", util.ErrInvalidConfig, c.Threshold)
	}
	if c.TieMargin < 0 || c.TieMargin >= 1 {
		return fmt.Errorf("%w: tie margin %.2f outside [0, 1)", util.ErrInvalidConfig, c.TieMargin)
	}
	if c.YearTolerance < 0 {
		return fmt.Errorf("%w: negative year tolerance", util.ErrInvalidConfig)
	}
	return nil
}

// Decision is the matcher's verdict for one record against its candidates
type Decision struct {
	Outcome      Outcome
	EntityID     int64 // set when Outcome is OutcomeMatched
	Confidence   Confidence
	Score        float64 // best fuzzy score, when the fuzzy rule decided
	NeedsUpgrade bool    // record carries an external id the entity lacks
	Reason       string
}

// Matcher applies the decision procedure over a candidate set
type Matcher struct {
	cfg    Config
	scorer Scorer
}

// New creates a Matcher with the given policy and scorer. A nil scorer
// gets the default TitleScorer.
func New(cfg Config, scorer Scorer) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if scorer == nil {
		scorer = NewTitleScorer()
	}
	return &Matcher{cfg: cfg, scorer: scorer}, nil
}

// Config returns the matcher's policy
func (m *Matcher) Config() Config {
	return m.cfg
}

// Match runs the decision procedure in strict priority order; the first
// rule that fires wins and no lower rule is consulted:
//
//  1. external-id equality            -> matched, certain
//  2. exact composite-key equality    -> matched, high
//  3. fuzzy similarity with tie-break -> matched, fuzzy
//  4. nothing                         -> create-new
//
// An unresolvable near-tie between fuzzy candidates returns ErrAmbiguous;
// ambiguity is for humans, not coin flips.
func (m *Matcher) Match(key normalize.Key, candidates []*store.Entity) (*Decision, error) {
	// Rule 1: external id
	if key.ExternalID != "" {
		for _, c := range candidates {
			if c.ExternalID == key.ExternalID {
				return &Decision{
					Outcome:    OutcomeMatched,
					EntityID:   c.ID,
					Confidence: ConfidenceCertain,
					Reason:     fmt.Sprintf("external id %s", key.ExternalID),
				}, nil
			}
		}
	}

	// Rule 2: exact composite key
	for _, c := range candidates {
		if c.NormalizedTitle == key.NormalizedTitle &&
			c.MediaType == key.MediaType &&
			c.Year == key.Year {
			return &Decision{
				Outcome:      OutcomeMatched,
				EntityID:     c.ID,
				Confidence:   ConfidenceHigh,
				NeedsUpgrade: key.ExternalID != "" && c.ExternalID == "",
				Reason:       "exact title+year+type",
			}, nil
		}
	}

	// Rule 3: fuzzy
	scored := m.scoreCandidates(key, candidates)
	if len(scored) > 0 && scored[0].score >= m.cfg.Threshold {
		best := scored[0]

		if len(scored) > 1 {
			second := scored[1]
			if second.score >= m.cfg.Threshold && best.score-second.score < m.cfg.TieMargin {
				return nil, fmt.Errorf(
					"%w: %q scores %.3f against entity %d and %.3f against entity %d (margin %.3f)",
					util.ErrAmbiguous, key.NormalizedTitle,
					best.score, best.entity.ID, second.score, second.entity.ID,
					m.cfg.TieMargin)
			}
		}

		return &Decision{
			Outcome:      OutcomeMatched,
			EntityID:     best.entity.ID,
			Confidence:   ConfidenceFuzzy,
			Score:        best.score,
			NeedsUpgrade: key.ExternalID != "" && best.entity.ExternalID == "",
			Reason:       fmt.Sprintf("fuzzy score %.3f vs %q", best.score, best.entity.NormalizedTitle),
		}, nil
	}

	// Rule 4: no match
	return &Decision{
		Outcome:    OutcomeCreateNew,
		Confidence: ConfidenceNone,
		Reason:     "no candidate matched",
	}, nil
}

type scoredCandidate struct {
	entity *store.Entity
	score  float64
}

// scoreCandidates scores every year-compatible candidate, best first.
// A concrete year mismatch beyond the tolerance disqualifies a candidate
// even with a perfect title score; an unknown year on either side is
// compatible with anything.
func (m *Matcher) scoreCandidates(key normalize.Key, candidates []*store.Entity) []scoredCandidate {
	scored := make([]scoredCandidate, 0, len(candidates))

	for _, c := range candidates {
		if c.MediaType != key.MediaType {
			continue
		}
		if key.Year > 0 && c.Year > 0 {
			diff := key.Year - c.Year
			if diff < 0 {
				diff = -diff
			}
			if diff > m.cfg.YearTolerance {
				continue
			}
		}

		scored = append(scored, scoredCandidate{
			entity: c,
			score:  m.scorer.Score(key.NormalizedTitle, c.NormalizedTitle),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	return scored
}
