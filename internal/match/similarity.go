package match

import (
	"strings"

	"github.com/xrash/smetrics"
)

// Scorer computes a similarity score in [0, 1] between two normalized
// titles. The matcher's decision logic is independent of the scoring
// implementation, so the algorithm can be swapped or tuned behind this
// interface.
type Scorer interface {
	Score(a, b string) float64
}

// TitleScorer is the default scorer: the best of token-set overlap and
// Jaro-Winkler over the whole string. Token overlap is robust to word
// reordering ("nim o shish metri" vs "metri shish o nim"); Jaro-Winkler
// catches transliteration drift within words ("shish" vs "shesh").
type TitleScorer struct{}

// NewTitleScorer returns the default similarity scorer
func NewTitleScorer() *TitleScorer {
	return &TitleScorer{}
}

// Score computes the similarity between two normalized titles
func (TitleScorer) Score(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	tokens := tokenSetRatio(a, b)
	jw := smetrics.JaroWinkler(a, b, 0.7, 4)

	if tokens > jw {
		return tokens
	}
	return jw
}

// tokenSetRatio is the Jaccard overlap of the two titles' token sets
func tokenSetRatio(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(s) {
		set[token] = true
	}
	return set
}
