package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/arman/vod-catalog/internal/model"
	"github.com/arman/vod-catalog/internal/util"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Key is the canonical comparison key derived from a scraped record.
// Two records with equal keys refer to the same real-world title.
type Key struct {
	NormalizedTitle string
	Year            int // 0 = unknown
	MediaType       model.MediaType
	ExternalID      string // empty when the platform supplied none
}

// CompositeKey returns the string form of the title-based key, used for
// cache lookups and audit logs.
func (k Key) CompositeKey() string {
	return fmt.Sprintf("title:%s|%d|%s", k.NormalizedTitle, k.Year, k.MediaType)
}

// ExternalKey returns the string form of the external-id key, or ""
// when the record carries no external id.
func (k Key) ExternalKey() string {
	if k.ExternalID == "" {
		return ""
	}
	return "ext:" + k.ExternalID
}

// Normalize derives the comparison key for a scraped record.
// Deterministic and side-effect-free: the same raw title always yields the
// same normalized title. A record whose title normalizes to nothing is
// rejected with ErrInvalidRecord; every other malformed field degrades to
// its zero value.
func Normalize(rec model.ScrapedRecord) (Key, error) {
	title := NormalizeTitle(rec.Title)
	if title == "" {
		return Key{}, fmt.Errorf("%w: title %q normalizes to empty", util.ErrInvalidRecord, rec.Title)
	}

	return Key{
		NormalizedTitle: title,
		Year:            rec.Year,
		MediaType:       model.ParseMediaType(string(rec.MediaType)),
		ExternalID:      rec.ExternalID,
	}, nil
}

// NormalizeTitle produces the canonical comparison form of a title:
// NFC, case-folded, diacritics stripped, bracketed noise tags removed,
// punctuation removed, leading sorting article dropped, whitespace collapsed.
func NormalizeTitle(title string) string {
	if title == "" {
		return ""
	}

	title = norm.NFC.String(title)
	title = strings.ToLower(title)
	title = strings.TrimSpace(title)
	title = stripDiacritics(title)
	title = stripNoiseTags(title)
	title = removePunctuation(title)
	title = stripLeadingArticle(title)
	title = collapseWhitespace(title)

	return title
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// stripDiacritics removes combining marks so "Amélie" and "Amelie"
// compare equal
func stripDiacritics(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return out
}

// noiseWords are edition/quality/language markers that platforms append to
// titles but that carry no identity: "Film (Dubbed)" and "Film [1080p]"
// are the same film.
const noiseWords = `1080p|720p|480p|2160p|4k|uhd|hd|full hd|hdr|cam|ts|` +
	`web dl|web-dl|webrip|webdl|web|bluray|blu ray|brrip|dvdrip|dvd|hdrip|x264|x265|` +
	`dubbed|dub|dubbing|subbed|sub|subtitled|subtitles|hardsub|softsub|dual audio|` +
	`farsi|persian|english|doble|` +
	`uncut|uncensored|extended|remastered|remaster|theatrical|directors cut|director s cut|` +
	`complete|full movie|final|new|exclusive`

var (
	// Bracketed or parenthesized groups that contain a noise word:
	// "(Dubbed)", "[1080p BluRay]", "(Persian Sub)"
	bracketNoiseRe = regexp.MustCompile(`(?i)\s*[\(\[\{][^\)\]\}]*\b(` + noiseWords + `)\b[^\)\]\}]*[\)\]\}]`)

	// Bare trailing noise tokens: "Title Dubbed", "Title 1080p"
	trailingNoiseRe = regexp.MustCompile(`(?i)(\s+\b(` + noiseWords + `)\b)+$`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// stripNoiseTags removes bracketed and trailing quality/edition/language
// markers from a lowercased title
func stripNoiseTags(s string) string {
	s = bracketNoiseRe.ReplaceAllString(s, " ")
	s = trailingNoiseRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// removePunctuation removes common punctuation characters
func removePunctuation(s string) string {
	replacer := strings.NewReplacer(
		".", "",
		",", "",
		"!", "",
		"?", "",
		"'", "",
		"’", "",
		"\"", "",
		":", " ",
		";", "",
		"-", " ",
		"_", " ",
		"&", " and ",
		"/", " ",
		"(", " ",
		")", " ",
		"[", " ",
		"]", " ",
		"{", " ",
		"}", " ",
	)
	return replacer.Replace(s)
}

// stripLeadingArticle drops a leading english sorting article. Only the
// leading position is touched: "the matrix" -> "matrix", but articles
// inside the title stay.
func stripLeadingArticle(s string) string {
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(s, article) && len(s) > len(article) {
			return s[len(article):]
		}
	}
	return s
}

// collapseWhitespace replaces runs of whitespace with a single space
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
