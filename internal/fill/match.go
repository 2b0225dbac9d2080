package fill

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/autoapply/internal/extract"
)

// ExactScore is the score of a case-insensitive exact match.
const ExactScore = 100.0

func fold(s string) string {
	return cases.Fold().String(extract.Normalize(s))
}

// Score rates option against want. An exact match scores 100. When one
// contains the other the score is the shorter length over the longer one,
// times 100, so more specific options score higher. Otherwise 0.
func Score(want, option string) float64 {
	w, o := fold(want), fold(option)
	if w == "" || o == "" {
		return 0
	}
	if w == o {
		return ExactScore
	}
	if !strings.Contains(w, o) && !strings.Contains(o, w) {
		return 0
	}
	short, long := len(w), len(o)
	if short > long {
		short, long = long, short
	}
	return float64(short) / float64(long) * 100
}

// Best returns the index of the best scoring option, or -1 when nothing
// matches. Ties keep the earlier option.
func Best(want string, options []string) int {
	best, bestScore := -1, 0.0
	for i, o := range options {
		if s := Score(want, o); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// boosts route well-known answer sources to first-level categories of a
// nested picker.
var boosts = []struct {
	item     []string
	category []string
}{
	{[]string{"linkedin", "facebook", "twitter", "instagram"}, []string{"social"}},
	{[]string{"indeed", "glassdoor", "monster", "job"}, []string{"job"}},
	{[]string{"friend", "colleague", "referral"}, []string{"referral", "friend", "colleague"}},
}

const boostScore = 90.0

func boosted(item, option string) bool {
	it, op := fold(item), fold(option)
	for _, b := range boosts {
		if !containsAny(it, b.item) {
			continue
		}
		if containsAny(op, b.category) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// pickSuggestion chooses a suggestion for item. With boost set, the first
// option matching a keyword route scores at least 90 and ends the scan. It
// falls back to the first suggestion when nothing scores.
func pickSuggestion(item string, options []string, boost bool) int {
	if len(options) == 0 {
		return -1
	}
	best, bestScore := -1, 0.0
	for i, o := range options {
		s := Score(item, o)
		hit := boost && boosted(item, o)
		if hit && s < boostScore {
			s = boostScore
		}
		if s > bestScore {
			best, bestScore = i, s
		}
		if hit {
			break
		}
	}
	if best < 0 {
		return 0
	}
	return best
}
