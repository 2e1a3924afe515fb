// Package syllable estimates English syllable counts.
//
// Count follows the calling convention of the textstat library: the whole
// text is lowercased, punctuation other than apostrophes is dropped, and the
// remaining whitespace-separated words are counted one by one. Hyphenated
// words therefore count as a single word ("well-known" -> "wellknown").
//
// CountWord is a vowel-group heuristic with corrections for silent endings,
// split diphthongs and a short exception table. Any non-empty word counts at
// least one syllable, numbers included.
package syllable

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/wgomg/storyteller/internal/utils"
)

var exceptions = map[string]int{
	"eeyore":     2,
	"hundred":    2,
	"every":      2,
	"everyone":   3,
	"everything": 3,
	"everybody":  4,
	"everywhere": 3,
	"create":     2,
	"created":    3,
	"science":    2,
	"naive":      2,
	"poem":       2,
	"poet":       2,
	"business":   2,
	"colonel":    2,
	"queue":      1,
}

var (
	// split vowel pairs that the group count merges
	addPatterns = []*regexp.Regexp{
		regexp.MustCompile(`ia`),
		regexp.MustCompile(`io`),
		regexp.MustCompile(`iu`),
		regexp.MustCompile(`ii`),
		regexp.MustCompile(`iet`),
		regexp.MustCompile(`dien`),
		regexp.MustCompile(`[aeiouy]ing$`),
		regexp.MustCompile(`^mc`),
		regexp.MustCompile(`ism$`),
		regexp.MustCompile(`[^gq]ua[^auieo]`),
		regexp.MustCompile(`dnt$`),
	}
	// pairs matched above that are really one syllable (na-tion, spe-cial)
	subPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[cts]ia`),
		regexp.MustCompile(`[ctsgx]io`),
		regexp.MustCompile(`[cgt]iu`),
		regexp.MustCompile(`[^aeiou]ely$`),
	}
)

var stripMarks = runes.Remove(runes.In(unicode.Mn))

type Counter struct {
	cache *utils.WordCache
}

func New() *Counter {
	return &Counter{cache: utils.NewWordCache()}
}

// Count returns the syllable count of a whole text.
func (c *Counter) Count(text string) int {
	text = removePunctuation(strings.ToLower(text))

	total := 0
	for _, word := range strings.Fields(text) {
		total += c.CountWord(word)
	}
	return total
}

// CountWord returns the syllable count of a single word.
func (c *Counter) CountWord(word string) int {
	return c.cache.GetOrCompute(strings.ToLower(word), countWord)
}

// CacheStats reports how many distinct words were counted and the share of
// lookups served from the cache.
func (c *Counter) CacheStats() (int, float64) {
	return c.cache.Size(), c.cache.HitRate()
}

func removePunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_' || r == '\'' || r == '’' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)
}

func countWord(word string) int {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_' {
			return r
		}
		return -1
	}, word)
	if cleaned == "" {
		return 0
	}

	w := asciiLetters(cleaned)
	if w == "" {
		return 1
	}
	if n, ok := exceptions[w]; ok {
		return n
	}
	if len(w) <= 3 {
		return 1
	}

	stem := trimSilentEnding(w)

	count := vowelGroups(stem)
	for _, re := range addPatterns {
		count += len(re.FindAllStringIndex(stem, -1))
	}
	for _, re := range subPatterns {
		count -= len(re.FindAllStringIndex(stem, -1))
	}

	return max(count, 1)
}

// asciiLetters folds accented letters to their base form and keeps a-z.
func asciiLetters(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, stripMarks), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// trimSilentEnding drops endings that add no syllable: a final e (but not
// -ee, consonant+le, consonant+re), -es after a non-sibilant, and -ed after
// anything but t or d.
func trimSilentEnding(w string) string {
	n := len(w)
	switch {
	case strings.HasSuffix(w, "ed") && n > 4:
		if before := w[n-3]; before != 't' && before != 'd' {
			return w[:n-2]
		}
	case strings.HasSuffix(w, "es") && n > 3:
		before := w[n-3]
		if before == 'l' && n > 4 && !isVowel(w[n-4]) {
			return w
		}
		if !strings.ContainsRune("sxzcgh", rune(before)) && !isVowel(before) {
			return w[:n-2]
		}
	case strings.HasSuffix(w, "e"):
		before := w[n-2]
		if before == 'e' {
			return w
		}
		if (before == 'l' || before == 'r') && n > 3 && !isVowel(w[n-3]) && w[n-3] != before {
			return w
		}
		return w[:n-1]
	}
	return w
}

func isVowel(c byte) bool {
	return c == 'a' || c == 'e' || c == 'i' || c == 'o' || c == 'u'
}

// vowelGroups counts runs of vowels; y is a vowel except as the first letter.
func vowelGroups(w string) int {
	count := 0
	prev := false
	for i := 0; i < len(w); i++ {
		v := isVowel(w[i]) || (w[i] == 'y' && i > 0)
		if v && !prev {
			count++
		}
		prev = v
	}
	return count
}

var defaultCounter = New()

// Count uses a shared Counter.
func Count(text string) int {
	return defaultCounter.Count(text)
}

func CountWord(word string) int {
	return defaultCounter.CountWord(word)
}
