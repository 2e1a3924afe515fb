// Package textstat reproduces the formulas of the textstat statistics
// library that the scorer leans on: its lexicon and sentence counts, its
// Flesch Reading Ease and its own Flesch-Kincaid Grade. Unlike the custom
// pipeline in package readability, these functions never fail; a zero
// divisor yields 0, as the library does.
package textstat

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/wgomg/storyteller/internal/syllable"
)

var sentencePattern = regexp.MustCompile(`\b[^.!?]+[.!?]*`)

type Stats struct {
	syllables *syllable.Counter
}

func New(counter *syllable.Counter) *Stats {
	return &Stats{syllables: counter}
}

// LegacyRound rounds half away from zero. The conversion keeps the product
// from being fused into a multiply-add.
func LegacyRound(number float64, points int) float64 {
	p := math.Pow(10, float64(points))
	return math.Floor(float64(number*p)+math.Copysign(0.5, number)) / p
}

// RemovePunctuation drops every character that is not a letter, digit,
// underscore, apostrophe or whitespace.
func RemovePunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_' || r == '\'' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)
}

func LexiconCount(text string) int {
	return len(strings.Fields(RemovePunctuation(text)))
}

// SentenceCount ignores fragments of two words or fewer and never returns
// less than 1.
func SentenceCount(text string) int {
	sentences := sentencePattern.FindAllString(text, -1)

	ignored := 0
	for _, sentence := range sentences {
		if LexiconCount(sentence) <= 2 {
			ignored++
		}
	}
	return max(1, len(sentences)-ignored)
}

func (s *Stats) AvgSentenceLength(text string) float64 {
	return LegacyRound(float64(LexiconCount(text))/float64(SentenceCount(text)), 1)
}

func (s *Stats) AvgSyllablesPerWord(text string) float64 {
	words := LexiconCount(text)
	if words == 0 {
		return 0.0
	}
	return LegacyRound(float64(s.syllables.Count(text))/float64(words), 1)
}

// FleschReadingEase is 206.835 - 1.015*ASL - 84.6*ASW, rounded to 2 places.
func (s *Stats) FleschReadingEase(text string) float64 {
	asl := s.AvgSentenceLength(text)
	asw := s.AvgSyllablesPerWord(text)
	return LegacyRound(206.835-float64(1.015*asl)-float64(84.6*asw), 2)
}

// FleschKincaidGrade is the library's grade: the same coefficients as the
// pipeline's grade, applied to the library's own word and sentence counts.
func (s *Stats) FleschKincaidGrade(text string) float64 {
	asl := s.AvgSentenceLength(text)
	asw := s.AvgSyllablesPerWord(text)
	return LegacyRound(float64(0.39*asl)+float64(11.8*asw)-15.59, 1)
}
