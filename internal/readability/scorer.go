// Package readability computes the readability metrics used to grade
// generated stories.
//
// Word and sentence counts come from a sentence segmentation model, syllables
// from the heuristic in package syllable, and the composite grade is the
// Flesch-Kincaid formula applied to them. Flesch Reading Ease is delegated to
// package textstat and so follows that library's own counting.
//
// The two word counts differ: Word Count counts every token the model
// produces, punctuation included, while textstat counts whitespace-separated
// words. Callers must not expect the two to agree.
package readability

import (
	"context"
	"math"
	"strconv"
	"sync"

	"github.com/wgomg/storyteller/internal/config"
	"github.com/wgomg/storyteller/internal/segment"
	"github.com/wgomg/storyteller/internal/syllable"
	"github.com/wgomg/storyteller/internal/textstat"
	"github.com/wgomg/storyteller/internal/utils"
)

type Scorer struct {
	segmenter segment.Segmenter
	syllables *syllable.Counter
	stats     *textstat.Stats
	mode      string
	logger    *utils.Logger
}

// NewScorer builds a Scorer. A nil segmenter resolves to segment.Default on
// every call, so a later segment.Init takes effect.
func NewScorer(logger *utils.Logger, cfg *config.ReadabilityConfig, seg segment.Segmenter, counter *syllable.Counter) *Scorer {
	if counter == nil {
		counter = syllable.New()
	}
	mode := config.SyllableModeText
	if cfg != nil && cfg.SyllableMode != "" {
		mode = cfg.SyllableMode
	}
	return &Scorer{
		segmenter: seg,
		syllables: counter,
		stats:     textstat.New(counter),
		mode:      mode,
		logger:    logger,
	}
}

func (s *Scorer) model() segment.Segmenter {
	if s.segmenter != nil {
		return s.segmenter
	}
	return segment.Default()
}

func (s *Scorer) segment(ctx context.Context, metric, text string) ([]segment.Sentence, error) {
	sentences, err := s.model().Segment(ctx, text)
	if err != nil {
		s.logger.Error(nil, "Segmentation failed for %s: %v", metric, err)
		return nil, oracleFailure(metric, err)
	}
	return sentences, nil
}

// WordCount is the total number of tokens over all sentences, punctuation
// included.
func (s *Scorer) WordCount(ctx context.Context, text string) (int, error) {
	sentences, err := s.segment(ctx, "word count", text)
	if err != nil {
		return 0, err
	}
	return countTokens(sentences), nil
}

func (s *Scorer) SentenceCount(ctx context.Context, text string) (int, error) {
	sentences, err := s.segment(ctx, "sentence count", text)
	if err != nil {
		return 0, err
	}
	return len(sentences), nil
}

// AvgSentenceLength is tokens per sentence, unrounded.
func (s *Scorer) AvgSentenceLength(ctx context.Context, text string) (float64, error) {
	sentences, err := s.segment(ctx, "average sentence length", text)
	if err != nil {
		return 0, err
	}
	return avgSentenceLength(sentences)
}

func (s *Scorer) SyllablesCount(text string) int {
	return s.syllables.Count(text)
}

// AvgSyllablesPerWord divides the syllable count by the token count and
// rounds to one decimal, ties to even.
func (s *Scorer) AvgSyllablesPerWord(ctx context.Context, text string) (float64, error) {
	sentences, err := s.segment(ctx, "average syllables per word", text)
	if err != nil {
		return 0, err
	}
	return s.avgSyllablesPerWord(text, sentences)
}

// FleschKincaidGrade is 0.39*ASL + 11.8*ASPW - 15.59 rounded to one decimal,
// with ASPW already rounded.
func (s *Scorer) FleschKincaidGrade(ctx context.Context, text string) (float64, error) {
	sentences, err := s.segment(ctx, "Flesch-Kincaid grade", text)
	if err != nil {
		return 0, err
	}
	return s.fleschKincaidGrade(text, sentences)
}

func (s *Scorer) FleschReadingEase(text string) float64 {
	return s.stats.FleschReadingEase(text)
}

// CalculateReadabilityScores computes the full MetricSet. Empty or
// whitespace-only text is rejected before the model is consulted.
func (s *Scorer) CalculateReadabilityScores(ctx context.Context, text string) (MetricSet, error) {
	if utils.IsBlank(text) {
		return MetricSet{}, invalidInput("readability scores", "text is empty")
	}

	sentences, err := s.segment(ctx, "readability scores", text)
	if err != nil {
		return MetricSet{}, err
	}

	grade, err := s.fleschKincaidGrade(text, sentences)
	if err != nil {
		return MetricSet{}, err
	}
	aspw, err := s.avgSyllablesPerWord(text, sentences)
	if err != nil {
		return MetricSet{}, err
	}

	scores := MetricSet{
		FleschReadingEase:       s.stats.FleschReadingEase(text),
		FleschKincaidGrade:      grade,
		SentenceCount:           len(sentences),
		WordCount:               countTokens(sentences),
		SyllableCount:           s.syllableTotal(text, sentences),
		AverageSyllablesPerWord: aspw,
	}

	reqID := utils.RequestID(ctx)
	s.logger.Debug(&reqID,
		"Scored %q: grade=%.1f ease=%.2f sentences=%d words=%d syllables=%d",
		utils.Preview(text, 40), scores.FleschKincaidGrade, scores.FleschReadingEase,
		scores.SentenceCount, scores.WordCount, scores.SyllableCount)

	return scores, nil
}

func (s *Scorer) avgSyllablesPerWord(text string, sentences []segment.Sentence) (float64, error) {
	words := countTokens(sentences)
	if words == 0 {
		return 0, invalidInput("average syllables per word", "zero words detected")
	}
	return Round(float64(s.syllableTotal(text, sentences))/float64(words), 1), nil
}

func (s *Scorer) fleschKincaidGrade(text string, sentences []segment.Sentence) (float64, error) {
	asl, err := avgSentenceLength(sentences)
	if err != nil {
		return 0, err
	}
	aspw, err := s.avgSyllablesPerWord(text, sentences)
	if err != nil {
		return 0, err
	}
	return Round(float64(0.39*asl)+float64(11.8*aspw)-15.59, 1), nil
}

// syllableTotal counts the whole text in text mode, or sums the per-token
// counts of the segmented tokens in tokens mode.
func (s *Scorer) syllableTotal(text string, sentences []segment.Sentence) int {
	if s.mode != config.SyllableModeTokens {
		return s.syllables.Count(text)
	}

	total := 0
	for _, sentence := range sentences {
		for _, tok := range sentence.Tokens {
			if tok.Kind == segment.Word || tok.Kind == segment.Number {
				total += s.syllables.CountWord(tok.Text)
			}
		}
	}
	return total
}

func avgSentenceLength(sentences []segment.Sentence) (float64, error) {
	if len(sentences) == 0 {
		return 0, invalidInput("average sentence length", "zero sentences detected")
	}
	return float64(countTokens(sentences)) / float64(len(sentences)), nil
}

func countTokens(sentences []segment.Sentence) int {
	n := 0
	for _, sentence := range sentences {
		n += sentence.Len()
	}
	return n
}

// Round rounds x to the given number of decimals from its exact binary value,
// resolving exact ties to even.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return v
}

var defaultScorer = sync.OnceValue(func() *Scorer {
	return NewScorer(utils.NewDiscardLogger(), nil, nil, nil)
})

// Default returns the shared Scorer backed by segment.Default.
func Default() *Scorer {
	return defaultScorer()
}

func WordCount(text string) (int, error) {
	return Default().WordCount(context.Background(), text)
}

func SentenceCount(text string) (int, error) {
	return Default().SentenceCount(context.Background(), text)
}

func AvgSentenceLength(text string) (float64, error) {
	return Default().AvgSentenceLength(context.Background(), text)
}

func SyllablesCount(text string) int {
	return Default().SyllablesCount(text)
}

func AvgSyllablesPerWord(text string) (float64, error) {
	return Default().AvgSyllablesPerWord(context.Background(), text)
}

func FleschKincaidGrade(text string) (float64, error) {
	return Default().FleschKincaidGrade(context.Background(), text)
}

func FleschReadingEase(text string) float64 {
	return Default().FleschReadingEase(text)
}

func CalculateReadabilityScores(text string) (MetricSet, error) {
	return Default().CalculateReadabilityScores(context.Background(), text)
}
