package segment

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wgomg/storyteller/internal/utils"
)

// RuleSegmenter is the built-in English model. Its tokenization follows
// spaCy's English rules: prefix, suffix and infix punctuation is split off,
// contractions are split (do|n't, I|'m), known abbreviations stay whole, and
// whitespace other than a single trailing space becomes its own token.
// Sentence boundaries follow spaCy's sentencizer.
type RuleSegmenter struct {
	abbreviations map[string]bool
	initials      *regexp.Regexp
}

// Abbreviations that are also common words (sat., no., fig.) are left out so
// they still end a sentence.
var defaultAbbreviations = []string{
	"mr.", "mrs.", "ms.", "dr.", "st.", "jr.", "sr.", "prof.", "rev.", "gen.",
	"gov.", "sen.", "capt.", "lt.", "sgt.", "mt.", "vs.", "etc.", "inc.",
	"ltd.", "corp.", "dept.", "approx.",
	"jan.", "feb.", "apr.", "aug.", "sept.", "oct.", "nov.", "dec.",
}

// contraction fragments are tokens of their own and are never split further
var contractionSuffixes = []string{
	"n't", "n’t", "'s", "’s", "'m", "’m", "'re", "’re",
	"'ve", "’ve", "'ll", "’ll", "'d", "’d",
}

const (
	openingChars = "([{\"'“‘«<$£€¥#¿¡`*"
	closingChars = ")]}\"'”’»>,;:!?%"
)

func NewRuleSegmenter() *RuleSegmenter {
	abbreviations := make(map[string]bool, len(defaultAbbreviations))
	for _, a := range defaultAbbreviations {
		abbreviations[a] = true
	}

	return &RuleSegmenter{
		abbreviations: abbreviations,
		initials:      regexp.MustCompile(`^(?:[A-Za-z]\.){2,}$|^[B-HJ-Z]\.$`),
	}
}

func (r *RuleSegmenter) Name() string {
	return "rule"
}

func (r *RuleSegmenter) Close() error {
	return nil
}

// Segment returns the sentences of text in document order. Blank text yields
// no sentences.
func (r *RuleSegmenter) Segment(ctx context.Context, text string) ([]Sentence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !utf8.ValidString(text) {
		return nil, ErrMalformedText
	}
	if utils.IsBlank(text) {
		return nil, nil
	}

	return sentencize(text, r.Tokenize(text)), nil
}

// Tokenize splits text into tokens covering every non-space byte.
func (r *RuleSegmenter) Tokenize(text string) []Token {
	var tokens []Token

	i := 0
	for i < len(text) {
		c, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(c) {
			j := i + size
			for j < len(text) {
				c, size := utf8.DecodeRuneInString(text[j:])
				if !unicode.IsSpace(c) {
					break
				}
				j += size
			}

			start := i
			// one plain space after a token is that token's trailing whitespace
			if len(tokens) > 0 && text[i] == ' ' {
				start++
			}
			if start < j {
				tokens = append(tokens, Token{Text: text[start:j], Start: start, End: j, Kind: Space})
			}
			i = j
			continue
		}

		j := i + size
		for j < len(text) {
			c, size := utf8.DecodeRuneInString(text[j:])
			if unicode.IsSpace(c) {
				break
			}
			j += size
		}

		tokens = append(tokens, r.splitChunk(text, i, j)...)
		i = j
	}

	return tokens
}

func (r *RuleSegmenter) splitChunk(text string, start, end int) []Token {
	var head, tail []Token

	for start < end {
		s := text[start:end]
		if r.isSpecial(s) {
			head = append(head, newToken(text, start, end))
			break
		}
		if n := prefixLen(s); n > 0 && n < len(s) {
			head = append(head, newToken(text, start, start+n))
			start += n
			continue
		}
		if n := r.suffixLen(s); n > 0 && n < len(s) {
			tail = append(tail, newToken(text, end-n, end))
			end -= n
			continue
		}

		head = append(head, infixSplit(text, start, end)...)
		break
	}

	// suffixes were collected right to left
	for i := len(tail) - 1; i >= 0; i-- {
		head = append(head, tail[i])
	}
	return head
}

func (r *RuleSegmenter) isSpecial(s string) bool {
	for _, c := range contractionSuffixes {
		if strings.EqualFold(s, c) {
			return true
		}
	}
	return r.isAbbreviation(s)
}

func (r *RuleSegmenter) isAbbreviation(s string) bool {
	if !strings.HasSuffix(s, ".") || len(s) < 2 {
		return false
	}
	return r.abbreviations[strings.ToLower(s)] || r.initials.MatchString(s)
}

func prefixLen(s string) int {
	if n := dotRun(s); n >= 3 {
		return n
	}
	if strings.HasPrefix(s, "…") {
		return len("…")
	}

	c, size := utf8.DecodeRuneInString(s)
	if strings.ContainsRune(openingChars, c) {
		return size
	}
	return 0
}

func (r *RuleSegmenter) suffixLen(s string) int {
	if n := trailingDotRun(s); n >= 3 {
		return n
	}
	if strings.HasSuffix(s, "…") {
		return len("…")
	}

	for _, c := range contractionSuffixes {
		if len(s) <= len(c) || !strings.EqualFold(s[len(s)-len(c):], c) {
			continue
		}
		before, _ := utf8.DecodeLastRuneInString(s[:len(s)-len(c)])
		if unicode.IsLetter(before) {
			return len(c)
		}
	}

	c, size := utf8.DecodeLastRuneInString(s)
	if strings.ContainsRune(closingChars, c) {
		return size
	}
	if c == '.' && !r.isAbbreviation(s) {
		return size
	}
	return 0
}

// infixSplit breaks a chunk on ellipses, on dashes between letters and on
// commas or colons between letters. Digits keep their separators so 3.14 and
// 1,000 stay whole.
func infixSplit(text string, start, end int) []Token {
	var tokens []Token

	pieceStart := start
	i := start
	for i < end {
		c, size := utf8.DecodeRuneInString(text[i:end])

		n := 0
		switch {
		case c == '.' && dotRun(text[i:end]) >= 3:
			n = dotRun(text[i:end])
		case c == '…':
			n = size
		case c == '—' || c == '–':
			n = size
		case c == '-' && betweenLetters(text, start, end, i, dashRun(text[i:end])):
			n = dashRun(text[i:end])
		case (c == ',' || c == ':' || c == '/') && betweenLetters(text, start, end, i, size):
			n = size
		}

		if n == 0 {
			i += size
			continue
		}

		if pieceStart < i {
			tokens = append(tokens, newToken(text, pieceStart, i))
		}
		tokens = append(tokens, newToken(text, i, i+n))
		i += n
		pieceStart = i
	}

	if pieceStart < end {
		tokens = append(tokens, newToken(text, pieceStart, end))
	}
	return tokens
}

func betweenLetters(text string, start, end, at, n int) bool {
	if at == start || at+n >= end {
		return false
	}
	before, _ := utf8.DecodeLastRuneInString(text[start:at])
	after, _ := utf8.DecodeRuneInString(text[at+n : end])
	return unicode.IsLetter(before) && unicode.IsLetter(after)
}

func dotRun(s string) int {
	n := 0
	for n < len(s) && s[n] == '.' {
		n++
	}
	return n
}

func trailingDotRun(s string) int {
	n := 0
	for n < len(s) && s[len(s)-1-n] == '.' {
		n++
	}
	return n
}

func dashRun(s string) int {
	n := 0
	for n < len(s) && s[n] == '-' {
		n++
	}
	return n
}

func newToken(text string, start, end int) Token {
	s := text[start:end]
	return Token{Text: s, Start: start, End: end, Kind: classify(s)}
}

func classify(s string) TokenKind {
	hasLetter, hasDigit, allPunct := false, false, true
	for _, c := range s {
		switch {
		case unicode.IsLetter(c):
			hasLetter = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
		if !unicode.IsPunct(c) {
			allPunct = false
		}
	}

	switch {
	case hasLetter:
		return Word
	case hasDigit:
		return Number
	case allPunct:
		return Punct
	default:
		return Symbol
	}
}

// isTerminal reports whether tok ends a sentence: any run made only of
// . ! ? and the ellipsis character.
func isTerminal(tok Token) bool {
	if tok.Kind != Punct {
		return false
	}
	for _, c := range tok.Text {
		if c != '.' && c != '!' && c != '?' && c != '…' {
			return false
		}
	}
	return true
}

// sentencize groups tokens into sentences. After a terminal token, further
// punctuation and whitespace stay in the same sentence; the next token of any
// other kind opens a new one. A paragraph break also closes a sentence.
func sentencize(text string, tokens []Token) []Sentence {
	var sentences []Sentence

	start := 0
	seenTerminal := false
	hasContent := false
	for i, tok := range tokens {
		if seenTerminal {
			if tok.Kind == Punct || tok.Kind == Space {
				continue
			}
			sentences = append(sentences, newSentence(text, tokens[start:i]))
			start = i
			seenTerminal = false
			hasContent = false
		}

		switch {
		case isTerminal(tok):
			seenTerminal = true
		case tok.Kind == Space:
			if hasContent && strings.Contains(tok.Text, "\n\n") {
				seenTerminal = true
			}
		default:
			hasContent = true
		}
	}

	if start < len(tokens) {
		sentences = append(sentences, newSentence(text, tokens[start:]))
	}
	return sentences
}
