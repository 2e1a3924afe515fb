package segment

import (
	"context"
	"errors"
)

// ErrMalformedText is returned when the input is not valid UTF-8.
var ErrMalformedText = errors.New("text is not valid UTF-8")

type TokenKind int

const (
	Word TokenKind = iota
	Number
	Punct
	Symbol
	Space
)

func (k TokenKind) String() string {
	switch k {
	case Word:
		return "word"
	case Number:
		return "number"
	case Punct:
		return "punct"
	case Symbol:
		return "symbol"
	case Space:
		return "space"
	default:
		return "unknown"
	}
}

func (k TokenKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func parseTokenKind(s string) TokenKind {
	switch s {
	case "number":
		return Number
	case "punct":
		return Punct
	case "symbol":
		return Symbol
	case "space":
		return Space
	default:
		return Word
	}
}

// Token is a span of the input text. Start and End are byte offsets, so
// text[Start:End] == Text always holds.
type Token struct {
	Text  string    `json:"text"`
	Start int       `json:"start"`
	End   int       `json:"end"`
	Kind  TokenKind `json:"kind"`
}

type Sentence struct {
	Text   string  `json:"text"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Tokens []Token `json:"tokens"`
}

func (s Sentence) Len() int {
	return len(s.Tokens)
}

// Segmenter splits text into sentences of tokens. Implementations must be
// deterministic and safe for concurrent use once constructed.
type Segmenter interface {
	Segment(ctx context.Context, text string) ([]Sentence, error)
	Name() string
	Close() error
}

func newSentence(text string, tokens []Token) Sentence {
	start := tokens[0].Start
	end := tokens[len(tokens)-1].End
	return Sentence{
		Text:   text[start:end],
		Start:  start,
		End:    end,
		Tokens: tokens,
	}
}
