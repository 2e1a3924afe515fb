package segment

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func tokenTexts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}

func TestTokenize(t *testing.T) {
	seg := NewRuleSegmenter()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "simple sentence",
			input:    "The cat sat.",
			expected: []string{"The", "cat", "sat", "."},
		},
		{
			name:     "comma and exclamation",
			input:    "Hello, world!",
			expected: []string{"Hello", ",", "world", "!"},
		},
		{
			name:     "contractions",
			input:    "I don't know, it's fine.",
			expected: []string{"I", "do", "n't", "know", ",", "it", "'s", "fine", "."},
		},
		{
			name:     "abbreviation stays whole",
			input:    "Mr. Smith left.",
			expected: []string{"Mr.", "Smith", "left", "."},
		},
		{
			name:     "quotes",
			input:    `"Go home," she said.`,
			expected: []string{`"`, "Go", "home", ",", `"`, "she", "said", "."},
		},
		{
			name:     "hyphenated word",
			input:    "a well-known bear",
			expected: []string{"a", "well", "-", "known", "bear"},
		},
		{
			name:     "numbers keep separators",
			input:    "It cost 3.14 or 1,000.",
			expected: []string{"It", "cost", "3.14", "or", "1,000", "."},
		},
		{
			name:     "ellipsis",
			input:    "Wait... what?",
			expected: []string{"Wait", "...", "what", "?"},
		},
		{
			name:     "double space becomes a token",
			input:    "one  two",
			expected: []string{"one", " ", "two"},
		},
		{
			name:     "newline becomes a token",
			input:    "one\ntwo",
			expected: []string{"one", "\n", "two"},
		},
		{
			name:     "parentheses",
			input:    "(really)",
			expected: []string{"(", "really", ")"},
		},
		{
			name:     "em dash",
			input:    "yes—no",
			expected: []string{"yes", "—", "no"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenTexts(seg.Tokenize(tt.input))
			if strings.Join(got, "|") != strings.Join(tt.expected, "|") {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTokenizeOffsets(t *testing.T) {
	seg := NewRuleSegmenter()
	inputs := []string{
		"The cat sat. The dog ran fast.",
		"  Leading space and trailing  ",
		"Ünïcödé wörds… and “quotes”.",
		"Tabs\tand\nnewlines\n\nparagraphs.",
		"Don't—won't; can't!",
	}

	for _, input := range inputs {
		prevEnd := 0
		for _, tok := range seg.Tokenize(input) {
			if tok.Start < prevEnd {
				t.Errorf("%q: token %q overlaps previous token", input, tok.Text)
			}
			if input[tok.Start:tok.End] != tok.Text {
				t.Errorf("%q: token %q does not match text[%d:%d]", input, tok.Text, tok.Start, tok.End)
			}
			if strings.TrimSpace(input[prevEnd:tok.Start]) != "" {
				t.Errorf("%q: non-space text skipped before %q", input, tok.Text)
			}
			prevEnd = tok.End
		}
		if strings.TrimSpace(input[prevEnd:]) != "" {
			t.Errorf("%q: non-space text skipped at the end", input)
		}
	}
}

func TestTokenKinds(t *testing.T) {
	seg := NewRuleSegmenter()
	tokens := seg.Tokenize("Pooh ate 42 pots, $5 each.")

	want := map[string]TokenKind{
		"Pooh": Word,
		"42":   Number,
		",":    Punct,
		"$":    Symbol,
		"5":    Number,
		".":    Punct,
	}
	for _, tok := range tokens {
		if kind, ok := want[tok.Text]; ok && tok.Kind != kind {
			t.Errorf("kind of %q = %s, want %s", tok.Text, tok.Kind, kind)
		}
	}
}

func TestSegment(t *testing.T) {
	seg := NewRuleSegmenter()
	ctx := context.Background()

	tests := []struct {
		name      string
		input     string
		sentences []string
		tokens    int
	}{
		{
			name:      "two sentences",
			input:     "The cat sat. The dog ran fast.",
			sentences: []string{"The cat sat.", "The dog ran fast."},
			tokens:    9,
		},
		{
			name:      "single sentence without terminator",
			input:     "Once upon a time",
			sentences: []string{"Once upon a time"},
			tokens:    4,
		},
		{
			name:      "abbreviation does not split",
			input:     "Mr. Smith went home. He slept.",
			sentences: []string{"Mr. Smith went home.", "He slept."},
			tokens:    8,
		},
		{
			name:      "closing quote stays with its sentence",
			input:     `"Run!" he said.`,
			sentences: []string{`"Run!"`, "he said."},
			tokens:    7,
		},
		{
			name:      "question and exclamation",
			input:     "Who is there? It is me! Come in.",
			sentences: []string{"Who is there?", "It is me!", "Come in."},
			tokens:    11,
		},
		{
			name:      "paragraph break ends a sentence",
			input:     "A heading\n\nThe body text.",
			sentences: []string{"A heading\n\n", "The body text."},
			tokens:    7,
		},
		{
			name:      "repeated terminators",
			input:     "Really?! Yes.",
			sentences: []string{"Really?!", "Yes."},
			tokens:    5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentences, err := seg.Segment(ctx, tt.input)
			if err != nil {
				t.Fatalf("Segment() error = %v", err)
			}

			got := make([]string, len(sentences))
			tokens := 0
			for i, s := range sentences {
				got[i] = s.Text
				tokens += s.Len()
			}

			if strings.Join(got, "|") != strings.Join(tt.sentences, "|") {
				t.Errorf("sentences = %q, want %q", got, tt.sentences)
			}
			if tokens != tt.tokens {
				t.Errorf("tokens = %d, want %d", tokens, tt.tokens)
			}
		})
	}
}

func TestSegmentCoversText(t *testing.T) {
	seg := NewRuleSegmenter()
	input := "Once upon a time, there was a bear. He loved honey!  Did he share it? No...\n\nThe end."

	sentences, err := seg.Segment(context.Background(), input)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}

	var b strings.Builder
	prevEnd := 0
	for _, s := range sentences {
		if s.Start < prevEnd {
			t.Fatalf("sentence %q overlaps the previous one", s.Text)
		}
		if input[s.Start:s.End] != s.Text {
			t.Errorf("sentence %q does not match text[%d:%d]", s.Text, s.Start, s.End)
		}
		b.WriteString(input[prevEnd:s.End])
		prevEnd = s.End
	}
	b.WriteString(input[prevEnd:])

	if b.String() != input {
		t.Errorf("sentences do not reconstruct the input")
	}
}

func TestSegmentBlank(t *testing.T) {
	seg := NewRuleSegmenter()
	for _, input := range []string{"", " ", "\n\t  \n"} {
		sentences, err := seg.Segment(context.Background(), input)
		if err != nil {
			t.Errorf("Segment(%q) error = %v", input, err)
		}
		if len(sentences) != 0 {
			t.Errorf("Segment(%q) = %d sentences, want 0", input, len(sentences))
		}
	}
}

func TestSegmentInvalidUTF8(t *testing.T) {
	seg := NewRuleSegmenter()
	_, err := seg.Segment(context.Background(), "bad \xff byte")
	if !errors.Is(err, ErrMalformedText) {
		t.Errorf("expected ErrMalformedText, got %v", err)
	}
}

func TestSegmentCanceled(t *testing.T) {
	seg := NewRuleSegmenter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := seg.Segment(ctx, "Too late."); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSegmentDeterministic(t *testing.T) {
	seg := NewRuleSegmenter()
	input := "Pooh ate honey. Piglet watched. Eeyore sighed."

	first, _ := seg.Segment(context.Background(), input)
	for i := 0; i < 5; i++ {
		again, _ := seg.Segment(context.Background(), input)
		if len(again) != len(first) {
			t.Fatalf("run %d: %d sentences, want %d", i, len(again), len(first))
		}
		for j := range again {
			if again[j].Text != first[j].Text || again[j].Len() != first[j].Len() {
				t.Fatalf("run %d: sentence %d differs", i, j)
			}
		}
	}
}
