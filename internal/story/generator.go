// Package story produces stories about a character from the Hundred Acre
// Wood. The placeholder generator echoes its inputs in a fixed sentence; the
// LLM generator asks a chat-completions endpoint for a real story.
package story

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wgomg/storyteller/internal/config"
	"github.com/wgomg/storyteller/internal/utils"
)

var ErrEmptyInput = errors.New("character and prompt must not be empty")

type Generator interface {
	Generate(ctx context.Context, character, prompt string) (string, error)
}

type Placeholder struct{}

func (Placeholder) Generate(ctx context.Context, character, prompt string) (string, error) {
	if err := validate(character, prompt); err != nil {
		return "", err
	}
	return "I will write you a story centered around " + character + ". The story will be about: " + prompt, nil
}

// NewGenerator builds the generator selected by cfg.Story.Backend.
func NewGenerator(cfg *config.Config, logger *utils.Logger) (Generator, error) {
	switch cfg.Story.Backend {
	case "", config.StoryPlaceholder:
		return Placeholder{}, nil
	case config.StoryLLM:
		return NewLLMGenerator(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown story backend %q", cfg.Story.Backend)
	}
}

func validate(character, prompt string) error {
	if strings.TrimSpace(character) == "" || strings.TrimSpace(prompt) == "" {
		return ErrEmptyInput
	}
	return nil
}
