package segment

import (
	"context"
	"sync"

	"github.com/wgomg/storyteller/internal/config"
	"github.com/wgomg/storyteller/internal/utils"
)

// The process-wide model. It is loaded at most once and only read afterwards.
var shared struct {
	mu    sync.Mutex
	model Segmenter
}

// Init loads the configured model as the process-wide default. Calling it
// again while a model is loaded is a no-op.
func Init(logger *utils.Logger, cfg *config.SegmenterConfig) error {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.model != nil {
		return nil
	}

	model, err := NewSegmenter(logger, cfg)
	if err != nil {
		return err
	}
	shared.model = model
	return nil
}

// Default returns the process-wide model, loading the rule-based one on
// first use when Init was never called.
func Default() Segmenter {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.model == nil {
		shared.model = NewRuleSegmenter()
	}
	return shared.model
}

// Shutdown closes the process-wide model. A later Default or Init loads a
// fresh one.
func Shutdown() error {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.model == nil {
		return nil
	}
	err := shared.model.Close()
	shared.model = nil
	return err
}

// BreakSentences splits text into sentences with the process-wide model.
func BreakSentences(ctx context.Context, text string) ([]Sentence, error) {
	return Default().Segment(ctx, text)
}
