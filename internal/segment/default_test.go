package segment

import (
	"context"
	"testing"

	"github.com/wgomg/storyteller/internal/config"
	"github.com/wgomg/storyteller/internal/utils"
)

func TestDefaultLoadsRuleModel(t *testing.T) {
	t.Cleanup(func() { Shutdown() })
	Shutdown()

	first := Default()
	if first.Name() != "rule" {
		t.Errorf("Default().Name() = %q, want rule", first.Name())
	}
	if Default() != first {
		t.Error("Default() should return the same model on every call")
	}
}

func TestInitIsIdempotent(t *testing.T) {
	t.Cleanup(func() { Shutdown() })
	Shutdown()

	cfg := &config.SegmenterConfig{Backend: config.SegmenterRule}
	if err := Init(utils.NewDiscardLogger(), cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	loaded := Default()

	// a second Init with a bad backend is ignored while a model is loaded
	if err := Init(utils.NewDiscardLogger(), &config.SegmenterConfig{Backend: "bogus"}); err != nil {
		t.Errorf("second Init() error = %v", err)
	}
	if Default() != loaded {
		t.Error("second Init() replaced the loaded model")
	}
}

func TestInitUnknownBackend(t *testing.T) {
	t.Cleanup(func() { Shutdown() })
	Shutdown()

	if err := Init(utils.NewDiscardLogger(), &config.SegmenterConfig{Backend: "bogus"}); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestBreakSentences(t *testing.T) {
	t.Cleanup(func() { Shutdown() })
	Shutdown()

	sentences, err := BreakSentences(context.Background(), "Pooh ate honey. Piglet watched.")
	if err != nil {
		t.Fatalf("BreakSentences() error = %v", err)
	}
	if len(sentences) != 2 {
		t.Errorf("expected 2 sentences, got %d", len(sentences))
	}
}
