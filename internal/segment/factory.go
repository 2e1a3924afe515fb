package segment

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wgomg/storyteller/internal/config"
	"github.com/wgomg/storyteller/internal/utils"
)

// NewSegmenter builds the model selected by cfg.Backend. The spaCy backend
// is started (venv, model download, workers) before it is returned.
func NewSegmenter(logger *utils.Logger, cfg *config.SegmenterConfig) (Segmenter, error) {
	switch cfg.Backend {
	case "", config.SegmenterRule:
		logger.Debug(nil, "Using rule-based English segmenter")
		return NewRuleSegmenter(), nil
	case config.SegmenterSpacy:
	default:
		return nil, fmt.Errorf("unknown segmenter backend %q", cfg.Backend)
	}

	pythonDir := filepath.Join(cfg.Python.ConfigDir, "python")
	scriptPath := filepath.Join(pythonDir, "spacy_segmenter.py")

	if _, err := os.Stat(scriptPath); err != nil {
		logger.Info(nil, "Python script will be extracted from embedded resources")
	} else {
		logger.Info(nil, "Using existing Python script at %s", scriptPath)
	}

	pool := NewSpacySegmenter(logger, cfg)

	if err := pool.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize spacy segmenter: %w", err)
	}

	return pool, nil
}
