package evaluation

import (
	"context"
	"sync"

	"github.com/wgomg/storyteller/internal/config"
	"github.com/wgomg/storyteller/internal/readability"
	"github.com/wgomg/storyteller/internal/utils"
)

var defaultMetric = sync.OnceValue(func() *Metric {
	cfg := config.Default().Readability
	return &Metric{
		ThresholdLow:  cfg.ThresholdLow,
		ThresholdHigh: cfg.ThresholdHigh,
		grader:        readability.Default(),
		logger:        utils.NewDiscardLogger(),
	}
})

// Measure checks text against the default window of grades 2.0 to 3.0.
func Measure(text string) (bool, error) {
	return defaultMetric().Measure(context.Background(), text)
}

func Score(text string) (float64, error) {
	return defaultMetric().Score(context.Background(), text)
}
