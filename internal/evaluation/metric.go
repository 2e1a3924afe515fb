// Package evaluation turns a readability grade into a pass/fail verdict
// against a configured grade window.
package evaluation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wgomg/storyteller/internal/config"
	"github.com/wgomg/storyteller/internal/utils"
)

// Grader computes the readability grade of a text.
type Grader interface {
	FleschKincaidGrade(ctx context.Context, text string) (float64, error)
}

// Metric accepts texts whose grade lies in [ThresholdLow, ThresholdHigh].
type Metric struct {
	ThresholdLow  float64
	ThresholdHigh float64

	grader Grader
	logger *utils.Logger
}

type Result struct {
	RunID         string  `json:"run_id"`
	Score         float64 `json:"score"`
	Success       bool    `json:"success"`
	ThresholdLow  float64 `json:"threshold_low"`
	ThresholdHigh float64 `json:"threshold_high"`
	Reason        string  `json:"reason"`
}

func NewMetric(logger *utils.Logger, cfg *config.ReadabilityConfig, grader Grader) (*Metric, error) {
	if cfg.ThresholdLow > cfg.ThresholdHigh {
		return nil, fmt.Errorf("threshold low (%.1f) must not exceed threshold high (%.1f)", cfg.ThresholdLow, cfg.ThresholdHigh)
	}

	return &Metric{
		ThresholdLow:  cfg.ThresholdLow,
		ThresholdHigh: cfg.ThresholdHigh,
		grader:        grader,
		logger:        logger,
	}, nil
}

// Score returns the raw grade.
func (m *Metric) Score(ctx context.Context, text string) (float64, error) {
	return m.grader.FleschKincaidGrade(ctx, text)
}

// Measure reports whether the grade lies inside the window. Both bounds are
// inclusive.
func (m *Metric) Measure(ctx context.Context, text string) (bool, error) {
	grade, err := m.Score(ctx, text)
	if err != nil {
		return false, err
	}
	return m.accepts(grade), nil
}

// Evaluate grades the text once and explains the verdict. The run ID comes
// from the context when one is set there.
func (m *Metric) Evaluate(ctx context.Context, text string) (Result, error) {
	runID := utils.RequestID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = utils.WithRequestID(ctx, runID)
	}

	grade, err := m.Score(ctx, text)
	if err != nil {
		m.logger.Error(&runID, "Readability evaluation failed: %v", err)
		return Result{}, err
	}

	result := Result{
		RunID:         runID,
		Score:         grade,
		Success:       m.accepts(grade),
		ThresholdLow:  m.ThresholdLow,
		ThresholdHigh: m.ThresholdHigh,
	}

	switch {
	case result.Success:
		result.Reason = fmt.Sprintf("grade %.1f is within [%.1f, %.1f]", grade, m.ThresholdLow, m.ThresholdHigh)
	case grade < m.ThresholdLow:
		result.Reason = fmt.Sprintf("grade %.1f is below the minimum of %.1f", grade, m.ThresholdLow)
	default:
		result.Reason = fmt.Sprintf("grade %.1f is above the maximum of %.1f", grade, m.ThresholdHigh)
	}

	m.logger.Info(&runID, "Readability: %s (success=%t)", result.Reason, result.Success)

	return result, nil
}

func (m *Metric) accepts(grade float64) bool {
	return grade >= m.ThresholdLow && grade <= m.ThresholdHigh
}
