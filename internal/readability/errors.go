package readability

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks text that cannot be scored, such as empty or
	// whitespace-only input where a count is used as a divisor.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOracleFailure marks a failure of the segmentation model. Oracles are
	// deterministic, so these errors are never retried.
	ErrOracleFailure = errors.New("oracle failure")
)

// MetricError names the metric that could not be computed and why.
type MetricError struct {
	Metric string
	Reason string
	Err    error
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("cannot compute %s: %s", e.Metric, e.Reason)
}

func (e *MetricError) Unwrap() error {
	return e.Err
}

func invalidInput(metric, reason string) error {
	return &MetricError{Metric: metric, Reason: reason, Err: ErrInvalidInput}
}

func oracleFailure(metric string, err error) error {
	return &MetricError{
		Metric: metric,
		Reason: fmt.Sprintf("segmentation failed: %v", err),
		Err:    fmt.Errorf("%w: %w", ErrOracleFailure, err),
	}
}
