package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wgomg/storyteller/internal/readability"
	"github.com/wgomg/storyteller/internal/story"
	"github.com/wgomg/storyteller/internal/textio"
)

const (
	exitError    = 1
	exitRejected = 2
)

// CLIError wraps an error with a user-facing message, an optional hint and
// the exit code to use.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: exitError,
	}
}

// MapError attaches hints to known errors. Unmapped errors are returned
// as is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	switch {
	case errors.Is(err, readability.ErrInvalidInput):
		return NewCLIError("cannot score this text", "pass some words with --text, a file, or stdin", err)
	case errors.Is(err, readability.ErrOracleFailure):
		return NewCLIError("the segmentation model failed", "retrying will not help; check the model with 'storyteller segment'", err)
	case errors.Is(err, textio.ErrBinary):
		return NewCLIError("cannot read input", "only plain text files can be scored", err)
	case errors.Is(err, story.ErrEmptyInput):
		return NewCLIError("cannot write a story", "set both --character and --prompt", err)
	}
	return err
}

func FormatError(err error) string {
	err = MapError(err)

	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.Hint != "" {
		var b strings.Builder
		fmt.Fprintf(&b, "Error: %s\n", cliErr.Error())
		fmt.Fprintf(&b, "Hint: %s", cliErr.Hint)
		return b.String()
	}
	return fmt.Sprintf("Error: %v", err)
}

func ExitCode(err error) int {
	var cliErr *CLIError
	if errors.As(MapError(err), &cliErr) {
		return cliErr.ExitCode
	}
	return exitError
}
