package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wgomg/storyteller/internal/evaluation"
	"github.com/wgomg/storyteller/internal/readability"
)

func newMeasureCmd(a *app) *cobra.Command {
	flags := &inputFlags{}
	var low, high float64

	cmd := &cobra.Command{
		Use:   "measure [file]",
		Short: "Check that a text reads at the target grade",
		Long: `Check that the Flesch-Kincaid grade of a text lies in a window.

Both bounds are inclusive. The command exits with status 2 when the grade
falls outside the window.

Examples:
  storyteller measure story.txt
  storyteller measure --low 1 --high 4 --text "Pooh ate honey."`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.readInput(cmd, args, flags)
			if err != nil {
				return err
			}

			thresholds := a.cfg.Readability
			if cmd.Flags().Changed("low") {
				thresholds.ThresholdLow = low
			}
			if cmd.Flags().Changed("high") {
				thresholds.ThresholdHigh = high
			}

			scorer := readability.NewScorer(a.logger, &thresholds, nil, nil)
			metric, err := evaluation.NewMetric(a.logger, &thresholds, scorer)
			if err != nil {
				return NewCLIError("invalid thresholds", "--low must not exceed --high", err)
			}

			result, err := metric.Evaluate(a.ctx, text)
			if err != nil {
				return err
			}

			if flags.json {
				if err := printJSON(cmd, result); err != nil {
					return err
				}
			} else {
				verdict := "PASS"
				if !result.Success {
					verdict = "FAIL"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", verdict, result.Reason)
			}

			if !result.Success {
				return &CLIError{Message: result.Reason, ExitCode: exitRejected}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&low, "low", 0, "lowest accepted grade (default from READABILITY_THRESHOLD_LOW)")
	cmd.Flags().Float64Var(&high, "high", 0, "highest accepted grade (default from READABILITY_THRESHOLD_HIGH)")

	return cmd
}
