package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wgomg/storyteller/internal/readability"
)

func newScoreCmd(a *app) *cobra.Command {
	flags := &inputFlags{}

	cmd := &cobra.Command{
		Use:   "score [file]",
		Short: "Print every readability metric of a text",
		Long: `Print every readability metric of a text.

Word Count counts every token of the segmentation model, punctuation
included. Flesch Reading Ease uses its own, whitespace-based word count,
so the two are not comparable.

Examples:
  storyteller score story.txt
  storyteller score --text "The cat sat. The dog ran fast."
  cat story.txt | storyteller score --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.readInput(cmd, args, flags)
			if err != nil {
				return err
			}

			scorer := readability.NewScorer(a.logger, &a.cfg.Readability, nil, nil)
			scores, err := scorer.CalculateReadabilityScores(a.ctx, text)
			if err != nil {
				return err
			}

			if flags.json {
				return printJSON(cmd, scores)
			}
			printScores(cmd, scores)
			return nil
		},
	}
	flags.register(cmd)

	return cmd
}

func printScores(cmd *cobra.Command, scores readability.MetricSet) {
	out := cmd.OutOrStdout()
	for _, name := range readability.MetricNames {
		value, _ := scores.Get(name)
		switch name {
		case readability.SentenceCountName, readability.WordCountName, readability.SyllableCountName:
			fmt.Fprintf(out, "%-28s %d\n", name+":", int(value))
		default:
			fmt.Fprintf(out, "%-28s %g\n", name+":", value)
		}
	}
}
