package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wgomg/storyteller/internal/segment"
)

type segmentJSONOutput struct {
	Model     string             `json:"model"`
	Sentences []segment.Sentence `json:"sentences"`
}

func newSegmentCmd(a *app) *cobra.Command {
	flags := &inputFlags{}

	cmd := &cobra.Command{
		Use:   "segment [file]",
		Short: "Show how a text is split into sentences and tokens",
		Long: `Show how a text is split into sentences and tokens.

Every sentence is printed on its own line with its token count, followed by
its tokens separated by '|'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.readInput(cmd, args, flags)
			if err != nil {
				return err
			}

			model := segment.Default()
			sentences, err := model.Segment(a.ctx, text)
			if err != nil {
				return err
			}

			if flags.json {
				return printJSON(cmd, segmentJSONOutput{Model: model.Name(), Sentences: sentences})
			}

			out := cmd.OutOrStdout()
			for i, s := range sentences {
				fmt.Fprintf(out, "%d\t%d\t%q\n", i+1, s.Len(), s.Text)
				fmt.Fprint(out, "\t\t")
				for j, tok := range s.Tokens {
					if j > 0 {
						fmt.Fprint(out, "|")
					}
					fmt.Fprintf(out, "%q", tok.Text)
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%d sentences (model %s)\n", len(sentences), model.Name())
			return nil
		},
	}
	flags.register(cmd)

	return cmd
}
