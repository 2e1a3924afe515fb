package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wgomg/storyteller/internal/evaluation"
	"github.com/wgomg/storyteller/internal/readability"
	"github.com/wgomg/storyteller/internal/story"
)

type storyJSONOutput struct {
	Character string             `json:"character"`
	Prompt    string             `json:"prompt"`
	Story     string             `json:"story"`
	Verdict   *evaluation.Result `json:"verdict,omitempty"`
}

func newStoryCmd(a *app) *cobra.Command {
	var character, prompt string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "story",
		Short: "Write a Hundred Acre Wood story",
		Long: `Write a story centered around a character.

With STORY_BACKEND=llm the story comes from a chat-completions endpoint
(LLM_URL, LLM_TOKEN, LLM_MODEL); otherwise a fixed placeholder sentence is
returned. --score also grades the story.

Examples:
  storyteller story --character Pooh --prompt "a lost honey pot"
  storyteller story -c Piglet -p "a windy day" --score`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			generator, err := story.NewGenerator(a.cfg, a.logger)
			if err != nil {
				return NewCLIError("failed to set up the story generator", "check STORY_BACKEND and the LLM_* variables", err)
			}

			text, err := generator.Generate(a.ctx, character, prompt)
			if err != nil {
				return err
			}

			output := storyJSONOutput{Character: character, Prompt: prompt, Story: text}

			if storyNeedsScoring(cmd) {
				scorer := readability.NewScorer(a.logger, &a.cfg.Readability, nil, nil)
				metric, err := evaluation.NewMetric(a.logger, &a.cfg.Readability, scorer)
				if err != nil {
					return err
				}
				result, err := metric.Evaluate(a.ctx, text)
				if err != nil {
					return err
				}
				output.Verdict = &result
			}

			if asJSON {
				return printJSON(cmd, output)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, output.Story)
			if output.Verdict != nil {
				fmt.Fprintf(out, "\nReadability: %s\n", output.Verdict.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&character, "character", "c", "", "main character of the story")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "what the story is about")
	cmd.Flags().Bool("score", false, "grade the story after writing it")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

func storyNeedsScoring(cmd *cobra.Command) bool {
	score, err := cmd.Flags().GetBool("score")
	return err == nil && score
}
