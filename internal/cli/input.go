package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wgomg/storyteller/internal/textio"
	"github.com/wgomg/storyteller/internal/utils"
)

// inputFlags are shared by every command that reads a text.
type inputFlags struct {
	text string
	json bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.text, "text", "t", "", "text to read instead of a file or stdin")
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON")
}

// readInput returns --text when set, else the file named by the only
// argument, else stdin.
func (a *app) readInput(cmd *cobra.Command, args []string, f *inputFlags) (string, error) {
	if f.text != "" {
		if len(args) > 0 {
			return "", NewCLIError("both --text and a file were given", "use one or the other", nil)
		}
		return f.text, nil
	}

	var (
		res textio.Result
		err error
	)
	if len(args) == 1 {
		res, err = textio.ReadFile(args[0])
	} else {
		res, err = textio.Read(cmd.InOrStdin())
	}
	if err != nil {
		return "", err
	}

	reqID := utils.RequestID(a.ctx)
	a.logger.Debug(&reqID, "Read %d bytes of input (encoding=%s, bom=%t)", len(res.Text), res.Encoding, res.HasBOM)
	return res.Text, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
