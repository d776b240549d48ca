package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	ParserCommand string
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <text>...",
		Short: "Show the dependency tree of a sentence",
		Long: `Run the configured parser on a sentence. Text output is CoNLL-U,
JSON output is the tree document accepted by the API.

Examples:
  concha parse "repite tu nombre"
  concha parse --format json hola`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ParserCommand, "parser-command", "", "parse with this shell command instead of the configured parser")

	return cmd
}

func runParse(opts *ParseOptions, text string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if err := applyParserFlags(cmd, &cfg, opts.ParserCommand); err != nil {
		return err
	}

	tr, err := newParser(cfg.Parser).Parse(cmd.Context(), text)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to parse sentence", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(tr)
	}
	fmt.Fprint(cmd.OutOrStdout(), tr.Conllu())
	return nil
}
