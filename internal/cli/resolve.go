package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/concha/internal/config"
	"github.com/roach88/concha/internal/engine"
	"github.com/roach88/concha/internal/trick"
	"github.com/roach88/concha/internal/tree"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Database      string
	Rules         string
	ParserCommand string
}

// ResolveResult is the answer to one sentence.
type ResolveResult struct {
	Text    string     `json:"text"`
	Answer  string     `json:"answer_text"`
	Request *tree.Tree `json:"request"`
	Tricks  []int      `json:"tricks"`
	Status  string     `json:"status"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <text>...",
		Short: "Answer one sentence and exit",
		Long: `Parse a sentence, link it against the tricks and print the answer.

The words are joined with spaces. Tricks come from --rules when set,
otherwise from the database log.

Examples:
  concha resolve --rules ./rules "repite hola"
  concha resolve --db concha.db --format json ¿qué tal?`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database to restore tricks from")
	cmd.Flags().StringVar(&opts.Rules, "rules", "", "directory of rule files")
	cmd.Flags().StringVar(&opts.ParserCommand, "parser-command", "", "parse with this shell command instead of the configured parser")

	return cmd
}

// applyParserFlags points cfg at the flags the user set.
func applyParserFlags(cmd *cobra.Command, cfg *config.Config, command string) error {
	if cmd.Flags().Changed("parser-command") {
		cfg.Parser.Mode = config.ParserCommand
		cfg.Parser.Command = command
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return nil
}

func runResolve(opts *ResolveOptions, text string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		cfg.Database = opts.Database
	}
	if cmd.Flags().Changed("rules") {
		cfg.Rules.Dir = opts.Rules
	}
	if err := applyParserFlags(cmd, &cfg, opts.ParserCommand); err != nil {
		return err
	}

	logger, closeLog, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	ctx := cmd.Context()
	repo := trick.NewRepository()
	if err := fillRepository(ctx, repo, cfg, st, logger); err != nil {
		return err
	}

	p := newParser(cfg.Parser)
	req, err := p.Parse(ctx, text)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to parse sentence", err)
	}
	formatter.VerboseLog("Parsed %q as %q", text, req.Format())

	art, err := newEngine(repo, p, cfg, logger, nil).Link(ctx, req)
	if err != nil {
		if !engine.IsLimitError(err) {
			return WrapExitError(ExitFailure, "resolution failed", err)
		}
		art = engine.Artifact{Used: []int{}, Status: engine.StatusLimit}
	}

	result := ResolveResult{
		Text:    text,
		Answer:  art.Text(),
		Request: req,
		Tricks:  art.Used,
		Status:  art.Status,
	}
	if result.Tricks == nil {
		result.Tricks = []int{}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, result.Answer)
	fmt.Fprintf(w, "status %s, tricks %v\n", result.Status, result.Tricks)
	return nil
}
