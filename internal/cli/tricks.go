package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/concha/internal/loader"
	"github.com/roach88/concha/internal/server"
	"github.com/roach88/concha/internal/store"
	"github.com/roach88/concha/internal/trick"
)

// NewTricksCommand groups the commands that inspect tricks.
func NewTricksCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tricks",
		Short: "Validate and list tricks",
	}
	cmd.AddCommand(newTricksValidateCommand(rootOpts))
	cmd.AddCommand(newTricksListCommand(rootOpts))
	return cmd
}

// ValidationProblem is one rejected rule document.
type ValidationProblem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Index   int    `json:"index"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                `json:"valid"`
	Files  int                 `json:"files"`
	Tricks int                 `json:"tricks"`
	Errors []ValidationProblem `json:"errors,omitempty"`
}

func newTricksValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rules-dir>",
		Short: "Validate rule files without serving them",
		Long: `Validate every *.json, *.yaml, *.yml and *.cue rule file below a
directory. All problems are reported, not just the first.

Exit codes:
  0 - All tricks are valid
  1 - One or more tricks were rejected
  2 - Command error (missing directory, no rule files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTricksValidate(rootOpts, args[0], cmd)
		},
	}
}

func runTricksValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result, errs := loader.Load(dir, loader.LoadModeCollectAll)
	if result == nil {
		problem := toProblem(errs[0])
		if err := formatter.Error(problem.Code, problem.Message, nil); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, problem.Message)
	}

	formatter.VerboseLog("Found %d rule file(s) in %s", result.FileCount, dir)

	out := ValidationResult{
		Valid:  len(errs) == 0,
		Files:  result.FileCount,
		Tricks: len(result.Entries),
	}
	for _, err := range errs {
		out.Errors = append(out.Errors, toProblem(err))
	}

	if out.Valid {
		if opts.Format == "json" {
			return formatter.Success(out)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %d trick(s) in %d file(s) valid\n", out.Tricks, out.Files)
		return nil
	}

	if opts.Format == "json" {
		if err := formatter.Error("E_VALIDATION", fmt.Sprintf("%d problem(s) found", len(out.Errors)), out); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, p := range out.Errors {
			fmt.Fprintf(w, "✗ %s\n", formatProblem(p))
		}
		fmt.Fprintf(w, "\n%d problem(s) found\n", len(out.Errors))
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d problem(s) found", len(out.Errors)))
}

func toProblem(err error) ValidationProblem {
	var loadErr *loader.LoadError
	if !errors.As(err, &loadErr) {
		return ValidationProblem{Code: loader.ErrCodeGeneric, Message: err.Error()}
	}
	p := ValidationProblem{
		Code:    loadErr.Code,
		Message: loadErr.Message,
		File:    loadErr.File,
		Index:   loadErr.Index,
	}
	if loadErr.Pos.IsValid() {
		p.Line = loadErr.Pos.Line()
	}
	return p
}

func formatProblem(p ValidationProblem) string {
	switch {
	case p.File == "":
		return fmt.Sprintf("[%s] %s", p.Code, p.Message)
	case p.Line > 0:
		return fmt.Sprintf("%s:%d [%s] %s", p.File, p.Line, p.Code, p.Message)
	default:
		return fmt.Sprintf("%s[%d] [%s] %s", p.File, p.Index, p.Code, p.Message)
	}
}

// TrickSummary describes one stored trick.
type TrickSummary struct {
	ID       int          `json:"id"`
	File     string       `json:"file,omitempty"`
	Method   string       `json:"method,omitempty"`
	Statuses []string     `json:"statuses"`
	Trick    *trick.Trick `json:"trick"`
}

// TricksListOptions holds flags for the tricks list command.
type TricksListOptions struct {
	*RootOptions
	Database string
}

func newTricksListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TricksListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list [rules-dir]",
		Short: "List tricks with the ids they are served under",
		Long: `List the tricks of a rules directory, or with --db the live tricks
of a database log.

Examples:
  concha tricks list ./rules
  concha tricks list --db concha.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 1 && opts.Database == "":
				return runTricksListDir(opts, args[0], cmd)
			case len(args) == 0 && opts.Database != "":
				return runTricksListDB(opts, cmd)
			default:
				return NewExitError(ExitCommandError, "give either a rules directory or --db")
			}
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database to list tricks from")

	return cmd
}

func runTricksListDir(opts *TricksListOptions, dir string, cmd *cobra.Command) error {
	result, errs := loader.Load(dir, loader.LoadModeFailFast)
	if len(errs) > 0 {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load rules from %s", dir), errs[0])
	}
	summaries := make([]TrickSummary, len(result.Entries))
	for i, e := range result.Entries {
		summaries[i] = summarize(i, e.Trick)
		summaries[i].File = e.File
	}
	return outputTrickList(opts.RootOptions, cmd, summaries)
}

func runTricksListDB(opts *TricksListOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	repo := trick.NewRepository()
	if _, err := server.Restore(cmd.Context(), repo, st); err != nil {
		return WrapExitError(ExitCommandError, "failed to restore tricks", err)
	}
	entries := repo.List()
	summaries := make([]TrickSummary, len(entries))
	for i, e := range entries {
		summaries[i] = summarize(e.ID, e.Trick)
	}
	return outputTrickList(opts.RootOptions, cmd, summaries)
}

func summarize(id int, t *trick.Trick) TrickSummary {
	statuses := make([]string, 0, len(t.Then))
	for status := range t.Then {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	return TrickSummary{ID: id, Method: t.Method(), Statuses: statuses, Trick: t}
}

func outputTrickList(opts *RootOptions, cmd *cobra.Command, summaries []TrickSummary) error {
	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(summaries)
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No tricks.")
		return nil
	}
	for _, s := range summaries {
		method := s.Method
		if method == "" {
			method = "-"
		}
		line := fmt.Sprintf("%4d  %-6s  then %s", s.ID, method, strings.Join(s.Statuses, ","))
		if s.File != "" {
			line += "  " + s.File
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
