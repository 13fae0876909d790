package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/timealgebra/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Config map[string]any    `json:"config,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue locates a single config problem.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.cue>",
		Short: "Validate a config without running it",
		Long: `Resolve a CUE config against the schema and check its constraints
without driving any frames. Prints the resolved config, defaults included.

Exit codes:
  0 - Config is valid
  1 - Config is invalid
  2 - Command error (file not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, configPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	formatter.VerboseLog("Validating %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "config not found", err)
		}
		return outputValidationError(formatter, err)
	}

	return outputValidateSuccess(formatter, cfg)
}

// issueOf converts a load error into a located issue.
func issueOf(err error) ValidationIssue {
	var ce *config.ConfigError
	if !errors.As(err, &ce) {
		return ValidationIssue{Field: "config", Message: err.Error()}
	}
	issue := ValidationIssue{Field: ce.Field, Message: ce.Message}
	if ce.Pos.IsValid() {
		issue.File = ce.Pos.Filename()
		issue.Line = ce.Pos.Line()
		issue.Column = ce.Pos.Column()
	}
	return issue
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, cfg config.Config) error {
	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true, Config: cfg.Object()})
	}

	canonical, err := cfg.Canonical()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode config", err)
	}
	fmt.Fprintln(formatter.Writer, "✓ Config valid")
	fmt.Fprintln(formatter.Writer, canonical)
	return nil
}

// outputValidationError outputs a config error.
func outputValidationError(formatter *OutputFormatter, err error) error {
	issue := issueOf(err)

	if formatter.IsJSON() {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: []ValidationIssue{issue}},
			Error:  &CLIError{Code: ErrCodeConfig, Message: issue.Message},
		}
		if encErr := formatter.Respond(response); encErr != nil {
			return encErr
		}
		// Validation failures = exit code 1 (test/validation failure)
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	if issue.Line > 0 {
		fmt.Fprintf(formatter.Writer, "%s line %d\n", issue.File, issue.Line)
	}
	fmt.Fprintf(formatter.Writer, "  %s: %s\n", issue.Field, issue.Message)

	return WrapExitError(ExitFailure, "validation failed", err)
}
