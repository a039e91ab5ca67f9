package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fxdispatch/internal/catalog"
	"github.com/roach88/fxdispatch/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.OverlapWarning  `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog-dir>",
		Short: "Validate a catalog without writing output",
		Long: `Validate the CUE animation catalog in a directory.

Reports entries that fail to compile, definitions that can never play
(no layers, missing files, bad ranges, duplicates) and item names claimed by
more than one category. Category overlaps are warnings: the first declared
category wins.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, catalogDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := catalog.LoadDir(catalogDir, catalog.LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseLoadError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, catalogDir)

	result := ValidationResult{}
	for _, err := range loadErrors {
		code, message := parseLoadError(err)
		line := 0
		var le *catalog.LoadError
		if errors.As(err, &le) && le.Pos.IsValid() {
			line = le.Pos.Line()
		}
		result.Errors = append(result.Errors, compiler.ValidationError{
			Field:   "load",
			Message: message,
			Code:    code,
			Line:    line,
		})
	}
	result.Errors = append(result.Errors, compiler.Validate(&loadResult.Catalog)...)

	for _, w := range compiler.AnalyzeOverlaps(loadResult.Catalog.Categories) {
		if w.Level == "warning" || opts.Verbose {
			result.Warnings = append(result.Warnings, w)
		}
	}
	result.Valid = len(result.Errors) == 0

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    result.Errors[0].Code,
				Message: fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)),
			}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		outputValidationText(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}

func outputValidationText(formatter *OutputFormatter, result ValidationResult) {
	w := formatter.Writer

	if result.Valid {
		fmt.Fprintln(w, "✓ Catalog is valid")
	} else {
		fmt.Fprintf(w, "✗ Validation failed with %d error(s)\n\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%d overlap(s):\n", len(result.Warnings))
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "  %s: %s\n", warn.Level, warn.Message)
		}
	}
}
