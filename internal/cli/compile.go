package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fxdispatch/internal/catalog"
	"github.com/roach88/fxdispatch/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	Definitions int
	Categories  int
	Disabled    int
	Hash        string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <catalog-dir>",
		Short: "Compile a CUE animation catalog to JSON",
		Long: `Compile the CUE animation catalog in a directory to canonical JSON.

Every animation, category and preset entry becomes a definition with its
source, secondary and target layers fully specified. The JSON output can be
passed to dispatch and serve in place of the CUE directory.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, catalogDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := catalog.LoadDir(catalogDir, catalog.LoadModeCollectAll)

	// Directory not found, no files, CUE build failure.
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseLoadError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, catalogDir)
	for _, def := range loadResult.Catalog.Definitions {
		formatter.VerboseLog("Compiled %s", def.ID)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	cat := loadResult.Catalog
	stats := calculateStats(cat)

	if opts.Output != "" {
		if err := writeCatalogToFile(cat, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, catalog.ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, cat, stats, opts.Output)
}

func calculateStats(cat ir.Catalog) CompilationStats {
	stats := CompilationStats{
		Definitions: len(cat.Definitions),
		Categories:  len(cat.Categories),
		Hash:        ir.MustCatalogHash(cat),
	}
	for _, def := range cat.Definitions {
		if !def.Enabled {
			stats.Disabled++
		}
	}
	return stats
}

func outputCompileSuccess(formatter *OutputFormatter, cat ir.Catalog, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: cat})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d definition(s), %d category(ies)\n\n", stats.Definitions, stats.Categories)

	fmt.Fprintln(w, "Definitions:")
	for _, def := range cat.Definitions {
		suffix := ""
		if !def.Enabled {
			suffix = " (disabled)"
		}
		fmt.Fprintf(w, "  %s: %s [%s]%s\n", def.ID, def.Menu, strings.Join(layerNames(def.Layers), ", "), suffix)
	}
	fmt.Fprintln(w)

	if len(cat.Categories) > 0 {
		fmt.Fprintln(w, "Categories:")
		for _, c := range cat.Categories {
			fmt.Fprintf(w, "  %s: %d member(s)\n", c.Name, len(c.Members))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Catalog hash: %s\n", stats.Hash)
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote catalog to %s\n", outputFile)
	}
	return nil
}

func layerNames(l ir.Layers) []string {
	var names []string
	if l.Source != nil {
		names = append(names, "source")
	}
	if l.Secondary != nil {
		names = append(names, "secondary")
	}
	if l.Target != nil {
		names = append(names, "target")
	}
	return names
}

func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseLoadError(err)
		var loadErr *catalog.LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *catalog.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return catalog.ErrCodeGeneric, err.Error()
}

func writeCatalogToFile(cat ir.Catalog, filename string) error {
	data, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
