// Package main provides the CLI entry point for the rowfilter engine.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rowfilter/engine/internal/cli"
	"github.com/rowfilter/engine/internal/conditions"
	"github.com/rowfilter/engine/internal/config"
	"github.com/rowfilter/engine/internal/logger"
	"github.com/rowfilter/engine/internal/pathutil"
	"github.com/rowfilter/engine/internal/persistence"
	"github.com/rowfilter/engine/internal/registry"
	"github.com/rowfilter/engine/pkg/filtering"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
)

var (
	// Global flags
	verbose bool
	quiet   bool

	// Filter command flags
	inputPath  string
	outputPath string
	setID      string

	// Sets command flags
	dataDir string

	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitRuntimeError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rowfilter",
	Short: "Rowfilter - Condition-based row filtering engine",
	Long: `Rowfilter evaluates per-column filter conditions against rows of data.

Condition sets are declared in JSON or YAML files, validated against a
schema, and applied to rows read from a file or stdin. A row matches when
the cell of every filtered column satisfies that column's conditions.

Examples:
  # Validate a condition-set file
  rowfilter validate conditions.json

  # Filter rows from a file
  rowfilter filter conditions.yaml --input rows.json

  # List available condition types
  rowfilter conditions`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Configure logger level based on flags
		if verbose {
			logger.SetLevel(slog.LevelDebug)
		} else if quiet {
			logger.SetLevel(slog.LevelError)
		}
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <conditions-file>",
	Short: "Validate a condition-set file",
	Long: `Validate a condition-set file against the schema.

Supports both JSON and YAML formats. The format is auto-detected
based on file extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Condition set is valid
  1 - Validation errors (schema violations)
  2 - Parse errors (invalid JSON/YAML syntax)

Examples:
  rowfilter validate conditions.json
  rowfilter validate conditions.yaml
  rowfilter validate --verbose conditions.json`,
	Args: cobra.ExactArgs(1),
	Run:  runValidate,
}

var filterCmd = &cobra.Command{
	Use:   "filter [conditions-file]",
	Short: "Filter rows with a condition set",
	Long: `Filter rows of data with a condition set.

The condition set comes from a file argument or from a stored set
(--set). Rows are read as a JSON or YAML array of objects from --input
(or stdin when omitted); matching rows are written as JSON to --output
(or stdout).

Exit codes:
  0 - Rows filtered successfully
  1 - Validation errors
  2 - Parse errors
  3 - Runtime errors

Examples:
  rowfilter filter conditions.json --input rows.json
  rowfilter filter conditions.yaml --input rows.yaml --output matched.json
  rowfilter filter --set active-users --input rows.json`,
	Args: cobra.MaximumNArgs(1),
	Run:  runFilter,
}

var conditionsCmd = &cobra.Command{
	Use:   "conditions",
	Short: "List registered condition and operation types",
	Long:  "List all condition names and operation types known to the engine.",
	Run:   runConditions,
}

var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "Manage stored condition sets",
	Long:  "Save, list, and delete condition sets in the local set store.",
}

var setsSaveCmd = &cobra.Command{
	Use:   "save <conditions-file> <set-id>",
	Short: "Validate and store a condition set under an ID",
	Args:  cobra.ExactArgs(2),
	Run:   runSetsSave,
}

var setsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored condition sets",
	Args:  cobra.NoArgs,
	Run:   runSetsList,
}

var setsDeleteCmd = &cobra.Command{
	Use:   "delete <set-id>",
	Short: "Delete a stored condition set",
	Args:  cobra.ExactArgs(1),
	Run:   runSetsDelete,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version, commit hash, and build date information.",
	Run:   runVersion,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	// Filter command flags
	filterCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Rows file (JSON/YAML array of objects); stdin when omitted")
	filterCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file for matching rows; stdout when omitted")
	filterCmd.Flags().StringVar(&setID, "set", "", "Load the condition set from the set store by ID")

	// Sets command flags
	setsCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Set store directory (default "+persistence.DefaultStorePath+")")
	filterCmd.Flags().StringVar(&dataDir, "data-dir", "", "Set store directory used with --set")

	setsCmd.AddCommand(setsSaveCmd)
	setsCmd.AddCommand(setsListCmd)
	setsCmd.AddCommand(setsDeleteCmd)

	// Add commands
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(conditionsCmd)
	rootCmd.AddCommand(setsCmd)
	rootCmd.AddCommand(versionCmd)
}

func outputOptions() cli.OutputOptions {
	return cli.OutputOptions{Verbose: verbose, Quiet: quiet}
}

func runValidate(_ *cobra.Command, args []string) {
	setPath := args[0]

	if !quiet {
		fmt.Printf("Validating condition set: %s\n", setPath)
	}

	set, ok := loadConditionSetFile(setPath)
	if !ok {
		return // loadConditionSetFile exits on error
	}

	if !quiet {
		fmt.Printf("✓ Condition set is valid\n")
		if verbose {
			cli.PrintSetSummary(set.Name, len(set.Columns), outputOptions())
		}
	}

	os.Exit(ExitSuccess)
}

func runFilter(_ *cobra.Command, args []string) {
	var set *filtering.ConditionSet

	switch {
	case setID != "":
		store := persistence.NewSetStore(dataDir)
		loaded, err := store.Load(setID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ Failed to load set %q: %v\n", setID, err)
			os.Exit(ExitRuntimeError)
		}
		if loaded == nil {
			fmt.Fprintf(os.Stderr, "✗ No stored set named %q\n", setID)
			os.Exit(ExitRuntimeError)
		}
		set = loaded
	case len(args) == 1:
		loaded, ok := loadConditionSetFile(args[0])
		if !ok {
			return
		}
		set = loaded
	default:
		fmt.Fprintln(os.Stderr, "✗ A conditions file or --set is required")
		os.Exit(ExitRuntimeError)
	}

	store, err := buildStore(set)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to build condition store: %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	rows, err := loadRows(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to read rows: %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	started := time.Now()
	matched := filterRows(store, rows)
	duration := time.Since(started)

	if err := writeRows(outputPath, matched); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to write rows: %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	cli.PrintFilterSummary(len(rows), len(matched), duration, outputOptions())
	os.Exit(ExitSuccess)
}

func runConditions(_ *cobra.Command, _ []string) {
	cli.PrintConditionList(registry.ListConditionNames(), registry.ListOperationTypes())
}

func runSetsSave(_ *cobra.Command, args []string) {
	setPath, id := args[0], args[1]

	set, ok := loadConditionSetFile(setPath)
	if !ok {
		return
	}

	// Round trip through a store so stored sets carry normalized
	// arguments and have passed operation and condition-name validation.
	store, err := buildStore(set)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Invalid condition set: %v\n", err)
		os.Exit(ExitRuntimeError)
	}
	set.Columns = store.ExportAllConditions()

	setStore := persistence.NewSetStore(dataDir)
	if err := setStore.Save(id, set); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to save set %q: %v\n", id, err)
		os.Exit(ExitRuntimeError)
	}

	if !quiet {
		fmt.Printf("✓ Saved condition set %q (%d columns)\n", id, len(set.Columns))
	}
	os.Exit(ExitSuccess)
}

func runSetsList(_ *cobra.Command, _ []string) {
	setStore := persistence.NewSetStore(dataDir)
	ids, err := setStore.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to list sets: %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	if len(ids) == 0 {
		if !quiet {
			fmt.Println("No stored condition sets")
		}
		os.Exit(ExitSuccess)
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	os.Exit(ExitSuccess)
}

func runSetsDelete(_ *cobra.Command, args []string) {
	id := args[0]

	setStore := persistence.NewSetStore(dataDir)
	if err := setStore.Delete(id); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to delete set %q: %v\n", id, err)
		os.Exit(ExitRuntimeError)
	}

	if !quiet {
		fmt.Printf("✓ Deleted condition set %q\n", id)
	}
	os.Exit(ExitSuccess)
}

func runVersion(_ *cobra.Command, _ []string) {
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// loadConditionSetFile parses, validates, and converts a condition-set
// file, exiting with the appropriate code on failure.
func loadConditionSetFile(setPath string) (*filtering.ConditionSet, bool) {
	if err := pathutil.ValidateFilePath(setPath); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Invalid path: %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	result := config.ParseConditionSet(setPath)

	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(result.ParseErrors, outputOptions())
		os.Exit(ExitParseError)
	}
	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(result.ValidationErrors, outputOptions())
		os.Exit(ExitValidationError)
	}

	set, err := config.ConvertToConditionSet(result.Data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to convert condition set: %v\n", err)
		os.Exit(ExitRuntimeError)
	}
	return set, true
}

// buildStore creates a condition store backed by the default registries
// and imports the set's condition records into it.
func buildStore(set *filtering.ConditionSet) (*conditions.Store, error) {
	store, err := conditions.NewStore(registry.ConditionResolver{}, registry.OperationResolver{})
	if err != nil {
		return nil, err
	}
	if err := store.ImportAllConditions(set.Columns); err != nil {
		return nil, err
	}
	return store, nil
}

// filterRows returns the rows whose cells satisfy every tracked column's
// conditions. Cell extraction is by column identifier; a missing cell
// evaluates as nil.
func filterRows(store *conditions.Store, rows []map[string]any) []map[string]any {
	matched := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if rowMatches(store, row) {
			matched = append(matched, row)
		}
	}
	return matched
}

// rowMatches reports whether every tracked column's cell satisfies that
// column's conditions.
func rowMatches(store *conditions.Store, row map[string]any) bool {
	for _, column := range store.Columns() {
		if !store.IsMatchColumn(row[column], column) {
			return false
		}
	}
	return true
}

// loadRows reads a JSON or YAML array of row objects from a file, or from
// stdin when path is empty or "-".
func loadRows(path string) ([]map[string]any, error) {
	var content []byte
	var err error

	if path == "" || path == "-" {
		content, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
	} else {
		if err := pathutil.ValidateFilePath(path); err != nil {
			return nil, err
		}
		content, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading rows file: %w", err)
		}
	}

	return parseRows(content)
}

// parseRows decodes a JSON or YAML array of objects.
func parseRows(content []byte) ([]map[string]any, error) {
	var rows []map[string]any

	if config.IsJSON(string(content)) {
		if err := json.Unmarshal(content, &rows); err != nil {
			return nil, fmt.Errorf("parsing JSON rows: %w", err)
		}
		return rows, nil
	}

	if err := yaml.Unmarshal(content, &rows); err != nil {
		return nil, fmt.Errorf("parsing YAML rows: %w", err)
	}
	return rows, nil
}

// writeRows writes rows as indented JSON to a file, or stdout when path
// is empty.
func writeRows(path string, rows []map[string]any) error {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling rows: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := pathutil.ValidateFilePath(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
