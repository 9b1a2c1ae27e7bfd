// Package cli provides CLI output formatting and display functions.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rowfilter/engine/internal/conditions"
	"github.com/rowfilter/engine/internal/config"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
}

// PrintParseErrors displays parse errors with file locations.
func PrintParseErrors(errors []config.ParseError, opts OutputOptions) {
	fmt.Fprintln(os.Stderr, "✗ Parse errors:")
	for _, err := range errors {
		var location string
		if err.Path != "" {
			location = err.Path
			if err.Line > 0 {
				location += fmt.Sprintf(":%d", err.Line)
				if err.Column > 0 {
					location += fmt.Sprintf(":%d", err.Column)
				}
			}
		}

		if location != "" {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", location, err.Message)
		} else {
			fmt.Fprintf(os.Stderr, "  %s\n", err.Message)
		}

		if opts.Verbose && err.Type != "" {
			fmt.Fprintf(os.Stderr, "    Type: %s\n", err.Type)
		}
	}
}

// PrintValidationErrors displays schema validation errors.
func PrintValidationErrors(errors []config.ValidationError, opts OutputOptions) {
	fmt.Fprintln(os.Stderr, "✗ Validation errors:")
	for _, err := range errors {
		path := err.Path
		if path == "" {
			path = "/"
		}

		if opts.Verbose {
			fmt.Fprintf(os.Stderr, "  %s:\n", path)
			fmt.Fprintf(os.Stderr, "    Message: %s\n", err.Message)
			if err.Type != "" {
				fmt.Fprintf(os.Stderr, "    Type: %s\n", err.Type)
			}
			if err.Expected != "" {
				fmt.Fprintf(os.Stderr, "    Expected: %s\n", err.Expected)
			}
		} else {
			// Compact format
			msg := err.Message
			if len(msg) > 80 {
				msg = msg[:77] + "..."
			}
			fmt.Fprintf(os.Stderr, "  %s: %s\n", path, msg)
		}
	}

	if !opts.Quiet {
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Hint: Use --verbose for detailed error information")
	}
}

// PrintFilterSummary displays the result of a filter run.
func PrintFilterSummary(total, matched int, duration time.Duration, opts OutputOptions) {
	if opts.Quiet {
		return
	}
	fmt.Printf("✓ Filtered %d rows: %d matched, %d excluded\n", total, matched, total-matched)
	if opts.Verbose {
		fmt.Printf("  Duration: %v\n", duration)
	}
}

// PrintConditionList displays the registered condition names and
// operation types.
func PrintConditionList(names []string, ops []conditions.Operation) {
	fmt.Println("Conditions:")
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println("Operations:")
	for _, op := range ops {
		fmt.Printf("  %s\n", op)
	}
}

// PrintSetSummary displays a loaded condition set.
func PrintSetSummary(name string, columns int, opts OutputOptions) {
	if opts.Quiet {
		return
	}
	if name != "" {
		fmt.Printf("  Set: %s (%d columns)\n", name, columns)
	} else {
		fmt.Printf("  Set: %d columns\n", columns)
	}
}
