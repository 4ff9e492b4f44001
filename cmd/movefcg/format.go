package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jward/movefcg"
)

// outputQuery writes a single query result. JSON mode emits the result
// object itself, not a CLIResult envelope.
func outputQuery(w io.Writer, res *movefcg.QueryResult) error {
	if flagFormat == "text" {
		formatResultText(w, res.JSON())
		return nil
	}
	return writeJSON(w, res)
}

// outputResult marshals a CLIResult in the selected format.
func outputResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	return writeJSON(w, result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	_ = writeJSON(os.Stdout, CLIResult{Command: command, Error: err.Error()})
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatResultText prints a query result as a header block followed by an
// aligned call table.
func formatResultText(w io.Writer, r movefcg.ResultJSON) {
	params := make([]string, 0, len(r.Parameters))
	for _, p := range r.Parameters {
		params = append(params, p.Name+": "+p.Type)
	}
	fmt.Fprintf(w, "Function: %s\n", r.Function)
	fmt.Fprintf(w, "Contract: %s\n", r.Contract)
	fmt.Fprintf(w, "Location: %s:%d-%d\n", r.Location.File, r.Location.StartLine, r.Location.EndLine)
	fmt.Fprintf(w, "Parameters: %s\n", strings.Join(params, ", "))
	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Source)
	fmt.Fprintln(w)

	if len(r.Calls) == 0 {
		fmt.Fprintln(w, "Calls: none")
		return
	}
	fmt.Fprintf(w, "Calls (%d):\n", len(r.Calls))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  FUNCTION\tMODULE\tFILE")
	for _, c := range r.Calls {
		file := c.File
		if file == "" {
			file = "(unresolved)"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.Function, c.Module, file)
	}
	tw.Flush()
}

func formatSummaryText(w io.Writer, s CLIIndexSummary) {
	fmt.Fprintf(w, "Package: %s\n", s.Package)
	fmt.Fprintf(w, "Root: %s\n", s.Root)
	fmt.Fprintf(w, "Files: %d\n", s.Files)
	fmt.Fprintf(w, "Modules: %d\n", s.Modules)
	fmt.Fprintf(w, "Functions: %d\n", s.Functions)
	if s.Snapshot != "" {
		fmt.Fprintf(w, "Snapshot: %s\n", s.Snapshot)
	}

	if len(s.Dependencies) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Dependencies:")
		for _, d := range s.Dependencies {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
	if len(s.Diagnostics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Diagnostics:")
		for _, d := range s.Diagnostics {
			if d.File != "" {
				fmt.Fprintf(w, "  %s %s: %s\n", d.Kind, d.File, d.Message)
			} else {
				fmt.Fprintf(w, "  %s: %s\n", d.Kind, d.Message)
			}
		}
	}
}

func formatModulesText(w io.Writer, mods []CLIModule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tFILE\tLINES\tFUNCTIONS\tSTRUCTS")
	for _, m := range mods {
		fmt.Fprintf(tw, "%s\t%s\t%d-%d\t%d\t%d\n",
			m.Key, m.File, m.StartLine, m.EndLine, m.Functions, m.Structs)
	}
	tw.Flush()
}

func formatFunctionsText(w io.Writer, fns []CLIFunction) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVISIBILITY\tMODIFIERS\tFILE\tLINES")
	for _, f := range fns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d-%d\n",
			f.QualifiedName, f.Visibility, strings.Join(f.Modifiers, ","), f.File, f.StartLine, f.EndLine)
	}
	tw.Flush()
}

func formatBatchText(w io.Writer, entries []CLIBatchEntry) {
	for i, e := range entries {
		if i > 0 {
			fmt.Fprintln(w, strings.Repeat("-", 40))
		}
		if e.Error != "" {
			fmt.Fprintf(w, "%s: %s\n", e.Query, e.Error)
			continue
		}
		formatResultText(w, *e.Result)
	}
}

// outputResultText dispatches to the text formatter for the result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLIIndexSummary:
		formatSummaryText(w, v)
	case []CLIModule:
		formatModulesText(w, v)
	case []CLIFunction:
		formatFunctionsText(w, v)
	case []CLIBatchEntry:
		formatBatchText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
