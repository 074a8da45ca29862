package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// formatTime renders t in local time for tables. The year is dropped for
// timestamps from the current year; the zero time renders as "-".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	t = t.Local()

	if t.Year() == time.Now().Year() {
		return t.Format("Jan _2 15:04")
	}

	return t.Format("Jan _2  2006")
}

// printTable writes headers and rows as space-aligned columns.
func printTable(w io.Writer, headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// field is one "Label: value" line of a detail view.
type field struct {
	label, value string
}

// printFields writes a detail view, skipping fields with empty values.
func printFields(w io.Writer, fields []field) {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	for _, f := range fields {
		if f.value == "" {
			continue
		}

		fmt.Fprintf(tw, "%s:\t%s\n", f.label, f.value)
	}

	tw.Flush()
}
