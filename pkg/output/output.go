// Package output renders gate results and check run listings for terminals.
package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jwalton/go-supportscolor"

	"github.com/vertti/checkgate/pkg/check"
	"github.com/vertti/checkgate/pkg/checkrun"
)

var (
	green  = "\033[32m"
	yellow = "\033[33m"
	red    = "\033[31m"
	dim    = "\033[2m"
	reset  = "\033[0m"
)

func init() {
	if !supportscolor.Stdout().SupportsColor {
		green, yellow, red, dim, reset = "", "", "", "", ""
	}
}

func statusColor(s check.Status) string {
	switch s {
	case check.StatusOK:
		return green
	case check.StatusSkip:
		return yellow
	default:
		return red
	}
}

// formatLabel dims the "label:" prefix of a detail line.
func formatLabel(s string) string {
	label, rest, ok := strings.Cut(s, ":")
	if !ok || dim == "" {
		return s
	}
	return dim + label + ":" + reset + rest
}

// PrintResult writes r with a colored status tag. Details line up under the name.
func PrintResult(w io.Writer, r check.Result) {
	tag := "[" + string(r.Status) + "]"
	fmt.Fprintf(w, "%s%s%s %s\n", statusColor(r.Status), tag, reset, r.Name)

	indent := strings.Repeat(" ", len(tag)+1)
	for _, d := range r.Details {
		fmt.Fprintf(w, "%s%s\n", indent, formatLabel(d))
	}
}

// PrintRuns writes one row per check run in s. Runs the filter leaves out
// are marked instead of hidden.
func PrintRuns(w io.Writer, s checkrun.Snapshot, f checkrun.Filter) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tCONCLUSION\tNOTE")
	for _, r := range s.Runs {
		conclusion := string(r.Conclusion)
		if conclusion == "" {
			conclusion = "-"
		}
		note := ""
		switch {
		case f.SelfJob != "" && r.Name == f.SelfJob:
			note = "self"
		case f.Excludes(r):
			note = "filtered"
		case r.Conclusion.IsError():
			note = red + "blocking" + reset
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Status, conclusion, note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	verdict, subject := checkrun.Aggregate(s, f)
	if subject != "" {
		fmt.Fprintf(w, "\nverdict: %s (%s)\n", verdict, subject)
	} else {
		fmt.Fprintf(w, "\nverdict: %s\n", verdict)
	}
	return nil
}
