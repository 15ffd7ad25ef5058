package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/masmgr/ccbuild-go/internal/history"
)

// ConsoleWriter writes changelogs to the console.
type ConsoleWriter struct{}

// Write outputs the changelog to the console.
func (w *ConsoleWriter) Write(report *ChangelogReport, options OutputOptions) error {
	changesets := limitTop(report.Changesets, options.Top)

	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	color.New(color.FgGreen).Fprintln(out, "Changes")
	fmt.Fprintf(out, "View: %s\n", report.Tag)
	if report.Stream != "" {
		fmt.Fprintf(out, "Stream: %s\n", report.Stream)
	}
	label, value := dateRangeLabelAndValue(report.Since, report.Until)
	fmt.Fprintf(out, "%s: %s\n", label, value)
	fmt.Fprintf(out, "Total changesets: %d\n\n", len(report.Changesets))

	if len(changesets) == 0 {
		color.New(color.FgYellow).Fprintln(out, "No changes.")
		return nil
	}

	if options.ShowFiles {
		for i, cs := range changesets {
			writeConsoleChangeset(out, i+1, cs)
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDate\tAuthor\tFiles\tActivity\tComment")
	for i, cs := range changesets {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			i+1,
			cs.When.Format(reportDateTimeLayout),
			cs.Author,
			len(cs.Files),
			activityLabel(cs),
			truncateMessage(firstLine(cs.Comment), 60),
		)
	}
	return tw.Flush()
}

func writeConsoleChangeset(out io.Writer, n int, cs history.Changeset) {
	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(out, "%d. %s  %s\n", n, cs.When.Format(reportDateTimeLayout), cs.Author)
	if label := activityLabel(cs); label != "" {
		fmt.Fprintf(out, "   Activity: %s\n", label)
	}
	for _, line := range strings.Split(strings.TrimRight(cs.Comment, "\n"), "\n") {
		fmt.Fprintf(out, "   %s\n", line)
	}
	for _, f := range cs.Files {
		fmt.Fprintf(out, "     %s %s (%s)\n", getOperationColor(f.Operation)("%-8s", f.Operation), f.Path+"@@"+f.Version, f.Event)
	}
	fmt.Fprintln(out)
}

func activityLabel(cs history.Changeset) string {
	if cs.Activity != nil {
		if cs.Activity.Headline != "" {
			return cs.Activity.Headline
		}
		return cs.Activity.Name
	}
	return cs.ActivityName
}

// truncateMessage truncates a message to maxLen characters, adding "..." if truncated.
func truncateMessage(msg string, maxLen int) string {
	if len(msg) <= maxLen {
		return msg
	}
	return msg[:maxLen-3] + "..."
}

// getOperationColor returns the color function for an operation kind.
func getOperationColor(operation string) func(string, ...interface{}) string {
	switch operation {
	case "checkin", "mkelem":
		return color.GreenString
	case "rmname", "rmelem", "rmver":
		return color.RedString
	case "mkbranch", "mklabel":
		return color.CyanString
	default:
		return color.YellowString
	}
}
