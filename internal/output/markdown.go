package output

import (
	"fmt"
	"strings"
)

// MarkdownWriter writes changelogs as Markdown.
type MarkdownWriter struct{}

// Write outputs the changelog as Markdown.
func (w *MarkdownWriter) Write(report *ChangelogReport, options OutputOptions) error {
	changesets := limitTop(report.Changesets, options.Top)

	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	fmt.Fprintf(out, "# Changes in %s\n\n", escapeMarkdown(report.Tag))
	if report.Stream != "" {
		fmt.Fprintf(out, "**Stream:** %s\n\n", escapeMarkdown(report.Stream))
	}
	label, value := dateRangeLabelAndValue(report.Since, report.Until)
	fmt.Fprintf(out, "**%s:** %s\n\n", label, value)
	fmt.Fprintf(out, "**Total Changesets:** %d\n\n", len(report.Changesets))

	if len(changesets) == 0 {
		fmt.Fprintln(out, "No changes.")
		return nil
	}

	fmt.Fprintln(out, "| # | Date | Author | Files | Activity | Comment |")
	fmt.Fprintln(out, "|---|------|--------|-------|----------|---------|")
	for i, cs := range changesets {
		fmt.Fprintf(out, "| %d | %s | %s | %d | %s | %s |\n",
			i+1, cs.When.Format(reportDateTimeLayout), escapeMarkdown(cs.Author), len(cs.Files),
			escapeMarkdown(activityLabel(cs)), escapeMarkdown(firstLine(cs.Comment)))
	}

	if options.ShowFiles {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "## Files")
		for i, cs := range changesets {
			fmt.Fprintf(out, "\n### %d. %s\n\n", i+1, escapeMarkdown(firstLine(cs.Comment)))
			for _, f := range cs.Files {
				fmt.Fprintf(out, "- `%s@@%s` %s\n", f.Path, f.Version, f.Operation)
			}
		}
	}
	return nil
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"|", "\\|",
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
