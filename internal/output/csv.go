package output

import (
	"encoding/csv"
	"fmt"
	"os"
)

// CSVWriter writes changelogs as CSV, one row per affected element.
type CSVWriter struct{}

// Write outputs the changelog as CSV.
func (w *CSVWriter) Write(report *ChangelogReport, options OutputOptions) error {
	changesets := limitTop(report.Changesets, options.Top)

	writer, file, err := createCSVWriter(options)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	headers := []string{"Changeset", "Date", "Author", "Activity", "Comment", "Path", "Version", "Event", "Operation"}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for i, cs := range changesets {
		for _, f := range cs.Files {
			row := []string{
				fmt.Sprintf("%d", i+1),
				cs.When.Format(reportDateTimeLayout),
				cs.Author,
				activityLabel(cs),
				firstLine(cs.Comment),
				f.Path,
				f.Version,
				f.Event,
				f.Operation,
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func createCSVWriter(options OutputOptions) (*csv.Writer, *os.File, error) {
	out, file, err := openOutputWriter(options)
	if err != nil {
		return nil, nil, err
	}
	return csv.NewWriter(out), file, nil
}
