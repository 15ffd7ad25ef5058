package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// CIWriter writes changelogs as NDJSON (one JSON object per line) for CI pipelines.
type CIWriter struct{}

// CISummary is the first line of CI output, containing aggregate statistics.
type CISummary struct {
	Type            string `json:"type"`
	View            string `json:"view"`
	TotalChangesets int    `json:"totalChangesets"`
	TotalFiles      int    `json:"totalFiles"`
	Authors         int    `json:"authors"`
}

// CIChangesetEntry represents a single changeset in CI output.
type CIChangesetEntry struct {
	Type     string `json:"type"`
	Date     string `json:"date"`
	Author   string `json:"author"`
	Comment  string `json:"comment"`
	Activity string `json:"activity,omitempty"`
	Files    int    `json:"files"`
}

// Write outputs the changelog as NDJSON.
func (w *CIWriter) Write(report *ChangelogReport, options OutputOptions) error {
	changesets := limitTop(report.Changesets, options.Top)

	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	authors := make(map[string]struct{})
	files := 0
	for _, cs := range changesets {
		authors[cs.Author] = struct{}{}
		files += len(cs.Files)
	}

	summary := CISummary{
		Type:            "summary",
		View:            report.Tag,
		TotalChangesets: len(changesets),
		TotalFiles:      files,
		Authors:         len(authors),
	}
	if err := writeNDJSONLine(out, summary); err != nil {
		return err
	}

	for _, cs := range changesets {
		entry := CIChangesetEntry{
			Type:     "changeset",
			Date:     cs.When.Format(time.RFC3339),
			Author:   cs.Author,
			Comment:  firstLine(cs.Comment),
			Activity: activityLabel(cs),
			Files:    len(cs.Files),
		}
		if err := writeNDJSONLine(out, entry); err != nil {
			return err
		}
	}
	return nil
}

func writeNDJSONLine(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal NDJSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
