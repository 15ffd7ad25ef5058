package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/masmgr/ccbuild-go/internal/history"
)

// JSONWriter writes changelogs as JSON.
type JSONWriter struct{}

// JSONChangelog is the JSON output structure of a changelog.
type JSONChangelog struct {
	Tag             string          `json:"view"`
	Stream          string          `json:"stream,omitempty"`
	Since           *string         `json:"since,omitempty"`
	Until           string          `json:"until"`
	GeneratedAt     string          `json:"generatedAt"`
	TotalChangesets int             `json:"totalChangesets"`
	Changesets      []JSONChangeset `json:"changesets"`
}

// JSONChangeset is the JSON output structure of a single changeset.
type JSONChangeset struct {
	Author   string        `json:"author"`
	Comment  string        `json:"comment"`
	Date     string        `json:"date"`
	Activity *JSONActivity `json:"activity,omitempty"`
	Files    []JSONFile    `json:"files"`
}

// JSONFile is an affected element in JSON format.
type JSONFile struct {
	Path      string `json:"path"`
	Version   string `json:"version"`
	Event     string `json:"event"`
	Operation string `json:"operation"`
}

// JSONActivity is an activity tree in JSON format.
type JSONActivity struct {
	Name          string          `json:"name"`
	Headline      string          `json:"headline,omitempty"`
	Stream        string          `json:"stream,omitempty"`
	Owner         string          `json:"owner,omitempty"`
	SubActivities []*JSONActivity `json:"subActivities,omitempty"`
}

// Write outputs the changelog as JSON.
func (w *JSONWriter) Write(report *ChangelogReport, options OutputOptions) error {
	changesets := limitTop(report.Changesets, options.Top)

	items := make([]JSONChangeset, len(changesets))
	for i, cs := range changesets {
		files := make([]JSONFile, len(cs.Files))
		for j, f := range cs.Files {
			files[j] = JSONFile{Path: f.Path, Version: f.Version, Event: f.Event, Operation: f.Operation}
		}
		items[i] = JSONChangeset{
			Author:   cs.Author,
			Comment:  cs.Comment,
			Date:     cs.When.Format(time.RFC3339),
			Activity: jsonActivity(cs.Activity),
			Files:    files,
		}
		if items[i].Activity == nil && cs.ActivityName != "" {
			items[i].Activity = &JSONActivity{Name: cs.ActivityName}
		}
	}

	return writeJSON(JSONChangelog{
		Tag:             report.Tag,
		Stream:          report.Stream,
		Since:           formatSinceDate(report.Since),
		Until:           report.Until.Format(time.RFC3339),
		GeneratedAt:     report.GeneratedAt.Format(time.RFC3339),
		TotalChangesets: len(report.Changesets),
		Changesets:      items,
	}, options)
}

func jsonActivity(a *history.Activity) *JSONActivity {
	if a == nil {
		return nil
	}
	out := &JSONActivity{Name: a.Name, Headline: a.Headline, Stream: a.Stream, Owner: a.Owner}
	for _, sub := range a.SubActivities {
		out.SubActivities = append(out.SubActivities, jsonActivity(sub))
	}
	return out
}

func writeJSON(data interface{}, options OutputOptions) error {
	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
