package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/masmgr/ccbuild-go/internal/history"
)

// XMLWriter writes changelogs as the XML changelog file kept with a build.
type XMLWriter struct{}

// XMLChangelog is the root element of the XML changelog.
type XMLChangelog struct {
	XMLName xml.Name   `xml:"changelog"`
	View    string     `xml:"view,attr"`
	Stream  string     `xml:"stream,attr,omitempty"`
	Since   string     `xml:"since,attr,omitempty"`
	Entries []XMLEntry `xml:"entry"`
}

// XMLEntry is one changeset.
type XMLEntry struct {
	Date     string       `xml:"date"`
	User     string       `xml:"user"`
	Comment  string       `xml:"comment"`
	Activity *XMLActivity `xml:"activity,omitempty"`
	Files    []XMLFile    `xml:"file"`
}

// XMLFile is an affected element.
type XMLFile struct {
	Name      string `xml:"name"`
	Version   string `xml:"version"`
	Event     string `xml:"event"`
	Operation string `xml:"operation"`
}

// XMLActivity is an activity tree.
type XMLActivity struct {
	Name          string        `xml:"name,attr"`
	Headline      string        `xml:"headline,omitempty"`
	Stream        string        `xml:"stream,omitempty"`
	Owner         string        `xml:"owner,omitempty"`
	SubActivities []XMLActivity `xml:"activity"`
}

// Write outputs the changelog as XML.
func (w *XMLWriter) Write(report *ChangelogReport, options OutputOptions) error {
	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}
	return EncodeXML(out, report, options.Top)
}

// EncodeXML writes the first top changesets of report as an XML changelog.
func EncodeXML(out io.Writer, report *ChangelogReport, top int) error {
	doc := XMLChangelog{View: report.Tag, Stream: report.Stream}
	if report.Since != nil {
		doc.Since = report.Since.Format(time.RFC3339)
	}
	for _, cs := range limitTop(report.Changesets, top) {
		entry := XMLEntry{
			Date:    cs.When.Format(time.RFC3339),
			User:    cs.Author,
			Comment: cs.Comment,
		}
		if cs.Activity != nil {
			a := xmlActivity(cs.Activity)
			entry.Activity = &a
		} else if cs.ActivityName != "" {
			entry.Activity = &XMLActivity{Name: cs.ActivityName}
		}
		for _, f := range cs.Files {
			entry.Files = append(entry.Files, XMLFile{Name: f.Path, Version: f.Version, Event: f.Event, Operation: f.Operation})
		}
		doc.Entries = append(doc.Entries, entry)
	}

	if _, err := io.WriteString(out, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode XML: %w", err)
	}
	_, err := io.WriteString(out, "\n")
	return err
}

func xmlActivity(a *history.Activity) XMLActivity {
	out := XMLActivity{Name: a.Name, Headline: a.Headline, Stream: a.Stream, Owner: a.Owner}
	for _, sub := range a.SubActivities {
		out.SubActivities = append(out.SubActivities, xmlActivity(sub))
	}
	return out
}
