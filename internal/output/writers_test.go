package output

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
)

func TestJSONWriter_Write(t *testing.T) {
	data := writeReport(t, FormatJSON, OutputOptions{})

	var report JSONChangelog
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.Tag != "build_app" || report.TotalChangesets != 2 || len(report.Changesets) != 2 {
		t.Fatalf("unexpected report header: %+v", report)
	}
	if report.Since == nil || *report.Since != "2024-01-30T00:00:00Z" {
		t.Errorf("since = %v", report.Since)
	}

	first := report.Changesets[0]
	if first.Author != "alice" || first.Date != "2024-01-31T12:00:00Z" || len(first.Files) != 2 {
		t.Errorf("unexpected first changeset: %+v", first)
	}
	if first.Activity == nil || len(first.Activity.SubActivities) != 1 || first.Activity.SubActivities[0].Owner != "alice" {
		t.Errorf("activity tree not written: %+v", first.Activity)
	}
	if report.Changesets[1].Activity != nil {
		t.Errorf("second changeset should have no activity")
	}
}

func TestJSONWriter_Top(t *testing.T) {
	data := writeReport(t, FormatJSON, OutputOptions{Top: 1})

	var report JSONChangelog
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.TotalChangesets != 2 || len(report.Changesets) != 1 {
		t.Errorf("total = %d, written = %d", report.TotalChangesets, len(report.Changesets))
	}
}

func TestXMLWriter_Write(t *testing.T) {
	data := writeReport(t, FormatXML, OutputOptions{})

	if !strings.HasPrefix(data, xml.Header) {
		t.Errorf("missing XML header")
	}

	var doc XMLChangelog
	if err := xml.Unmarshal([]byte(data), &doc); err != nil {
		t.Fatalf("invalid XML: %v", err)
	}
	if doc.View != "build_app" || len(doc.Entries) != 2 {
		t.Fatalf("unexpected document: %+v", doc)
	}

	entry := doc.Entries[0]
	if entry.Comment != "Fix crash | on <exit>\nsecond line" {
		t.Errorf("comment = %q", entry.Comment)
	}
	if len(entry.Files) != 2 || entry.Files[0].Name != "/vobs/app/a.c" || entry.Files[0].Version != "/main/dev/2" {
		t.Errorf("files = %+v", entry.Files)
	}
	if entry.Activity == nil || entry.Activity.Name != "deliver.dev.1" || len(entry.Activity.SubActivities) != 1 {
		t.Errorf("activity = %+v", entry.Activity)
	}
}

func TestCSVWriter_Write(t *testing.T) {
	data := writeReport(t, FormatCSV, OutputOptions{})

	rows, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 4 { // header + 3 files
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[1][2] != "alice" || rows[1][4] != "Fix crash | on <exit>" || rows[1][5] != "/vobs/app/a.c" {
		t.Errorf("unexpected row: %v", rows[1])
	}
	if rows[3][0] != "2" || rows[3][2] != "bob" {
		t.Errorf("unexpected row: %v", rows[3])
	}
}

func TestCIWriter_Write(t *testing.T) {
	data := writeReport(t, FormatCI, OutputOptions{})

	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) != 3 { // 1 summary + 2 changesets
		t.Fatalf("expected 3 lines, got %d: %s", len(lines), data)
	}

	var summary CISummary
	if err := json.Unmarshal([]byte(lines[0]), &summary); err != nil {
		t.Fatalf("invalid summary: %v", err)
	}
	if summary.Type != "summary" || summary.TotalChangesets != 2 || summary.TotalFiles != 3 || summary.Authors != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	var entry CIChangesetEntry
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("invalid entry: %v", err)
	}
	if entry.Type != "changeset" || entry.Activity != "deliver dev" || entry.Comment != "Fix crash | on <exit>" {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestMarkdownWriter_Write(t *testing.T) {
	data := writeReport(t, FormatMarkdown, OutputOptions{ShowFiles: true})

	for _, want := range []string{
		"# Changes in build\\_app",
		"**Total Changesets:** 2",
		"Fix crash \\| on <exit>",
		"`/vobs/app/README@@/main/dev/1` checkin",
	} {
		if !strings.Contains(data, want) {
			t.Errorf("output missing %q:\n%s", want, data)
		}
	}
}

func TestConsoleWriter_Write(t *testing.T) {
	t.Run("Table", func(t *testing.T) {
		data := writeReport(t, FormatConsole, OutputOptions{})
		for _, want := range []string{"View: build_app", "Total changesets: 2", "alice", "deliver dev", "Add docs"} {
			if !strings.Contains(data, want) {
				t.Errorf("output missing %q:\n%s", want, data)
			}
		}
		if strings.Contains(data, "second line") {
			t.Errorf("table should only show the first comment line")
		}
	})

	t.Run("Files", func(t *testing.T) {
		data := writeReport(t, FormatConsole, OutputOptions{ShowFiles: true})
		for _, want := range []string{"/vobs/app/a.c@@/main/dev/2", "second line", "Activity: deliver dev"} {
			if !strings.Contains(data, want) {
				t.Errorf("output missing %q:\n%s", want, data)
			}
		}
	})
}

func TestConsoleWriter_NoChanges(t *testing.T) {
	report := testReport()
	report.Changesets = nil

	path := t.TempDir() + "/out.txt"
	if err := (&ConsoleWriter{}).Write(report, OutputOptions{OutputPath: path}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data := readFile(t, path)
	if !strings.Contains(data, "No changes.") {
		t.Errorf("output missing no-changes message:\n%s", data)
	}
}
