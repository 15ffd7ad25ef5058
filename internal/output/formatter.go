package output

import (
	"io"
	"time"

	"github.com/masmgr/ccbuild-go/internal/history"
)

// Compile-time interface conformance checks.
var (
	_ ChangelogWriter = (*ConsoleWriter)(nil)
	_ ChangelogWriter = (*JSONWriter)(nil)
	_ ChangelogWriter = (*XMLWriter)(nil)
	_ ChangelogWriter = (*CSVWriter)(nil)
	_ ChangelogWriter = (*MarkdownWriter)(nil)
	_ ChangelogWriter = (*CIWriter)(nil)
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatConsole  OutputFormat = "console"
	FormatJSON     OutputFormat = "json"
	FormatXML      OutputFormat = "xml"
	FormatCSV      OutputFormat = "csv"
	FormatMarkdown OutputFormat = "markdown"
	FormatCI       OutputFormat = "ci"
)

// OutputOptions controls output behavior.
type OutputOptions struct {
	Format     OutputFormat
	Top        int
	OutputPath string
	ShowFiles  bool      // console and markdown only; the other formats always list files
	Stdout     io.Writer // used when OutputPath is empty; default os.Stdout
}

// ChangelogReport is the changelog of one build of a view.
type ChangelogReport struct {
	Tag         string
	Stream      string
	Since       *time.Time
	Until       time.Time
	GeneratedAt time.Time
	Changesets  []history.Changeset
}

// ChangelogWriter writes changelog reports.
type ChangelogWriter interface {
	Write(report *ChangelogReport, options OutputOptions) error
}

// NewChangelogWriter creates a changelog writer for the specified format.
func NewChangelogWriter(format OutputFormat) ChangelogWriter {
	switch format {
	case FormatJSON:
		return &JSONWriter{}
	case FormatXML:
		return &XMLWriter{}
	case FormatCSV:
		return &CSVWriter{}
	case FormatMarkdown:
		return &MarkdownWriter{}
	case FormatCI:
		return &CIWriter{}
	default:
		return &ConsoleWriter{}
	}
}
