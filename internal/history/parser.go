package history

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultDelimiter separates the fields of a record header.
	DefaultDelimiter = "|#|"

	// dateLayout is the layout of the %Nd field.
	dateLayout = "20060102.150405"

	toolErrorPrefix   = "cleartool: Error:"
	toolWarningPrefix = "cleartool: Warning:"
)

// headerFields are the per-record fields, in output order. The comment
// follows on the next lines.
var headerFields = []string{"%Nd", "%u", "%En", "%Vn", "%e", "%o", "%[activity]Xp"}

// DefaultBenignErrors are tool messages that show up in otherwise successful
// output when a path or branch type does not exist in some VOB.
var DefaultBenignErrors = []string{
	"Branch type not found",
	"Not a vob object",
	"not within a VOB",
}

// ParseResult is the outcome of a Parse call.
type ParseResult struct {
	Records []Record
	Skipped int // malformed fragments and unknown tool messages
	Benign  int // known harmless tool messages
}

// Parser reads history records written with Format.
type Parser struct {
	delimiter string
	benign    []string
	location  *time.Location
}

// NewParser creates a parser. Empty arguments select the defaults.
func NewParser(delimiter string, benign []string, location *time.Location) *Parser {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if benign == nil {
		benign = DefaultBenignErrors
	}
	if location == nil {
		location = time.Local
	}
	return &Parser{delimiter: delimiter, benign: benign, location: location}
}

// Format returns the output format to request from the history query.
func (p *Parser) Format() string {
	return strings.Join(headerFields, p.delimiter) + `\n%c\n`
}

// Parse reads records from r. Bad fragments are skipped and counted; only
// read errors are returned.
func (p *Parser) Parse(r io.Reader) (ParseResult, error) {
	var (
		result   ParseResult
		current  *Record
		comment  []string
		skipping bool
	)

	flush := func() {
		if current != nil {
			current.Comment = strings.TrimRight(strings.Join(comment, "\n"), " \t\n")
			result.Records = append(result.Records, *current)
		}
		current = nil
		comment = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		// Inside a comment only known messages are taken for tool output.
		if isToolMessage(line) && (current == nil || skipping || p.IsBenign(line)) {
			if p.IsBenign(line) {
				result.Benign++
				log.Debug().Str("line", line).Msg("Ignoring benign history message")
			} else {
				result.Skipped++
				log.Warn().Str("line", line).Msg("Skipping unexpected history message")
			}
			continue
		}

		if fields := strings.Split(line, p.delimiter); len(fields) == len(headerFields) {
			flush()
			rec, err := p.parseHeader(fields)
			if err != nil {
				result.Skipped++
				skipping = true
				log.Warn().Err(err).Str("line", line).Msg("Skipping malformed history record")
				continue
			}
			current = &rec
			skipping = false
			continue
		}

		if skipping || current == nil {
			continue
		}
		comment = append(comment, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("read history: %w", err)
	}
	return result, nil
}

func (p *Parser) parseHeader(fields []string) (Record, error) {
	when, err := time.ParseInLocation(dateLayout, strings.TrimSpace(fields[0]), p.location)
	if err != nil {
		return Record{}, fmt.Errorf("parse record date: %w", err)
	}
	path := strings.TrimSpace(fields[2])
	if path == "" {
		return Record{}, fmt.Errorf("record without element path")
	}
	return Record{
		When:      when,
		Author:    strings.TrimSpace(fields[1]),
		Path:      path,
		Version:   strings.TrimSpace(fields[3]),
		Event:     strings.TrimSpace(fields[4]),
		Operation: strings.TrimSpace(fields[5]),
		Activity:  strings.TrimSpace(fields[6]),
	}, nil
}

// IsBenign reports whether line is a known harmless tool message.
func (p *Parser) IsBenign(line string) bool {
	for _, b := range p.benign {
		if strings.Contains(line, b) {
			return true
		}
	}
	return false
}

// OnlyBenignErrors reports whether every tool error in out is benign.
func (p *Parser) OnlyBenignErrors(out string) bool {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, toolErrorPrefix) && !p.IsBenign(line) {
			return false
		}
	}
	return true
}

func isToolMessage(line string) bool {
	return strings.HasPrefix(line, toolErrorPrefix) || strings.HasPrefix(line, toolWarningPrefix)
}
