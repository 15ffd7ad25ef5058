// Package configspec implements the text operations the build needs on view
// configuration specs: load-rule extraction and replacement, time freezing of
// LATEST selection rules, and comparison modulo line endings.
package configspec

import (
	"regexp"
	"strings"
	"time"

	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/ianbruene/go-difflib/difflib"
)

// TimeLayout is the layout of the -time qualifier written by AddTimeFreeze.
// Times are always rendered in UTC.
const TimeLayout = "2-Jan-06.15:04:05UTC-07:00"

var (
	loadRuleRegex = regexp.MustCompile(`^\s*load\s+(.+?)\s*$`)
	latestRegex   = regexp.MustCompile(`\bLATEST\b`)
	timeRuleRegex = regexp.MustCompile(`(^|\s)-time(\s|$)`)
	// frozenRegex matches a qualifier written by AddTimeFreeze.
	frozenRegex = regexp.MustCompile(`[ \t]+-time[ \t]+\d{1,2}-[A-Za-z]{3}-\d{2}\.\d{2}:\d{2}:\d{2}UTC[+-]\d{2}:\d{2}`)
)

// ConfigSpec is a config spec: selection rules followed by zero or more
// "load <path>" rules. Methods never modify the receiver.
type ConfigSpec struct {
	raw string
}

// New wraps raw config spec text.
func New(raw string) ConfigSpec {
	return ConfigSpec{raw: raw}
}

// String returns the spec text.
func (cs ConfigSpec) String() string {
	return cs.raw
}

// IsEmpty reports whether the spec holds nothing but whitespace.
func (cs ConfigSpec) IsEmpty() bool {
	return strings.TrimSpace(cs.raw) == ""
}

// ExtractLoadRules returns the load rules in file order, stripped of leading
// path separators and surrounding whitespace.
func (cs ConfigSpec) ExtractLoadRules() []string {
	var rules []string
	for _, line := range strings.Split(cs.raw, "\n") {
		m := loadRuleRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rule := cleanRule(m[1])
		if rule == "" {
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

// RemoveLoadRules returns the spec without its load rules and without trailing
// whitespace.
func (cs ConfigSpec) RemoveLoadRules() ConfigSpec {
	lines := strings.Split(cs.raw, "\n")
	kept := lines[:0:0]
	for _, line := range lines {
		if loadRuleRegex.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return ConfigSpec{raw: strings.TrimRight(strings.Join(kept, "\n"), " \t\r\n")}
}

// ReplaceLoadRules drops the existing load rules and appends one load rule per
// entry of rules. Separators and line endings follow the target platform and
// the result ends with exactly one line ending.
func (cs ConfigSpec) ReplaceLoadRules(rules []string, windows bool) ConfigSpec {
	eol, sep := "\n", "/"
	if windows {
		eol, sep = "\r\n", `\`
	}

	base := normalizeEOL(cs.RemoveLoadRules().raw)

	var b strings.Builder
	if base != "" {
		b.WriteString(strings.ReplaceAll(base, "\n", eol))
		b.WriteString(eol)
	}
	for _, rule := range rules {
		rule = cleanRule(rule)
		if rule == "" {
			continue
		}
		rule = strings.NewReplacer("/", sep, `\`, sep).Replace(rule)
		b.WriteString("load ")
		b.WriteString(sep)
		b.WriteString(rule)
		b.WriteString(eol)
	}
	return ConfigSpec{raw: b.String()}
}

// LoadRulesDiffer reports whether the spec's load rules and other differ when
// compared as unordered sets.
func (cs ConfigSpec) LoadRulesDiffer(other []string) bool {
	current := ruleSet(cs.ExtractLoadRules())
	wanted := ruleSet(other)
	if current.Size() != wanted.Size() {
		return true
	}
	return !current.Contains(wanted.Values()...)
}

// AddTimeFreeze appends a "-time" qualifier for t to every selection rule that
// selects LATEST and has no -time qualifier yet. Comment lines are left alone.
// Applying it twice is the same as applying it once.
func (cs ConfigSpec) AddTimeFreeze(t time.Time) ConfigSpec {
	qualifier := "-time " + FormatTime(t)

	lines := strings.Split(cs.raw, "\n")
	for i, line := range lines {
		code, comment := splitComment(line)
		if !latestRegex.MatchString(code) || timeRuleRegex.MatchString(code) {
			continue
		}

		cr := strings.HasSuffix(line, "\r")
		frozen := strings.TrimRight(code, " \t\r") + " " + qualifier
		if comment != "" {
			frozen += " " + strings.TrimRight(comment, "\r")
		}
		if cr {
			frozen += "\r"
		}
		lines[i] = frozen
	}
	return ConfigSpec{raw: strings.Join(lines, "\n")}
}

// RemoveTimeFreeze drops the -time qualifiers written by AddTimeFreeze.
// Qualifiers in any other time format are kept.
func (cs ConfigSpec) RemoveTimeFreeze() ConfigSpec {
	return ConfigSpec{raw: frozenRegex.ReplaceAllString(cs.raw, "")}
}

// Equals compares two specs ignoring line-ending convention and surrounding
// whitespace.
func (cs ConfigSpec) Equals(other ConfigSpec) bool {
	return normalize(cs.raw) == normalize(other.raw)
}

// FormatTime renders t in the form accepted by a -time qualifier.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Diff returns a unified diff from a to b, or "" when they are equal.
func Diff(a, b ConfigSpec, fromName, toName string) string {
	if a.Equals(b) {
		return ""
	}
	text, err := difflib.GetUnifiedDiffString(difflib.LineDiffParams{
		A:        difflib.SplitLines(normalize(a.raw)),
		B:        difflib.SplitLines(normalize(b.raw)),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return text
}

// splitComment splits a line at the first '#'.
func splitComment(line string) (code, comment string) {
	if idx := strings.IndexByte(line, '#'); idx != -1 {
		return line[:idx], line[idx:]
	}
	return line, ""
}

func cleanRule(rule string) string {
	rule = strings.TrimSpace(rule)
	return strings.TrimSpace(strings.TrimLeft(rule, `/\`))
}

func ruleSet(rules []string) *linkedhashset.Set {
	set := linkedhashset.New()
	for _, rule := range rules {
		rule = strings.ReplaceAll(cleanRule(rule), `\`, "/")
		if rule == "" {
			continue
		}
		set.Add(rule)
	}
	return set
}

func normalizeEOL(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func normalize(s string) string {
	return strings.TrimSpace(normalizeEOL(s))
}
