package configspec

import (
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// --- Generators ---

func genSelectionRule() *rapid.Generator[string] {
	return rapid.SampledFrom([]string{
		"element * CHECKEDOUT",
		"element * LATEST",
		"element * /main/LATEST",
		"element * /main/dev/LATEST -mkbranch dev",
		"element -file * /main/0",
		"element * LATEST -time 1-Jan-24.00:00:00UTC+00:00",
		"# a comment about LATEST",
		"element * .../rel/LATEST # branch tip",
		"",
	})
}

func genRulePath() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		depth := rapid.IntRange(1, 4).Draw(t, "depth")
		parts := make([]string, depth)
		for i := range parts {
			parts[i] = rapid.StringMatching(`[a-z][a-z0-9_]{0,7}`).Draw(t, fmt.Sprintf("part%d", i))
		}
		return strings.Join(parts, "/")
	})
}

func genSpec() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		count := rapid.IntRange(0, 10).Draw(t, "lines")
		lines := make([]string, count)
		for i := range lines {
			if rapid.Bool().Draw(t, fmt.Sprintf("load%d", i)) {
				lines[i] = "load /" + genRulePath().Draw(t, fmt.Sprintf("rule%d", i))
			} else {
				lines[i] = genSelectionRule().Draw(t, fmt.Sprintf("sel%d", i))
			}
		}
		text := strings.Join(lines, "\n")
		if rapid.Bool().Draw(t, "crlf") {
			text = strings.ReplaceAll(text, "\n", "\r\n")
		}
		return text
	})
}

func sortedUnique(rules []string) []string {
	seen := make(map[string]struct{}, len(rules))
	var out []string
	for _, r := range rules {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// --- Property Tests ---

func TestRapidReplaceThenExtract_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spec := New(genSpec().Draw(t, "spec"))
		rules := rapid.SliceOf(genRulePath()).Draw(t, "rules")

		extracted := spec.ReplaceLoadRules(rules, false).ExtractLoadRules()

		got, want := sortedUnique(extracted), sortedUnique(rules)
		if strings.Join(got, "|") != strings.Join(want, "|") {
			t.Fatalf("extracted %q, expected %q", got, want)
		}
	})
}

func TestRapidReplace_NoDifferenceAfterReplace(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spec := New(genSpec().Draw(t, "spec"))
		rules := rapid.SliceOf(genRulePath()).Draw(t, "rules")
		windows := rapid.Bool().Draw(t, "windows")

		if spec.ReplaceLoadRules(rules, windows).LoadRulesDiffer(rules) {
			t.Fatalf("load rules differ right after ReplaceLoadRules(%q)", rules)
		}
	})
}

func TestRapidEquals_LineEndingInsensitive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := genSpec().Draw(t, "spec")
		crlf := strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\n", "\r\n")

		if !New(text).Equals(New(crlf)) {
			t.Fatalf("Equals is sensitive to line endings for %q", text)
		}
		if !New(crlf).Equals(New(text)) {
			t.Fatalf("Equals is not symmetric for %q", text)
		}
	})
}

func TestRapidAddTimeFreeze_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spec := New(genSpec().Draw(t, "spec"))
		freeze := time.Unix(rapid.Int64Range(0, 4_000_000_000).Draw(t, "unix"), 0)

		once := spec.AddTimeFreeze(freeze)
		twice := once.AddTimeFreeze(freeze)

		if once.String() != twice.String() {
			t.Fatalf("AddTimeFreeze not idempotent:\nonce:  %q\ntwice: %q", once, twice)
		}
	})
}

func TestRapidAddTimeFreeze_KeepsLoadRules(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spec := New(genSpec().Draw(t, "spec"))
		freeze := time.Unix(rapid.Int64Range(0, 4_000_000_000).Draw(t, "unix"), 0)

		before := strings.Join(spec.ExtractLoadRules(), "|")
		after := strings.Join(spec.AddTimeFreeze(freeze).ExtractLoadRules(), "|")
		if before != after {
			t.Fatalf("load rules changed by AddTimeFreeze: %q -> %q", before, after)
		}
	})
}

func TestRapidRemoveTimeFreeze_UndoesAddTimeFreeze(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spec := New(genSpec().Draw(t, "spec"))
		freeze := time.Unix(rapid.Int64Range(0, 4_000_000_000).Draw(t, "unix"), 0)

		thawed := spec.AddTimeFreeze(freeze).RemoveTimeFreeze()
		if thawed.String() != spec.RemoveTimeFreeze().String() {
			t.Fatalf("RemoveTimeFreeze(AddTimeFreeze(s)) = %q, expected %q", thawed, spec.RemoveTimeFreeze())
		}
	})
}
