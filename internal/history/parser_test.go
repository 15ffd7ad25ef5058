package history

import (
	"strings"
	"testing"
	"time"
)

func header(fields ...string) string {
	return strings.Join(fields, DefaultDelimiter)
}

func TestParser_Format(t *testing.T) {
	p := NewParser("", nil, time.UTC)
	expected := `%Nd|#|%u|#|%En|#|%Vn|#|%e|#|%o|#|%[activity]Xp\n%c\n`
	if got := p.Format(); got != expected {
		t.Errorf("Format() = %q, expected %q", got, expected)
	}
}

func TestParser_Parse(t *testing.T) {
	raw := strings.Join([]string{
		header("20240131.142530", "alice", "/vobs/app/main.c", "/main/dev/4", "create version", "checkin", ""),
		"Fix the parser",
		"second line of the comment",
		"",
		header("20240131.142529", "alice", "/vobs/app/util.c", "/main/dev/2", "create version", "checkin", "fix_1@/vobs/pvob"),
		"Fix the parser",
		"cleartool: Error: Branch type not found: \"dev\".",
		header("20240130.090000", "bob", "/vobs/lib", "/main/3", "create directory version", "checkin", ""),
		"",
	}, "\r\n")

	result, err := NewParser("", nil, time.UTC).Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Records) != 3 {
		t.Fatalf("records = %d, expected 3", len(result.Records))
	}
	if result.Benign != 1 || result.Skipped != 0 {
		t.Errorf("benign/skipped = %d/%d, expected 1/0", result.Benign, result.Skipped)
	}

	first := result.Records[0]
	if first.Author != "alice" || first.Path != "/vobs/app/main.c" || first.Version != "/main/dev/4" {
		t.Errorf("first record = %#v", first)
	}
	if first.Comment != "Fix the parser\nsecond line of the comment" {
		t.Errorf("first comment = %q", first.Comment)
	}
	if !first.When.Equal(time.Date(2024, 1, 31, 14, 25, 30, 0, time.UTC)) {
		t.Errorf("first time = %v", first.When)
	}
	if result.Records[1].Activity != "fix_1@/vobs/pvob" {
		t.Errorf("activity = %q", result.Records[1].Activity)
	}
	if result.Records[1].Comment != "Fix the parser" {
		t.Errorf("second comment = %q", result.Records[1].Comment)
	}
	if result.Records[2].Comment != "" {
		t.Errorf("third comment = %q, expected empty", result.Records[2].Comment)
	}
}

func TestParser_SkipsMalformedRecord(t *testing.T) {
	raw := strings.Join([]string{
		"stray text before the first record",
		"cleartool: Error: Unable to access \"/vobs/x\": permission denied.",
		header("not-a-date", "alice", "/vobs/a", "/main/1", "create version", "checkin", ""),
		"comment of the broken record",
		header("20240131.142530", "bob", "/vobs/b", "/main/1", "create version", "checkin", ""),
		"good comment with a " + DefaultDelimiter + " inside",
	}, "\n")

	result, err := NewParser("", nil, time.UTC).Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("records = %d, expected 1", len(result.Records))
	}
	if result.Records[0].Comment != "good comment with a |#| inside" {
		t.Errorf("comment = %q", result.Records[0].Comment)
	}
	if result.Skipped != 2 {
		t.Errorf("skipped = %d, expected 2", result.Skipped)
	}
}

func TestParser_ToolMessagesInsideComment(t *testing.T) {
	raw := strings.Join([]string{
		header("20240131.142530", "alice", "/vobs/a", "/main/1", "create version", "checkin", ""),
		"fix build break, it printed:",
		"cleartool: Error: Unable to load \"/vobs/a/gen.c\"",
		"cleartool: Warning: something odd",
		"cleartool: Error: Branch type not found: \"rel\".",
		header("20240131.142000", "bob", "/vobs/b", "/main/1", "create version", "checkin", ""),
		"docs",
	}, "\n")

	result, err := NewParser("", nil, time.UTC).Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("records = %d, expected 2", len(result.Records))
	}
	expected := "fix build break, it printed:\ncleartool: Error: Unable to load \"/vobs/a/gen.c\"\ncleartool: Warning: something odd"
	if result.Records[0].Comment != expected {
		t.Errorf("comment = %q, expected %q", result.Records[0].Comment, expected)
	}
	if result.Benign != 1 {
		t.Errorf("benign = %d, expected 1", result.Benign)
	}
	if result.Skipped != 0 {
		t.Errorf("skipped = %d, expected 0", result.Skipped)
	}
}

func TestParser_CustomDelimiter(t *testing.T) {
	raw := strings.Join([]string{"20240131.142530", "alice", "/vobs/a", "/main/1", "create version", "checkin", ""}, "@@") + "\nmsg\n"

	result, err := NewParser("@@", nil, time.UTC).Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Records) != 1 || result.Records[0].Comment != "msg" {
		t.Fatalf("records = %#v", result.Records)
	}
}

func TestParser_OnlyBenignErrors(t *testing.T) {
	p := NewParser("", nil, time.UTC)

	tests := []struct {
		name     string
		out      string
		expected bool
	}{
		{name: "No errors", out: "x\ny\n", expected: true},
		{name: "Benign only", out: "cleartool: Error: Branch type not found: \"dev\".\n", expected: true},
		{name: "Unknown error", out: "cleartool: Error: Unable to access \"/vobs/x\"\n", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.OnlyBenignErrors(tt.out); got != tt.expected {
				t.Errorf("OnlyBenignErrors() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
