package history

import "testing"

func TestDefaultFilter(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		expected bool
	}{
		{name: "Checkin", record: Record{Event: "create version", Operation: "checkin", Version: "/main/dev/3"}, expected: true},
		{name: "Branch creation", record: Record{Event: "create branch", Operation: "mkbranch", Version: "/main/dev"}, expected: false},
		{name: "Zero version", record: Record{Event: "create version", Operation: "mkbranch", Version: "/main/dev/0"}, expected: false},
		{name: "Zero version via checkin", record: Record{Event: "create version", Operation: "checkin", Version: "/main/dev/0"}, expected: false},
		{name: "Element creation", record: Record{Event: "create file element", Operation: "mkelem", Version: "/main/0"}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (DefaultFilter{}).Accept(tt.record); got != tt.expected {
				t.Errorf("Accept(%#v) = %v, expected %v", tt.record, got, tt.expected)
			}
		})
	}
}

func TestDestroySubBranchFilter(t *testing.T) {
	f := DestroySubBranchFilter{}
	if f.Accept(Record{Event: "destroy sub-branch \"dev\" of branch"}) {
		t.Error("destroy sub-branch event accepted")
	}
	if !f.Accept(Record{Event: "create version"}) {
		t.Error("create version event rejected")
	}
}

func TestUserFilter(t *testing.T) {
	f := NewUserFilter([]string{" Builder "})
	if f.Accept(Record{Author: "builder"}) {
		t.Error("excluded user accepted")
	}
	if !f.Accept(Record{Author: "alice"}) {
		t.Error("regular user rejected")
	}
}

func TestPathFilter(t *testing.T) {
	f := PathFilter{
		Include: []string{"vobs/app/**"},
		Exclude: []string{"**/*.md"},
	}

	tests := []struct {
		path     string
		expected bool
	}{
		{path: "/vobs/app/src/main.c", expected: true},
		{path: `\vobs\app\src\main.c`, expected: true},
		{path: "/vobs/app/README.md", expected: false},
		{path: "/vobs/lib/util.c", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := f.Accept(Record{Path: tt.path}); got != tt.expected {
				t.Errorf("Accept(%q) = %v, expected %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestLoadRuleFilter(t *testing.T) {
	f := NewLoadRuleFilter([]string{"/vobs/app", `\vobs\lib\core`})

	tests := []struct {
		path     string
		expected bool
	}{
		{path: "/view/build/vobs/app/main.c", expected: true},
		{path: "/vobs/app", expected: true},
		{path: "/vobs/application/main.c", expected: false},
		{path: `M:\build\vobs\lib\core\x.c`, expected: true},
		{path: "/vobs/lib/other/x.c", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := f.Accept(Record{Path: tt.path}); got != tt.expected {
				t.Errorf("Accept(%q) = %v, expected %v", tt.path, got, tt.expected)
			}
		})
	}

	if !NewLoadRuleFilter(nil).Accept(Record{Path: "/anything"}) {
		t.Error("empty load rule filter rejected a record")
	}
}

func TestChain_Apply(t *testing.T) {
	records := []Record{
		{Author: "alice", Event: "create version", Version: "/main/1"},
		{Author: "builder", Event: "create version", Version: "/main/2"},
		{Author: "alice", Event: "create branch", Operation: "mkbranch", Version: "/main/dev"},
	}

	kept := Chain{DefaultFilter{}, NewUserFilter([]string{"builder"})}.Apply(records)
	if len(kept) != 1 || kept[0].Version != "/main/1" {
		t.Errorf("Apply() = %#v", kept)
	}

	if got := Chain(nil).Apply(records); len(got) != 3 {
		t.Errorf("empty chain kept %d records, expected 3", len(got))
	}
}
