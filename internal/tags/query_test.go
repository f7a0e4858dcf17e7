package tags

import (
	"testing"

	"github.com/notecomb/notecomb/internal/errors"
)

func mustParse(t *testing.T, input string) Query {
	t.Helper()
	q, err := ParseQuery(input)
	if err != nil {
		t.Fatalf("ParseQuery(%q) failed: %v", input, err)
	}
	return q
}

func TestParseQuery_Single(t *testing.T) {
	q := mustParse(t, "#work")
	if !q.Matches(tagSetOf([]string{"work"})) {
		t.Error("expected match on work")
	}
	if q.Matches(tagSetOf([]string{"play"})) {
		t.Error("expected no match on play")
	}
	if q.String() != "#work" {
		t.Errorf("String() = %q", q.String())
	}
}

func TestParseQuery_BareTag(t *testing.T) {
	q := mustParse(t, "work")
	if !q.Matches(tagSetOf([]string{"work"})) {
		t.Error("expected bare tag to parse like #tag")
	}
}

func TestParseQuery_CaseInsensitive(t *testing.T) {
	q := mustParse(t, "#Work and #Sprint")
	if !q.Matches(tagSetOf([]string{"WORK", "sprint"})) {
		t.Error("expected case-insensitive matching")
	}
}

func TestParseQuery_Precedence(t *testing.T) {
	// OR binds loosest: a OR b AND c == a OR (b AND c)
	q := mustParse(t, "#a OR #b AND #c")
	if !q.Matches(tagSetOf([]string{"a"})) {
		t.Error("a alone should match")
	}
	if q.Matches(tagSetOf([]string{"b"})) {
		t.Error("b alone should not match")
	}
	if !q.Matches(tagSetOf([]string{"b", "c"})) {
		t.Error("b+c should match")
	}
}

func TestParseQuery_NotBindsTightest(t *testing.T) {
	// NOT a AND b == (NOT a) AND b
	q := mustParse(t, "NOT #a AND #b")
	if !q.Matches(tagSetOf([]string{"b"})) {
		t.Error("b without a should match")
	}
	if q.Matches(tagSetOf([]string{"a", "b"})) {
		t.Error("a+b should not match")
	}
}

func TestParseQuery_Parens(t *testing.T) {
	q := mustParse(t, "(#a OR #b) AND #c")
	if !q.Matches(tagSetOf([]string{"a", "c"})) || !q.Matches(tagSetOf([]string{"b", "c"})) {
		t.Error("a+c and b+c should match")
	}
	if q.Matches(tagSetOf([]string{"a"})) {
		t.Error("a alone should not match")
	}
}

func TestParseQuery_ImplicitAnd(t *testing.T) {
	q := mustParse(t, "#work #sprint")
	if !q.Matches(tagSetOf([]string{"work", "sprint"})) {
		t.Error("work+sprint should match")
	}
	if q.Matches(tagSetOf([]string{"work"})) {
		t.Error("work alone should not match")
	}
}

func TestParseQuery_MixedImplicitExplicit(t *testing.T) {
	q := mustParse(t, "#work AND #sprint NOT #meeting")
	if !q.Matches(tagSetOf([]string{"work", "sprint"})) {
		t.Error("work+sprint should match")
	}
	if q.Matches(tagSetOf([]string{"work", "sprint", "meeting"})) {
		t.Error("meeting should exclude")
	}
}

func TestParseQuery_String(t *testing.T) {
	cases := map[string]string{
		"#work":                "#work",
		"#a AND #b":            "#a AND #b",
		"#a or #b":             "(#a OR #b)",
		"not #a":               "NOT #a",
		"(#a OR #b) AND NOT c": "(#a OR #b) AND NOT #c",
	}
	for input, want := range cases {
		if got := mustParse(t, input).String(); got != want {
			t.Errorf("String(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseQuery_Errors(t *testing.T) {
	for _, input := range []string{
		"",
		"   ",
		"#",
		"AND #a",
		"#a AND",
		"(#a OR #b",
		"#a )",
		"#a $ #b",
		"NOT",
	} {
		_, err := ParseQuery(input)
		if err == nil {
			t.Errorf("ParseQuery(%q) should fail", input)
			continue
		}
		if !errors.Is(err, errors.ErrQuerySyntax) {
			t.Errorf("ParseQuery(%q) error code = %v", input, err)
		}
	}
}
