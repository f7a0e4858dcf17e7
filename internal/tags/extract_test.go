package tags

import (
	"reflect"
	"testing"

	"github.com/notecomb/notecomb/internal/markdown"
)

func render(t *testing.T, src string, r Record) string {
	t.Helper()
	return r.Payload.Render([]byte(src))
}

func TestExtract_ParagraphTrailingTags(t *testing.T) {
	src := "Buy milk. #errand\n\nPlain paragraph.\n"
	records := Extract([]byte(src), "note.md")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if !reflect.DeepEqual(r.Tags, []string{"errand"}) {
		t.Errorf("tags = %v", r.Tags)
	}
	if !r.Payload.IsSpan() {
		t.Error("expected span payload")
	}
	if got := render(t, src, r); got != "Buy milk. #errand" {
		t.Errorf("payload = %q, tag tokens must stay in the text", got)
	}
	if r.Context.Kind != ContextParagraph {
		t.Errorf("context kind = %v", r.Context.Kind)
	}
}

func TestExtract_SectionRecord(t *testing.T) {
	src := "## Sprint Planning #work #sprint\n\nDiscussed the roadmap.\n\n### Backend\n\nImplement API.\n\n## Other\n\nNothing here.\n"
	records := Extract([]byte(src), "note.md")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if !reflect.DeepEqual(r.Tags, []string{"work", "sprint"}) {
		t.Errorf("tags = %v", r.Tags)
	}
	want := "Discussed the roadmap.\n\n### Backend\n\nImplement API."
	if got := render(t, src, r); got != want {
		t.Errorf("section body = %q, want %q", got, want)
	}
	if r.Context.Kind != ContextSection || r.Context.Heading != "Sprint Planning" || r.Context.Level != 2 {
		t.Errorf("context = %+v", r.Context)
	}
}

func TestExtract_NestedSectionInheritance(t *testing.T) {
	src := "## Alpha #x\n\nouter text\n\n### Beta #y\n\ninner text\n"
	records := Extract([]byte(src), "note.md")
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if !reflect.DeepEqual(records[0].Tags, []string{"x"}) {
		t.Errorf("outer tags = %v", records[0].Tags)
	}
	// descendant section inherits the ancestor's tags
	if !reflect.DeepEqual(records[1].Tags, []string{"x", "y"}) {
		t.Errorf("inner tags = %v", records[1].Tags)
	}
	if got := render(t, src, records[1]); got != "inner text" {
		t.Errorf("inner body = %q", got)
	}
}

func TestExtract_SiblingHeadingResetsStack(t *testing.T) {
	src := "## Alpha #x\n\ntext\n\n## Gamma #z\n\nmore\n"
	records := Extract([]byte(src), "note.md")
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if !reflect.DeepEqual(records[1].Tags, []string{"z"}) {
		t.Errorf("second section tags = %v, must not inherit from sibling", records[1].Tags)
	}
}

func TestExtract_NoCrossContamination(t *testing.T) {
	src := "## Work #work\n\nFinished the report. #done\n"
	records := Extract([]byte(src), "note.md")
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// records[0] is the section, records[1] the explicitly tagged paragraph
	if !reflect.DeepEqual(records[1].Tags, []string{"done"}) {
		t.Errorf("explicit paragraph tags = %v, must not include inherited ones", records[1].Tags)
	}
	if records[1].Context.Heading != "Work" {
		t.Errorf("paragraph context heading = %q", records[1].Context.Heading)
	}
}

func TestExtract_TagOnlyCarrier(t *testing.T) {
	src := "#meeting\n\nNotes from the standup.\n"
	records := Extract([]byte(src), "note.md")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if !reflect.DeepEqual(r.Tags, []string{"meeting"}) {
		t.Errorf("tags = %v", r.Tags)
	}
	if got := render(t, src, r); got != "Notes from the standup." {
		t.Errorf("payload = %q, carrier must not appear", got)
	}
}

func TestExtract_CarrierUnionsWithOwnTags(t *testing.T) {
	src := "#a\n\nSome text. #b\n"
	records := Extract([]byte(src), "note.md")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if !reflect.DeepEqual(records[0].Tags, []string{"a", "b"}) {
		t.Errorf("tags = %v", records[0].Tags)
	}
}

func TestExtract_CarrierClearedByHeading(t *testing.T) {
	src := "#x\n\n## Heading\n\nUntagged paragraph.\n"
	records := Extract([]byte(src), "note.md")
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestExtract_CarrierBeforeList(t *testing.T) {
	src := "#todo\n\n- first\n- second\n"
	records := Extract([]byte(src), "note.md")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if !reflect.DeepEqual(records[0].Tags, []string{"todo"}) {
		t.Errorf("tags = %v", records[0].Tags)
	}
	if got := render(t, src, records[0]); got != "- first\n- second" {
		t.Errorf("payload = %q", got)
	}
}

func TestExtract_ListItemTags(t *testing.T) {
	src := "- buy milk #errand\n- untagged item\n"
	records := Extract([]byte(src), "note.md")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if !reflect.DeepEqual(records[0].Tags, []string{"errand"}) {
		t.Errorf("tags = %v", records[0].Tags)
	}
	if got := render(t, src, records[0]); got != "- buy milk #errand" {
		t.Errorf("payload = %q", got)
	}
}

func TestExtract_FenceAttachment(t *testing.T) {
	src := "Example usage: #code\n```go\ncall()\n```\n\nAfter.\n"
	records := Extract([]byte(src), "note.md")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	want := "Example usage: #code\n```go\ncall()\n```"
	if got := render(t, src, records[0]); got != want {
		t.Errorf("payload = %q, want fence attached", got)
	}
}

func TestExtract_FenceNotAttachedAcrossBlankLine(t *testing.T) {
	src := "Example usage: #code\n\n```go\ncall()\n```\n"
	records := Extract([]byte(src), "note.md")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if got := render(t, src, records[0]); got != "Example usage: #code" {
		t.Errorf("payload = %q, fence must stay detached", got)
	}
}

func TestExtract_CRLFPreserved(t *testing.T) {
	src := "Task one. #a\r\n\r\nPlain.\r\n"
	records := Extract([]byte(src), "note.md")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if got := render(t, src, records[0]); got != "Task one. #a" {
		t.Errorf("payload = %q", got)
	}
}

func TestExtract_UntaggedProducesNothing(t *testing.T) {
	src := "Just a paragraph.\n\n## Plain Heading\n\nMore text.\n"
	if records := Extract([]byte(src), "note.md"); len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestExtract_SeqPreservesSourceOrder(t *testing.T) {
	src := "First. #a\n\nSecond. #b\n\nThird. #c\n"
	records := Extract([]byte(src), "note.md")
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, r := range records {
		if r.Seq != i {
			t.Errorf("record %d has seq %d", i, r.Seq)
		}
	}
}

func TestTrailingTags(t *testing.T) {
	cases := []struct {
		text string
		tags []string
		only bool
	}{
		{"Buy milk. #errand", []string{"errand"}, false},
		{"Plan sprint #Work #Sprint", []string{"work", "sprint"}, false},
		{"#a #b", []string{"a", "b"}, true},
		{"no tags here", nil, false},
		{"#mid tag then text", nil, false},
		{"trailing hash #", nil, false},
		{"", nil, false},
	}
	for _, c := range cases {
		tags, only := trailingTags(c.text)
		if !reflect.DeepEqual(tags, c.tags) || only != c.only {
			t.Errorf("trailingTags(%q) = %v, %v; want %v, %v", c.text, tags, only, c.tags, c.only)
		}
	}
}

func TestHeadingContentStripsMarkers(t *testing.T) {
	src := "## My Heading ##\n"
	blocks := markdown.ParseBlocks([]byte(src))
	if got := headingContent(blocks[0], []byte(src)); got != "My Heading" {
		t.Errorf("headingContent = %q", got)
	}
}

func TestCollectTags(t *testing.T) {
	src := "## Alpha #Work\n\ntext #home and #work again\n\n```\n#notatag\n```\n\nuse `#inline` code\n"
	got := CollectTags([]byte(src))
	want := []string{"home", "work"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectTags = %v, want %v", got, want)
	}
}
