// Package tags implements tagged-fragment extraction from markdown notes,
// boolean tag queries over the extracted records, and compilation of the
// matching fragments into a single output document.
package tags

import (
	"regexp"
	"sort"
	"strings"

	"github.com/notecomb/notecomb/internal/markdown"
)

// Payload is either an exact byte span into the record's source or a
// reconstructed text used when safe slicing was not possible.
type Payload struct {
	Span *markdown.Span
	Text string
}

// IsSpan reports whether the payload reproduces original source bytes.
func (p Payload) IsSpan() bool { return p.Span != nil }

// Render produces the record text from the owning source.
func (p Payload) Render(src []byte) string {
	if p.Span != nil {
		return p.Span.Slice(src)
	}
	return p.Text
}

// ContextKind classifies what a record was extracted from.
type ContextKind int

const (
	ContextParagraph ContextKind = iota
	ContextSection
)

// Context carries the record's originating heading. For section records the
// heading is the record's own; for paragraph records it is the innermost
// enclosing section heading, empty when there is none.
type Context struct {
	Kind    ContextKind
	Heading string
	Level   int
}

// Record is one extracted tagged fragment.
type Record struct {
	Tags    []string // lowercase, first-seen order, deduplicated
	Payload Payload
	Source  string
	Date    string // ISO date (YYYY-MM-DD), empty for undated sources
	Context Context
	Seq     int // extraction order within the source
}

// TagSet returns the record's tags as a lookup set.
func (r Record) TagSet() map[string]bool { return tagSetOf(r.Tags) }

var tagTokenRe = regexp.MustCompile(`^#[A-Za-z0-9_-]+$`)

// trailingTags returns the maximal suffix of whitespace-separated tokens in
// text that are tag tokens, lowercased without the leading "#". only is set
// when every token in text is a tag token (a tag-only carrier).
func trailingTags(text string) (tags []string, only bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, false
	}
	i := len(fields)
	for i > 0 && tagTokenRe.MatchString(fields[i-1]) {
		i--
	}
	for _, f := range fields[i:] {
		tags = append(tags, strings.ToLower(f[1:]))
	}
	return tags, i == 0
}

// stripTrailingTags removes the trailing tag tokens from text.
func stripTrailingTags(text string) string {
	s := strings.TrimRight(text, " \t")
	for {
		cut := strings.LastIndexAny(s, " \t")
		var last string
		if cut < 0 {
			last = s
		} else {
			last = s[cut+1:]
		}
		if !tagTokenRe.MatchString(last) {
			return s
		}
		if cut < 0 {
			return ""
		}
		s = strings.TrimRight(s[:cut], " \t")
	}
}

// orderedUnion merges tag lists preserving first-seen order.
func orderedUnion(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, t := range list {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

type stackEntry struct {
	level   int
	heading string
	tags    []string
}

// sectionStack tracks the active heading chain during one extraction pass.
type sectionStack struct {
	entries []stackEntry
}

func (s *sectionStack) push(level int, heading string, tags []string) {
	n := len(s.entries)
	for n > 0 && s.entries[n-1].level >= level {
		n--
	}
	s.entries = append(s.entries[:n], stackEntry{level: level, heading: heading, tags: tags})
}

// activeTags returns the union of tags across the stack, outermost first.
func (s *sectionStack) activeTags() []string {
	lists := make([][]string, len(s.entries))
	for i, e := range s.entries {
		lists[i] = e.tags
	}
	return orderedUnion(lists...)
}

func (s *sectionStack) currentHeading() (string, int) {
	if len(s.entries) == 0 {
		return "", 0
	}
	top := s.entries[len(s.entries)-1]
	return top.heading, top.level
}

// extractor runs one pass over a parsed source.
type extractor struct {
	src     []byte
	source  string
	blocks  []markdown.Block
	stack   sectionStack
	pending []string // carrier tags awaiting the next sibling block
	records []Record
}

// Extract walks one markdown source and returns its tagged content records
// in source order. Dates are a property of the source file, so the caller
// stamps Record.Date after extraction.
func Extract(source []byte, sourceID string) []Record {
	e := &extractor{
		src:    source,
		source: sourceID,
		blocks: markdown.ParseBlocks(source),
	}
	e.run()
	return e.records
}

func (e *extractor) run() {
	for i := 0; i < len(e.blocks); i++ {
		b := e.blocks[i]
		switch b.Kind {
		case markdown.KindHeading:
			e.pending = nil
			e.handleHeading(i)
		case markdown.KindParagraph:
			i += e.handleParagraph(i)
		case markdown.KindList:
			e.handleList(b)
		default:
			e.handleOther(b)
		}
	}
}

func (e *extractor) emit(r Record) {
	r.Source = e.source
	r.Seq = len(e.records)
	e.records = append(e.records, r)
}

func (e *extractor) handleHeading(i int) {
	b := e.blocks[i]
	content := headingContent(b, e.src)
	ownTags, _ := trailingTags(content)
	clean := stripTrailingTags(content)
	e.stack.push(b.Level, clean, ownTags)

	if len(ownTags) == 0 {
		return
	}
	payload, ok := e.sectionBody(i, b.Level)
	if !ok {
		return
	}
	e.emit(Record{
		Tags:    e.stack.activeTags(),
		Payload: payload,
		Context: Context{Kind: ContextSection, Heading: clean, Level: b.Level},
	})
}

// sectionBody computes the payload covering everything between the heading
// at index i and the next heading of equal or higher level.
func (e *extractor) sectionBody(i, level int) (Payload, bool) {
	end := len(e.blocks)
	for j := i + 1; j < len(e.blocks); j++ {
		if e.blocks[j].Kind == markdown.KindHeading && e.blocks[j].Level <= level {
			end = j
			break
		}
	}
	if end == i+1 {
		return Payload{}, false // empty section
	}

	heading := e.blocks[i]
	boundaryOK := end == len(e.blocks) || e.blocks[end].SpanOK
	if heading.SpanOK && boundaryOK {
		start := skipBlankLines(e.src, heading.Span.End)
		stop := len(e.src)
		if end < len(e.blocks) {
			stop = e.blocks[end].Span.Start
		}
		for stop > start && isBlankByte(e.src[stop-1]) {
			stop--
		}
		if stop > start {
			span := markdown.Span{Start: start, End: stop}
			if span.Valid(e.src) {
				return Payload{Span: &span}, true
			}
		}
	}

	// Fallback: reconstruct the body from the blocks it contains.
	var parts []string
	for j := i + 1; j < end; j++ {
		parts = append(parts, blockText(e.blocks[j], e.src))
	}
	text := strings.TrimSpace(strings.Join(parts, "\n\n"))
	if text == "" {
		return Payload{}, false
	}
	return Payload{Text: text}, true
}

// handleParagraph emits a record for a tagged paragraph, consuming an
// attached code fence when one directly follows. Returns the number of
// extra blocks consumed.
func (e *extractor) handleParagraph(i int) int {
	b := e.blocks[i]
	text := blockText(b, e.src)
	ownTags, only := trailingTags(text)

	if only && len(ownTags) > 0 {
		// Tag-only carrier: tag the next sibling block, emit nothing.
		e.pending = orderedUnion(e.pending, ownTags)
		return 0
	}

	carried := e.pending
	e.pending = nil
	if len(ownTags) == 0 && len(carried) == 0 {
		return 0
	}

	rec := Record{
		Tags:    orderedUnion(carried, ownTags),
		Payload: e.payloadFor(b),
		Context: e.paragraphContext(),
	}

	consumed := 0
	if i+1 < len(e.blocks) && e.blocks[i+1].Kind == markdown.KindCodeFence {
		fence := e.blocks[i+1]
		if b.SpanOK && fence.SpanOK && singleNewlineGap(e.src, b.Span.End, fence.Span.Start) {
			if rec.Payload.IsSpan() {
				span := markdown.Span{Start: b.Span.Start, End: fence.Span.End}
				rec.Payload = Payload{Span: &span}
			} else {
				rec.Payload.Text += "\n" + blockText(fence, e.src)
			}
			consumed = 1
		}
	}

	e.emit(rec)
	return consumed
}

func (e *extractor) handleList(b markdown.Block) {
	carried := e.pending
	e.pending = nil

	if len(carried) > 0 {
		e.emit(Record{
			Tags:    carried,
			Payload: e.payloadFor(b),
			Context: e.paragraphContext(),
		})
	}

	for _, item := range b.Children {
		itemTags := listItemTags(item, e.src)
		if len(itemTags) == 0 {
			continue
		}
		e.emit(Record{
			Tags:    itemTags,
			Payload: e.payloadFor(item),
			Context: e.paragraphContext(),
		})
	}
}

func (e *extractor) handleOther(b markdown.Block) {
	carried := e.pending
	e.pending = nil
	if len(carried) == 0 {
		return
	}
	e.emit(Record{
		Tags:    carried,
		Payload: e.payloadFor(b),
		Context: e.paragraphContext(),
	})
}

func (e *extractor) paragraphContext() Context {
	heading, level := e.stack.currentHeading()
	return Context{Kind: ContextParagraph, Heading: heading, Level: level}
}

func (e *extractor) payloadFor(b markdown.Block) Payload {
	if b.SpanOK && b.Span.Valid(e.src) {
		span := b.Span
		return Payload{Span: &span}
	}
	return Payload{Text: blockText(b, e.src)}
}

// listItemTags reads trailing tags from the item's leading paragraph so
// that tags inside nested sub-items do not leak onto the parent.
func listItemTags(item markdown.Block, src []byte) []string {
	for _, c := range item.Children {
		if c.Kind == markdown.KindParagraph {
			tags, _ := trailingTags(blockText(c, src))
			return tags
		}
		break
	}
	// No child structure recorded: fall back to the item's own text.
	if len(item.Children) == 0 {
		tags, _ := trailingTags(blockText(item, src))
		return tags
	}
	return nil
}

func blockText(b markdown.Block, src []byte) string {
	if b.SpanOK && b.Span.Valid(src) {
		return b.Span.Slice(src)
	}
	return b.Fallback
}

// headingContent returns the heading's text with ATX markers removed. For
// setext headings the first line is the content.
func headingContent(b markdown.Block, src []byte) string {
	raw := blockText(b, src)
	if nl := strings.IndexByte(raw, '\n'); nl >= 0 {
		raw = raw[:nl]
	}
	raw = strings.TrimRight(raw, "\r")
	s := strings.TrimLeft(raw, " ")
	if strings.HasPrefix(s, "#") {
		s = strings.TrimLeft(s, "#")
		s = strings.TrimLeft(s, " \t")
		// closing sequence: a trailing run of #, preceded by a space
		trimmed := strings.TrimRight(s, " \t")
		if j := strings.LastIndexAny(trimmed, " \t"); j >= 0 {
			tail := trimmed[j+1:]
			if tail != "" && strings.Count(tail, "#") == len(tail) {
				trimmed = strings.TrimRight(trimmed[:j], " \t")
			}
		}
		return trimmed
	}
	return strings.TrimSpace(s)
}

func isBlankByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// skipBlankLines advances past the line terminator at off and any following
// blank lines.
func skipBlankLines(src []byte, off int) int {
	i := off
	if i < len(src) && src[i] == '\r' {
		i++
	}
	if i < len(src) && src[i] == '\n' {
		i++
	}
	for {
		j := i
		for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\r') {
			j++
		}
		if j < len(src) && src[j] == '\n' {
			i = j + 1
			continue
		}
		return i
	}
}

// singleNewlineGap reports whether exactly one line break, and nothing else
// but horizontal whitespace, separates offsets end and start.
func singleNewlineGap(src []byte, end, start int) bool {
	if end > start || start > len(src) {
		return false
	}
	breaks := 0
	for _, c := range src[end:start] {
		switch c {
		case '\n':
			breaks++
		case '\r', ' ', '\t':
		default:
			return false
		}
	}
	return breaks == 1
}

var tagScanRe = regexp.MustCompile(`#[A-Za-z0-9_-]+`)
var inlineCodeRe = regexp.MustCompile("`[^`\n]*`")

// CollectTags returns every distinct tag used in the source, lowercase and
// sorted. Tags inside code fences and inline code are ignored.
func CollectTags(src []byte) []string {
	excluded := markdown.FenceSpans(markdown.ParseBlocks(src))
	for _, loc := range inlineCodeRe.FindAllIndex(src, -1) {
		excluded = append(excluded, markdown.Span{Start: loc[0], End: loc[1]})
	}

	seen := make(map[string]bool)
	for _, loc := range tagScanRe.FindAllIndex(src, -1) {
		if loc[0] > 0 && isTagBodyByte(src[loc[0]-1]) {
			continue // mid-word "#", e.g. a URL fragment
		}
		if withinAny(excluded, loc[0]) {
			continue
		}
		seen[strings.ToLower(string(src[loc[0]+1:loc[1]]))] = true
	}

	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func isTagBodyByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_' || c == '-' || c == '#' || c == '&'
}

func withinAny(spans []markdown.Span, off int) bool {
	for _, s := range spans {
		if off >= s.Start && off < s.End {
			return true
		}
	}
	return false
}
