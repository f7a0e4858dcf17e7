// Package markdown walks a markdown source and reports its top-level
// structure as an ordered sequence of blocks, each annotated with the exact
// [start,end) byte range it occupies in the source. Slicing a block's span
// from the source reproduces the original markdown bytes verbatim, including
// the source's own line-ending style. Blocks whose boundaries cannot be
// established safely are flagged SpanOK=false and carry a reconstructed
// fallback text instead.
package markdown

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// BlockKind classifies a structural block.
type BlockKind int

const (
	KindHeading BlockKind = iota
	KindParagraph
	KindList
	KindListItem
	KindCodeFence
	KindHTML
	KindOther
)

// Span is a byte range [Start,End) into one source text.
type Span struct {
	Start int
	End   int
}

// Slice returns the source bytes covered by the span as a string.
func (s Span) Slice(src []byte) string {
	return string(src[s.Start:s.End])
}

// Valid reports whether the span is in bounds and does not split a
// multi-byte UTF-8 code point.
func (s Span) Valid(src []byte) bool {
	if s.Start < 0 || s.End < s.Start || s.End > len(src) {
		return false
	}
	if s.Start < len(src) && !utf8.RuneStart(src[s.Start]) {
		return false
	}
	if s.End < len(src) && !utf8.RuneStart(src[s.End]) {
		return false
	}
	return true
}

// Contains reports whether the span fully covers other.
func (s Span) Contains(other Span) bool {
	return s.Start <= other.Start && other.End <= s.End
}

// Block is one structural block with its source span.
type Block struct {
	Kind   BlockKind
	Level  int  // heading level 1-6, zero otherwise
	Span   Span // valid only when SpanOK
	SpanOK bool

	// Fallback is a best-effort reconstruction of the block's text, set
	// only when SpanOK is false (exact slicing was not possible).
	Fallback string

	// Tight is set for lists with no blank lines between items.
	Tight bool

	// Children holds list items for a list, and the item's own blocks
	// (including nested lists) for a list item.
	Children []Block
}

var md = goldmark.New()

// ParseBlocks parses source and returns its top-level blocks in order.
func ParseBlocks(source []byte) []Block {
	doc := md.Parser().Parse(text.NewReader(source))
	blocks := make([]Block, 0, doc.ChildCount())
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		blocks = append(blocks, convert(n, source))
	}
	return blocks
}

// FenceSpans returns the spans of all code fences in blocks, including
// fences nested inside lists. Used to exclude code regions from tag edits.
func FenceSpans(blocks []Block) []Span {
	var spans []Span
	for _, b := range blocks {
		if b.Kind == KindCodeFence && b.SpanOK {
			spans = append(spans, b.Span)
			continue
		}
		if len(b.Children) > 0 {
			spans = append(spans, FenceSpans(b.Children)...)
		}
	}
	return spans
}

func convert(n ast.Node, src []byte) Block {
	b := Block{Kind: kindOf(n)}
	if h, ok := n.(*ast.Heading); ok {
		b.Level = h.Level
	}
	if l, ok := n.(*ast.List); ok {
		b.Tight = l.IsTight
	}

	if start, end, ok := blockSpan(n, src); ok {
		b.Span = Span{Start: start, End: end}
		b.SpanOK = true
	} else {
		b.Fallback = reconstruct(n, src)
	}

	switch n.Kind() {
	case ast.KindList, ast.KindListItem:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			b.Children = append(b.Children, convert(c, src))
		}
	}
	return b
}

func kindOf(n ast.Node) BlockKind {
	switch n.Kind() {
	case ast.KindHeading:
		return KindHeading
	case ast.KindParagraph, ast.KindTextBlock:
		return KindParagraph
	case ast.KindList:
		return KindList
	case ast.KindListItem:
		return KindListItem
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		return KindCodeFence
	case ast.KindHTMLBlock:
		return KindHTML
	default:
		return KindOther
	}
}

// blockSpan computes the full-line byte range of a block node. Goldmark's
// line segments may trim marker prefixes and may or may not include line
// terminators, so spans are bracketed out to line boundaries, which also
// guarantees they never split a multi-byte code point.
func blockSpan(n ast.Node, src []byte) (int, int, bool) {
	switch t := n.(type) {
	case *ast.Heading:
		return headingSpan(t, src)
	case *ast.FencedCodeBlock:
		return fenceSpan(t, src)
	}

	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return linesSpan(n.Lines(), src)
	}

	// Container node: bracket the first and last child spans.
	first, last := n.FirstChild(), n.LastChild()
	if first == nil {
		return 0, 0, false
	}
	start, _, ok1 := blockSpan(first, src)
	_, end, ok2 := blockSpan(last, src)
	if !ok1 || !ok2 || end <= start {
		return 0, 0, false
	}
	return start, end, true
}

func linesSpan(lines *text.Segments, src []byte) (int, int, bool) {
	first := lines.At(0)
	last := lines.At(lines.Len() - 1)

	start := lineStart(src, first.Start)
	stop := last.Stop
	if stop > len(src) {
		stop = len(src)
	}
	if stop <= start {
		return 0, 0, false
	}
	end := trimCR(src, start, lineEnd(src, stop-1))
	if end <= start {
		return 0, 0, false
	}
	return start, end, true
}

func headingSpan(h *ast.Heading, src []byte) (int, int, bool) {
	if h.Lines().Len() == 0 {
		return 0, 0, false
	}
	start, end, ok := linesSpan(h.Lines(), src)
	if !ok {
		return 0, 0, false
	}
	// Setext headings keep their underline as part of the span.
	if firstNonSpace(src, start) != '#' {
		if u := setextUnderlineEnd(src, end); u > end {
			end = u
		}
	}
	return start, end, true
}

func fenceSpan(f *ast.FencedCodeBlock, src []byte) (int, int, bool) {
	if f.Lines().Len() == 0 {
		// Empty fence: locate the opening line through the info string.
		if f.Info == nil {
			return 0, 0, false
		}
		start := lineStart(src, f.Info.Segment.Start)
		openEnd := trimCR(src, start, lineEnd(src, f.Info.Segment.Start))
		if !isFenceLine(src, start, openEnd) {
			return 0, 0, false
		}
		return start, closingFenceEnd(src, openEnd), true
	}

	innerStart, innerEnd, ok := linesSpan(f.Lines(), src)
	if !ok {
		return 0, 0, false
	}
	start := prevLineStart(src, innerStart)
	openEnd := trimCR(src, start, lineEnd(src, start))
	if start >= innerStart || !isFenceLine(src, start, openEnd) {
		return 0, 0, false
	}
	return start, closingFenceEnd(src, innerEnd), true
}

// closingFenceEnd extends end past the closing fence line if one follows.
// An unclosed fence (EOF) keeps its current end.
func closingFenceEnd(src []byte, end int) int {
	j := end
	if j < len(src) && src[j] == '\r' {
		j++
	}
	if j >= len(src) || src[j] != '\n' {
		return end
	}
	j++
	closeEnd := trimCR(src, j, lineEnd(src, j))
	if isFenceLine(src, j, closeEnd) {
		return closeEnd
	}
	return end
}

// isFenceLine reports whether src[start:end) is a code-fence marker line:
// optional indentation followed by a run of at least three backticks or
// tildes, then optionally an info string (for backtick fences, no backticks
// allowed in it).
func isFenceLine(src []byte, start, end int) bool {
	i := start
	for i < end && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	if i >= end || (src[i] != '`' && src[i] != '~') {
		return false
	}
	marker := src[i]
	run := 0
	for i < end && src[i] == marker {
		run++
		i++
	}
	return run >= 3
}

// setextUnderlineEnd returns the end offset of a setext underline on the
// line following end, or end if there is none.
func setextUnderlineEnd(src []byte, end int) int {
	j := end
	if j < len(src) && src[j] == '\r' {
		j++
	}
	if j >= len(src) || src[j] != '\n' {
		return end
	}
	j++
	lineEndPos := trimCR(src, j, lineEnd(src, j))
	i := j
	for i < lineEndPos && src[i] == ' ' {
		i++
	}
	if i >= lineEndPos || (src[i] != '=' && src[i] != '-') {
		return end
	}
	marker := src[i]
	for i < lineEndPos && src[i] == marker {
		i++
	}
	for i < lineEndPos && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	if i != lineEndPos {
		return end
	}
	return lineEndPos
}

// lineStart walks back from off to the start of its line.
func lineStart(src []byte, off int) int {
	if off > len(src) {
		off = len(src)
	}
	i := off
	for i > 0 && src[i-1] != '\n' {
		i--
	}
	return i
}

// lineEnd walks forward from off to the position of the next newline
// (exclusive), or len(src).
func lineEnd(src []byte, off int) int {
	if off < 0 {
		off = 0
	}
	for i := off; i < len(src); i++ {
		if src[i] == '\n' {
			return i
		}
	}
	return len(src)
}

// prevLineStart returns the start of the line preceding the line that
// begins at off, or 0.
func prevLineStart(src []byte, off int) int {
	if off < 2 {
		return 0
	}
	return lineStart(src, off-2)
}

// trimCR excludes a trailing carriage return from [start,end).
func trimCR(src []byte, start, end int) int {
	if end > start && end-1 < len(src) && src[end-1] == '\r' {
		return end - 1
	}
	return end
}

func firstNonSpace(src []byte, off int) byte {
	for i := off; i < len(src); i++ {
		if src[i] != ' ' {
			return src[i]
		}
	}
	return 0
}

// reconstruct builds a semantic-text rendition of a node for the cases
// where exact slicing is unavailable. Original formatting is lost; content
// and tag tokens are preserved.
func reconstruct(n ast.Node, src []byte) string {
	if f, ok := n.(*ast.FencedCodeBlock); ok {
		var sb strings.Builder
		sb.WriteString("```")
		if lang := f.Language(src); len(lang) > 0 {
			sb.Write(lang)
		}
		sb.WriteByte('\n')
		for i := 0; i < f.Lines().Len(); i++ {
			seg := f.Lines().At(i)
			sb.Write(seg.Value(src))
		}
		body := sb.String()
		if !strings.HasSuffix(body, "\n") {
			body += "\n"
		}
		return body + "```"
	}

	if n.Kind() == ast.KindThematicBreak {
		return "---"
	}

	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		var sb strings.Builder
		for i := 0; i < n.Lines().Len(); i++ {
			seg := n.Lines().At(i)
			sb.Write(seg.Value(src))
		}
		return strings.TrimRight(sb.String(), "\r\n")
	}

	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if s := reconstruct(c, src); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}
