package tags

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/notecomb/notecomb/internal/errors"
)

// Format selects the output document's grouping.
type Format int

const (
	FormatChronological Format = iota
	FormatGrouped
)

// ParseFormat maps the CLI/MCP format names to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "chronological":
		return FormatChronological, nil
	case "grouped":
		return FormatGrouped, nil
	default:
		return 0, errors.NewInvalidRequest("unknown format: " + s)
	}
}

// FileRecords couples one source's bytes with its extracted records.
type FileRecords struct {
	Path    string
	Date    string // ISO date, empty for undated sources
	Source  []byte
	Records []Record
}

// CompileOptions configures one compilation.
type CompileOptions struct {
	Query          Query
	Format         Format
	IncludeContext bool
	OutputPath     string
}

// CompileResult is the rendered document plus match statistics.
type CompileResult struct {
	Output      string
	RecordCount int
	FileCount   int
}

// Compile filters every file's records through the query, deduplicates
// overlapping matches, and renders the output document. Returns a NO_MATCHES
// error when nothing matched; nothing is written by this function.
func Compile(files []FileRecords, opts CompileOptions) (*CompileResult, error) {
	matched := make([]FileRecords, 0, len(files))
	total := 0
	for _, f := range files {
		var keep []Record
		for _, r := range f.Records {
			if opts.Query.Matches(r.TagSet()) {
				keep = append(keep, r)
			}
		}
		keep = dedupeContained(keep)
		if len(keep) == 0 {
			continue
		}
		total += len(keep)
		g := f
		g.Records = keep
		matched = append(matched, g)
	}
	if total == 0 {
		return nil, errors.NewNoMatches(opts.Query.String())
	}

	// Dated files ascending, undated last, ties broken by path. In-file
	// record order is already fixed by extraction.
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Date != b.Date {
			if a.Date == "" {
				return false
			}
			if b.Date == "" {
				return true
			}
			return a.Date < b.Date
		}
		return a.Path < b.Path
	})

	var sb strings.Builder
	sb.WriteString("# Compilation: ")
	sb.WriteString(opts.Query.String())
	sb.WriteString("\n")

	prevGroup := ""
	var prev *renderedRecord
	for fi := range matched {
		f := &matched[fi]
		group := groupHeading(f, opts.Format)
		if group != prevGroup {
			sb.WriteString("\n")
			sb.WriteString(group)
			sb.WriteString("\n")
			prevGroup = group
			prev = nil
		}
		for ri := range f.Records {
			cur := &renderedRecord{file: f, rec: &f.Records[ri]}
			if prev == nil || !sourceAdjacent(prev, cur) {
				sb.WriteString("\n")
			}
			sb.WriteString(renderRecord(f, f.Records[ri], opts))
			sb.WriteString("\n")
			prev = cur
		}
	}

	return &CompileResult{
		Output:      sb.String(),
		RecordCount: total,
		FileCount:   len(matched),
	}, nil
}

type renderedRecord struct {
	file *FileRecords
	rec  *Record
}

// sourceAdjacent reports whether two consecutive records reproduce source
// regions separated by a single line break, so no blank line should be
// injected between them (keeps tight lists tight).
func sourceAdjacent(a, b *renderedRecord) bool {
	if a.file != b.file {
		return false
	}
	pa, pb := a.rec.Payload, b.rec.Payload
	if !pa.IsSpan() || !pb.IsSpan() {
		return false
	}
	return singleNewlineGap(a.file.Source, pa.Span.End, pb.Span.Start)
}

func groupHeading(f *FileRecords, format Format) string {
	if format == FormatGrouped {
		return "## From: " + filepath.Base(f.Path)
	}
	if f.Date == "" {
		return "## Undated"
	}
	return "## " + f.Date
}

func renderRecord(f *FileRecords, r Record, opts CompileOptions) string {
	text := r.Payload.Render(f.Source)
	text = RewriteLinks(text, f.Path, opts.OutputPath)
	if opts.IncludeContext && r.Context.Heading != "" {
		text = "### " + r.Context.Heading + "\n\n" + text
	}
	return text
}

// dedupeContained drops any span record whose byte range lies entirely
// within another matched span record of the same file, so section and
// nested matches emit the broader text once.
func dedupeContained(records []Record) []Record {
	if len(records) < 2 {
		return records
	}
	drop := make([]bool, len(records))
	for i, r := range records {
		if !r.Payload.IsSpan() {
			continue
		}
		for j, o := range records {
			if i == j || drop[j] || !o.Payload.IsSpan() {
				continue
			}
			if !o.Payload.Span.Contains(*r.Payload.Span) {
				continue
			}
			// identical spans: keep the earlier record
			if *o.Payload.Span == *r.Payload.Span && j > i {
				continue
			}
			drop[i] = true
			break
		}
	}
	out := records[:0]
	for i, r := range records {
		if !drop[i] {
			out = append(out, r)
		}
	}
	return out
}
