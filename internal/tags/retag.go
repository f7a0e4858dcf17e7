package tags

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/notecomb/notecomb/internal/markdown"
)

var tagNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidTagName reports whether name is usable as a tag (no leading "#").
func ValidTagName(name string) bool {
	return tagNameRe.MatchString(name)
}

// Retag renames every occurrence of oldTag to newTag in src, matching
// case-insensitively. Occurrences inside code fences and inline code are
// left alone. Returns the rewritten text and the replacement count.
func Retag(src []byte, oldTag, newTag string) ([]byte, int) {
	oldTag = strings.TrimPrefix(oldTag, "#")
	newTag = strings.TrimPrefix(newTag, "#")

	excluded := markdown.FenceSpans(markdown.ParseBlocks(src))
	for _, loc := range inlineCodeRe.FindAllIndex(src, -1) {
		excluded = append(excluded, markdown.Span{Start: loc[0], End: loc[1]})
	}

	var out bytes.Buffer
	out.Grow(len(src))
	count := 0
	last := 0
	for _, loc := range tagScanRe.FindAllIndex(src, -1) {
		name := string(src[loc[0]+1 : loc[1]])
		if !strings.EqualFold(name, oldTag) ||
			(loc[0] > 0 && isTagBodyByte(src[loc[0]-1])) ||
			withinAny(excluded, loc[0]) {
			continue
		}
		out.Write(src[last:loc[0]])
		out.WriteByte('#')
		out.WriteString(newTag)
		last = loc[1]
		count++
	}
	if count == 0 {
		return src, 0
	}
	out.Write(src[last:])
	return out.Bytes(), count
}
