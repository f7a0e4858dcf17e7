package tags

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	inlineLinkRe = regexp.MustCompile(`(!?\[[^\]]*\]\()([^)]+)(\))`)
	htmlAttrRe   = regexp.MustCompile(`(?i)\b(src|href)(\s*=\s*)("[^"]*"|'[^']*')`)
)

// RewriteLinks re-targets relative link and image paths in text so they
// resolve correctly from the output file's directory instead of the source
// file's. Absolute paths, URLs with a scheme, and pure fragment/query
// targets are left unchanged. Covers markdown inline links/images and HTML
// src/href attributes.
func RewriteLinks(text, sourcePath, outputPath string) string {
	srcDir := filepath.Dir(sourcePath)
	outDir := filepath.Dir(outputPath)
	if srcDir == outDir {
		return text
	}

	text = inlineLinkRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := inlineLinkRe.FindStringSubmatch(m)
		return parts[1] + rewriteInlineTarget(parts[2], srcDir, outDir) + parts[3]
	})

	text = htmlAttrRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := htmlAttrRe.FindStringSubmatch(m)
		quoted := parts[3]
		quote := quoted[:1]
		inner := quoted[1 : len(quoted)-1]
		return parts[1] + parts[2] + quote + rewriteTarget(inner, srcDir, outDir) + quote
	})

	return text
}

// rewriteInlineTarget handles the markdown destination syntax: an optional
// angle-bracketed path and an optional title after the first whitespace.
func rewriteInlineTarget(target, srcDir, outDir string) string {
	trimmed := strings.TrimSpace(target)
	if strings.HasPrefix(trimmed, "<") && strings.Contains(trimmed, ">") {
		end := strings.Index(trimmed, ">")
		inner := trimmed[1:end]
		return "<" + rewriteTarget(inner, srcDir, outDir) + ">" + trimmed[end+1:]
	}
	dest := trimmed
	title := ""
	if i := strings.IndexAny(trimmed, " \t"); i >= 0 {
		dest, title = trimmed[:i], trimmed[i:]
	}
	return rewriteTarget(dest, srcDir, outDir) + title
}

func rewriteTarget(target, srcDir, outDir string) string {
	if target == "" ||
		strings.HasPrefix(target, "#") ||
		strings.HasPrefix(target, "?") ||
		strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "\\") ||
		hasURIScheme(target) {
		return target
	}

	pathPart := target
	suffix := ""
	if i := strings.IndexAny(target, "#?"); i >= 0 {
		pathPart, suffix = target[:i], target[i:]
	}
	if pathPart == "" {
		return target
	}

	rel, err := filepath.Rel(outDir, filepath.Join(srcDir, pathPart))
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel) + suffix
}

// hasURIScheme reports whether target starts with an RFC 3986 scheme, e.g.
// "https:", "mailto:".
func hasURIScheme(target string) bool {
	for i := 0; i < len(target); i++ {
		c := target[i]
		switch {
		case c == ':':
			return i > 0
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '.' || c == '-'):
		default:
			return false
		}
	}
	return false
}
