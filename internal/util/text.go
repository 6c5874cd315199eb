package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reSpaces     = regexp.MustCompile(`\s+`)
	reBlankLines = regexp.MustCompile(`\n[ \t]*\n`)
)

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// NormalizeBlock folds compatibility characters (non-breaking spaces, full-width
// digits) and collapses every whitespace run, including line breaks, to one space.
func NormalizeBlock(input string) string {
	return NormalizeSpaces(norm.NFKC.String(input))
}

// FoldSpaces rewrites whitespace that ASCII-only \s misses: non-breaking and
// other Unicode spaces become ' ', line and paragraph separators become '\n'.
// Line structure is otherwise left alone.
func FoldSpaces(input string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\u2028' || r == '\u2029':
			return '\n'
		case r == '\v' || r == '\ufeff':
			return ' '
		case r > unicode.MaxASCII && unicode.Is(unicode.Zs, r):
			return ' '
		}
		return r
	}, input)
}

// SplitParagraphs splits plain text on blank lines. Line breaks inside a
// paragraph are kept; callers decide whether to fold them.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	parts := reBlankLines.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
