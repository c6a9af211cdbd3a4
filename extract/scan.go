package extract

import (
	"strings"

	"github.com/minios-linux/i18ncheck/rangeset"
)

// lexical holds the spans found by one forward pass of the tokenizer.
type lexical struct {
	comments  rangeset.Set
	quoted    rangeset.Set
	templates rangeset.Set
}

// scanLexical walks content once, left to right. Comment openers inside
// strings and quotes inside comments are therefore never mistaken for each
// other. Only top-level templates are reported; templates nested inside an
// interpolation belong to their enclosing literal.
func scanLexical(content string) lexical {
	var lx lexical
	n := len(content)
	i := 0
	for i < n {
		c := content[i]
		switch {
		case c == '/' && i+1 < n && content[i+1] == '/':
			end := lineEnd(content, i)
			lx.comments = append(lx.comments, rangeset.Span{Start: i, End: end})
			i = end
		case c == '/' && i+1 < n && content[i+1] == '*':
			end := closeAfter(content, i+2, "*/")
			lx.comments = append(lx.comments, rangeset.Span{Start: i, End: end})
			i = end
		case c == '<' && strings.HasPrefix(content[i:], "<!--"):
			end := closeAfter(content, i+4, "-->")
			lx.comments = append(lx.comments, rangeset.Span{Start: i, End: end})
			i = end
		case c == '\'' || c == '"':
			if end, ok := scanQuoted(content, i); ok {
				lx.quoted = append(lx.quoted, rangeset.Span{Start: i, End: end})
				i = end
			} else {
				// A lone apostrophe in markup text; carry on after it.
				i++
			}
		case c == '`':
			if end, ok := scanTemplate(content, i); ok {
				lx.templates = append(lx.templates, rangeset.Span{Start: i, End: end})
				i = end
			} else {
				i++
			}
		case c == '\\':
			i += 2
		default:
			i++
		}
	}
	return lx
}

// lineEnd returns the offset of the newline ending the line holding i, or
// len(s).
func lineEnd(s string, i int) int {
	if j := strings.IndexByte(s[i:], '\n'); j >= 0 {
		return i + j
	}
	return len(s)
}

// closeAfter returns the offset just past the first occurrence of term at or
// after from. Unterminated comments run to the end of content.
func closeAfter(s string, from int, term string) int {
	if from > len(s) {
		return len(s)
	}
	if j := strings.Index(s[from:], term); j >= 0 {
		return from + j + len(term)
	}
	return len(s)
}

// scanQuoted scans a '...' or "..." literal starting at start and returns the
// offset just past its closing quote. Escapes are honoured. A literal may not
// cross a line break.
func scanQuoted(s string, start int) (int, bool) {
	q := s[start]
	for j := start + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			if j+1 < len(s) && (s[j+1] == '\n' || s[j+1] == '\r') {
				return 0, false
			}
			j++
		case '\n', '\r':
			return 0, false
		case q:
			return j + 1, true
		}
	}
	return 0, false
}

// scanTemplate scans a template literal starting at the backtick at start and
// returns the offset just past its closing backtick.
//
// The stack holds one frame per open construct: 0 for template text, n > 0
// for an interpolation with n unclosed braces. Inside an interpolation quoted
// strings, comments and nested templates are skipped whole so that their
// braces and backticks do not close anything.
func scanTemplate(s string, start int) (int, bool) {
	stack := []int{0}
	i := start + 1
	for i < len(s) {
		top := len(stack) - 1
		c := s[i]
		if stack[top] == 0 {
			switch {
			case c == '\\':
				i += 2
				continue
			case c == '`':
				stack = stack[:top]
				i++
				if len(stack) == 0 {
					return i, true
				}
				continue
			case c == '$' && i+1 < len(s) && s[i+1] == '{':
				stack = append(stack, 1)
				i += 2
				continue
			}
			i++
			continue
		}

		switch c {
		case '\'', '"':
			if end, ok := scanQuoted(s, i); ok {
				i = end
				continue
			}
		case '`':
			stack = append(stack, 0)
		case '{':
			stack[top]++
		case '}':
			stack[top]--
			if stack[top] == 0 {
				stack = stack[:top]
			}
		case '/':
			if i+1 < len(s) && s[i+1] == '/' {
				i = lineEnd(s, i)
				continue
			}
			if i+1 < len(s) && s[i+1] == '*' {
				i = closeAfter(s, i+2, "*/")
				continue
			}
		}
		i++
	}
	return len(s), false
}
