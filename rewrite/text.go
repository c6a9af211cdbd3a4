package rewrite

import "strings"

// quoteLiteral renders text as a string literal. The preferred quote is used
// unless text already contains it; then the other quote is tried, and as a
// last resort the preferred quote is escaped.
func quoteLiteral(text string, preferred byte) string {
	if !containsUnescaped(text, preferred) {
		return string(preferred) + text + string(preferred)
	}
	other := otherQuote(preferred)
	if !containsUnescaped(text, other) {
		return string(other) + text + string(other)
	}
	return quoteAs(text, preferred)
}

// quoteAs renders text between q quotes, escaping bare occurrences of q.
func quoteAs(text string, q byte) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte(q)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\\' && i+1 < len(text):
			b.WriteByte(c)
			b.WriteByte(text[i+1])
			i++
		case c == q:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(q)
	return b.String()
}

func containsUnescaped(text string, q byte) bool {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case q:
			return true
		}
	}
	return false
}

func otherQuote(q byte) byte {
	if q == '"' {
		return '\''
	}
	return '"'
}
