// Package dialect models the syntactic family of a source file. The
// extractor uses it to decide whether free markup text exists at all, and the
// rewriter and import injector use it to choose insertion syntax.
package dialect

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/minios-linux/i18ncheck/rangeset"
)

// Dialect is a closed set of file families.
type Dialect int

const (
	// PlainScript is script-only source (.js, .ts, ...).
	PlainScript Dialect = iota
	// MarkupEmbeddedScript is markup with embedded <script> blocks (.vue).
	MarkupEmbeddedScript
	// InlineMarkup is script with inline markup expressions (.jsx, .tsx).
	InlineMarkup
)

var names = map[Dialect]string{
	PlainScript:          "plain-script",
	MarkupEmbeddedScript: "markup-embedded-script",
	InlineMarkup:         "inline-markup",
}

func (d Dialect) String() string {
	if n, ok := names[d]; ok {
		return n
	}
	return fmt.Sprintf("dialect(%d)", int(d))
}

// Parse converts a dialect name (as used in config files) back to a Dialect.
// Short aliases "js", "vue" and "jsx" are accepted.
func Parse(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain-script", "plain", "js", "ts", "script":
		return PlainScript, nil
	case "markup-embedded-script", "vue", "sfc":
		return MarkupEmbeddedScript, nil
	case "inline-markup", "jsx", "tsx":
		return InlineMarkup, nil
	}
	return PlainScript, fmt.Errorf("unknown dialect %q (valid: plain-script, markup-embedded-script, inline-markup)", s)
}

// HasMarkup reports whether files of this dialect carry markup text that can
// hold untagged natural-language runs outside string literals.
func (d Dialect) HasMarkup() bool {
	return d == MarkupEmbeddedScript || d == InlineMarkup
}

var extensionDialects = map[string]Dialect{
	".vue": MarkupEmbeddedScript,
	".jsx": InlineMarkup,
	".tsx": InlineMarkup,
	".js":  PlainScript,
	".mjs": PlainScript,
	".cjs": PlainScript,
	".ts":  PlainScript,
	".mts": PlainScript,
	".cts": PlainScript,
}

// FromPath detects the dialect from a file extension. Unknown extensions are
// treated as plain script.
func FromPath(p string) Dialect {
	if d, ok := extensionDialects[strings.ToLower(filepath.Ext(p))]; ok {
		return d
	}
	return PlainScript
}

// Interpolate wraps a call expression in the syntax used to embed an
// expression inside markup body text.
func (d Dialect) Interpolate(expr string) string {
	switch d {
	case MarkupEmbeddedScript:
		return "{{ " + expr + " }}"
	case InlineMarkup:
		return "{ " + expr + " }"
	default:
		return expr
	}
}

var (
	scriptOpenRe  = regexp.MustCompile(`(?i)<script\b[^>]*>`)
	scriptCloseRe = regexp.MustCompile(`(?i)</script\s*>`)
)

// ScriptOpenTag returns the span of the first <script ...> opening tag, or
// false when content has none.
func ScriptOpenTag(content string) (rangeset.Span, bool) {
	loc := scriptOpenRe.FindStringIndex(content)
	if loc == nil {
		return rangeset.Span{}, false
	}
	return rangeset.Span{Start: loc[0], End: loc[1]}, true
}

// ScriptRegions returns the bodies of all <script> blocks (between the end of
// the opening tag and the start of the closing tag). For dialects without
// embedded script blocks the whole content is script and a single region is
// returned.
func (d Dialect) ScriptRegions(content string) rangeset.Set {
	if d != MarkupEmbeddedScript {
		return rangeset.Set{{Start: 0, End: len(content)}}
	}
	var regions rangeset.Set
	pos := 0
	for pos < len(content) {
		open := scriptOpenRe.FindStringIndex(content[pos:])
		if open == nil {
			break
		}
		bodyStart := pos + open[1]
		bodyEnd := len(content)
		if cl := scriptCloseRe.FindStringIndex(content[bodyStart:]); cl != nil {
			bodyEnd = bodyStart + cl[0]
		}
		regions = append(regions, rangeset.Span{Start: bodyStart, End: bodyEnd})
		pos = bodyEnd
		if pos == bodyStart {
			pos++
		}
	}
	return regions
}
