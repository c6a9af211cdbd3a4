package rewrite

import (
	"regexp"
	"strings"

	"github.com/minios-linux/i18ncheck/dialect"
	"github.com/minios-linux/i18ncheck/extract"
)

// DefaultImport is the statement injected into files that call the default
// translate function.
const DefaultImport = "import i18n from '@/utils/i18n';"

// Importer adds the import statement for the translate function to files that
// use it.
type Importer struct {
	statement string
	callRe    *regexp.Regexp
}

// NewImporter returns an Importer for statement and fn. Empty values take
// the defaults.
func NewImporter(statement, fn string) *Importer {
	if statement == "" {
		statement = DefaultImport
	}
	if fn == "" {
		fn = extract.DefaultFunctionRef
	}
	return &Importer{
		statement: statement,
		callRe:    regexp.MustCompile(`(?:^|[^\w$])` + regexp.QuoteMeta(fn) + "\\s*\\(\\s*['\"`]"),
	}
}

// Statement returns the import statement.
func (im *Importer) Statement() string {
	return im.statement
}

// Needed reports whether content calls the translate function with a
// literal argument but lacks the import.
func (im *Importer) Needed(content string) bool {
	return im.callRe.MatchString(content) && !strings.Contains(content, im.statement)
}

// Inject returns content with the import added when Needed. The second
// result is false when content was left unchanged, including the case of a
// markup file without any <script> block to put the import in.
func (im *Importer) Inject(content string, d dialect.Dialect) (string, bool) {
	if !im.Needed(content) {
		return content, false
	}
	if d == dialect.MarkupEmbeddedScript {
		tag, ok := dialect.ScriptOpenTag(content)
		if !ok {
			return content, false
		}
		return content[:tag.End] + "\n" + im.statement + content[tag.End:], true
	}

	at := prologueEnd(content)
	prefix := content[:at]
	if prefix != "" && !strings.HasSuffix(prefix, "\n") {
		prefix += "\n"
	}
	return prefix + im.statement + "\n" + content[at:], true
}

var directivePattern = regexp.MustCompile(`^\s*['"]use [\w ]+['"];?\s*$`)

// prologueEnd returns the offset just past a leading shebang line and any
// directive lines ('use client';, "use strict";) that must stay first.
func prologueEnd(content string) int {
	pos := 0
	if strings.HasPrefix(content, "#!") {
		pos = lineEndAfter(content, 0)
	}
	for pos < len(content) {
		next := lineEndAfter(content, pos)
		line := strings.TrimRight(content[pos:next], "\r\n")
		if !directivePattern.MatchString(line) {
			break
		}
		pos = next
	}
	return pos
}

// lineEndAfter returns the offset just past the newline ending the line that
// starts at pos, or len(s).
func lineEndAfter(s string, pos int) int {
	if i := strings.IndexByte(s[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(s)
}
