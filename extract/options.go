package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultFunctionRef         = "i18n.t"
	DefaultDisableNextLineFlag = "i18n-disable-next-line"
	DefaultTargetFrom          = 0x4E00
	DefaultTargetTo            = 0x9FA5
)

// TargetRange is the inclusive rune range of the script being hunted for.
type TargetRange struct {
	From rune
	To   rune
}

// Contains reports whether r lies in the range.
func (t TargetRange) Contains(r rune) bool {
	return r >= t.From && r <= t.To
}

// Options configures an Extractor. The zero value selects every default.
type Options struct {
	// FunctionRef is the translate function, e.g. "i18n.t" or "$t".
	FunctionRef string
	// TaggedPatterns override the built-in translate-call patterns. Capture
	// group 1 should match the literal's text.
	TaggedPatterns []string
	// IgnorePatterns mark additional regions whose text is never reported.
	IgnorePatterns []string
	// TargetScript is the character range to detect.
	TargetScript TargetRange
	// FreeTextPattern overrides the markup free-text pattern.
	FreeTextPattern string
	// DisableNextLineFlag suppresses candidates on the line after the line
	// containing it.
	DisableNextLineFlag string
}

func (o Options) withDefaults() Options {
	if o.FunctionRef == "" {
		o.FunctionRef = DefaultFunctionRef
	}
	if o.TargetScript == (TargetRange{}) {
		o.TargetScript = TargetRange{From: DefaultTargetFrom, To: DefaultTargetTo}
	}
	if o.DisableNextLineFlag == "" {
		o.DisableNextLineFlag = DefaultDisableNextLineFlag
	}
	return o
}

// ConfigError reports an option that cannot be used, typically a regular
// expression that does not compile.
type ConfigError struct {
	Field   string
	Pattern string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Pattern, e.Err)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TaggedPatterns returns the built-in translate-call patterns for fn: one
// per quote style, each capturing the literal's text in group 1.
func TaggedPatterns(fn string) []string {
	call := regexp.QuoteMeta(fn) + `\s*\(\s*`
	return []string{
		call + `'((?:[^'\\\n\r]|\\.)*)'\s*[,)]`,
		call + `"((?:[^"\\\n\r]|\\.)*)"\s*[,)]`,
		call + "`((?:[^`\\\\]|\\\\.)*)`" + `\s*[,)]`,
	}
}

// fallbackPatterns are applied to a tagged-call match whose group 1 did not
// capture anything.
var fallbackPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\(\s*'((?:[^'\\\n\r]|\\.)*?)'\s*[,)]`),
	regexp.MustCompile(`\(\s*"((?:[^"\\\n\r]|\\.)*?)"\s*[,)]`),
	regexp.MustCompile("\\(\\s*`((?:[^`\\\\]|\\\\.)*?)`\\s*[,)]"),
}

// equalityPatterns match literals compared with ===, !==, == or != on
// either side. Such literals are usually protocol values, not UI text.
var equalityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`===\s*'[^'\n]*'`),
	regexp.MustCompile(`===\s*"[^"\n]*"`),
	regexp.MustCompile(`!==\s*'[^'\n]*'`),
	regexp.MustCompile(`!==\s*"[^"\n]*"`),
	regexp.MustCompile(`'[^'\n]*'\s*[!=]==?`),
	regexp.MustCompile(`"[^"\n]*"\s*[!=]==?`),
	regexp.MustCompile(`[^=!]==\s*'[^'\n]*'`),
	regexp.MustCompile(`[^=!]==\s*"[^"\n]*"`),
	regexp.MustCompile(`!=\s*'[^'\n]*'`),
	regexp.MustCompile(`!=\s*"[^"\n]*"`),
}

var enumPattern = regexp.MustCompile(`(?:export\s+)?(?:const\s+)?enum\s+\w+\s*\{[^}]*\}`)

var interpolationPattern = regexp.MustCompile(`(?s)\$\{.*?\}`)

// freeTextPattern builds the default markup text pattern for tr: a run that
// starts with a target character and ends with one (or a full stop), allowing
// ASCII letters, digits, spaces and common punctuation in between.
func freeTextPattern(tr TargetRange) string {
	target := fmt.Sprintf(`\x{%x}-\x{%x}`, tr.From, tr.To)
	var b strings.Builder
	b.WriteString("[" + target + "]")
	b.WriteString(`(?:[-/` + target + `a-zA-Z0-9 .;!?'"，。“”‘’（）【】、？！；]*`)
	b.WriteString("[" + target + "。])?")
	return b.String()
}

func compileAll(field string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &ConfigError{Field: field, Pattern: p, Err: err}
		}
		out = append(out, re)
	}
	return out, nil
}
