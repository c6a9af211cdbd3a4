// Package rewrite turns classified units into source edits and applies them.
//
// Edits are collected for a whole file, sorted, and applied in one linear
// pass that copies the content between edit boundaries. Offsets therefore
// always refer to the original content and no edit can shift another.
package rewrite

import (
	"regexp"
	"sort"
	"strings"

	"github.com/minios-linux/i18ncheck/classify"
	"github.com/minios-linux/i18ncheck/dialect"
	"github.com/minios-linux/i18ncheck/extract"
	"github.com/minios-linux/i18ncheck/rangeset"
)

// DefaultMarker is the comment placed before template literals that need a
// manual look.
const DefaultMarker = "/** 此模版字符串中包含中文 */"

// Options controls the generated code.
type Options struct {
	// FunctionRef is the translate function to call.
	FunctionRef string
	// Quote is the preferred quote character, ' or ".
	Quote byte
	// MarkTemplates enables marker insertion before template literals.
	MarkTemplates bool
	// Marker is the marker comment.
	Marker string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		FunctionRef:   extract.DefaultFunctionRef,
		Quote:         '\'',
		MarkTemplates: true,
		Marker:        DefaultMarker,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.FunctionRef == "" {
		o.FunctionRef = d.FunctionRef
	}
	if o.Quote != '"' && o.Quote != '\'' {
		o.Quote = d.Quote
	}
	if o.Marker == "" {
		o.Marker = d.Marker
	}
	return o
}

// Edit replaces Span of the original content with Replacement. An empty span
// is an insertion.
type Edit struct {
	Span        rangeset.Span
	Replacement string
	// Kind of the unit that produced the edit; used to settle overlaps.
	Kind extract.Kind
}

// Rewriter builds edits for one dialect-aware file at a time.
type Rewriter struct {
	opts Options
}

// New returns a Rewriter. Unset options take their defaults.
func New(opts Options) *Rewriter {
	return &Rewriter{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (r *Rewriter) Options() Options {
	return r.opts
}

// Rewrite classifies the candidates of res, builds their edits and applies
// them to content. It returns the new content and the edits applied.
func (r *Rewriter) Rewrite(content string, d dialect.Dialect, res *extract.Result) (string, []Edit) {
	edits := r.Edits(content, d, classify.Build(res).Actionable())
	return Apply(content, edits), edits
}

// Edits builds the edit list for units, which must come from one extraction
// pass over content. Units that need no action produce no edit. The returned
// edits are sorted and never overlap.
func (r *Rewriter) Edits(content string, d dialect.Dialect, units []extract.Unit) []Edit {
	f := &file{
		r:       r,
		content: content,
		dialect: d,
		lines:   rangeset.NewLines(content),
	}
	if d == dialect.MarkupEmbeddedScript {
		f.scripts = d.ScriptRegions(content)
	}

	var edits []Edit
	for _, u := range units {
		var (
			e  Edit
			ok bool
		)
		switch classify.Classify(u) {
		case classify.NeedsWrap:
			e, ok = f.wrap(u)
		case classify.NeedsMark:
			if r.opts.MarkTemplates {
				e, ok = f.mark(u)
			}
		}
		if ok {
			edits = append(edits, e)
		}
	}
	return resolve(edits)
}

// resolve sorts edits by position and drops any edit overlapping one that
// was already accepted. Insertions sort before replacements at the same
// offset, wider replacements before narrower ones, higher priority kinds
// first on ties.
func resolve(edits []Edit) []Edit {
	sort.SliceStable(edits, func(i, j int) bool {
		a, b := edits[i].Span, edits[j].Span
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Empty() != b.Empty() {
			return a.Empty()
		}
		if a.End != b.End {
			return a.End > b.End
		}
		return edits[i].Kind.Outranks(edits[j].Kind)
	})

	kept := edits[:0]
	last := 0
	for _, e := range edits {
		if e.Span.Start < last {
			continue
		}
		kept = append(kept, e)
		last = e.Span.End
	}
	return kept
}

// Apply rebuilds content with edits applied. Edits must be sorted and
// non-overlapping, as returned by Rewriter.Edits.
func Apply(content string, edits []Edit) string {
	if len(edits) == 0 {
		return content
	}
	var b strings.Builder
	grow := len(content)
	for _, e := range edits {
		grow += len(e.Replacement)
	}
	b.Grow(grow)

	pos := 0
	for _, e := range edits {
		b.WriteString(content[pos:e.Span.Start])
		b.WriteString(e.Replacement)
		pos = e.Span.End
	}
	b.WriteString(content[pos:])
	return b.String()
}

type file struct {
	r       *Rewriter
	content string
	dialect dialect.Dialect
	lines   *rangeset.Lines
	scripts rangeset.Set
}

func (f *file) call(text string) string {
	return f.r.opts.FunctionRef + "(" + quoteLiteral(text, f.r.opts.Quote) + ")"
}

func (f *file) wrap(u extract.Unit) (Edit, bool) {
	e := Edit{Span: u.Full, Kind: u.Kind}
	if u.Kind == extract.FreeText {
		e.Replacement = f.dialect.Interpolate(f.call(u.Text))
		return e, true
	}

	switch f.dialect {
	case dialect.PlainScript:
		e.Replacement = f.call(u.Text)

	case dialect.InlineMarkup:
		if _, ok := f.attribute(u); ok {
			e.Replacement = "{ " + f.call(u.Text) + " }"
		} else {
			e.Replacement = f.call(u.Text)
		}

	case dialect.MarkupEmbeddedScript:
		if f.scripts.Claimed(u.Full) {
			e.Replacement = f.call(u.Text)
			break
		}
		attr, ok := f.attribute(u)
		if !ok {
			// Inside an existing {{ }} or binding expression.
			e.Replacement = f.call(u.Text)
			break
		}
		name := f.content[attr.nameStart:attr.nameEnd]
		if isBinding(name) {
			// The value is already an expression.
			return Edit{}, false
		}
		delim := f.content[u.Full.Start]
		call := f.r.opts.FunctionRef + "(" + quoteAs(u.Text, otherQuote(delim)) + ")"
		e.Span = rangeset.Span{Start: attr.nameStart, End: u.Full.End}
		e.Replacement = ":" + name + "=" + string(delim) + call + string(delim)
	}
	return e, true
}

// mark inserts the marker comment before a template literal. The literal
// itself stays in place, so nested templates keep their own insertions.
func (f *file) mark(u extract.Unit) (Edit, bool) {
	before := strings.TrimRight(f.content[:u.Full.Start], " \t")
	if strings.HasSuffix(before, f.r.opts.Marker) {
		return Edit{}, false
	}
	return Edit{
		Span:        rangeset.Span{Start: u.Full.Start, End: u.Full.Start},
		Replacement: f.r.opts.Marker + " ",
		Kind:        u.Kind,
	}, true
}

type attribute struct {
	nameStart, nameEnd int
}

var declPattern = regexp.MustCompile(`\b(?:let|const|var)\b`)

const operatorBytes = "+-*/%&|^!<>=?"

// attribute reports whether the literal u is the value of a markup
// attribute: the nearest non-blank character before it, looking back no
// further than the previous line, is a plain "=" with no variable
// declaration to its left.
func (f *file) attribute(u extract.Unit) (attribute, bool) {
	row := f.lines.Row(u.Full.Start)
	floor := f.lines.Start(row - 1)

	eq := -1
	for i := u.Full.Start - 1; i >= floor; i-- {
		c := f.content[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			continue
		}
		if c == '=' {
			eq = i
		}
		break
	}
	if eq < 0 {
		return attribute{}, false
	}

	left := f.content[f.lines.Start(f.lines.Row(eq)):eq]
	if trimmed := strings.TrimRight(left, " \t"); trimmed != "" &&
		strings.IndexByte(operatorBytes, trimmed[len(trimmed)-1]) >= 0 {
		return attribute{}, false
	}
	if declPattern.MatchString(left) {
		return attribute{}, false
	}

	nameEnd := len(strings.TrimRight(f.content[:eq], " \t"))
	nameStart := nameEnd
	for nameStart > 0 && isNameByte(f.content[nameStart-1]) {
		nameStart--
	}
	if nameStart == nameEnd {
		return attribute{}, false
	}
	return attribute{nameStart: nameStart, nameEnd: nameEnd}, true
}

func isNameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("_-:@.$", c) >= 0
}

func isBinding(name string) bool {
	return strings.HasPrefix(name, ":") || strings.HasPrefix(name, "@") || strings.HasPrefix(name, "v-")
}
