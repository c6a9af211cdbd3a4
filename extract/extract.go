package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/minios-linux/i18ncheck/dialect"
	"github.com/minios-linux/i18ncheck/rangeset"
)

// Extractor holds compiled options. It is safe for concurrent use.
type Extractor struct {
	opts     Options
	tagged   []*regexp.Regexp
	ignore   []*regexp.Regexp
	freeText *regexp.Regexp
}

// New compiles opts. A pattern that does not compile is reported as a
// *ConfigError.
func New(opts Options) (*Extractor, error) {
	opts = opts.withDefaults()
	if opts.TargetScript.From > opts.TargetScript.To {
		return nil, &ConfigError{
			Field: "target script range",
			Err:   fmt.Errorf("from %U is after to %U", opts.TargetScript.From, opts.TargetScript.To),
		}
	}

	patterns := opts.TaggedPatterns
	if len(patterns) == 0 {
		patterns = TaggedPatterns(opts.FunctionRef)
	}
	tagged, err := compileAll("tagged pattern", patterns)
	if err != nil {
		return nil, err
	}
	ignore, err := compileAll("ignore pattern", opts.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	ftPattern := opts.FreeTextPattern
	if ftPattern == "" {
		ftPattern = freeTextPattern(opts.TargetScript)
	}
	freeText, err := compileAll("free-text pattern", []string{ftPattern})
	if err != nil {
		return nil, err
	}

	return &Extractor{opts: opts, tagged: tagged, ignore: ignore, freeText: freeText[0]}, nil
}

// Options returns the effective options, defaults filled in.
func (x *Extractor) Options() Options {
	return x.opts
}

// HasTarget reports whether s contains at least one target-script character.
func (x *Extractor) HasTarget(s string) bool {
	for _, r := range s {
		if x.opts.TargetScript.Contains(r) {
			return true
		}
	}
	return false
}

// Extract runs one pass over content.
func (x *Extractor) Extract(content string, d dialect.Dialect) *Result {
	p := &pass{x: x, content: content, lines: rangeset.NewLines(content)}
	p.disabled = p.disabledRows()

	lx := scanLexical(content)
	res := &Result{}

	res.Ignored = p.ignoredUnits(lx.comments)
	ignored := fullSpans(res.Ignored)

	res.Tagged = p.taggedUnits(ignored)
	tagged := fullSpans(res.Tagged)

	res.Templates = p.templateUnits(lx.templates, ignored, tagged)
	res.Quoted = p.quotedUnits(lx.quoted, ignored, tagged)

	if d.HasMarkup() {
		exclude := rangeset.Union(tagged, lx.templates, lx.quoted)
		var scripts rangeset.Set
		if d == dialect.MarkupEmbeddedScript {
			scripts = d.ScriptRegions(content)
		}
		res.FreeText = p.freeTextUnits(ignored, tagged, exclude, scripts)
		res.Quoted = dropWithin(res.Quoted, fullSpans(res.FreeText))
	}
	return res
}

// pass carries the per-call state of Extract.
type pass struct {
	x        *Extractor
	content  string
	lines    *rangeset.Lines
	disabled map[int]bool
}

func (p *pass) disabledRows() map[int]bool {
	flag := p.x.opts.DisableNextLineFlag
	rows := make(map[int]bool)
	if !strings.Contains(p.content, flag) {
		return rows
	}
	for row := 1; row <= p.lines.Count(); row++ {
		if strings.Contains(p.lines.Line(row), flag) {
			rows[row+1] = true
		}
	}
	return rows
}

// targets returns the offsets of target-script characters inside span.
func (p *pass) targets(span rangeset.Span) []int {
	var offs []int
	for i := span.Start; i < span.End; {
		r, size := utf8.DecodeRuneInString(p.content[i:span.End])
		if p.x.opts.TargetScript.Contains(r) {
			offs = append(offs, i)
		}
		i += size
	}
	return offs
}

func (p *pass) unit(kind Kind, full, inner rangeset.Span) Unit {
	return Unit{
		Kind:     kind,
		Full:     full,
		Inner:    inner,
		Position: p.lines.Position(inner.Start),
		Text:     inner.Slice(p.content),
		FullText: full.Slice(p.content),
	}
}

func (p *pass) ignoredUnits(comments rangeset.Set) []Unit {
	spans := append(rangeset.Set(nil), comments...)
	for _, group := range [][]*regexp.Regexp{{enumPattern}, equalityPatterns, p.x.ignore} {
		for _, r := range group {
			for _, loc := range r.FindAllStringIndex(p.content, -1) {
				if loc[1] > loc[0] {
					spans = append(spans, rangeset.Span{Start: loc[0], End: loc[1]})
				}
			}
		}
	}
	sortSpans(spans)

	units := make([]Unit, 0, len(spans))
	for i, s := range spans {
		if i > 0 && s == spans[i-1] {
			continue
		}
		units = append(units, p.unit(Ignored, s, s))
	}
	return units
}

func (p *pass) taggedUnits(ignored rangeset.Set) []Unit {
	seen := make(map[rangeset.Span]bool)
	var units []Unit
	for _, re := range p.x.tagged {
		for _, loc := range re.FindAllStringSubmatchIndex(p.content, -1) {
			full := rangeset.Span{Start: loc[0], End: loc[1]}
			if splitsIdentifier(p.content, loc[0]) {
				continue
			}
			inner, ok := captured(p.content, loc)
			if !ok {
				continue
			}
			if seen[full] || ignored.Claimed(full) {
				continue
			}
			all := p.targets(full)
			targets := outside(all, ignored)
			if len(all) > 0 && len(targets) == 0 {
				continue
			}
			seen[full] = true

			u := p.unit(TaggedCall, full, inner)
			u.IsAlreadyTagged = true
			u.IsFullyCoveredByTags = true
			u.TargetOffsets = targets
			u.IsTemplate = inner.Start > 0 && inner.End < len(p.content) &&
				p.content[inner.Start-1] == '`' && p.content[inner.End] == '`'
			u.HasInterpolation = u.IsTemplate && interpolationPattern.MatchString(u.FullText)
			units = append(units, u)
		}
	}
	sortUnits(units)
	return units
}

// splitsIdentifier reports whether a match starting at start begins in the
// middle of an identifier, like "t(" inside "set(".
func splitsIdentifier(content string, start int) bool {
	return start > 0 && isIdentByte(content[start]) && isIdentByte(content[start-1])
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// captured returns the span of the literal text inside a tagged-call match.
// Group 1 is used when the pattern has one and it matched something;
// otherwise the per-quote fallbacks are tried on the matched text.
func captured(content string, loc []int) (rangeset.Span, bool) {
	if len(loc) >= 4 && loc[2] >= 0 && loc[3] > loc[2] {
		return rangeset.Span{Start: loc[2], End: loc[3]}, true
	}
	sub := content[loc[0]:loc[1]]
	for _, fb := range fallbackPatterns {
		m := fb.FindStringSubmatchIndex(sub)
		if m != nil && m[3] > m[2] {
			return rangeset.Span{Start: loc[0] + m[2], End: loc[0] + m[3]}, true
		}
	}
	return rangeset.Span{}, false
}

func (p *pass) templateUnits(templates, ignored, tagged rangeset.Set) []Unit {
	var units []Unit
	for _, full := range templates {
		inner := rangeset.Span{Start: full.Start + 1, End: full.End - 1}
		if inner.Empty() {
			continue
		}
		targets := outside(p.targets(full), ignored)
		if len(targets) == 0 || ignored.Claimed(full) {
			continue
		}
		u := p.unit(TemplateLiteral, full, inner)
		if p.disabled[u.Position.Row] {
			continue
		}
		u.IsTemplate = true
		u.HasInterpolation = interpolationPattern.MatchString(u.Text)
		u.IsAlreadyTagged = tagged.Claimed(full)
		u.IsFullyCoveredByTags = allCovered(targets, tagged)
		u.TargetOffsets = targets
		units = append(units, u)
	}
	return units
}

func (p *pass) quotedUnits(quoted, ignored, tagged rangeset.Set) []Unit {
	var units []Unit
	for _, full := range quoted {
		inner := rangeset.Span{Start: full.Start + 1, End: full.End - 1}
		if inner.Empty() {
			continue
		}
		targets := outside(p.targets(inner), ignored)
		if len(targets) == 0 || ignored.Claimed(full) || tagged.Claimed(full) {
			continue
		}
		u := p.unit(QuotedString, full, inner)
		if p.disabled[u.Position.Row] {
			continue
		}
		u.IsFullyCoveredByTags = allCovered(targets, tagged)
		u.TargetOffsets = targets
		units = append(units, u)
	}
	return units
}

func (p *pass) freeTextUnits(ignored, tagged, exclude, scripts rangeset.Set) []Unit {
	var units []Unit
	for _, loc := range p.x.freeText.FindAllStringIndex(p.content, -1) {
		full := rangeset.Span{Start: loc[0], End: loc[1]}
		if full.Empty() || scripts.Overlapping(full) {
			continue
		}
		targets := outside(p.targets(full), ignored)
		if len(targets) == 0 || ignored.Claimed(full) || exclude.Claimed(full) {
			continue
		}
		u := p.unit(FreeText, full, full)
		if p.disabled[u.Position.Row] {
			continue
		}
		u.IsFullyCoveredByTags = allCovered(targets, tagged)
		u.TargetOffsets = targets
		units = append(units, u)
	}
	return units
}

// dropWithin removes quoted strings that sit inside a free-text run: in
// markup body text the quotes are part of the prose.
func dropWithin(units []Unit, outer rangeset.Set) []Unit {
	if len(outer) == 0 {
		return units
	}
	kept := units[:0]
	for _, u := range units {
		if !outer.Claimed(u.Full) {
			kept = append(kept, u)
		}
	}
	return kept
}

func fullSpans(units []Unit) rangeset.Set {
	set := make(rangeset.Set, len(units))
	for i, u := range units {
		set[i] = u.Full
	}
	return set
}

// outside returns the offsets not covered by set. Target text inside an
// ignored span, such as a compared literal within an interpolation, does not
// count towards the unit that encloses it.
func outside(offsets []int, set rangeset.Set) []int {
	var kept []int
	for _, o := range offsets {
		if !set.Covers(o) {
			kept = append(kept, o)
		}
	}
	return kept
}

func allCovered(offsets []int, set rangeset.Set) bool {
	if len(offsets) == 0 {
		return false
	}
	for _, o := range offsets {
		if !set.Covers(o) {
			return false
		}
	}
	return true
}

func sortSpans(spans rangeset.Set) {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
}

func sortUnits(units []Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].Full.Start < units[j].Full.Start
	})
}
