// Package classify decides what the rewriter should do with each extracted
// unit.
package classify

import "github.com/minios-linux/i18ncheck/extract"

// Action is the decision for one unit.
type Action int

const (
	// Skip leaves the unit alone.
	Skip Action = iota
	// NeedsWrap routes the text through the translate function.
	NeedsWrap
	// NeedsMark flags a template literal for manual review.
	NeedsMark
)

func (a Action) String() string {
	switch a {
	case NeedsWrap:
		return "wrap"
	case NeedsMark:
		return "mark"
	default:
		return "skip"
	}
}

// Classify returns the action for u. Tagged calls and ignored regions are
// always skipped.
//
// A template whose target text is entirely produced by tagged calls inside
// its interpolations needs nothing. Any other template, including one passed
// straight to the translate function, cannot be a static key and is marked.
func Classify(u extract.Unit) Action {
	switch u.Kind {
	case extract.QuotedString, extract.FreeText:
		if u.IsAlreadyTagged || u.IsFullyCoveredByTags {
			return Skip
		}
		return NeedsWrap
	case extract.TemplateLiteral:
		if !u.IsAlreadyTagged && u.IsFullyCoveredByTags {
			return Skip
		}
		return NeedsMark
	}
	return Skip
}

// Plan groups the candidates of one extraction result by action.
type Plan struct {
	Wrap []extract.Unit
	Mark []extract.Unit
	Skip []extract.Unit
}

// Build classifies every candidate of res.
func Build(res *extract.Result) Plan {
	var p Plan
	for _, u := range res.Candidates() {
		switch Classify(u) {
		case NeedsWrap:
			p.Wrap = append(p.Wrap, u)
		case NeedsMark:
			p.Mark = append(p.Mark, u)
		default:
			p.Skip = append(p.Skip, u)
		}
	}
	return p
}

// Actionable returns the units that need a wrap or a mark.
func (p Plan) Actionable() []extract.Unit {
	out := make([]extract.Unit, 0, len(p.Wrap)+len(p.Mark))
	out = append(out, p.Wrap...)
	return append(out, p.Mark...)
}

// Empty reports whether nothing needs to change.
func (p Plan) Empty() bool {
	return len(p.Wrap) == 0 && len(p.Mark) == 0
}
