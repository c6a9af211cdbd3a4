// Package extract finds natural-language text in JavaScript-family source
// files (.js, .ts, .jsx, .tsx, .vue) and reports each occurrence as a typed
// Unit: text already routed through a translate call, template literals,
// plain quoted strings and free markup text.
//
// No parsing into an AST is done. A forward tokenizer locates comments,
// quoted strings and template literals; regular expressions locate translate
// calls and caller-configured ignore regions. The scanners overlap freely and
// the results are reconciled by priority (see Kind).
package extract

import (
	"fmt"

	"github.com/minios-linux/i18ncheck/rangeset"
)

// Kind is the syntactic category of a Unit. Lower values take priority:
// a candidate contained in a span of a higher-priority kind is discarded.
type Kind int

const (
	Ignored Kind = iota
	TaggedCall
	TemplateLiteral
	QuotedString
	FreeText
)

var kindNames = [...]string{"ignored", "tagged", "template", "quoted", "free-text"}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outranks reports whether spans of kind k claim candidates of kind o.
func (k Kind) Outranks(o Kind) bool {
	return k < o
}

// Unit is one located piece of text.
type Unit struct {
	Kind Kind `json:"kind"`
	// Full covers the whole construct: the call, the quotes, the backticks.
	Full rangeset.Span `json:"full"`
	// Inner covers the text alone. Inner always lies within Full.
	Inner    rangeset.Span     `json:"inner"`
	Position rangeset.Position `json:"position"`
	Text     string            `json:"text"`
	FullText string            `json:"fullText"`

	IsTemplate           bool `json:"isTemplate,omitempty"`
	HasInterpolation     bool `json:"hasInterpolation,omitempty"`
	IsAlreadyTagged      bool `json:"isAlreadyTagged,omitempty"`
	IsFullyCoveredByTags bool `json:"isFullyCoveredByTags,omitempty"`

	// TargetOffsets are the byte offsets of every target-script character
	// inside Full.
	TargetOffsets []int `json:"-"`
}

// Result is the outcome of one extraction pass over one file.
type Result struct {
	Ignored   []Unit `json:"ignored,omitempty"`
	Tagged    []Unit `json:"tagged,omitempty"`
	Templates []Unit `json:"templates,omitempty"`
	Quoted    []Unit `json:"quoted,omitempty"`
	FreeText  []Unit `json:"freeText,omitempty"`
}

// Keys returns the texts of all tagged units, deduplicated, in source order.
func (r *Result) Keys() []string {
	seen := make(map[string]bool, len(r.Tagged))
	var keys []string
	for _, u := range r.Tagged {
		if seen[u.Text] {
			continue
		}
		seen[u.Text] = true
		keys = append(keys, u.Text)
	}
	return keys
}

// Candidates returns the units a rewriter may act on: templates, quoted
// strings and free text.
func (r *Result) Candidates() []Unit {
	out := make([]Unit, 0, len(r.Templates)+len(r.Quoted)+len(r.FreeText))
	out = append(out, r.Templates...)
	out = append(out, r.Quoted...)
	out = append(out, r.FreeText...)
	return out
}

// Count returns the number of units of every kind except Ignored.
func (r *Result) Count() int {
	return len(r.Tagged) + len(r.Templates) + len(r.Quoted) + len(r.FreeText)
}
