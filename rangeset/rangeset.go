// Package rangeset implements the interval bookkeeping shared by the
// extractor and the rewriter: half-open spans over one file's content,
// containment tests and row/column positions.
//
// Offsets are byte offsets into the UTF-8 content. Columns reported by
// PositionOf are counted in characters so that they match what an editor
// shows for CJK text.
package rangeset

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Span is the half-open interval [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by s.
func (s Span) Len() int {
	return s.End - s.Start
}

// Empty reports whether s covers no bytes.
func (s Span) Empty() bool {
	return s.End <= s.Start
}

// Within reports whether s lies entirely inside outer.
func (s Span) Within(outer Span) bool {
	return s.Start >= outer.Start && s.End <= outer.End
}

// Overlaps reports whether s and o share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Contains reports whether offset lies inside s.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// Slice returns the text covered by s.
func (s Span) Slice(content string) string {
	return content[s.Start:s.End]
}

// Set is an unordered collection of spans produced by one scanner.
type Set []Span

// Claimed reports whether span is fully contained in any span of the set.
func (set Set) Claimed(span Span) bool {
	for _, r := range set {
		if span.Within(r) {
			return true
		}
	}
	return false
}

// Covers reports whether offset falls inside any span of the set.
func (set Set) Covers(offset int) bool {
	for _, r := range set {
		if r.Contains(offset) {
			return true
		}
	}
	return false
}

// Overlapping reports whether span shares a byte with any span of the set.
func (set Set) Overlapping(span Span) bool {
	for _, r := range set {
		if span.Overlaps(r) {
			return true
		}
	}
	return false
}

// Union returns a new set holding the spans of all given sets.
func Union(sets ...Set) Set {
	n := 0
	for _, s := range sets {
		n += len(s)
	}
	out := make(Set, 0, n)
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

// Position is a 1-based row/column location.
type Position struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Lines indexes the start offset of every line of a content string so that
// repeated position lookups do not rescan the content.
type Lines struct {
	content string
	starts  []int
}

// NewLines builds the line index for content.
func NewLines(content string) *Lines {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Lines{content: content, starts: starts}
}

// Count returns the number of lines.
func (l *Lines) Count() int {
	return len(l.starts)
}

// Row returns the 1-based row holding offset.
func (l *Lines) Row(offset int) int {
	return sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset })
}

// Start returns the offset at which the 1-based row begins.
func (l *Lines) Start(row int) int {
	if row < 1 {
		return 0
	}
	if row > len(l.starts) {
		return len(l.content)
	}
	return l.starts[row-1]
}

// Line returns the text of the 1-based row without its trailing newline.
func (l *Lines) Line(row int) string {
	start := l.Start(row)
	end := len(l.content)
	if row < len(l.starts) {
		end = l.starts[row] - 1
	}
	if start > end {
		return ""
	}
	return l.content[start:end]
}

// Position returns the row/column of offset.
func (l *Lines) Position(offset int) Position {
	if offset > len(l.content) {
		offset = len(l.content)
	}
	row := l.Row(offset)
	col := utf8.RuneCountInString(l.content[l.starts[row-1]:offset]) + 1
	return Position{Row: row, Column: col}
}

// PositionOf is a one-shot variant of Lines.Position.
func PositionOf(content string, offset int) Position {
	if offset > len(content) {
		offset = len(content)
	}
	prefix := content[:offset]
	row := strings.Count(prefix, "\n") + 1
	lineStart := strings.LastIndexByte(prefix, '\n') + 1
	return Position{Row: row, Column: utf8.RuneCountInString(prefix[lineStart:]) + 1}
}
