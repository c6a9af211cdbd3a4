// Package report renders check results for the terminal.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minios-linux/i18ncheck/check"
	"github.com/minios-linux/i18ncheck/classify"
	"github.com/minios-linux/i18ncheck/extract"
)

// DefaultWidth is the column budget for a unit's text.
const DefaultWidth = 60

// Options controls the listing.
type Options struct {
	// Width is the column budget for a unit's text.
	Width int
	// Tagged also lists the tagged calls of each file.
	Tagged bool
}

type row struct {
	loc, action, text string
}

// Write lists, per file, the units that need a wrap or a review, followed
// by a summary line. Files with nothing to report are omitted.
func Write(w io.Writer, res *check.Result, opts Options) error {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	ew := &errWriter{w: w}

	for _, f := range res.Files {
		rows := fileRows(f, opts)
		if len(rows) == 0 && f.Err == nil {
			continue
		}
		ew.printf("%s\n", f.Path)
		if f.Err != nil {
			ew.printf("  error: %v\n", f.Err)
		}
		locW, actW := 0, 0
		for _, r := range rows {
			locW = max(locW, VisibleWidth(r.loc))
			actW = max(actW, VisibleWidth(r.action))
		}
		for _, r := range rows {
			ew.printf("  %s  %s  %s\n", PadRight(r.loc, locW), PadRight(r.action, actW), Truncate(r.text, opts.Width, "…"))
		}
	}

	ew.printf("%s\n", Summary(res))
	return ew.err
}

func fileRows(f check.FileReport, opts Options) []row {
	var units []extract.Unit
	units = append(units, f.Wrap...)
	units = append(units, f.Mark...)
	if opts.Tagged {
		units = append(units, f.Tagged...)
	}
	sortByOffset(units)

	rows := make([]row, 0, len(units))
	for _, u := range units {
		action := classify.Classify(u).String()
		if u.Kind == extract.TaggedCall {
			action = "tagged"
		}
		rows = append(rows, row{
			loc:    fmt.Sprintf("%d:%d", u.Position.Row, u.Position.Column),
			action: action + " " + u.Kind.String(),
			text:   flatten(u.FullText),
		})
	}
	return rows
}

func sortByOffset(units []extract.Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].Full.Start < units[j].Full.Start
	})
}

var flattener = strings.NewReplacer("\r\n", "⏎", "\n", "⏎", "\t", " ")

func flatten(s string) string {
	return flattener.Replace(s)
}

// Summary returns the one-line totals of res.
func Summary(res *check.Result) string {
	wrap, mark, failed := 0, 0, 0
	for _, f := range res.Files {
		wrap += len(f.Wrap)
		mark += len(f.Mark)
		if f.Err != nil {
			failed++
		}
	}
	parts := []string{
		fmt.Sprintf("%d files", len(res.Files)),
		fmt.Sprintf("%d to wrap", wrap),
		fmt.Sprintf("%d templates to review", mark),
		fmt.Sprintf("%d keys", len(res.KeyList)),
	}
	if n := len(res.Changed()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d changed", n))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	return strings.Join(parts, ", ")
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
