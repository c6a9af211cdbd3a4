// Package check runs the extract, classify and rewrite pipeline over a
// source tree and collects the tagged keys and the templates still awaiting
// review.
package check

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/minios-linux/i18ncheck/classify"
	"github.com/minios-linux/i18ncheck/dialect"
	"github.com/minios-linux/i18ncheck/dispatch"
	"github.com/minios-linux/i18ncheck/extract"
	"github.com/minios-linux/i18ncheck/rewrite"
)

// Options configures a Checker.
type Options struct {
	// Root is the directory scanned.
	Root string
	// Include and Exclude are doublestar globs relative to Root.
	Include []string
	Exclude []string

	Extract extract.Options
	Rewrite rewrite.Options

	// Wrap runs the rewriter; without it files are only inspected.
	Wrap bool
	// Import injects ImportStatement into rewritten files that need it.
	Import          bool
	ImportStatement string

	// Writer receives changed files. Nil leaves files untouched.
	Writer Writer

	// Jobs bounds the number of files processed at once. Zero uses the
	// number of CPUs.
	Jobs int

	// OnLog receives progress messages.
	OnLog func(msg string)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(fmt.Sprintf(format, args...))
	}
}

// FileReport is the outcome for one file.
type FileReport struct {
	// Path is relative to Options.Root with "/" separators.
	Path    string
	Dialect dialect.Dialect

	// Wrap and Mark are the units that needed action in the content as
	// read.
	Wrap []extract.Unit
	Mark []extract.Unit

	// Tagged are the tagged calls of the final content.
	Tagged []extract.Unit
	// Unresolved are the templates of the final content whose target text
	// is not fully produced by tagged calls.
	Unresolved []extract.Unit

	// Edits is the number of edits applied; Changed reports whether the
	// content differs from what was read.
	Edits       int
	ImportAdded bool
	Changed     bool

	Err error
}

// Result is the outcome of a run over a tree.
type Result struct {
	// Files holds one report per scanned file, sorted by path.
	Files []FileReport

	TaggedUnitsByFile         map[string][]extract.Unit
	UnresolvedTemplatesByFile map[string][]extract.Unit
	// KeyList holds every tagged text, deduplicated, in file then source
	// order.
	KeyList []string
}

// Pending returns the number of units that needed a wrap or a mark.
func (r *Result) Pending() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Wrap) + len(f.Mark)
	}
	return n
}

// Unresolved returns the number of templates still awaiting review.
func (r *Result) Unresolved() int {
	n := 0
	for _, units := range r.UnresolvedTemplatesByFile {
		n += len(units)
	}
	return n
}

// Changed returns the paths of the changed files.
func (r *Result) Changed() []string {
	var paths []string
	for _, f := range r.Files {
		if f.Changed {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// Errors returns the per-file errors.
func (r *Result) Errors() []error {
	var errs []error
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
		}
	}
	return errs
}

// Checker holds the compiled pipeline.
type Checker struct {
	opts Options
	x    *extract.Extractor
	rw   *rewrite.Rewriter
	im   *rewrite.Importer
}

// New compiles the pipeline. Invalid patterns are reported as
// *extract.ConfigError.
func New(opts Options) (*Checker, error) {
	x, err := extract.New(opts.Extract)
	if err != nil {
		return nil, err
	}
	rw := rewrite.New(opts.Rewrite)
	if opts.Root == "" {
		opts.Root = "."
	}
	return &Checker{
		opts: opts,
		x:    x,
		rw:   rw,
		im:   rewrite.NewImporter(opts.ImportStatement, rw.Options().FunctionRef),
	}, nil
}

// Run processes every source file under the root. A file that cannot be
// read or written is recorded in its report and does not stop the others.
func (c *Checker) Run(ctx context.Context) (*Result, error) {
	files, err := FindSources(c.opts.Root, c.opts.Include, c.opts.Exclude)
	if err != nil {
		return nil, err
	}
	c.opts.log("Scanning %d files in %s", len(files), c.opts.Root)

	jobs := c.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	out, err := dispatch.Run(ctx, files, dispatch.Options{MaxConcurrent: jobs},
		func(ctx context.Context, item dispatch.Item[string]) (FileReport, error) {
			return c.processFile(item.Payload), nil
		})
	if err != nil {
		return nil, err
	}

	res := &Result{
		TaggedUnitsByFile:         make(map[string][]extract.Unit),
		UnresolvedTemplatesByFile: make(map[string][]extract.Unit),
	}
	seen := make(map[string]bool)
	for i, r := range out.Combined {
		rep := r.Value
		if r.Err != nil {
			rep = FileReport{Path: files[i], Err: r.Err}
		}
		res.Files = append(res.Files, rep)
		if len(rep.Tagged) > 0 {
			res.TaggedUnitsByFile[rep.Path] = rep.Tagged
		}
		if len(rep.Unresolved) > 0 {
			res.UnresolvedTemplatesByFile[rep.Path] = rep.Unresolved
		}
		for _, u := range rep.Tagged {
			// Interpolated templates are not static keys.
			if u.HasInterpolation || seen[u.Text] {
				continue
			}
			seen[u.Text] = true
			res.KeyList = append(res.KeyList, u.Text)
		}
	}
	return res, nil
}

func (c *Checker) processFile(rel string) FileReport {
	path := filepath.Join(c.opts.Root, filepath.FromSlash(rel))
	data, err := os.ReadFile(path)
	if err != nil {
		return FileReport{Path: rel, Dialect: dialect.FromPath(rel), Err: err}
	}

	rep, out := c.Process(rel, string(data))
	if rep.Changed && c.opts.Writer != nil {
		if err := c.opts.Writer.WriteFile(path, []byte(out)); err != nil {
			rep.Err = err
			return rep
		}
		c.opts.log("Updated %s (%d edits)", rel, rep.Edits)
	}
	return rep
}

// Process runs the pipeline over content and returns the report and the
// final content. The dialect is chosen from name's extension. Nothing is
// written.
func (c *Checker) Process(name, content string) (FileReport, string) {
	d := dialect.FromPath(name)
	rep := FileReport{Path: name, Dialect: d}

	res := c.x.Extract(content, d)
	plan := classify.Build(res)
	rep.Wrap, rep.Mark = plan.Wrap, plan.Mark

	out := content
	if c.opts.Wrap {
		var edits []rewrite.Edit
		out, edits = c.rw.Rewrite(content, d, res)
		rep.Edits = len(edits)
		if c.opts.Import {
			out, rep.ImportAdded = c.im.Inject(out, d)
		}
		if out != content {
			rep.Changed = true
			res = c.x.Extract(out, d)
			plan = classify.Build(res)
		}
	}

	rep.Tagged = res.Tagged
	rep.Unresolved = plan.Mark
	return rep, out
}
