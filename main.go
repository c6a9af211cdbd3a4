// i18ncheck finds untranslated text in JavaScript, TypeScript and Vue
// sources, wraps it in translate calls and fills in translations with an
// LLM backend.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/minios-linux/i18ncheck/check"
	"github.com/minios-linux/i18ncheck/config"
	"github.com/minios-linux/i18ncheck/extract"
	"github.com/minios-linux/i18ncheck/langmeta"
	"github.com/minios-linux/i18ncheck/report"
	"github.com/minios-linux/i18ncheck/settings"
	"github.com/minios-linux/i18ncheck/store"
	"github.com/minios-linux/i18ncheck/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors, cleared by initColors when stderr is not a terminal.
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func initColors() {
	if os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stderr.Fd())) {
		colorReset, colorRed, colorGreen, colorYellow, colorBlue = "", "", "", "", ""
	}
}

var (
	logMu  sync.Mutex
	logOut io.Writer = os.Stderr
)

func logf(color, tag, format string, args ...any) {
	logMu.Lock()
	defer logMu.Unlock()
	fmt.Fprintf(logOut, color+tag+colorReset+" "+format+"\n", args...)
}

func logInfo(format string, args ...any) {
	logf(colorBlue, "[INFO]", format, args...)
}

func logSuccess(format string, args ...any) {
	logf(colorGreen, "[OK]", format, args...)
}

func logWarning(format string, args ...any) {
	logf(colorYellow, "[WARN]", format, args...)
}

func logError(format string, args ...any) {
	logf(colorRed, "[ERROR]", format, args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configPath string
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "i18ncheck",
		Short: "Find, wrap and translate untranslated text in JS/TS/Vue sources",
		Long: `i18ncheck finds natural-language text that is not routed through a
translate call, wraps it, and translates the collected keys with an
OpenAI-compatible chat completion API.

Commands:
  check       Report text that needs wrapping or review
  wrap        Wrap text in translate calls and add the import
  keys        Print the tagged keys as JSON
  translate   Translate missing keys into translates.json
  auth        Manage the stored API key

Configuration is read from .i18ncheck.yaml or .i18ncheck.toml in --root.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default: .i18ncheck.yaml or .i18ncheck.toml in --root)")

	root.AddCommand(
		newCheckCmd(),
		newWrapCmd(),
		newKeysCmd(),
		newTranslateCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

// errFound makes check --fail exit non-zero without an error message.
var errFound = errors.New("untranslated text found")

func main() {
	initColors()
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFound) {
			logError("%v", err)
		}
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "i18ncheck version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Shared flags and pipeline setup
// ---------------------------------------------------------------------------

type scanFlags struct {
	include []string
	exclude []string
	jobs    int
}

func addScanFlags(fs *pflag.FlagSet, f *scanFlags) {
	fs.StringSliceVar(&f.include, "include", nil, "Glob of files to scan, relative to the root (repeatable; replaces the configured list)")
	fs.StringSliceVar(&f.exclude, "exclude", nil, "Glob of files to skip (repeatable; added to the configured list)")
	fs.IntVarP(&f.jobs, "jobs", "j", 0, "Files processed at once (0 = number of CPUs)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath, rootDir)
	if err != nil {
		return nil, err
	}
	if p := cfg.Path(); p != "" {
		logInfo("Using %s", p)
	}
	return cfg, nil
}

// checkOptions builds the pipeline options from cfg and the scan flags.
func checkOptions(cfg *config.Config, f scanFlags) check.Options {
	include := cfg.Include
	if len(f.include) > 0 {
		include = f.include
	}
	return check.Options{
		Root:            cfg.RootDir(),
		Include:         include,
		Exclude:         append(append([]string(nil), cfg.Exclude...), f.exclude...),
		Extract:         cfg.ExtractOptions(),
		Rewrite:         cfg.RewriteOptions(),
		Import:          *cfg.Import.Enable,
		ImportStatement: cfg.Import.Statement,
		Jobs:            f.jobs,
	}
}

func runCheck(ctx context.Context, opts check.Options) (*check.Result, error) {
	c, err := check.New(opts)
	if err != nil {
		return nil, err
	}
	res, err := c.Run(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range res.Errors() {
		logWarning("%v", e)
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// check (read-only report)
// ---------------------------------------------------------------------------

func newCheckCmd() *cobra.Command {
	var (
		scan   scanFlags
		fail   bool
		tagged bool
		width  int
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report text that needs wrapping or review",
		Long: `List every quoted string, free markup text and template literal that
contains untranslated text. Does not modify any files.

Examples:
  # Report for the current project
  i18ncheck check

  # Fail the CI job when anything is found
  i18ncheck check --fail`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			res, err := runCheck(cmd.Context(), checkOptions(cfg, scan))
			if err != nil {
				return err
			}
			if err := report.Write(cmd.OutOrStdout(), res, report.Options{Width: width, Tagged: tagged}); err != nil {
				return err
			}
			if fail && res.Pending() > 0 {
				return errFound
			}
			return nil
		},
	}

	addScanFlags(cmd.Flags(), &scan)
	cmd.Flags().BoolVar(&fail, "fail", false, "Exit with status 1 when anything needs wrapping or review")
	cmd.Flags().BoolVar(&tagged, "tagged", false, "Also list text already wrapped in translate calls")
	cmd.Flags().IntVar(&width, "width", report.DefaultWidth, "Maximum display width of listed text")

	return cmd
}

// ---------------------------------------------------------------------------
// wrap (rewrite files)
// ---------------------------------------------------------------------------

func newWrapCmd() *cobra.Command {
	var (
		scan     scanFlags
		dryRun   bool
		noImport bool
	)

	cmd := &cobra.Command{
		Use:   "wrap",
		Short: "Wrap text in translate calls and add the import",
		Long: `Rewrite source files so that untranslated text goes through the translate
function, mark template literals that need a manual look, and add the
import statement to files that now call the translate function.

Examples:
  # Rewrite files in place
  i18ncheck wrap

  # Show which files would change
  i18ncheck wrap --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !*cfg.Write && !dryRun {
				logWarning("write is disabled in the configuration, running as --dry-run")
				dryRun = true
			}

			opts := checkOptions(cfg, scan)
			if !*cfg.Wrap.Enable {
				logWarning("wrap is disabled in the configuration")
				return nil
			}
			opts.Wrap = true
			if noImport {
				opts.Import = false
			}
			if dryRun {
				opts.Writer = &check.MemoryWriter{}
			} else {
				opts.Writer = check.FileWriter{}
				opts.OnLog = func(msg string) { logInfo("%s", msg) }
			}

			res, err := runCheck(cmd.Context(), opts)
			if err != nil {
				return err
			}

			changed := res.Changed()
			out := cmd.OutOrStdout()
			for _, p := range changed {
				fmt.Fprintln(out, p)
			}
			switch {
			case len(changed) == 0:
				logSuccess("Nothing to wrap")
			case dryRun:
				logInfo("%d files would change", len(changed))
			default:
				logSuccess("%d files updated", len(changed))
			}
			if n := res.Unresolved(); n > 0 {
				logWarning("%d template literals need a manual look (marked with %s)", n, cfg.Wrap.Marker)
			}
			if errs := res.Errors(); len(errs) > 0 {
				return fmt.Errorf("%d files could not be processed", len(errs))
			}
			return nil
		},
	}

	addScanFlags(cmd.Flags(), &scan)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the files that would change without writing them")
	cmd.Flags().BoolVar(&noImport, "no-import", false, "Do not add the import statement")

	return cmd
}

// ---------------------------------------------------------------------------
// keys (JSON output)
// ---------------------------------------------------------------------------

type unitJSON struct {
	Row  int    `json:"row"`
	Col  int    `json:"column"`
	Text string `json:"text"`
}

type keysJSON struct {
	Keys                []string              `json:"keys"`
	UnresolvedTemplates map[string][]unitJSON `json:"unresolvedTemplates"`
}

func toUnitJSON(units []extract.Unit) []unitJSON {
	out := make([]unitJSON, len(units))
	for i, u := range units {
		out[i] = unitJSON{Row: u.Position.Row, Col: u.Position.Column, Text: u.FullText}
	}
	return out
}

func newKeysCmd() *cobra.Command {
	var (
		scan   scanFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Print the tagged keys as JSON",
		Long: `Print the deduplicated texts passed to the translate function, together
with the template literals still awaiting review, as a JSON object.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			res, err := runCheck(cmd.Context(), checkOptions(cfg, scan))
			if err != nil {
				return err
			}

			doc := keysJSON{
				Keys:                res.KeyList,
				UnresolvedTemplates: make(map[string][]unitJSON),
			}
			if doc.Keys == nil {
				doc.Keys = []string{}
			}
			for path, units := range res.UnresolvedTemplatesByFile {
				doc.UnresolvedTemplates[path] = toUnitJSON(units)
			}
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			logSuccess("%d keys written to %s", len(doc.Keys), output)
			return nil
		},
	}

	addScanFlags(cmd.Flags(), &scan)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateFlags struct {
	apiKey         string
	profile        string
	allowTemplates bool
	prune          bool
	dryRun         bool
	locales        []string
	batchSize      int
	maxConcurrent  int
	model          string
}

func addTranslateFlags(fs *pflag.FlagSet, f *translateFlags) {
	fs.StringVar(&f.apiKey, "api-key", "", "API key (or I18NCHECK_API_KEY / API_KEY env var)")
	fs.StringVar(&f.profile, "profile", settings.DefaultProfile, "Stored credential profile")
	fs.BoolVar(&f.allowTemplates, "allow-templates", false, "Translate even while template literals await review")
	fs.BoolVar(&f.prune, "prune", false, "Remove stored translations whose key is no longer used")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Show what would be translated without calling the API")
	fs.StringSliceVar(&f.locales, "lang", nil, "Target locales (comma-separated; replaces the configured list)")
	fs.IntVar(&f.batchSize, "batch-size", 0, "Keys per request (0 = configured value)")
	fs.IntVar(&f.maxConcurrent, "max-concurrent", 0, "Requests in flight (0 = configured value)")
	fs.StringVar(&f.model, "model", "", "Model name (default: configured value)")
}

func newTranslateCmd() *cobra.Command {
	var f translateFlags

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate missing keys into translates.json",
		Long: `Collect the tagged keys, reuse translations already stored in the output
file (and in <po_dir>/<locale>.po when configured), and send the missing
keys to the chat completion API in concurrent batches.

Keys still missing afterwards are listed in <output>.missing.json and make
the command exit with status 1. Nothing is retried automatically; run the
command again to retry.

Examples:
  i18ncheck translate --api-key sk-...
  i18ncheck translate --lang en,ja --max-concurrent 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runTranslate(cmd.Context(), cmd.OutOrStdout(), cfg, f)
		},
	}

	addTranslateFlags(cmd.Flags(), &f)
	return cmd
}

func runTranslate(ctx context.Context, out io.Writer, cfg *config.Config, f translateFlags) error {
	opts, err := cfg.TranslateOptions()
	if err != nil {
		return err
	}
	if len(f.locales) > 0 {
		opts.Locales = nil
		for _, l := range f.locales {
			canon, err := langmeta.Canonicalize(l)
			if err != nil {
				return err
			}
			if canon != opts.SourceLocale {
				opts.Locales = append(opts.Locales, canon)
			}
		}
	}
	if f.batchSize > 0 {
		opts.BatchSize = f.batchSize
	}
	if f.maxConcurrent > 0 {
		opts.MaxConcurrent = f.maxConcurrent
	}
	if f.model != "" {
		opts.Request.Model = f.model
	}

	res, err := runCheck(ctx, checkOptions(cfg, scanFlags{}))
	if err != nil {
		return err
	}
	if n := res.Unresolved(); n > 0 && !f.allowTemplates {
		paths := make([]string, 0, len(res.UnresolvedTemplatesByFile))
		for p := range res.UnresolvedTemplatesByFile {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			for _, u := range res.UnresolvedTemplatesByFile[p] {
				logWarning("%s:%d:%d %s", p, u.Position.Row, u.Position.Column, u.FullText)
			}
		}
		return fmt.Errorf("%d template literals contain untranslated text; rewrite them or pass --allow-templates", n)
	}

	st, err := store.Load(cfg.OutputPath())
	if err != nil {
		return err
	}
	if cfg.Translate.PODir != "" {
		n, err := st.ImportPO(cfg.Resolve(cfg.Translate.PODir), res.KeyList, opts.Locales)
		if err != nil {
			return err
		}
		if n > 0 {
			logInfo("Imported %d translations from %s", n, cfg.Translate.PODir)
		}
	}

	_, missing := st.Split(res.KeyList, opts.Locales)
	logInfo("%d keys, %d to translate into %s", len(res.KeyList), len(missing), strings.Join(langmeta.Labels(opts.Locales), ", "))

	if f.dryRun {
		for _, k := range missing {
			fmt.Fprintln(out, k)
		}
		return nil
	}

	if len(missing) > 0 {
		key, source := settings.ResolveAPIKey(f.apiKey, f.profile)
		if key == "" {
			return fmt.Errorf("%w: use --api-key, I18NCHECK_API_KEY, or 'i18ncheck auth set'", translate.ErrMissingCredential)
		}
		logInfo("Using API key from %s", source)
		opts.Request.APIKey = key
		opts.OnLog = func(msg string) { logInfo("%s", msg) }
		opts.OnError = func(msg string) { logError("%s", msg) }
		opts.OnProgress = func(done, total int) { logInfo("  %d/%d requests done", done, total) }

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()

		rep, err := translate.Translate(ctx, missing, opts)
		if err != nil {
			return err
		}
		st.Merge(rep.Translations)
		missing = rep.Missing
	}

	if f.prune {
		if n := st.Prune(res.KeyList); n > 0 {
			logInfo("Pruned %d unused keys", n)
		}
	}
	if err := st.Save(); err != nil {
		return err
	}
	if err := st.SaveMissing(missing); err != nil {
		return err
	}

	if len(missing) > 0 {
		logWarning("Untranslated keys saved to %s", store.MissingPath(st.Path()))
		return &translate.PartialCoverageError{Missing: missing}
	}
	logSuccess("Translations saved to %s (%s)", st.Path(), st.Summary())
	return nil
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored API key",
		Long: `Manage the API key used by 'translate'. Keys are stored in
$XDG_DATA_HOME/i18ncheck/auth.json with 0600 permissions.

Lookup order: --api-key flag, I18NCHECK_API_KEY, API_KEY, stored key.

Examples:
  i18ncheck auth set sk-...      Store a key
  i18ncheck auth set             Read the key from stdin
  i18ncheck auth show            Show where the key comes from
  i18ncheck auth remove          Remove the stored key`,
	}
	cmd.PersistentFlags().StringVar(&profile, "profile", settings.DefaultProfile, "Credential profile")

	setCmd := &cobra.Command{
		Use:   "set [key]",
		Short: "Store an API key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				fmt.Fprintf(os.Stderr, "  Enter API key: ")
				scanner := bufio.NewScanner(cmd.InOrStdin())
				if !scanner.Scan() {
					return fmt.Errorf("no input received")
				}
				key = scanner.Text()
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("no API key provided")
			}
			endpoint := ""
			if cfg, err := config.Load(configPath, rootDir); err == nil {
				endpoint = cfg.Translate.Endpoint
			}
			if err := settings.SetAPIKey(profile, key, endpoint); err != nil {
				return fmt.Errorf("saving API key: %w", err)
			}
			logSuccess("API key saved to %s", settings.FilePath())
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the API key in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			key, source := settings.ResolveAPIKey("", profile)
			if key == "" {
				fmt.Fprintf(out, "no API key configured (store: %s)\n", settings.FilePath())
				return nil
			}
			fmt.Fprintf(out, "%s (from %s)\n", settings.MaskKey(key), source)
			if info := settings.Get(profile); info != nil && info.Endpoint != "" {
				fmt.Fprintf(out, "endpoint: %s\n", info.Endpoint)
			}
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:     "remove",
		Aliases: []string{"rm", "logout"},
		Short:   "Remove the stored API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := settings.Remove(profile); err != nil {
				return err
			}
			logSuccess("Removed API key for profile %q", profile)
			return nil
		},
	}

	cmd.AddCommand(setCmd, showCmd, removeCmd)
	return cmd
}
