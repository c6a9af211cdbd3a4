// Package config loads .i18ncheck.yaml or .i18ncheck.toml.
//
// Every field is optional; a missing file is the same as an empty one.
// Validate fills in defaults and reports the first invalid value as a
// *ConfigError.
package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/minios-linux/i18ncheck/dispatch"
	"github.com/minios-linux/i18ncheck/extract"
	"github.com/minios-linux/i18ncheck/langmeta"
	"github.com/minios-linux/i18ncheck/rewrite"
	"github.com/minios-linux/i18ncheck/store"
	"github.com/minios-linux/i18ncheck/translate"
)

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

// Config is the top-level configuration file structure.
type Config struct {
	// Root is the directory scanned, relative to the config file.
	Root string `yaml:"root,omitempty" toml:"root,omitempty"`
	// Include and Exclude are doublestar globs relative to Root.
	Include []string `yaml:"include,omitempty" toml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" toml:"exclude,omitempty"`

	TaggedPatterns      []string     `yaml:"tagged_patterns,omitempty" toml:"tagged_patterns,omitempty"`
	IgnorePatterns      []string     `yaml:"ignore_patterns,omitempty" toml:"ignore_patterns,omitempty"`
	TargetScript        TargetScript `yaml:"target_script,omitempty" toml:"target_script,omitempty"`
	DisableNextLineFlag string       `yaml:"disable_next_line_flag,omitempty" toml:"disable_next_line_flag,omitempty"`

	Wrap   Wrap   `yaml:"wrap,omitempty" toml:"wrap,omitempty"`
	Import Import `yaml:"import,omitempty" toml:"import,omitempty"`
	// Write enables writing rewritten files back.
	Write *bool `yaml:"write,omitempty" toml:"write,omitempty"`

	Translate Translate `yaml:"translate,omitempty" toml:"translate,omitempty"`

	// path of the loaded file; relative paths resolve against its
	// directory.
	path string
	dir  string
}

// TargetScript is the character range to detect. Bounds are written as a
// code point ("4E00", "U+4E00", "0x4E00") or as the character itself.
type TargetScript struct {
	From string `yaml:"from,omitempty" toml:"from,omitempty"`
	To   string `yaml:"to,omitempty" toml:"to,omitempty"`
}

// Wrap configures rewriting.
type Wrap struct {
	Enable        *bool  `yaml:"enable,omitempty" toml:"enable,omitempty"`
	Function      string `yaml:"function,omitempty" toml:"function,omitempty"`
	Quote         string `yaml:"quote,omitempty" toml:"quote,omitempty"`
	MarkTemplates *bool  `yaml:"mark_templates,omitempty" toml:"mark_templates,omitempty"`
	Marker        string `yaml:"marker,omitempty" toml:"marker,omitempty"`
}

// Import configures import injection.
type Import struct {
	Enable    *bool  `yaml:"enable,omitempty" toml:"enable,omitempty"`
	Statement string `yaml:"statement,omitempty" toml:"statement,omitempty"`
}

// Translate configures the translation backend.
type Translate struct {
	Endpoint      string   `yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`
	Model         string   `yaml:"model,omitempty" toml:"model,omitempty"`
	Temperature   *float64 `yaml:"temperature,omitempty" toml:"temperature,omitempty"`
	MaxTokens     int      `yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
	Timeout       Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	BatchSize     int      `yaml:"batch_size,omitempty" toml:"batch_size,omitempty"`
	MaxConcurrent int      `yaml:"max_concurrent,omitempty" toml:"max_concurrent,omitempty"`
	JSONMode      *bool    `yaml:"json_mode,omitempty" toml:"json_mode,omitempty"`
	Proxy         string   `yaml:"proxy,omitempty" toml:"proxy,omitempty"`
	SourceLocale  string   `yaml:"source_locale,omitempty" toml:"source_locale,omitempty"`
	Locales       []string `yaml:"locales,omitempty" toml:"locales,omitempty"`
	SystemPrompt  string   `yaml:"system_prompt,omitempty" toml:"system_prompt,omitempty"`
	// PromptFile is a user prompt template; see translate.ListPlaceholder.
	PromptFile string `yaml:"prompt_file,omitempty" toml:"prompt_file,omitempty"`
	// Output is the translation store file.
	Output string `yaml:"output,omitempty" toml:"output,omitempty"`
	// PODir holds <locale>.po catalogs to import existing translations from.
	PODir string `yaml:"po_dir,omitempty" toml:"po_dir,omitempty"`
}

// Duration is a time.Duration written as "90s" or a number of seconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*d = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Path  string
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Defaults and validation
// ---------------------------------------------------------------------------

// DefaultInclude matches the source files scanned when nothing is configured.
var DefaultInclude = []string{"**/*.{js,jsx,ts,tsx,mjs,cjs,mts,cts,vue}"}

// DefaultExclude skips dependency and build directories.
var DefaultExclude = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/dist/**",
	"**/build/**",
	"**/coverage/**",
	"**/vendor/**",
	"**/*.d.ts",
	"**/*.min.js",
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func boolPtr(b bool) *bool { return &b }

func (c *Config) applyDefaults() {
	if c.Root == "" {
		c.Root = "."
	}
	if len(c.Include) == 0 {
		c.Include = DefaultInclude
	}
	if c.Exclude == nil {
		c.Exclude = DefaultExclude
	}
	if c.Wrap.Enable == nil {
		c.Wrap.Enable = boolPtr(true)
	}
	if c.Wrap.Function == "" {
		c.Wrap.Function = extract.DefaultFunctionRef
	}
	if c.Wrap.Quote == "" {
		c.Wrap.Quote = "'"
	}
	if c.Wrap.MarkTemplates == nil {
		c.Wrap.MarkTemplates = boolPtr(true)
	}
	if c.Wrap.Marker == "" {
		c.Wrap.Marker = rewrite.DefaultMarker
	}
	if c.Import.Enable == nil {
		c.Import.Enable = boolPtr(true)
	}
	if c.Import.Statement == "" {
		c.Import.Statement = rewrite.DefaultImport
	}
	if c.Write == nil {
		c.Write = boolPtr(true)
	}

	t := &c.Translate
	if t.Endpoint == "" {
		t.Endpoint = translate.DefaultEndpoint
	}
	if t.Model == "" {
		t.Model = translate.DefaultModel
	}
	if t.Temperature == nil {
		v := translate.DefaultTemperature
		t.Temperature = &v
	}
	if t.MaxTokens == 0 {
		t.MaxTokens = translate.DefaultMaxTokens
	}
	if t.Timeout == 0 {
		t.Timeout = Duration(translate.DefaultTimeout)
	}
	if t.BatchSize == 0 {
		t.BatchSize = translate.DefaultBatchSize
	}
	if t.MaxConcurrent == 0 {
		t.MaxConcurrent = dispatch.DefaultMaxConcurrent
	}
	if t.JSONMode == nil {
		t.JSONMode = boolPtr(true)
	}
	if t.SourceLocale == "" {
		t.SourceLocale = translate.DefaultSourceLocale
	}
	if len(t.Locales) == 0 {
		t.Locales = translate.DefaultLocales
	}
	if t.Output == "" {
		t.Output = store.FileName
	}
}

// Validate fills in defaults and checks every value. Regular expressions
// are compiled here so a bad pattern is reported before any file is read.
func (c *Config) Validate() error {
	c.applyDefaults()
	fail := func(field string, err error) error {
		return &ConfigError{Path: c.Path(), Field: field, Err: err}
	}

	if c.Wrap.Quote != "'" && c.Wrap.Quote != `"` {
		return fail("wrap.quote", fmt.Errorf("must be ' or \", got %q", c.Wrap.Quote))
	}
	if _, err := c.TargetRange(); err != nil {
		return fail("target_script", err)
	}
	if _, err := extract.New(c.ExtractOptions()); err != nil {
		return fail("patterns", err)
	}

	t := &c.Translate
	if t.BatchSize < 0 {
		return fail("translate.batch_size", fmt.Errorf("must be positive, got %d", t.BatchSize))
	}
	if t.MaxConcurrent < 0 {
		return fail("translate.max_concurrent", fmt.Errorf("must be positive, got %d", t.MaxConcurrent))
	}
	if t.MaxTokens < 0 {
		return fail("translate.max_tokens", fmt.Errorf("must be positive, got %d", t.MaxTokens))
	}
	if *t.Temperature < 0 || *t.Temperature > 2 {
		return fail("translate.temperature", fmt.Errorf("must be within [0, 2], got %g", *t.Temperature))
	}

	src, err := langmeta.Canonicalize(t.SourceLocale)
	if err != nil {
		return fail("translate.source_locale", err)
	}
	t.SourceLocale = src
	locales := make([]string, 0, len(t.Locales))
	seen := map[string]bool{src: true}
	for _, l := range t.Locales {
		canon, err := langmeta.Canonicalize(l)
		if err != nil {
			return fail("translate.locales", err)
		}
		if seen[canon] {
			continue
		}
		seen[canon] = true
		locales = append(locales, canon)
	}
	if len(locales) == 0 {
		return fail("translate.locales", fmt.Errorf("no target locale besides the source locale %s", src))
	}
	t.Locales = locales
	return nil
}

// TargetRange parses TargetScript. Empty bounds take the defaults.
func (c *Config) TargetRange() (extract.TargetRange, error) {
	r := extract.TargetRange{From: extract.DefaultTargetFrom, To: extract.DefaultTargetTo}
	var err error
	if c.TargetScript.From != "" {
		if r.From, err = parseCodePoint(c.TargetScript.From); err != nil {
			return r, fmt.Errorf("from: %w", err)
		}
	}
	if c.TargetScript.To != "" {
		if r.To, err = parseCodePoint(c.TargetScript.To); err != nil {
			return r, fmt.Errorf("to: %w", err)
		}
	}
	if r.From > r.To {
		return r, fmt.Errorf("from %U is after to %U", r.From, r.To)
	}
	return r, nil
}

func parseCodePoint(s string) (rune, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) == 1 && s[0] >= utf8.RuneSelf {
		r, _ := utf8.DecodeRuneInString(s)
		return r, nil
	}
	hex := s
	for _, p := range []string{"U+", "u+", "0x", "0X", `\u`} {
		hex = strings.TrimPrefix(hex, p)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || n > utf8.MaxRune {
		return 0, fmt.Errorf("invalid code point %q", s)
	}
	return rune(n), nil
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

// ExtractOptions returns the extractor options.
func (c *Config) ExtractOptions() extract.Options {
	r, _ := c.TargetRange()
	return extract.Options{
		FunctionRef:         c.Wrap.Function,
		TaggedPatterns:      c.TaggedPatterns,
		IgnorePatterns:      c.IgnorePatterns,
		TargetScript:        r,
		DisableNextLineFlag: c.DisableNextLineFlag,
	}
}

// RewriteOptions returns the rewriter options.
func (c *Config) RewriteOptions() rewrite.Options {
	return rewrite.Options{
		FunctionRef:   c.Wrap.Function,
		Quote:         c.Wrap.Quote[0],
		MarkTemplates: *c.Wrap.MarkTemplates,
		Marker:        c.Wrap.Marker,
	}
}

// TranslateOptions returns the translation options without the API key.
// A configured prompt file is read here.
func (c *Config) TranslateOptions() (translate.Options, error) {
	t := c.Translate
	opts := translate.Options{
		Request: translate.RequestConfig{
			Endpoint:     t.Endpoint,
			Model:        t.Model,
			Temperature:  t.Temperature,
			MaxTokens:    t.MaxTokens,
			Timeout:      time.Duration(t.Timeout),
			Proxy:        t.Proxy,
			JSONMode:     *t.JSONMode,
			SystemPrompt: t.SystemPrompt,
		},
		BatchSize:     t.BatchSize,
		MaxConcurrent: t.MaxConcurrent,
		SourceLocale:  t.SourceLocale,
		Locales:       t.Locales,
	}
	if t.PromptFile != "" {
		gen, err := translate.LoadPromptFile(c.Resolve(t.PromptFile))
		if err != nil {
			return opts, &ConfigError{Path: c.Path(), Field: "translate.prompt_file", Err: err}
		}
		opts.Request.UserPrompt = gen
	}
	return opts, nil
}

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

// Dir returns the directory relative paths resolve against.
func (c *Config) Dir() string {
	if c.dir == "" {
		return "."
	}
	return c.dir
}

// Path returns the loaded file path, or "" for the default configuration.
func (c *Config) Path() string {
	return c.path
}

// Resolve returns p relative to Dir unless it is absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// RootDir returns the resolved scan root.
func (c *Config) RootDir() string {
	return c.Resolve(c.Root)
}

// OutputPath returns the resolved translation store path.
func (c *Config) OutputPath() string {
	return c.Resolve(c.Translate.Output)
}
