// Package translate sends text keys to an OpenAI-compatible chat completion
// backend in bounded concurrent chunks and merges the translations.
package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/minios-linux/i18ncheck/dispatch"
)

// Defaults for an unset RequestConfig and Options.
const (
	DefaultEndpoint     = "https://api.deepseek.com"
	DefaultModel        = "deepseek-chat"
	DefaultTemperature  = 0.3
	DefaultMaxTokens    = 4000
	DefaultTimeout      = 120 * time.Second
	DefaultBatchSize    = 50
	DefaultSourceLocale = "zh"
)

// DefaultLocales are the target locales used when none are configured.
var DefaultLocales = []string{"en"}

// RequestConfig describes one chat completion request.
type RequestConfig struct {
	// Endpoint is the API base URL; /chat/completions is appended.
	Endpoint    string
	Model       string
	// Temperature nil means DefaultTemperature; zero is sent as zero.
	Temperature *float64
	MaxTokens   int
	Timeout     time.Duration
	APIKey      string
	// Proxy is an HTTP proxy URL. Empty uses the environment.
	Proxy string
	// JSONMode asks the backend for a JSON object response.
	JSONMode bool

	SystemPrompt string
	// UserPrompt renders the user message for one chunk of keys.
	UserPrompt func(keys []string) (string, error)
	// Parse turns the message text into translations.
	Parse func(content string) (Translations, error)
}

// Options configures Translate.
type Options struct {
	Request RequestConfig

	// BatchSize is the number of keys per request.
	BatchSize int
	// MaxConcurrent bounds the number of requests in flight.
	MaxConcurrent int

	// SourceLocale is the language the keys are written in.
	SourceLocale string
	// Locales are the target locales.
	Locales []string

	// Client overrides the HTTP client built from Request.
	Client *http.Client

	// OnLog receives progress messages.
	OnLog func(msg string)
	// OnError receives one message per failed chunk.
	OnError func(msg string)
	// OnProgress is called as chunks complete.
	OnProgress func(done, total int)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(fmt.Sprintf(format, args...))
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(fmt.Sprintf(format, args...))
	}
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = dispatch.DefaultMaxConcurrent
	}
	if o.SourceLocale == "" {
		o.SourceLocale = DefaultSourceLocale
	}
	if len(o.Locales) == 0 {
		o.Locales = DefaultLocales
	}

	r := &o.Request
	if r.Endpoint == "" {
		r.Endpoint = DefaultEndpoint
	}
	if r.Model == "" {
		r.Model = DefaultModel
	}
	if r.Temperature == nil {
		v := DefaultTemperature
		r.Temperature = &v
	}
	if r.MaxTokens <= 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultTimeout
	}
	if r.SystemPrompt == "" {
		r.SystemPrompt = DefaultSystemPrompt(o.SourceLocale, o.Locales)
	}
	if r.UserPrompt == nil {
		r.UserPrompt = DefaultUserPrompt
	}
	if r.Parse == nil {
		r.Parse = ParseResponse
	}
	return o
}

// Report is the outcome of one Translate pass.
type Report struct {
	// Translations holds every merged translation, keyed by requested key.
	Translations Translations
	// Chunks is the number of requests made.
	Chunks int
	// Failed holds the error of each failed chunk, in chunk order.
	Failed []error
	// Missing lists requested keys still lacking a target locale.
	Missing []string
}

// Err returns a *PartialCoverageError when keys are missing.
func (r *Report) Err() error {
	if len(r.Missing) == 0 {
		return nil
	}
	return &PartialCoverageError{Missing: r.Missing}
}

// Translate dispatches keys in chunks of opts.BatchSize with at most
// opts.MaxConcurrent requests in flight. A failing chunk is recorded in the
// report and never stops the others; nothing is retried. The returned error
// is ErrMissingCredential when no API key is set, in which case no request is
// made.
func Translate(ctx context.Context, keys []string, opts Options) (*Report, error) {
	report := &Report{Translations: make(Translations)}
	if len(keys) == 0 {
		return report, nil
	}
	if opts.Request.APIKey == "" {
		return nil, ErrMissingCredential
	}
	opts = opts.withDefaults()

	client := opts.Client
	if client == nil {
		client = makeHTTPClient(opts.Request.Proxy, opts.Request.Timeout)
	}

	chunks := dispatch.Chunk(keys, opts.BatchSize)
	report.Chunks = len(chunks)
	opts.log("Translating %d keys in %d requests (%s, up to %d at once)",
		len(keys), len(chunks), opts.Request.Model, opts.MaxConcurrent)

	out, err := dispatch.Run(ctx, chunks, dispatch.Options{
		MaxConcurrent: opts.MaxConcurrent,
		OnProgress:    opts.OnProgress,
	}, func(ctx context.Context, item dispatch.Item[[]string]) (Translations, error) {
		return translateChunk(ctx, client, opts.Request, item.Index, item.Payload)
	})
	if err != nil {
		return nil, err
	}

	// Merge in chunk order so results do not depend on completion order.
	for _, res := range out.Combined {
		if res.Err != nil {
			report.Failed = append(report.Failed, res.Err)
			opts.logError("%v", res.Err)
			continue
		}
		Merge(report.Translations, res.Value)
	}
	FillSource(report.Translations, keys, opts.SourceLocale)
	report.Missing = Missing(keys, report.Translations, opts.Locales)

	opts.log("%d of %d requests succeeded, %d keys translated",
		len(out.Succeeded), len(chunks), len(keys)-len(report.Missing))
	return report, nil
}

func translateChunk(ctx context.Context, client *http.Client, cfg RequestConfig, index int, keys []string) (Translations, error) {
	prompt, err := cfg.UserPrompt(keys)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: building prompt: %w", index, err)
	}
	content, err := complete(ctx, client, cfg, index, prompt)
	if err != nil {
		return nil, err
	}
	parsed, err := cfg.Parse(content)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &ParseError{Chunk: index, Content: content, Err: err}
	}
	return Reconcile(keys, parsed), nil
}
