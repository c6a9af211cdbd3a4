package translate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// Fake backend
// ---------------------------------------------------------------------------

type fakeBackend struct {
	hits   atomic.Int32
	mu     sync.Mutex
	bodies []chatRequest
	// reply builds the message content for the keys of one request. A
	// non-zero status is written instead of a completion.
	reply func(keys []string) (content string, status int)
}

func newBackend(t *testing.T, reply func(keys []string) (string, int)) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{reply: reply}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fb.hits.Add(1)
	if r.URL.Path != "/chat/completions" {
		http.Error(w, "bad path "+r.URL.Path, http.StatusNotFound)
		return
	}
	if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
		http.Error(w, "bad auth "+got, http.StatusUnauthorized)
		return
	}
	body, _ := io.ReadAll(r.Body)
	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fb.mu.Lock()
	fb.bodies = append(fb.bodies, req)
	fb.mu.Unlock()

	keys := keysFromPrompt(req.Messages[1].Content)
	content, status := fb.reply(keys)
	if status != 0 {
		http.Error(w, content, status)
		return
	}
	resp := map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func keysFromPrompt(prompt string) []string {
	start, end := strings.Index(prompt, "["), strings.LastIndex(prompt, "]")
	if start < 0 || end < start {
		return nil
	}
	var keys []string
	json.Unmarshal([]byte(prompt[start:end+1]), &keys)
	return keys
}

func englishReply(keys []string) (string, int) {
	out := Translations{}
	for _, k := range keys {
		out[k] = map[string]string{"zh": k, "en": "EN:" + k}
	}
	b, _ := json.Marshal(out)
	return string(b), 0
}

func testOptions(endpoint string) Options {
	return Options{
		Request: RequestConfig{
			Endpoint: endpoint,
			Model:    "test-model",
			APIKey:   "sk-test",
			JSONMode: true,
		},
		BatchSize:     2,
		MaxConcurrent: 2,
	}
}

// ---------------------------------------------------------------------------
// Translate
// ---------------------------------------------------------------------------

func TestTranslateMergesChunks(t *testing.T) {
	fb, srv := newBackend(t, englishReply)
	keys := []string{"保存", "取消", "删除", "确认", "返回"}

	var logs []string
	opts := testOptions(srv.URL)
	opts.OnLog = func(msg string) { logs = append(logs, msg) }

	rep, err := Translate(context.Background(), keys, opts)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got := fb.hits.Load(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
	if rep.Chunks != 3 || len(rep.Failed) != 0 || rep.Err() != nil {
		t.Errorf("report = %+v", rep)
	}
	for _, k := range keys {
		want := map[string]string{"zh": k, "en": "EN:" + k}
		if diff := cmp.Diff(want, rep.Translations[k]); diff != "" {
			t.Errorf("translation of %q (-want +got):\n%s", k, diff)
		}
	}
	if len(logs) == 0 {
		t.Error("expected log messages")
	}

	req := fb.bodies[0]
	if req.Model != "test-model" || req.MaxTokens != DefaultMaxTokens || req.Stream {
		t.Errorf("request = %+v", req)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v", req.ResponseFormat)
	}
	if req.Messages[0].Role != "system" || !strings.Contains(req.Messages[0].Content, "zh: string, en: string") {
		t.Errorf("system message = %+v", req.Messages[0])
	}
}

func TestTranslateTemperature(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name string
		set  *float64
		want float64
	}{
		{"unset uses default", nil, DefaultTemperature},
		{"explicit zero is kept", &zero, 0},
	}
	for _, tc := range tests {
		fb, srv := newBackend(t, englishReply)
		opts := testOptions(srv.URL)
		opts.Request.Temperature = tc.set
		if _, err := Translate(context.Background(), []string{"你好"}, opts); err != nil {
			t.Fatalf("%s: Translate: %v", tc.name, err)
		}
		if len(fb.bodies) != 1 || fb.bodies[0].Temperature != tc.want {
			t.Errorf("%s: request temperature = %+v, want %g", tc.name, fb.bodies, tc.want)
		}
	}
}

func TestTranslateCodeFence(t *testing.T) {
	_, srv := newBackend(t, func(keys []string) (string, int) {
		body, _ := englishReply(keys)
		return "Here you go:\n```json\n" + body + "\n```", 0
	})
	rep, err := Translate(context.Background(), []string{"你好"}, testOptions(srv.URL))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got := rep.Translations["你好"]["en"]; got != "EN:你好" {
		t.Errorf("en = %q", got)
	}
}

func TestTranslateChunkFailureDoesNotAbort(t *testing.T) {
	_, srv := newBackend(t, func(keys []string) (string, int) {
		for _, k := range keys {
			if k == "坏" {
				return "upstream exploded", http.StatusInternalServerError
			}
		}
		return englishReply(keys)
	})

	var errs []string
	opts := testOptions(srv.URL)
	opts.OnError = func(msg string) { errs = append(errs, msg) }

	rep, err := Translate(context.Background(), []string{"好", "坏", "一", "二"}, opts)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(rep.Failed) != 1 || len(errs) != 1 {
		t.Fatalf("failed = %v, logged = %v", rep.Failed, errs)
	}
	var te *TransportError
	if !errors.As(rep.Failed[0], &te) || te.Status != http.StatusInternalServerError || te.Chunk != 0 {
		t.Fatalf("failure = %#v", rep.Failed[0])
	}
	if diff := cmp.Diff([]string{"好", "坏"}, rep.Missing); diff != "" {
		t.Errorf("missing (-want +got):\n%s", diff)
	}
	if rep.Translations["一"]["en"] != "EN:一" || rep.Translations["二"]["en"] != "EN:二" {
		t.Errorf("translations = %v", rep.Translations)
	}
	var pce *PartialCoverageError
	if !errors.As(rep.Err(), &pce) || len(pce.Missing) != 2 {
		t.Errorf("Err() = %v", rep.Err())
	}
}

func TestTranslateParseError(t *testing.T) {
	_, srv := newBackend(t, func([]string) (string, int) { return "sorry, I cannot help", 0 })
	rep, err := Translate(context.Background(), []string{"你好"}, testOptions(srv.URL))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	var pe *ParseError
	if len(rep.Failed) != 1 || !errors.As(rep.Failed[0], &pe) {
		t.Fatalf("failed = %v", rep.Failed)
	}
	if pe.Content != "sorry, I cannot help" {
		t.Errorf("content = %q", pe.Content)
	}
}

func TestTranslateMissingCredential(t *testing.T) {
	fb, srv := newBackend(t, englishReply)
	opts := testOptions(srv.URL)
	opts.Request.APIKey = ""

	_, err := Translate(context.Background(), []string{"你好"}, opts)
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
	if fb.hits.Load() != 0 {
		t.Errorf("request made without credential")
	}
}

func TestTranslateNoKeys(t *testing.T) {
	rep, err := Translate(context.Background(), nil, Options{})
	if err != nil || len(rep.Translations) != 0 || rep.Chunks != 0 {
		t.Fatalf("rep = %+v, err = %v", rep, err)
	}
}

func TestTranslateReconcilesAlteredKeys(t *testing.T) {
	_, srv := newBackend(t, func(keys []string) (string, int) {
		out := Translations{}
		for _, k := range keys {
			out[k+"!"] = map[string]string{"en": "EN"}
		}
		b, _ := json.Marshal(out)
		return string(b), 0
	})
	rep, err := Translate(context.Background(), []string{"请输入用户名称"}, testOptions(srv.URL))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	want := map[string]string{"zh": "请输入用户名称", "en": "EN"}
	if diff := cmp.Diff(want, rep.Translations["请输入用户名称"]); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if len(rep.Translations) != 1 {
		t.Errorf("stray keys kept: %v", rep.Translations)
	}
}

func TestTranslateCustomPromptAndParser(t *testing.T) {
	fb, srv := newBackend(t, englishReply)
	opts := testOptions(srv.URL)
	opts.Request.SystemPrompt = "custom system"
	opts.Request.UserPrompt = TemplatePrompt("Translate:\n" + ListPlaceholder + "\nThanks")
	parsed := 0
	opts.Request.Parse = func(content string) (Translations, error) {
		parsed++
		return ParseResponse(content)
	}

	if _, err := Translate(context.Background(), []string{"一"}, opts); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	req := fb.bodies[0]
	if req.Messages[0].Content != "custom system" {
		t.Errorf("system = %q", req.Messages[0].Content)
	}
	if want := "Translate:\n[\n\"一\"\n]\nThanks"; req.Messages[1].Content != want {
		t.Errorf("user = %q, want %q", req.Messages[1].Content, want)
	}
	if parsed != 1 {
		t.Errorf("parser called %d times", parsed)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestParseResponse(t *testing.T) {
	want := Translations{"你好": {"en": "Hello"}}
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"bare", `{"你好":{"en":"Hello"}}`, false},
		{"fence", "```json\n{\"你好\":{\"en\":\"Hello\"}}\n```", false},
		{"plain fence", "```\n{\"你好\":{\"en\":\"Hello\"}}\n```", false},
		{"prose", "Sure! {\"你好\":{\"en\":\"Hello\"}} Done.", false},
		{"empty", "  ", true},
		{"garbage", "no json here", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseResponse(tc.content)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseResponse: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestReconcile(t *testing.T) {
	requested := []string{"保存成功", "删除失败了", "确认"}
	got := Translations{
		"保存成功":   {"en": "Saved"},
		"删除失败了。": {"en": "Delete failed"},
		"完全无关的文本": {"en": "Unrelated"},
	}
	out := Reconcile(requested, got)
	want := Translations{
		"保存成功":  {"en": "Saved"},
		"删除失败了": {"en": "Delete failed"},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestMergeAndMissing(t *testing.T) {
	dst := Translations{"a": {"zh": "a", "en": "A"}}
	Merge(dst, Translations{
		"a": {"en": "", "fr": "Af"},
		"b": {"en": "B"},
	})
	want := Translations{
		"a": {"zh": "a", "en": "A", "fr": "Af"},
		"b": {"en": "B"},
	}
	if diff := cmp.Diff(want, dst); diff != "" {
		t.Fatalf("Merge (-want +got):\n%s", diff)
	}

	FillSource(dst, []string{"a", "b", "c"}, "zh")
	if dst["b"]["zh"] != "b" {
		t.Errorf("source not filled: %v", dst["b"])
	}
	if _, ok := dst["c"]; ok {
		t.Errorf("FillSource created an entry for an untranslated key")
	}

	missing := Missing([]string{"a", "b", "c"}, dst, []string{"en", "fr"})
	if diff := cmp.Diff([]string{"b", "c"}, missing); diff != "" {
		t.Errorf("Missing (-want +got):\n%s", diff)
	}
}

func TestRenderList(t *testing.T) {
	got := RenderList("列表："+ListPlaceholder, []string{"a", `say "hi"`})
	want := "列表：[\n\"a\",\n\"say \\\"hi\\\"\"\n]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := RenderList("no placeholder", []string{"x"}); got != "no placeholder\n\n[\n\"x\"\n]" {
		t.Errorf("appended = %q", got)
	}
}

func TestDefaultSystemPrompt(t *testing.T) {
	p := DefaultSystemPrompt("zh", []string{"en", "ja"})
	for _, want := range []string{"{ zh: string, en: string, ja: string }", "en (English)", "ja (Japanese)"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestLoadPromptFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/prompt.md"
	if _, err := LoadPromptFile(path); err == nil {
		t.Fatal("expected error for missing file")
	}
	if err := writeFile(path, "翻译：\n"+ListPlaceholder); err != nil {
		t.Fatal(err)
	}
	gen, err := LoadPromptFile(path)
	if err != nil {
		t.Fatalf("LoadPromptFile: %v", err)
	}
	got, _ := gen([]string{"一"})
	if got != "翻译：\n[\n\"一\"\n]" {
		t.Errorf("got %q", got)
	}
}

func TestPartialCoverageErrorMessage(t *testing.T) {
	err := &PartialCoverageError{Missing: []string{"1", "2", "3", "4", "5", "6", "7"}}
	if got := err.Error(); got != "7 keys not translated: 1, 2, 3, 4, 5, ... (2 more)" {
		t.Errorf("got %q", got)
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		want string
	}{
		{"abc", 5, "abc"},
		{"abcdef", 3, "abc..."},
		{"你好世界", 4, "你..."},
		{"你好世界", 3, "你..."},
		{"你好世界", 2, "..."},
		{"a你好", 2, "a..."},
	}
	for _, tc := range tests {
		if got := truncate(tc.s, tc.n); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.s, tc.n, got, tc.want)
		}
	}
}

func TestChatEndpoint(t *testing.T) {
	tests := map[string]string{
		"https://api.example.com":                   "https://api.example.com/chat/completions",
		"https://api.example.com/v1/":               "https://api.example.com/v1/chat/completions",
		"https://api.example.com/v1/chat/completions": "https://api.example.com/v1/chat/completions",
	}
	for in, want := range tests {
		if got := chatEndpoint(in); got != want {
			t.Errorf("chatEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
