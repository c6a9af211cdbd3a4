package dialect

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/minios-linux/i18ncheck/rangeset"
)

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Dialect
	}{
		{"src/App.vue", MarkupEmbeddedScript},
		{"src/Home.TSX", InlineMarkup},
		{"src/view.jsx", InlineMarkup},
		{"src/api.ts", PlainScript},
		{"lib/index.mjs", PlainScript},
		{"README", PlainScript},
		{".eslintrc", PlainScript},
	}
	for _, tc := range tests {
		if got := FromPath(tc.path); got != tc.want {
			t.Errorf("FromPath(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestParse(t *testing.T) {
	for in, want := range map[string]Dialect{
		"vue":                    MarkupEmbeddedScript,
		"JSX":                    InlineMarkup,
		"plain-script":           PlainScript,
		" inline-markup ":        InlineMarkup,
		"markup-embedded-script": MarkupEmbeddedScript,
	} {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Parse(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := Parse("svelte"); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
}

func TestInterpolate(t *testing.T) {
	if got := MarkupEmbeddedScript.Interpolate("t('a')"); got != "{{ t('a') }}" {
		t.Fatalf("vue interpolation = %q", got)
	}
	if got := InlineMarkup.Interpolate("t('a')"); got != "{ t('a') }" {
		t.Fatalf("jsx interpolation = %q", got)
	}
	if got := PlainScript.Interpolate("t('a')"); got != "t('a')" {
		t.Fatalf("plain interpolation = %q", got)
	}
}

func TestScriptRegions(t *testing.T) {
	content := "<template><p>hi</p></template>\n<script setup lang=\"ts\">\nconst a = 1\n</script>\n<script>b()</script>"
	got := MarkupEmbeddedScript.ScriptRegions(content)

	first := len("<template><p>hi</p></template>\n<script setup lang=\"ts\">")
	firstEnd := first + len("\nconst a = 1\n")
	secondStart := firstEnd + len("</script>\n<script>")
	want := rangeset.Set{
		{Start: first, End: firstEnd},
		{Start: secondStart, End: secondStart + len("b()")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ScriptRegions mismatch (-want +got):\n%s", diff)
	}

	whole := PlainScript.ScriptRegions("abc")
	if len(whole) != 1 || whole[0] != (rangeset.Span{Start: 0, End: 3}) {
		t.Fatalf("plain script regions = %v", whole)
	}

	tag, ok := ScriptOpenTag(content)
	if !ok || tag.Slice(content) != "<script setup lang=\"ts\">" {
		t.Fatalf("ScriptOpenTag = %v %v", tag, ok)
	}
}
