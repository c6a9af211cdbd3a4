package translate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/minios-linux/i18ncheck/langmeta"
)

// ListPlaceholder is replaced by the key list in prompt templates.
const ListPlaceholder = "【待翻译的列表】"

// DefaultSystemPrompt returns the system prompt asking for a JSON object that
// maps every key to its translation in source and each target locale.
func DefaultSystemPrompt(source string, targets []string) string {
	locales := append([]string{source}, targets...)
	fields := make([]string, len(locales))
	for i, l := range locales {
		fields[i] = l + ": string"
	}

	var sb strings.Builder
	sb.WriteString("你是一个专业的翻译专家，会严格按照格式要求进行翻译并只返回JSON结果，不会返回多余内容。")
	fmt.Fprintf(&sb, "结果格式为：{ [key: string]: { %s } }", strings.Join(fields, ", "))
	sb.WriteString("\n\nLanguages:\n")
	for _, l := range locales {
		sb.WriteString("- ")
		sb.WriteString(langmeta.Label(l))
		sb.WriteString("\n")
	}
	return sb.String()
}

const defaultUserTemplate = "请翻译以下列表，列表中的每一项都是一个 key：\n" + ListPlaceholder

// DefaultUserPrompt renders the built-in user prompt for one chunk of keys.
func DefaultUserPrompt(keys []string) (string, error) {
	return RenderList(defaultUserTemplate, keys), nil
}

// RenderList replaces ListPlaceholder in tpl with keys as a JSON array, one
// key per line. A template without the placeholder gets the list appended.
func RenderList(tpl string, keys []string) string {
	items := make([]string, len(keys))
	for i, k := range keys {
		b, _ := json.Marshal(k)
		items[i] = string(b)
	}
	list := "[\n" + strings.Join(items, ",\n") + "\n]"
	if !strings.Contains(tpl, ListPlaceholder) {
		return strings.TrimRight(tpl, "\n") + "\n\n" + list
	}
	return strings.Replace(tpl, ListPlaceholder, list, 1)
}

// TemplatePrompt returns a user prompt generator for tpl.
func TemplatePrompt(tpl string) func([]string) (string, error) {
	return func(keys []string) (string, error) {
		return RenderList(tpl, keys), nil
	}
}

// LoadPromptFile reads a user prompt template from path.
func LoadPromptFile(path string) (func([]string) (string, error), error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt file: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("prompt file %s is empty", path)
	}
	return TemplatePrompt(string(data)), nil
}
