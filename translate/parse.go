package translate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Translations maps a key to its text per locale.
type Translations map[string]map[string]string

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseResponse is the default response parser. It accepts a bare JSON object
// or one wrapped in a markdown code fence, optionally surrounded by prose.
func ParseResponse(content string) (Translations, error) {
	content = strings.TrimSpace(content)
	if m := markdownCodeBlock.FindStringSubmatch(content); m != nil {
		content = m[1]
	}
	if content == "" {
		return nil, fmt.Errorf("empty response")
	}

	var out Translations
	err := json.Unmarshal([]byte(content), &out)
	if err != nil {
		// Models sometimes add a sentence around the object.
		start, end := strings.IndexByte(content, '{'), strings.LastIndexByte(content, '}')
		if start < 0 || end <= start {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		out = nil
		if err2 := json.Unmarshal([]byte(content[start:end+1]), &out); err2 != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}
	return out, nil
}
