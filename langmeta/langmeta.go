// Package langmeta resolves locale codes to the display names used in
// translation prompts and reports.
package langmeta

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes one locale.
type Meta struct {
	// Code is the canonical BCP 47 form, e.g. "pt-BR".
	Code string
	// Name is the English name, e.g. "Brazilian Portuguese".
	Name string
	// Native is the name in the locale itself, e.g. "português".
	Native string
}

// Canonicalize parses code, accepting "_" as a separator, and returns its
// canonical BCP 47 form.
func Canonicalize(code string) (string, error) {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if code == "" {
		return "", fmt.Errorf("empty locale code")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid locale %q: %w", code, err)
	}
	return tag.String(), nil
}

// Resolve returns display metadata for code. Codes that do not parse are
// passed through unchanged as their own name.
func Resolve(code string) Meta {
	canon, err := Canonicalize(code)
	if err != nil {
		return Meta{Code: code, Name: code, Native: code}
	}
	tag := language.MustParse(canon)
	m := Meta{
		Code:   canon,
		Name:   display.English.Tags().Name(tag),
		Native: display.Self.Name(tag),
	}
	if m.Name == "" {
		m.Name = canon
	}
	if m.Native == "" {
		m.Native = m.Name
	}
	return m
}

// Label formats code for prompts: "en (English)".
func Label(code string) string {
	m := Resolve(code)
	if m.Name == m.Code {
		return m.Code
	}
	return m.Code + " (" + m.Name + ")"
}

// Labels applies Label to every code.
func Labels(codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = Label(c)
	}
	return out
}
