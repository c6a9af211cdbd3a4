package translate

import (
	"sort"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Merge copies every non-empty text of src into dst, overwriting existing
// values for the same key and locale.
func Merge(dst, src Translations) {
	for key, texts := range src {
		for locale, text := range texts {
			if text == "" {
				continue
			}
			if dst[key] == nil {
				dst[key] = make(map[string]string)
			}
			dst[key][locale] = text
		}
	}
}

// Missing returns the keys, in input order, lacking a text for any of
// locales.
func Missing(keys []string, t Translations, locales []string) []string {
	var missing []string
	for _, key := range keys {
		for _, l := range locales {
			if t[key][l] == "" {
				missing = append(missing, key)
				break
			}
		}
	}
	return missing
}

// FillSource sets the source locale text of each key to the key itself when
// it is not present yet.
func FillSource(t Translations, keys []string, source string) {
	for _, key := range keys {
		if t[key] == nil {
			continue
		}
		if t[key][source] == "" {
			t[key][source] = key
		}
	}
}

// Reconcile returns got with keys the backend altered (whitespace, changed
// punctuation, a dropped character) mapped back onto the requested key they
// are closest to. A returned key is moved only when it is not itself
// requested, the best requested key has no entry yet, and the rune edit
// distance is at most a fifth of the requested key's length (minimum 1).
// Keys that cannot be matched are dropped.
func Reconcile(requested []string, got Translations) Translations {
	want := make(map[string]bool, len(requested))
	for _, k := range requested {
		want[k] = true
	}

	out := make(Translations, len(got))
	var strays []string
	for key, texts := range got {
		if want[key] {
			out[key] = texts
			continue
		}
		strays = append(strays, key)
	}
	sort.Strings(strays)

	for _, stray := range strays {
		best, bestDist := "", -1
		for _, k := range requested {
			if _, taken := out[k]; taken {
				continue
			}
			d := levenshtein.ComputeDistance(stray, k)
			if bestDist < 0 || d < bestDist {
				best, bestDist = k, d
			}
		}
		if best == "" {
			continue
		}
		limit := utf8.RuneCountInString(best) / 5
		if limit < 1 {
			limit = 1
		}
		if bestDist <= limit {
			out[best] = got[stray]
		}
	}
	return out
}
