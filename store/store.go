// Package store keeps translates.json, the translations collected so far,
// so that only keys without a translation are sent to the backend.
//
// The file maps each key to its text per locale:
//
//	{ "保存": { "zh": "保存", "en": "Save" } }
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/minios-linux/i18ncheck/translate"
)

// FileName is the default store file name.
const FileName = "translates.json"

// Store is a translates.json file loaded in memory. It is safe for
// concurrent use.
type Store struct {
	mu      sync.Mutex
	path    string
	entries translate.Translations
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads the store at path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	s := &Store{path: path, entries: make(translate.Translations)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if s.entries == nil {
		s.entries = make(translate.Translations)
	}
	return s, nil
}

// Save writes the store back to its file, creating parent directories as
// needed. Keys are written sorted.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return fmt.Errorf("store path not set")
	}
	return writeJSON(s.path, s.entries)
}

// SaveMissing writes keys to MissingPath as a JSON array, or removes that
// file when keys is empty.
func (s *Store) SaveMissing(keys []string) error {
	path := MissingPath(s.path)
	if len(keys) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
		return nil
	}
	return writeJSON(path, keys)
}

// MissingPath returns the partial-coverage file kept next to the store at
// path: translates.json becomes translates.missing.json.
func MissingPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".missing" + ext
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// ---------------------------------------------------------------------------
// Lookups and updates
// ---------------------------------------------------------------------------

// Split partitions keys into those already translated to every locale and
// those still missing at least one. Found holds copies of the stored entries.
func (s *Store) Split(keys []string, locales []string) (found translate.Translations, missing []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found = make(translate.Translations)
	missing = translate.Missing(keys, s.entries, locales)
	lacking := make(map[string]bool, len(missing))
	for _, k := range missing {
		lacking[k] = true
	}
	for _, k := range keys {
		if lacking[k] {
			continue
		}
		found[k] = copyTexts(s.entries[k])
	}
	return found, missing
}

// Get returns a copy of the texts stored for key.
func (s *Store) Get(key string) (map[string]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	texts, ok := s.entries[key]
	return copyTexts(texts), ok
}

// Merge adds every non-empty text of t to the store.
func (s *Store) Merge(t translate.Translations) {
	s.mu.Lock()
	defer s.mu.Unlock()
	translate.Merge(s.entries, t)
}

// Prune removes entries whose key is not in keys and returns how many were
// removed.
func (s *Store) Prune(keys []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	valid := make(map[string]bool, len(keys))
	for _, k := range keys {
		valid[k] = true
	}
	removed := 0
	for k := range s.entries {
		if !valid[k] {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// All returns a copy of every entry.
func (s *Store) All() translate.Translations {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(translate.Translations, len(s.entries))
	for k, v := range s.entries {
		out[k] = copyTexts(v)
	}
	return out
}

func copyTexts(texts map[string]string) map[string]string {
	if texts == nil {
		return nil
	}
	out := make(map[string]string, len(texts))
	for l, t := range texts {
		out[l] = t
	}
	return out
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of keys and the number of texts per locale.
func (s *Store) Stats() (keys int, perLocale map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	perLocale = make(map[string]int)
	for _, texts := range s.entries {
		for l, t := range texts {
			if t != "" {
				perLocale[l]++
			}
		}
	}
	return len(s.entries), perLocale
}

// Summary returns a one-line human-readable summary.
func (s *Store) Summary() string {
	keys, perLocale := s.Stats()
	if keys == 0 {
		return "empty"
	}
	locales := make([]string, 0, len(perLocale))
	for l := range perLocale {
		locales = append(locales, l)
	}
	sort.Strings(locales)

	parts := make([]string, len(locales))
	for i, l := range locales {
		parts[i] = fmt.Sprintf("%s: %d", l, perLocale[l])
	}
	return fmt.Sprintf("%d keys (%s)", keys, strings.Join(parts, ", "))
}
