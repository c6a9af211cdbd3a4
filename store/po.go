package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leonelquinteros/gotext"
)

// ImportPO fills missing texts from gettext catalogs named <locale>.po in
// dir, using the keys as msgids. Locales without a catalog are skipped. It
// returns the number of texts imported.
func (s *Store) ImportPO(dir string, keys, locales []string) (int, error) {
	imported := 0
	for _, locale := range locales {
		path := filepath.Join(dir, locale+".po")
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return imported, fmt.Errorf("reading %s: %w", path, err)
		}

		po := gotext.NewPo()
		po.Parse(data)

		s.mu.Lock()
		for _, key := range keys {
			if s.entries[key][locale] != "" {
				continue
			}
			// Get returns the msgid itself when there is no translation.
			text := po.Get(key)
			if text == "" || text == key {
				continue
			}
			if s.entries[key] == nil {
				s.entries[key] = make(map[string]string)
			}
			s.entries[key][locale] = text
			imported++
		}
		s.mu.Unlock()
	}
	return imported, nil
}
