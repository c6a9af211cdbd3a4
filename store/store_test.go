package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/minios-linux/i18ncheck/translate"
)

func TestLoadNonExistent(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load returned error for non-existent file: %v", err)
	}
	if keys, _ := s.Stats(); keys != 0 {
		t.Errorf("keys = %d, want 0", keys)
	}
	if s.Summary() != "empty" {
		t.Errorf("Summary = %q", s.Summary())
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	os.WriteFile(path, []byte("{not json"), 0644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "i18n", FileName)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s.Merge(translate.Translations{
		"保存": {"zh": "保存", "en": "Save"},
		"取消": {"zh": "取消", "en": "Cancel", "ja": ""},
	})
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind")
	}

	s2, err := Load(path)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}
	want := translate.Translations{
		"保存": {"zh": "保存", "en": "Save"},
		"取消": {"zh": "取消", "en": "Cancel"},
	}
	if diff := cmp.Diff(want, s2.All()); diff != "" {
		t.Errorf("reloaded (-want +got):\n%s", diff)
	}
	if got := s2.Summary(); got != "2 keys (en: 2, zh: 2)" {
		t.Errorf("Summary = %q", got)
	}
}

func TestSplit(t *testing.T) {
	s, _ := Load(filepath.Join(t.TempDir(), FileName))
	s.Merge(translate.Translations{
		"一": {"en": "One", "ja": "いち"},
		"二": {"en": "Two"},
	})

	found, missing := s.Split([]string{"一", "二", "三"}, []string{"en", "ja"})
	if diff := cmp.Diff(translate.Translations{"一": {"en": "One", "ja": "いち"}}, found); diff != "" {
		t.Errorf("found (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"二", "三"}, missing); diff != "" {
		t.Errorf("missing (-want +got):\n%s", diff)
	}

	// found is a copy
	found["一"]["en"] = "changed"
	if got, _ := s.Get("一"); got["en"] != "One" {
		t.Errorf("store modified through Split result: %v", got)
	}
}

func TestPrune(t *testing.T) {
	s, _ := Load(filepath.Join(t.TempDir(), FileName))
	s.Merge(translate.Translations{"a": {"en": "A"}, "b": {"en": "B"}, "c": {"en": "C"}})
	if n := s.Prune([]string{"a", "c", "d"}); n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	if _, ok := s.Get("b"); ok {
		t.Error("b not pruned")
	}
}

func TestSaveMissing(t *testing.T) {
	dir := t.TempDir()
	s, _ := Load(filepath.Join(dir, FileName))
	missingPath := filepath.Join(dir, "translates.missing.json")
	if MissingPath(s.Path()) != missingPath {
		t.Fatalf("MissingPath = %q", MissingPath(s.Path()))
	}

	if err := s.SaveMissing([]string{"甲", "乙"}); err != nil {
		t.Fatalf("SaveMissing: %v", err)
	}
	data, err := os.ReadFile(missingPath)
	if err != nil {
		t.Fatalf("reading missing file: %v", err)
	}
	var got []string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if diff := cmp.Diff([]string{"甲", "乙"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if err := s.SaveMissing(nil); err != nil {
		t.Fatalf("SaveMissing(nil): %v", err)
	}
	if _, err := os.Stat(missingPath); !os.IsNotExist(err) {
		t.Error("missing file not removed")
	}
	if err := s.SaveMissing(nil); err != nil {
		t.Errorf("SaveMissing(nil) without file: %v", err)
	}
}

func TestConcurrentMerge(t *testing.T) {
	s, _ := Load(filepath.Join(t.TempDir(), FileName))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			s.Merge(translate.Translations{key: {"en": key}})
		}(i)
	}
	wg.Wait()
	if keys, _ := s.Stats(); keys != 20 {
		t.Errorf("keys = %d, want 20", keys)
	}
}

const samplePO = `msgid ""
msgstr ""
"Content-Type: text/plain; charset=UTF-8\n"
"Language: en\n"

msgid "保存"
msgstr "Save"

msgid "取消"
msgstr ""

msgid "删除"
msgstr "Delete"
`

func TestImportPO(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "en.po"), []byte(samplePO), 0644); err != nil {
		t.Fatal(err)
	}

	s, _ := Load(filepath.Join(dir, FileName))
	s.Merge(translate.Translations{"删除": {"en": "Remove"}})

	n, err := s.ImportPO(dir, []string{"保存", "取消", "删除", "新建"}, []string{"en", "ja"})
	if err != nil {
		t.Fatalf("ImportPO: %v", err)
	}
	if n != 1 {
		t.Errorf("imported %d, want 1", n)
	}
	want := translate.Translations{
		"保存": {"en": "Save"},
		"删除": {"en": "Remove"},
	}
	if diff := cmp.Diff(want, s.All()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
