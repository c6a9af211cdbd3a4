// Package settings stores i18ncheck user settings: the translation API
// credentials.
//
// Settings live in the XDG data directory:
//
//	$XDG_DATA_HOME/i18ncheck/  (default: ~/.local/share/i18ncheck/)
//
// auth.json is a JSON object keyed by profile name. File permissions are
// 0600 (owner read/write only).
//
// Lookup order for the API key:
//  1. --api-key flag (highest priority)
//  2. I18NCHECK_API_KEY environment variable
//  3. API_KEY environment variable
//  4. This credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName = "i18ncheck"
	fileName    = "auth.json"
)

// DefaultProfile is the profile used when none is named.
const DefaultProfile = "default"

// Environment variables consulted by ResolveAPIKey, in order.
var EnvKeys = []string{"I18NCHECK_API_KEY", "API_KEY"}

// Info is one stored credential.
type Info struct {
	Key string `json:"key"`
	// Endpoint the key belongs to; informational.
	Endpoint string `json:"endpoint,omitempty"`
}

// Store holds all credentials, keyed by profile name.
type Store map[string]*Info

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// dataDir respects $XDG_DATA_HOME and falls back to ~/.local/share.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json file path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// DataDir returns the i18ncheck data directory path.
func DataDir() (string, error) {
	return dataDir()
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the credential store from disk.
// Returns an empty store if the file doesn't exist or is invalid.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the credential store to disk with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("securing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Get / Set / Remove
// ---------------------------------------------------------------------------

// Get returns the credential for profile, or nil if not found.
func Get(profile string) *Info {
	return Load()[profile]
}

// SetAPIKey stores key for profile (upsert).
func SetAPIKey(profile, key, endpoint string) error {
	if key == "" {
		return fmt.Errorf("empty API key")
	}
	store := Load()
	store[profile] = &Info{Key: key, Endpoint: endpoint}
	return Save(store)
}

// GetAPIKey returns the stored key for profile, or "".
func GetAPIKey(profile string) string {
	if info := Get(profile); info != nil {
		return info.Key
	}
	return ""
}

// Remove deletes the credential for profile.
func Remove(profile string) error {
	store := Load()
	if _, ok := store[profile]; !ok {
		return nil
	}
	delete(store, profile)
	return Save(store)
}

// RemoveAll removes all stored credentials.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// Source names where ResolveAPIKey found the key.
const (
	SourceFlag  = "flag"
	SourceStore = "credential store"
)

// ResolveAPIKey returns the first key found in flagValue, the environment
// variables of EnvKeys and the store entry for profile, together with where
// it came from. Both results are empty when no key is configured.
func ResolveAPIKey(flagValue, profile string) (key, source string) {
	if flagValue != "" {
		return flagValue, SourceFlag
	}
	for _, env := range EnvKeys {
		if v := os.Getenv(env); v != "" {
			return v, "$" + env
		}
	}
	if profile == "" {
		profile = DefaultProfile
	}
	if k := GetAPIKey(profile); k != "" {
		return k, SourceStore
	}
	return "", ""
}

// ---------------------------------------------------------------------------
// Display helpers
// ---------------------------------------------------------------------------

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
