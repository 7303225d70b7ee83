// Package xdg provides helpers to resolve XDG Base Directory paths for snowdemo.
// It falls back to the traditional locations when the XDG environment variables
// are not set and creates the directories with private permissions.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under every XDG base directory.
const AppName = "snowdemo"

// ConfigDir returns the XDG config directory for snowdemo.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/snowdemo when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return ensure("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for snowdemo.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.local/state/snowdemo when XDG_STATE_HOME is unset.
// The default SQLite transcript database lives here.
func StateDir() (string, error) {
	return ensure("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func ensure(envKey, homeRel string) (string, error) {
	base := os.Getenv(envKey)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRel)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
