// Package xdg provides helpers to resolve XDG Base Directory paths for p4go.
// It implements the XDG Base Directory specification for determining the
// location of the settings file on Unix-like systems.
//
// The package handles fallback to traditional locations when XDG environment
// variables are not set and creates the directories with private permissions.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName names the per-application subdirectory.
const AppName = "p4go"

// ConfigDir returns the XDG config directory for p4go.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/p4go when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return dir("XDG_CONFIG_HOME", ".config")
}

func dir(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	d := filepath.Join(base, AppName)
	if err := os.MkdirAll(d, 0o700); err != nil { // private dir
		return "", err
	}
	return d, nil
}
