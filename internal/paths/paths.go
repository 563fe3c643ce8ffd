// Package paths resolves where fasterq-dump keeps its configuration,
// honoring tool-specific overrides first and XDG conventions second.
package paths

import (
	"os"
	"path/filepath"
)

const appName = "fasterq-dump"

// ConfigDir returns the directory for the tool's config file.
func ConfigDir() string {
	return getDir("FASTERQ_DUMP_CONFIG_HOME", "XDG_CONFIG_HOME", ".config")
}

// CacheDir returns the directory for incidental cached data.
func CacheDir() string {
	return getDir("FASTERQ_DUMP_CACHE_HOME", "XDG_CACHE_HOME", ".cache")
}

func getDir(toolEnv, xdgEnv, defaultBase string) string {
	if dir := os.Getenv(toolEnv); dir != "" {
		return dir
	}
	if base := os.Getenv(xdgEnv); base != "" {
		return filepath.Join(base, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, defaultBase, appName)
}

// ConfigFile returns the default config file path inside ConfigDir.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
