// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/anisan-cli/adplay/constant"
	"github.com/anisan-cli/adplay/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath is the environment variable identifier used to override the default configuration directory.
const EnvConfigPath = "ADPLAY_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the absolute path to the primary application configuration directory.
// The path can be overridden with the ADPLAY_CONFIG_PATH environment variable.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.Adplay))
}

// Cache resolves the absolute path to the application's persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.Adplay))
}

// Logs resolves the directory used for diagnostic logs.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// History resolves the resume-position store.
func History() string {
	return filepath.Join(Cache(), "history.json")
}

// Temp resolves a volatile directory for IPC sockets and other transient artifacts.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.Adplay))
}
