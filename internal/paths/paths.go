// Package paths resolves configuration, data and upload locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user configuration and data directories.
const AppName = "plantdiaries"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "PLANTDIARIES_CONFIG_DIR"
	EnvDataDir   = "PLANTDIARIES_DATA_DIR"
)

// File and directory names inside the data directory.
const (
	ConfigFileName   = "config.yaml"
	DatabaseFileName = "plantdiaries.sqlite"
	UploadsDirName   = "uploads"
)

// platformDir holds platform lookups that tests override.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// xdgDir returns $env/plantdiaries on Linux, falling back to
// ~/<fallback...>/plantdiaries, and <UserConfigDir>/plantdiaries elsewhere.
func xdgDir(env string, fallback ...string) (string, error) {
	if platformDir.goos != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, AppName)...), nil
}

// DefaultConfigDir returns the platform default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/plantdiaries (fallback ~/.config/plantdiaries)
// macOS:   ~/Library/Application Support/plantdiaries
// Windows: %APPDATA%/plantdiaries
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform default data directory.
//
// Linux:   $XDG_DATA_HOME/plantdiaries (fallback ~/.local/share/plantdiaries)
// Others:  same as the configuration directory
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// firstAbs returns the absolute form of the first non-empty candidate, or
// the result of fallback when all are empty.
func firstAbs(fallback func() (string, error), candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	return fallback()
}

// ResolveConfigDir applies flag > PLANTDIARIES_CONFIG_DIR > platform default.
func ResolveConfigDir(flag string) (string, error) {
	return firstAbs(DefaultConfigDir, flag, os.Getenv(EnvConfigDir))
}

// ResolveDataDir applies flag > config value > PLANTDIARIES_DATA_DIR >
// platform default.
func ResolveDataDir(flag, configValue string) (string, error) {
	return firstAbs(DefaultDataDir, flag, configValue, os.Getenv(EnvDataDir))
}

// ConfigFile returns the config.yaml path inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

// DatabasePath returns the default database file inside dataDir.
func DatabasePath(dataDir string) string {
	return filepath.Join(dataDir, DatabaseFileName)
}

// UploadsDir returns the default photo root inside dataDir.
func UploadsDir(dataDir string) string {
	return filepath.Join(dataDir, UploadsDirName)
}
