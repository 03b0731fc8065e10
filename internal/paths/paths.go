// Package paths resolves the platform-native directories podliner reads and
// writes: the configuration directory (AppConfig, Library, sync config),
// the log directory, and the downloads directory.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "podliner"

// Dirs holds every directory podliner touches on disk.
type Dirs struct {
	Config    string // appsettings.json, library.json, gpodder.json
	State     string // logs/
	Downloads string
}

// Resolve computes Dirs from the environment, following §6's variable list:
// XDG_CONFIG_HOME, XDG_STATE_HOME, APPDATA, LOCALAPPDATA, HOME, USERPROFILE.
// An explicit override (e.g. from --config-dir) takes precedence over every
// environment variable when non-empty.
func Resolve(configDirOverride string) (Dirs, error) {
	if configDirOverride != "" {
		abs, err := filepath.Abs(configDirOverride)
		if err != nil {
			return Dirs{}, fmt.Errorf("resolve config dir override: %w", err)
		}
		return Dirs{
			Config:    abs,
			State:     filepath.Join(abs, "logs"),
			Downloads: filepath.Join(abs, "downloads"),
		}, nil
	}

	configBase, err := configBaseDir()
	if err != nil {
		return Dirs{}, err
	}
	stateBase, err := stateBaseDir()
	if err != nil {
		return Dirs{}, err
	}

	return Dirs{
		Config:    filepath.Join(configBase, appDirName),
		State:     filepath.Join(stateBase, appDirName, "logs"),
		Downloads: filepath.Join(configBase, appDirName, "downloads"),
	}, nil
}

// EnsureAll creates every directory in d, if missing, with owner-only
// permissions.
func (d Dirs) EnsureAll() error {
	for _, dir := range []string{d.Config, d.State, d.Downloads} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func configBaseDir() (string, error) {
	if runtime.GOOS == "windows" {
		if v := os.Getenv("APPDATA"); v != "" {
			return v, nil
		}
		return homeDir()
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v, nil
	}
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config"), nil
}

func stateBaseDir() (string, error) {
	if runtime.GOOS == "windows" {
		if v := os.Getenv("LOCALAPPDATA"); v != "" {
			return v, nil
		}
		if v := os.Getenv("APPDATA"); v != "" {
			return v, nil
		}
		return homeDir()
	}
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return v, nil
	}
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state"), nil
}

func homeDir() (string, error) {
	if runtime.GOOS == "windows" {
		if v := os.Getenv("USERPROFILE"); v != "" {
			return v, nil
		}
	}
	if v := os.Getenv("HOME"); v != "" {
		return v, nil
	}
	h, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return h, nil
}

// ConfigFile returns the path to appsettings.json.
func (d Dirs) ConfigFile() string { return filepath.Join(d.Config, "appsettings.json") }

// LibraryFile returns the path to library.json.
func (d Dirs) LibraryFile() string { return filepath.Join(d.Config, "library.json") }

// SyncFile returns the path to gpodder.json.
func (d Dirs) SyncFile() string { return filepath.Join(d.Config, "gpodder.json") }

// LogFile returns the path to today's daily log file.
func (d Dirs) LogFile(date string) string {
	return filepath.Join(d.State, fmt.Sprintf("podliner-%s.log", date))
}
