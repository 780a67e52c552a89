// Package paths provides CLI directory and file path resolution.
// Paths follow XDG on Linux and standard locations on Windows.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	projectOrg  = "apimgr"
	projectName = "sfind"
)

// ConfigDir returns the CLI config directory
// Linux: ~/.config/apimgr/sfind/
// Windows: %APPDATA%\apimgr\sfind\
func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), projectOrg, projectName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", projectOrg, projectName)
}

// DataDir returns the CLI data directory
// Linux: ~/.local/share/apimgr/sfind/
// Windows: %LOCALAPPDATA%\apimgr\sfind\data\
func DataDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("LOCALAPPDATA"), projectOrg, projectName, "data")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", projectOrg, projectName)
}

// CacheDir returns the CLI cache directory
// Linux: ~/.cache/apimgr/sfind/
// Windows: %LOCALAPPDATA%\apimgr\sfind\cache\
func CacheDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("LOCALAPPDATA"), projectOrg, projectName, "cache")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", projectOrg, projectName)
}

// LogDir returns the CLI log directory
// Linux: ~/.local/log/apimgr/sfind/
// Windows: %LOCALAPPDATA%\apimgr\sfind\log\
func LogDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("LOCALAPPDATA"), projectOrg, projectName, "log")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "log", projectOrg, projectName)
}

// ConfigFile returns the CLI config file path
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "cli.yml")
}

// LogFile returns the CLI log file path
func LogFile() string {
	return filepath.Join(LogDir(), "cli.log")
}

// SessionFile returns the cached Salesforce session path
func SessionFile() string {
	return filepath.Join(CacheDir(), "session.json")
}

// EnsureDirs creates all CLI directories with correct permissions.
// Called on every startup before any file operations.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		DataDir(),
		CacheDir(),
		LogDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
		// Ensure permissions even if dir existed
		if err := os.Chmod(dir, 0700); err != nil {
			return fmt.Errorf("chmod dir %s: %w", dir, err)
		}
	}
	return nil
}

// EnsureFile creates the parent dirs and, when missing, the file itself with
// the given mode. MUST be called before any file creation, so the mode is
// right before anything writes to it. An existing file is left untouched.
func EnsureFile(path string, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, perm)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	return f.Close()
}

// ResolveConfigPath resolves the --config flag to an absolute path
func ResolveConfigPath(configFlag string) (string, error) {
	if configFlag == "" {
		return ConfigFile(), nil // Default: cli.yml
	}

	// Expand ~ to home directory
	if strings.HasPrefix(configFlag, "~/") {
		home, _ := os.UserHomeDir()
		configFlag = filepath.Join(home, configFlag[2:])
	}

	// If absolute path - use as-is
	if filepath.IsAbs(configFlag) {
		return addExtIfNeeded(configFlag)
	}

	// Relative path - resolve from config dir
	fullPath := filepath.Join(ConfigDir(), configFlag)
	return addExtIfNeeded(fullPath)
}

// addExtIfNeeded adds .yml extension if no extension provided
func addExtIfNeeded(path string) (string, error) {
	ext := filepath.Ext(path)
	if ext == ".yml" || ext == ".yaml" {
		return path, nil
	}

	// No extension - try .yml first, then .yaml
	if ext == "" {
		ymlPath := path + ".yml"
		if _, err := os.Stat(ymlPath); err == nil {
			return ymlPath, nil
		}
		yamlPath := path + ".yaml"
		if _, err := os.Stat(yamlPath); err == nil {
			return yamlPath, nil
		}
		// Default to .yml for new files
		return ymlPath, nil
	}

	// Unknown extension - use as-is
	return path, nil
}
