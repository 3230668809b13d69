// Package config loads and validates the optional .adbridge YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up from the working directory upward.
const FileName = ".adbridge"

// PrebuiltDirEnv overrides prebuilt_dir when set.
const PrebuiltDirEnv = "ADBRIDGE_PREBUILT_DIR"

// Default values.
const (
	DefaultPreviewBytes = 64 << 10 // 64 KiB
	DefaultHistorySize  = 16
	DefaultLogLevel     = "info"
)

// Config holds the parsed .adbridge configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version     int           `yaml:"version"`
	PrebuiltDir string        `yaml:"prebuilt_dir"` // relative to the config file
	Platform    string        `yaml:"platform"`     // e.g. "windows"; host platform when empty
	RawPreview  int           `yaml:"preview_bytes"`
	LogLevel    string        `yaml:"log_level"`
	History     HistoryConfig `yaml:"history"`
}

// HistoryConfig controls how run results are kept for later inspection.
type HistoryConfig struct {
	Size int    `yaml:"size"` // in-memory LRU capacity
	Dir  string `yaml:"dir"`  // disk store directory; a temp dir when empty
}

// PreviewBytes returns the configured preview size or the default.
func (c *Config) PreviewBytes() int {
	if c.RawPreview > 0 {
		return c.RawPreview
	}
	return DefaultPreviewBytes
}

// HistorySize returns the configured LRU capacity or the default.
func (c *Config) HistorySize() int {
	if c.History.Size > 0 {
		return c.History.Size
	}
	return DefaultHistorySize
}

// Level returns the configured log level or the default.
func (c *Config) Level() string {
	if c.LogLevel != "" {
		return c.LogLevel
	}
	return DefaultLogLevel
}

// LoadResult holds the parsed config and where it was found.
type LoadResult struct {
	Config *Config
	Root   string // directory containing .adbridge; falls back to the start dir
	Path   string // config file path, empty if none was found
}

// Load looks for a .adbridge file in dir and its parents. If none exists,
// a default Config rooted at dir is returned. Relative prebuilt_dir and
// history.dir values are resolved against the config file's directory.
func Load(dir string) (*LoadResult, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	res := &LoadResult{Config: &Config{}, Root: dir}
	if path, ok := findConfig(dir); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", FileName, err)
		}
		if err := yaml.Unmarshal(data, res.Config); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", FileName, err)
		}
		res.Root = filepath.Dir(path)
		res.Path = path
	}

	if env := os.Getenv(PrebuiltDirEnv); env != "" {
		res.Config.PrebuiltDir = env
	}
	res.Config.PrebuiltDir = resolve(res.Root, res.Config.PrebuiltDir)
	res.Config.History.Dir = resolve(res.Root, res.Config.History.Dir)
	return res, nil
}

func resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// findConfig walks upward from dir looking for a .adbridge file.
func findConfig(dir string) (string, bool) {
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
