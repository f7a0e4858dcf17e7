package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// NotesDir is the directory holding the dated markdown notes.
	// Defaults to "notes" under the base directory.
	NotesDir string `json:"notes_dir,omitempty"`

	// CompilationsDir is where compilation output is written when no
	// explicit output path is given. Defaults to "compilations" under
	// the base directory.
	CompilationsDir string `json:"compilations_dir,omitempty"`

	// DefaultFormat selects the compilation layout when the request
	// doesn't specify one: "chronological" or "grouped".
	DefaultFormat string `json:"default_format,omitempty"`

	// IncludeUndated keeps notes without a date in their filename in
	// compilation input. Dated notes are always included.
	IncludeUndated bool `json:"include_undated,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from
	// registration. Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration rooted at baseDir.
func DefaultConfig(baseDir string) *Config {
	return &Config{
		NotesDir:        filepath.Join(baseDir, "notes"),
		CompilationsDir: filepath.Join(baseDir, "compilations"),
		DefaultFormat:   "chronological",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.notecomb.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(baseDir), cfg), nil
}

// LoadWithRepo loads configuration from both global (~/.notecomb) and repo
// (.notecomb) directories. Repo config is found by walking upward from
// startDir; repo values take precedence for scalars, arrays are merged.
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(globalDir), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest
// .notecomb/config.json. Returns the path if found, or empty string.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".notecomb", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.NotesDir = overlay.NotesDir
	if result.NotesDir == "" {
		result.NotesDir = base.NotesDir
	}

	result.CompilationsDir = overlay.CompilationsDir
	if result.CompilationsDir == "" {
		result.CompilationsDir = base.CompilationsDir
	}

	result.DefaultFormat = overlay.DefaultFormat
	if result.DefaultFormat == "" {
		result.DefaultFormat = base.DefaultFormat
	}

	// Booleans: overlay wins if true, else base
	result.IncludeUndated = base.IncludeUndated || overlay.IncludeUndated

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
