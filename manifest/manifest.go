// Package manifest handles serpent.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
)

// FileName is the name of the project configuration file.
const FileName = "serpent.toml"

var log = commonlog.GetLogger("serpent.manifest")

// Manifest represents a serpent.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Shell   ShellConfig `toml:"shell"`
	Import  ImportPaths `toml:"import"`
	Cache   CacheConfig `toml:"cache"`
	Log     LogConfig   `toml:"log"`
	Run     RunConfig   `toml:"run"`

	// Dir is the directory containing the serpent.toml file (set at load
	// time). Empty for the built-in defaults.
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// ShellConfig configures the interactive shell.
type ShellConfig struct {
	PS1     string `toml:"ps1"`
	PS2     string `toml:"ps2"`
	History string `toml:"history"`
}

// ImportPaths lists extra module search directories.
type ImportPaths struct {
	Paths []string `toml:"paths"`
}

// CacheConfig configures the compiled-code cache.
type CacheConfig struct {
	Enabled *bool  `toml:"enabled"`
	Path    string `toml:"path"`
}

// LogConfig configures logging. Verbosity adds to the -v count.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// RunConfig configures script execution.
type RunConfig struct {
	// RuntimeErrorStatus is the exit status after an uncaught exception
	// in a script.
	RuntimeErrorStatus int `toml:"runtime_error_status"`
}

// Default returns the configuration used when no serpent.toml exists.
func Default() *Manifest {
	return &Manifest{}
}

// Load parses the serpent.toml file in dir.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses a configuration file at an explicit path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		log.Warningf("%s: unknown keys ignored: %s", path, strings.Join(keys, ", "))
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	log.Debugf("loaded %s", path)
	return &m, nil
}

// FindAndLoad walks up from startDir to find a serpent.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// resolve makes p absolute relative to the manifest directory.
func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// ImportDirs returns absolute paths for the configured import directories.
func (m *Manifest) ImportDirs() []string {
	var paths []string
	for _, d := range m.Import.Paths {
		paths = append(paths, m.resolve(d))
	}
	return paths
}

// CacheEnabled reports whether compiled code should be cached. The cache
// is on unless disabled explicitly.
func (m *Manifest) CacheEnabled() bool {
	return m.Cache.Enabled == nil || *m.Cache.Enabled
}

// CachePath returns the cache database location: the configured path,
// .serpent/cache.db next to the manifest, or serpent/cache.db under the
// user cache directory.
func (m *Manifest) CachePath() (string, error) {
	if m.Cache.Path != "" {
		return m.resolve(m.Cache.Path), nil
	}
	if m.Dir != "" {
		return filepath.Join(m.Dir, ".serpent", "cache.db"), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate user cache directory: %w", err)
	}
	return filepath.Join(base, "serpent", "cache.db"), nil
}

// HistoryPath returns the shell history file, defaulting to
// ~/.serpent_history. An empty result disables history.
func (m *Manifest) HistoryPath() string {
	if m.Shell.History != "" {
		return m.resolve(m.Shell.History)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".serpent_history")
}

// LogFile returns the configured log file, or "" for stderr.
func (m *Manifest) LogFile() string {
	return m.resolve(m.Log.File)
}
