package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "calc"
version = "0.2.0"

[shell]
ps1 = "calc> "
ps2 = "....> "
history = ".history"

[import]
paths = ["lib", "/opt/serpent/lib"]

[cache]
enabled = false
path = "build/cache.db"

[log]
verbosity = 2
file = "serpent.log"

[run]
runtime_error_status = 3
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "calc" || m.Project.Version != "0.2.0" {
		t.Errorf("project = %+v", m.Project)
	}
	if m.Shell.PS1 != "calc> " || m.Shell.PS2 != "....> " {
		t.Errorf("shell = %+v", m.Shell)
	}
	if got := m.HistoryPath(); got != filepath.Join(m.Dir, ".history") {
		t.Errorf("history path = %q", got)
	}
	dirs := m.ImportDirs()
	if len(dirs) != 2 || dirs[0] != filepath.Join(m.Dir, "lib") || dirs[1] != "/opt/serpent/lib" {
		t.Errorf("import dirs = %v", dirs)
	}
	if m.CacheEnabled() {
		t.Error("cache should be disabled")
	}
	if p, err := m.CachePath(); err != nil || p != filepath.Join(m.Dir, "build", "cache.db") {
		t.Errorf("cache path = %q, %v", p, err)
	}
	if m.Log.Verbosity != 2 || m.LogFile() != filepath.Join(m.Dir, "serpent.log") {
		t.Errorf("log = %+v", m.Log)
	}
	if m.Run.RuntimeErrorStatus != 3 {
		t.Errorf("runtime_error_status = %d, want 3", m.Run.RuntimeErrorStatus)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[project]\nname = \"minimal\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !m.CacheEnabled() {
		t.Error("cache should default to enabled")
	}
	if p, _ := m.CachePath(); p != filepath.Join(m.Dir, ".serpent", "cache.db") {
		t.Errorf("default cache path = %q", p)
	}
	if m.Run.RuntimeErrorStatus != 0 {
		t.Errorf("default runtime_error_status = %d", m.Run.RuntimeErrorStatus)
	}
	if m.LogFile() != "" {
		t.Errorf("default log file = %q", m.LogFile())
	}
}

func TestLoadManifestParseError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[project\nname = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestLoadFileExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[shell]\nps1 = \"$ \"\n[unknown]\nkey = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Shell.PS1 != "$ " {
		t.Errorf("ps1 = %q", m.Shell.PS1)
	}
	abs, _ := filepath.Abs(dir)
	if m.Dir != abs {
		t.Errorf("dir = %q, want %q", m.Dir, abs)
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[project]\nname = \"found-project\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no serpent.toml exists")
	}
}

func TestDefaultManifest(t *testing.T) {
	m := Default()
	if !m.CacheEnabled() || len(m.ImportDirs()) != 0 {
		t.Errorf("unexpected defaults: %+v", m)
	}
	if m.resolve("rel") != "rel" {
		t.Error("paths stay relative without a manifest directory")
	}
}
