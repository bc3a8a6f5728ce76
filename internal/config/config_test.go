package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vango-dev/reactive/pkg/reactive"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Lang != DefaultLang {
		t.Errorf("Lang = %q, want %q", cfg.Lang, DefaultLang)
	}
	if cfg.Devtools.Addr != DefaultDevtoolsAddr {
		t.Errorf("Devtools.Addr = %q, want %q", cfg.Devtools.Addr, DefaultDevtoolsAddr)
	}
	if cfg.Engine.MaxDepth != DefaultMaxDepth {
		t.Errorf("Engine.MaxDepth = %d, want %d", cfg.Engine.MaxDepth, DefaultMaxDepth)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultNamespace)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Missing file
	if _, err := Load(tmpDir); err == nil {
		t.Error("Expected error for missing config")
	}
	cfg, err := LoadOrDefault(tmpDir)
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Lang != DefaultLang {
		t.Errorf("expected defaults, got Lang %q", cfg.Lang)
	}

	configJSON := `{
  "lang": "cel",
  "engine": {
    "skipUnchanged": true,
    "maxRecomputes": 50
  },
  "devtools": {
    "addr": "127.0.0.1:9000"
  }
}
`
	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err = Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Lang != "cel" {
		t.Errorf("Lang = %q, want cel", cfg.Lang)
	}
	if !cfg.Engine.SkipUnchanged || cfg.Engine.MaxRecomputes != 50 {
		t.Errorf("unexpected engine config %+v", cfg.Engine)
	}
	// Unset fields keep their defaults.
	if cfg.Engine.MaxDepth != DefaultMaxDepth {
		t.Errorf("Engine.MaxDepth = %d, want %d", cfg.Engine.MaxDepth, DefaultMaxDepth)
	}
	if cfg.Devtools.EventBuffer != DefaultEventBuffer {
		t.Errorf("Devtools.EventBuffer = %d, want %d", cfg.Devtools.EventBuffer, DefaultEventBuffer)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"lang": `},
		{"unknown lang", `{"lang": "lua"}`},
		{"negative budget", `{"engine": {"maxDepth": -1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, ConfigFileName)
			if err := os.WriteFile(path, []byte(tt.json), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFile(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := New()
	cfg.Lang = "js"
	cfg.Engine.SkipUnchanged = true

	path := filepath.Join(dir, ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if loaded.Lang != "js" || !loaded.Engine.SkipUnchanged {
		t.Errorf("unexpected loaded config %+v", loaded)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot() error = %v", err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindProjectRoot() = %q, want %q", got, want)
	}
}

func TestStoreOptions(t *testing.T) {
	cfg := New()
	cfg.Engine.SkipUnchanged = true
	cfg.Engine.MaxRecomputes = 9

	s := reactive.New(cfg.StoreOptions()...)
	got := s.Config()
	if !got.SkipUnchanged || got.MaxRecomputes != 9 || got.MaxDepth != DefaultMaxDepth {
		t.Errorf("unexpected store config %+v", got)
	}
}
