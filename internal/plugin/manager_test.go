package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "xdotool", "echo '{}'\n", "click", "scroll", "key")
	writePlugin(t, root, "notify", "echo '{}'\n")

	// Noise that must be skipped.
	if err := os.MkdirAll(filepath.Join(root, "no-manifest"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "broken"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "broken", "plugin.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plugins := m.List()
	if len(plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(plugins))
	}
	if plugins[0].Manifest.Name != "notify" || plugins[1].Manifest.Name != "xdotool" {
		t.Errorf("expected plugins sorted by name, got %s, %s", plugins[0].Manifest.Name, plugins[1].Manifest.Name)
	}

	p, err := m.Get("xdotool")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Executable != filepath.Join(root, "xdotool", "run.sh") {
		t.Errorf("unexpected executable path %q", p.Executable)
	}
	if !p.Manifest.Supports("scroll") || p.Manifest.Supports("shutdown") {
		t.Error("Supports() does not follow the manifest action list")
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "first", "echo '{}'\n")

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(filepath.Join(root, "first")); err != nil {
		t.Fatal(err)
	}
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Get("first"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("removed plugin should be gone after rescan, got %v", err)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing"))

	if err := m.Discover(); err != nil {
		t.Errorf("missing directory should not be an error: %v", err)
	}
	if len(m.List()) != 0 {
		t.Error("expected no plugins")
	}
	if m.PluginDir() == "" {
		t.Error("PluginDir() should return the configured directory")
	}
}
