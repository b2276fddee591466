package plugin

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const testPluginRoot = "/plugins"

// writeManifest stores m as <root>/<dir>/plugin.json on fs.
func writeManifest(t *testing.T, fs afero.Fs, dir string, m Manifest) {
	t.Helper()

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := fs.MkdirAll(filepath.Join(testPluginRoot, dir), 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	path := filepath.Join(testPluginRoot, dir, ManifestFile)
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
}

func TestManager_Discover(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "keyboard", Manifest{
		Name:        "keyboard",
		Version:     "1.0.0",
		Description: "Types recognized words",
		Executable:  "keyboard",
		Actions:     []string{"type", "keystroke"},
	})

	manager := NewManagerFs(fs, testPluginRoot, zerolog.Nop())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	plugin := plugins[0]
	if plugin.Manifest.Name != "keyboard" {
		t.Errorf("expected plugin name 'keyboard', got %q", plugin.Manifest.Name)
	}
	if plugin.Manifest.Description != "Types recognized words" {
		t.Errorf("unexpected description %q", plugin.Manifest.Description)
	}
	if !plugin.Manifest.Supports("type") || plugin.Manifest.Supports("delete") {
		t.Errorf("Supports() gave wrong answers for %v", plugin.Manifest.Actions)
	}
	if want := filepath.Join(testPluginRoot, "keyboard"); plugin.Path != want {
		t.Errorf("expected path %q, got %q", want, plugin.Path)
	}
	if want := filepath.Join(testPluginRoot, "keyboard", "keyboard"); plugin.Executable != want {
		t.Errorf("expected executable %q, got %q", want, plugin.Executable)
	}
}

func TestManager_Discover_Skips(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "b-plugin", Manifest{Name: "b-plugin", Executable: "b", Actions: []string{"run"}})
	writeManifest(t, fs, "a-plugin", Manifest{Name: "a-plugin", Executable: "a", Actions: []string{"run"}})
	writeManifest(t, fs, "nameless", Manifest{Executable: "x"})
	fs.MkdirAll(filepath.Join(testPluginRoot, "broken"), 0755)
	afero.WriteFile(fs, filepath.Join(testPluginRoot, "broken", ManifestFile), []byte("not valid json"), 0644)
	fs.MkdirAll(filepath.Join(testPluginRoot, "no-manifest"), 0755)
	afero.WriteFile(fs, filepath.Join(testPluginRoot, "README"), []byte("loose file"), 0644)

	manager := NewManagerFs(fs, testPluginRoot, zerolog.Nop())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(plugins))
	}
	if plugins[0].Manifest.Name != "a-plugin" || plugins[1].Manifest.Name != "b-plugin" {
		t.Errorf("List() not sorted: %s, %s", plugins[0].Manifest.Name, plugins[1].Manifest.Name)
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "one", Manifest{Name: "one", Executable: "one"})

	manager := NewManagerFs(fs, testPluginRoot, zerolog.Nop())
	manager.Discover()

	fs.RemoveAll(filepath.Join(testPluginRoot, "one"))
	writeManifest(t, fs, "two", Manifest{Name: "two", Executable: "two"})
	manager.Discover()

	if _, err := manager.Get("one"); !errors.Is(err, ErrPluginNotFound) {
		t.Error("removed plugin still listed after rescan")
	}
	if _, err := manager.Get("two"); err != nil {
		t.Errorf("Get(two) error = %v", err)
	}
}

func TestManager_Get(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "my-plugin", Manifest{
		Name:       "my-plugin",
		Version:    "2.0.0",
		Executable: "my-plugin-bin",
		Actions:    []string{"run"},
	})

	manager := NewManagerFs(fs, testPluginRoot, zerolog.Nop())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugin, err := manager.Get("my-plugin")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if plugin.Manifest.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %q", plugin.Manifest.Version)
	}

	if _, err := manager.Get("nonexistent-plugin"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager("/path/that/does/not/exist", zerolog.Nop())

	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on non-existent dir: %v", err)
	}
	if len(manager.List()) != 0 {
		t.Fatal("expected 0 plugins")
	}
	if manager.PluginDir() != "/path/that/does/not/exist" {
		t.Errorf("PluginDir() = %q", manager.PluginDir())
	}
}
