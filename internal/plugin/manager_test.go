package plugin

import (
	"os"
	"path/filepath"
	"testing"
)

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	writePlugin(t, tmpDir, "keyboard", "", "type", "keystroke")

	manager := NewManager(tmpDir)
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
	if plugin.Path != filepath.Join(tmpDir, "keyboard") {
		t.Errorf("unexpected path %q", plugin.Path)
	}
	if plugin.Executable != filepath.Join(tmpDir, "keyboard", "keyboard.sh") {
		t.Errorf("unexpected executable %q", plugin.Executable)
	}
	if !plugin.Manifest.Supports("type") || plugin.Manifest.Supports("shutdown") {
		t.Errorf("Supports mismatch for actions %v", plugin.Manifest.Actions)
	}
}

func TestManager_Discover_MultiplePlugins(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"plugin-b", "plugin-a"} {
		writePlugin(t, tmpDir, name, "", "action")
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(plugins))
	}
	if plugins[0].Manifest.Name != "plugin-a" {
		t.Errorf("List() should be sorted by name, got %q first", plugins[0].Manifest.Name)
	}
}

func TestManager_Discover_SkipsBadManifests(t *testing.T) {
	tmpDir := t.TempDir()

	manifests := map[string]string{
		"invalid-json":  "not valid json",
		"no-executable": `{"name":"no-executable","actions":["type"]}`,
		"no-name":       `{"executable":"run.sh"}`,
	}
	for dir, content := range manifests {
		pluginDir := filepath.Join(tmpDir, dir)
		if err := os.MkdirAll(pluginDir, 0755); err != nil {
			t.Fatalf("failed to create plugin dir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write manifest: %v", err)
		}
	}
	// A directory without a manifest is ignored too.
	if err := os.MkdirAll(filepath.Join(tmpDir, "empty"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed unexpectedly: %v", err)
	}
	if plugins := manager.List(); len(plugins) != 0 {
		t.Fatalf("expected 0 plugins, got %d", len(plugins))
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	tmpDir := t.TempDir()
	writePlugin(t, tmpDir, "keyboard", "", "type")

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	if err := os.RemoveAll(filepath.Join(tmpDir, "keyboard")); err != nil {
		t.Fatalf("failed to remove plugin: %v", err)
	}
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if _, err := manager.Get("keyboard"); err != ErrPluginNotFound {
		t.Errorf("removed plugin should be forgotten, got %v", err)
	}
}

func TestManager_Get(t *testing.T) {
	tmpDir := t.TempDir()
	writePlugin(t, tmpDir, "my-plugin", "", "run")

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugin, err := manager.Get("my-plugin")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if plugin.Manifest.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", plugin.Manifest.Version)
	}

	if _, err := manager.Get("nonexistent-plugin"); err != ErrPluginNotFound {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_Discover_MissingOrEmptyDir(t *testing.T) {
	for _, dir := range []string{t.TempDir(), "/path/that/does/not/exist"} {
		manager := NewManager(dir)
		if err := manager.Discover(); err != nil {
			t.Fatalf("Discover(%q) failed: %v", dir, err)
		}
		if plugins := manager.List(); len(plugins) != 0 {
			t.Fatalf("expected 0 plugins in %q, got %d", dir, len(plugins))
		}
		if manager.PluginDir() != dir {
			t.Errorf("PluginDir() = %q, want %q", manager.PluginDir(), dir)
		}
	}
}
