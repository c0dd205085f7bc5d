package xdg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	got := ConfigDir()
	want := filepath.Join("/custom/config", appName)
	if got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestConfigDirFallback(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tester")

	got := ConfigDir()
	want := filepath.Join("/home/tester", ".config", appName)
	if got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestStateDir(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/custom/state")

	got := StateDir()
	want := filepath.Join("/custom/state", appName)
	if got != want {
		t.Errorf("StateDir() = %q, want %q", got, want)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if got := ConfigFile(); got != "" {
		t.Errorf("ConfigFile() = %q, want empty when no file exists", got)
	}

	appDir := filepath.Join(dir, appName)
	if err := os.MkdirAll(appDir, 0o700); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(appDir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := ConfigFile(); got != path {
		t.Errorf("ConfigFile() = %q, want %q", got, path)
	}
}
