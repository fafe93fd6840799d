package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWatcherNotifiesOnTOMLChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.toml")
	writeFile(t, path, `name = "alpha"`)

	w, err := NewWatcher(zap.NewNop(), dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte(`name = "beta"`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-w.Reload():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload notification")
	}
}

func TestWatcherSkipsMissingDirectory(t *testing.T) {
	w, err := NewWatcher(zap.NewNop(), filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	select {
	case <-w.Reload():
		t.Fatal("did not expect a reload notification")
	case <-time.After(200 * time.Millisecond):
	}
}
