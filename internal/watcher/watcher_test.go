package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchCallsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("rules: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan struct{}, 8)
	ready := make(chan struct{})
	w := New(path, func() { changed <- struct{}{} }, WithDebounce(20*time.Millisecond))
	w.ready = func() { close(ready) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Watch(ctx) }()

	select {
	case <-ready:
	case err := <-errCh:
		t.Fatalf("Watch() returned early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never became ready")
	}

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
		t.Fatal("onChange fired for an unrelated file")
	case <-time.After(100 * time.Millisecond):
	}

	// A burst of writes collapses into one callback.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("rules: [] # edit\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("onChange not called after write")
	}
	select {
	case <-changed:
		t.Error("burst of writes produced more than one callback")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Watch() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing", "rules.yaml"), func() {})
	if err := w.Watch(context.Background()); err == nil {
		t.Error("Watch() should fail when the directory does not exist")
	}
}
