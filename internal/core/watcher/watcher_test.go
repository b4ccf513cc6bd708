package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_RejectsBadGlob(t *testing.T) {
	if _, err := NewWatcher(time.Millisecond, nil, []string{"[unclosed"}, func([]string) {}); err == nil {
		t.Fatal("expected error for malformed exclude glob")
	}
}

func waitFor(t *testing.T, ch <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-ch:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	outDir := filepath.Join(tmpDir, "Obfuscator_Output")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, []string{outDir}, []string{"*.bak.xml"}, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	input := filepath.Join(tmpDir, "App.asm.toml")
	if err := os.WriteFile(input, []byte("name = \"App\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, input, 2*time.Second)

	// Output, excluded and unrelated files stay quiet.
	_ = os.WriteFile(filepath.Join(outDir, "App.asm.toml"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(tmpDir, "project.bak.xml"), []byte("<x/>"), 0o644)
	_ = os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("x"), 0o644)
	select {
	case paths := <-changed:
		t.Fatalf("unexpected change report %v", paths)
	case <-time.After(300 * time.Millisecond):
	}

	// New directories are picked up.
	sub := filepath.Join(tmpDir, "lib")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(sub, "Lib.asm.toml")
	if err := os.WriteFile(nested, []byte("name = \"Lib\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, nested, 2*time.Second)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()

	changed := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, nil, nil, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(tmpDir, "old.xml")
	newPath := filepath.Join(tmpDir, "new.xml")
	if err := os.WriteFile(oldPath, []byte("<Obfuscator/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if p == oldPath || p == newPath {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for rename event, old=%s new=%s", oldPath, newPath)
		}
	}
}

func TestWatcher_Filters(t *testing.T) {
	w, err := NewWatcher(10*time.Millisecond, nil, []string{"*.tmp.xml"}, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if w.shouldExcludeFile("/in/App.asm.toml") {
		t.Fatal("expected assembly images to be inputs")
	}
	if !w.shouldExcludeFile("/in/readme.md") {
		t.Fatal("expected unrelated suffixes to be ignored")
	}
	if !w.shouldExcludeFile("/in/save.tmp.xml") {
		t.Fatal("expected glob-excluded files to be ignored")
	}

	w.SetSuffixes([]string{".DLL"})
	if w.shouldExcludeFile("/in/App.dll") {
		t.Fatal("expected suffix filters to be case-insensitive")
	}

	dir := t.TempDir()
	target := filepath.Join(dir, "obfuscar.xml")
	w.SetTargets([]string{target})
	if w.shouldExcludeFile(target) {
		t.Fatal("expected explicit target to be reported")
	}
	if !w.shouldExcludeFile(filepath.Join(dir, "App.dll")) {
		t.Fatal("expected non-target files to be ignored once targets are set")
	}
}
