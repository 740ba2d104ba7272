package watch

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	lgerrors "github.com/logflow/loggen/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_BatchesChanges(t *testing.T) {
	dir := t.TempDir()
	scenario := filepath.Join(dir, "scenario.yaml")
	cfg := filepath.Join(dir, "config.yaml")
	other := filepath.Join(dir, "other.yaml")
	for _, p := range []string{scenario, cfg, other} {
		writeFile(t, p, "name: a\n")
	}

	w, err := NewWatcher(WithDebounce(100 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch(scenario, cfg); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan []string, 4)
	w.OnChange = func(_ context.Context, paths []string) error {
		changed <- paths
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// unwatched siblings are ignored
	writeFile(t, other, "name: other, longer\n")
	writeFile(t, scenario, "name: changed scenario\n")
	writeFile(t, cfg, "generation:\n  seed: 7\n")

	want := []string{cfg, scenario}
	for i := range want {
		want[i], _ = filepath.Abs(want[i])
	}

	select {
	case got := <-changed:
		if !reflect.DeepEqual(got, want) {
			t.Errorf("changed = %v, want %v", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestWatcher_MissingFile(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	err = w.Watch(filepath.Join(t.TempDir(), "missing.yaml"))
	if !lgerrors.IsCode(err, lgerrors.CodeFileNotFound) {
		t.Errorf("Watch() error = %v, want %s", err, lgerrors.CodeFileNotFound)
	}
	if len(w.Files()) != 0 {
		t.Errorf("files = %v", w.Files())
	}
}

func TestWatcher_Files(t *testing.T) {
	dir := t.TempDir()
	b := filepath.Join(dir, "b.yaml")
	a := filepath.Join(dir, "a.yaml")
	writeFile(t, a, "x")
	writeFile(t, b, "x")

	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch(b, a, b); err != nil {
		t.Fatal(err)
	}

	if got := w.Files(); !reflect.DeepEqual(got, []string{a, b}) {
		t.Errorf("Files() = %v", got)
	}
}
