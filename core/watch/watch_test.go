package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReportsSettledChanges(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "annotations")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batches := make(chan []string, 4)
	done := make(chan error, 1)
	w := New(root, 50*time.Millisecond)
	go func() {
		done <- w.Run(ctx, func(paths []string) { batches <- paths })
	}()

	// give the watcher time to register its directories
	time.Sleep(200 * time.Millisecond)
	target := filepath.Join(sub, "t1.txt")
	if err := os.WriteFile(target, []byte("0.5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-batches:
		found := false
		for _, p := range paths {
			if p == target {
				found = true
			}
		}
		if !found {
			t.Errorf("got %v, want a batch containing %s", paths, target)
		}
	case <-ctx.Done():
		t.Fatal("no change reported")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}

func TestWatcherMissingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), 0)
	if err := w.Run(context.Background(), func([]string) {}); err == nil {
		t.Error("expected an error for a missing root")
	}
}
