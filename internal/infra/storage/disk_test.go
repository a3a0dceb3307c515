package storage_test

import (
	"context"
	"os"
	"testing"

	"github.com/finsight/finsight-api/internal/infra/storage"
)

func TestDisk_PutWritesContent(t *testing.T) {
	dir := t.TempDir()
	d, err := storage.NewDisk(dir)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}

	path, err := d.Put(context.Background(), "statement.pdf", []byte("%PDF-1.4 test"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "%PDF-1.4 test" {
		t.Errorf("content mismatch: %q", got)
	}
}

func TestDisk_ConcurrentPutsGetDistinctPaths(t *testing.T) {
	dir := t.TempDir()
	d, err := storage.NewDisk(dir)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}

	const n = 10
	paths := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() {
			p, err := d.Put(context.Background(), "statement.pdf", []byte("same name"))
			if err != nil {
				t.Errorf("Put: %v", err)
			}
			paths <- p
		}()
	}

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		p := <-paths
		if seen[p] {
			t.Fatalf("duplicate storage path %s", p)
		}
		seen[p] = true
	}
}

func TestDisk_SanitizesFilename(t *testing.T) {
	dir := t.TempDir()
	d, err := storage.NewDisk(dir)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}

	path, err := d.Put(context.Background(), "../weird name!!.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("stored file missing: %v", err)
	}
}
