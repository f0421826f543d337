package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRotatingWriterCreatesDatedFile(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "streamdex.log")

	w, err := NewRotatingWriter(base, 1024)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	dated := filepath.Join(dir, "streamdex-"+today+".log")
	data, err := os.ReadFile(dated)
	if err != nil {
		t.Fatalf("read dated file: %v", err)
	}
	if string(data) != "hello\n" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestRotatingWriterSizeRollover(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "streamdex.log")

	w, err := NewRotatingWriter(base, 10)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	if _, err := w.Write([]byte("123456789\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Write([]byte("overflow\n")); err != nil {
		t.Fatalf("Write overflow: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	rolled := false
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "-2.log") {
			rolled = true
		}
	}
	if !rolled {
		t.Fatalf("expected size rollover file, got %v", entries)
	}
}

func TestRotatingWriterDisabled(t *testing.T) {
	w, err := NewRotatingWriter("-", 1024)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	if _, err := w.Write([]byte("discarded")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
