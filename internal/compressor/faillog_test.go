package compressor

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// TestFailureLogLineFormat checks the fixed best-effort line format.
func TestFailureLogLineFormat(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "failures.log")
	fl := NewFailureLog(logPath)

	// 2 MiB output against a 1.5 MB target.
	if err := fl.AppendBestEffort("/scans/box1/ballot.pdf", 2*1024*1024, 1.5); err != nil {
		t.Fatalf("append: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	want := "/scans/box1/ballot.pdf - Compressed to 2.00 MB (target: 1.5 MB) (Best Effort)\n"
	if string(content) != want {
		t.Fatalf("log content = %q, want %q", string(content), want)
	}
}

// TestFailureLogAppendsAcrossCalls checks the log is append-only.
func TestFailureLogAppendsAcrossCalls(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "failures.log")
	fl := NewFailureLog(logPath)

	for _, p := range []string{"/a.pdf", "/b.pdf", "/c.pdf"} {
		if err := fl.AppendBestEffort(p, 1024*1024, 1.5); err != nil {
			t.Fatalf("append %s: %v", p, err)
		}
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("line count = %d, want 3", len(lines))
	}
}

// TestFailureLogConcurrentWriters checks appends stay whole-line under
// concurrent writers.
func TestFailureLogConcurrentWriters(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "failures.log")
	fl := NewFailureLog(logPath)

	const writers = 16
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_ = fl.AppendBestEffort("/concurrent.pdf", 3*1024*1024, 1.5)
		}()
	}
	wg.Wait()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	if len(lines) != writers {
		t.Fatalf("line count = %d, want %d", len(lines), writers)
	}
	for i, line := range lines {
		if !strings.HasSuffix(line, "(Best Effort)") {
			t.Fatalf("line %d is torn: %q", i, line)
		}
	}
}
