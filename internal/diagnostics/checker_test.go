package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// passingChecker builds a checker whose OS dependencies all succeed,
// backed by a real temp directory for the write probe.
func passingChecker(t *testing.T, dir string) *Checker {
	t.Helper()
	return NewCheckerForTests(
		func(name string) (string, error) { return "/usr/bin/" + name, nil },
		os.Stat,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)
}

// TestRunAllChecksPass checks the healthy environment report.
func TestRunAllChecksPass(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("mkdir src: %v", err)
	}

	checker := passingChecker(t, root)
	report := checker.Run("ocrmypdf", src, dst)

	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
	if len(report.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(report.Items))
	}
	for _, item := range report.Items {
		if item.Status != StatusPass {
			t.Fatalf("item %s status = %s, want pass (%s)", item.ID, item.Status, item.Message)
		}
	}
	// The destination was created by the check itself.
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("destination not created: %v", err)
	}
}

// TestRunMissingToolFails checks the tool-not-found report.
func TestRunMissingToolFails(t *testing.T) {
	root := t.TempDir()
	checker := NewCheckerForTests(
		func(name string) (string, error) { return "", errors.New("executable file not found in $PATH") },
		os.Stat,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run("ocrmypdf", root, filepath.Join(root, "dst"))

	if !report.HasFailures {
		t.Fatal("expected failures for missing tool")
	}
	if report.Items[0].Status != StatusFail {
		t.Fatalf("tool check status = %s, want fail", report.Items[0].Status)
	}
	if report.Items[0].Hint == "" {
		t.Fatal("tool failure should carry an installation hint")
	}
}

// TestRunMissingSourceFails checks the source directory report.
func TestRunMissingSourceFails(t *testing.T) {
	root := t.TempDir()
	checker := passingChecker(t, root)

	report := checker.Run("ocrmypdf", filepath.Join(root, "nope"), filepath.Join(root, "dst"))

	if !report.HasFailures {
		t.Fatal("expected failures for missing source directory")
	}
}

// TestRunUnwritableDestinationFails checks the write probe.
func TestRunUnwritableDestinationFails(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("mkdir src: %v", err)
	}

	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/bin/" + name, nil },
		os.Stat,
		os.MkdirAll,
		func(dir, pattern string) (*os.File, error) { return nil, errors.New("permission denied") },
		os.Remove,
	)

	report := checker.Run("ocrmypdf", src, filepath.Join(root, "dst"))

	if !report.HasFailures {
		t.Fatal("expected failures for unwritable destination")
	}
	last := report.Items[len(report.Items)-1]
	if last.ID != "dest_dir" || last.Status != StatusFail {
		t.Fatalf("dest check = %+v, want dest_dir failure", last)
	}
}
