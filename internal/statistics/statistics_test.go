package statistics

import (
	"strings"
	"sync"
	"testing"
)

// TestConcurrentIncrements checks counters under parallel task completions.
func TestConcurrentIncrements(t *testing.T) {
	stats := NewStatistics()

	const tasks = 100
	var wg sync.WaitGroup
	wg.Add(tasks)
	for i := 0; i < tasks; i++ {
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0, 1:
				stats.IncrementProcessed()
			case 2:
				stats.IncrementFailed()
			case 3:
				stats.IncrementSkipped()
			}
			stats.AddAttempts(2)
		}(i)
	}
	wg.Wait()

	snap := stats.GetSnapshot()
	if snap.FilesProcessed != 50 {
		t.Fatalf("processed = %d, want 50", snap.FilesProcessed)
	}
	if snap.FilesFailed != 25 {
		t.Fatalf("failed = %d, want 25", snap.FilesFailed)
	}
	if snap.FilesSkipped != 25 {
		t.Fatalf("skipped = %d, want 25", snap.FilesSkipped)
	}
	if snap.AttemptsRun != 200 {
		t.Fatalf("attempts = %d, want 200", snap.AttemptsRun)
	}
	if got := stats.CompletedCount(); got != 75 {
		t.Fatalf("completed = %d, want 75", got)
	}
}

// TestGetSummaryContainsFourCounts checks the final report shape.
func TestGetSummaryContainsFourCounts(t *testing.T) {
	stats := NewStatistics()
	stats.SetFilesFound(3)
	stats.IncrementProcessed()
	stats.IncrementProcessed()
	stats.IncrementSkipped()
	stats.Finalize()

	summary := stats.GetSummary()
	for _, want := range []string{
		"Total files: 3",
		"Processed successfully: 2",
		"Failed: 0",
		"Skipped (already exists): 1",
	} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}
}

// TestAddErrorRecordsContext checks per-file error bookkeeping.
func TestAddErrorRecordsContext(t *testing.T) {
	stats := NewStatistics()
	stats.AddError("/x/y.pdf", "compression", "exit status 1")

	if len(stats.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(stats.Errors))
	}
	e := stats.Errors[0]
	if e.FilePath != "/x/y.pdf" || e.Operation != "compression" {
		t.Fatalf("error record = %+v", e)
	}

	errSummary := stats.GetErrorSummary()
	if !strings.Contains(errSummary, "/x/y.pdf") {
		t.Fatalf("error summary missing path:\n%s", errSummary)
	}
}
