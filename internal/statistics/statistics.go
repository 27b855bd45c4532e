package statistics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Statistics contains all counters for one batch compression run.
type Statistics struct {
	TotalFilesFound int64
	FilesProcessed  int64
	FilesFailed     int64
	FilesSkipped    int64

	FullSuccesses    int64
	BestEffortOutput int64
	ToolUnavailable  int64
	Exhausted        int64

	AttemptsRun    int64
	BytesIn        int64
	BytesOut       int64
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	FilesPerSecond float64

	Errors []StatError

	mutex sync.RWMutex
}

// StatError represents an error that occurred during processing.
type StatError struct {
	FilePath  string
	Operation string
	Error     string
	Timestamp time.Time
}

// Snapshot is a read-only copy of the counters, safe to serialize.
type Snapshot struct {
	TotalFilesFound  int64   `json:"total_files_found"`
	FilesProcessed   int64   `json:"files_processed"`
	FilesFailed      int64   `json:"files_failed"`
	FilesSkipped     int64   `json:"files_skipped"`
	FullSuccesses    int64   `json:"full_successes"`
	BestEffortOutput int64   `json:"best_effort_output"`
	AttemptsRun      int64   `json:"attempts_run"`
	BytesIn          int64   `json:"bytes_in"`
	BytesOut         int64   `json:"bytes_out"`
	DurationSeconds  float64 `json:"duration_seconds"`
	ErrorCount       int     `json:"error_count"`
}

// NewStatistics returns a new Statistics instance.
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime: time.Now(),
		Errors:    make([]StatError, 0),
	}
}

// SetFilesFound records the number of eligible input files discovered.
func (s *Statistics) SetFilesFound(n int64) {
	atomic.StoreInt64(&s.TotalFilesFound, n)
}

// IncrementProcessed increases the count of successfully processed files by 1.
func (s *Statistics) IncrementProcessed() {
	atomic.AddInt64(&s.FilesProcessed, 1)
}

// IncrementFailed increases the count of failed files by 1.
func (s *Statistics) IncrementFailed() {
	atomic.AddInt64(&s.FilesFailed, 1)
}

// IncrementSkipped increases the count of skipped files by 1.
func (s *Statistics) IncrementSkipped() {
	atomic.AddInt64(&s.FilesSkipped, 1)
}

// IncrementFullSuccesses increases the count of files meeting the size target by 1.
func (s *Statistics) IncrementFullSuccesses() {
	atomic.AddInt64(&s.FullSuccesses, 1)
}

// IncrementBestEffort increases the count of best-effort outputs by 1.
func (s *Statistics) IncrementBestEffort() {
	atomic.AddInt64(&s.BestEffortOutput, 1)
}

// IncrementToolUnavailable increases the count of tool-unavailable failures by 1.
func (s *Statistics) IncrementToolUnavailable() {
	atomic.AddInt64(&s.ToolUnavailable, 1)
}

// IncrementExhausted increases the count of exhausted quality sweeps by 1.
func (s *Statistics) IncrementExhausted() {
	atomic.AddInt64(&s.Exhausted, 1)
}

// AddAttempts adds the number of external tool invocations run for one job.
func (s *Statistics) AddAttempts(n int64) {
	atomic.AddInt64(&s.AttemptsRun, n)
}

// AddBytesIn adds input bytes to the running total.
func (s *Statistics) AddBytesIn(bytes int64) {
	atomic.AddInt64(&s.BytesIn, bytes)
}

// AddBytesOut adds output bytes to the running total.
func (s *Statistics) AddBytesOut(bytes int64) {
	atomic.AddInt64(&s.BytesOut, bytes)
}

// CompletedCount returns processed+failed, the number of finished tasks.
func (s *Statistics) CompletedCount() int64 {
	return atomic.LoadInt64(&s.FilesProcessed) + atomic.LoadInt64(&s.FilesFailed)
}

// AddError records an error that occurred during processing.
func (s *Statistics) AddError(filePath, operation, errorMsg string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Errors = append(s.Errors, StatError{
		FilePath:  filePath,
		Operation: operation,
		Error:     errorMsg,
		Timestamp: time.Now(),
	})
}

// Finalize calculates final statistics such as duration and files per second.
func (s *Statistics) Finalize() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)

	completed := atomic.LoadInt64(&s.FilesProcessed) + atomic.LoadInt64(&s.FilesFailed)
	if s.Duration.Seconds() > 0 {
		s.FilesPerSecond = float64(completed) / s.Duration.Seconds()
	}
}

// GetSnapshot returns a consistent copy of the counters.
func (s *Statistics) GetSnapshot() Snapshot {
	s.mutex.RLock()
	errCount := len(s.Errors)
	duration := s.Duration
	s.mutex.RUnlock()

	if duration == 0 {
		duration = time.Since(s.StartTime)
	}

	return Snapshot{
		TotalFilesFound:  atomic.LoadInt64(&s.TotalFilesFound),
		FilesProcessed:   atomic.LoadInt64(&s.FilesProcessed),
		FilesFailed:      atomic.LoadInt64(&s.FilesFailed),
		FilesSkipped:     atomic.LoadInt64(&s.FilesSkipped),
		FullSuccesses:    atomic.LoadInt64(&s.FullSuccesses),
		BestEffortOutput: atomic.LoadInt64(&s.BestEffortOutput),
		AttemptsRun:      atomic.LoadInt64(&s.AttemptsRun),
		BytesIn:          atomic.LoadInt64(&s.BytesIn),
		BytesOut:         atomic.LoadInt64(&s.BytesOut),
		DurationSeconds:  duration.Seconds(),
		ErrorCount:       errCount,
	}
}

// GetSummary returns a formatted summary of all statistics.
func (s *Statistics) GetSummary() string {
	return fmt.Sprintf(`Processing complete:
- Total files: %d
- Processed successfully: %d
- Failed: %d
- Skipped (already exists): %d

Outcomes:
- Met size target: %d
- Best effort (target missed): %d
- Tool unavailable: %d
- Exhausted quality range: %d

Performance:
- Duration: %v
- Files/Second: %.2f
- Tool invocations: %d
- Bytes In: %s
- Bytes Out: %s`,
		atomic.LoadInt64(&s.TotalFilesFound),
		atomic.LoadInt64(&s.FilesProcessed),
		atomic.LoadInt64(&s.FilesFailed),
		atomic.LoadInt64(&s.FilesSkipped),
		atomic.LoadInt64(&s.FullSuccesses),
		atomic.LoadInt64(&s.BestEffortOutput),
		atomic.LoadInt64(&s.ToolUnavailable),
		atomic.LoadInt64(&s.Exhausted),
		s.Duration,
		s.FilesPerSecond,
		atomic.LoadInt64(&s.AttemptsRun),
		formatBytes(atomic.LoadInt64(&s.BytesIn)),
		formatBytes(atomic.LoadInt64(&s.BytesOut)))
}

// GetErrorSummary returns a summary of errors that occurred during processing.
func (s *Statistics) GetErrorSummary() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.Errors) == 0 {
		return "No errors occurred during processing"
	}

	result := fmt.Sprintf("Errors (%d total):\n", len(s.Errors))
	for i, err := range s.Errors {
		if i >= 10 {
			result += fmt.Sprintf("  ... and %d more errors\n", len(s.Errors)-10)
			break
		}
		result += fmt.Sprintf("  [%s] %s: %s - %s\n",
			err.Timestamp.Format("15:04:05"),
			err.Operation,
			err.FilePath,
			err.Error)
	}
	return result
}

// formatBytes returns a human-readable string for a byte count.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
