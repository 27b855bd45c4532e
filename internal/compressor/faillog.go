package compressor

import (
	"fmt"
	"os"
	"sync"
)

// FailureLog is the append-only log of best-effort compressions, one line
// per input file whose output missed the target size. Safe for concurrent
// writers: appends go through a mutex and an O_APPEND file handle.
type FailureLog struct {
	path  string
	mutex sync.Mutex
}

// NewFailureLog returns a FailureLog writing to the given path.
// The file is created lazily on first append.
func NewFailureLog(path string) *FailureLog {
	return &FailureLog{path: path}
}

// Path returns the log file location.
func (fl *FailureLog) Path() string {
	return fl.path
}

// AppendBestEffort records a best-effort outcome for one input file.
// Line format is fixed and consumed by downstream tooling:
//
//	<input> - Compressed to <size> MB (target: <target> MB) (Best Effort)
func (fl *FailureLog) AppendBestEffort(inputPath string, achievedSize int64, targetMB float64) error {
	fl.mutex.Lock()
	defer fl.mutex.Unlock()

	f, err := os.OpenFile(fl.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open failure log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s - Compressed to %.2f MB (target: %g MB) (Best Effort)\n",
		inputPath, float64(achievedSize)/1024/1024, targetMB)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append failure log: %w", err)
	}
	return nil
}
