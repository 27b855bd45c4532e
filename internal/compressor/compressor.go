package compressor

import (
	"context"
	"errors"
	"time"
)

// Job describes one input file to compress below a target size ceiling.
// A Job is immutable once dispatched to a worker.
type Job struct {
	InputPath     string
	OutputPath    string
	TargetSize    int64 // bytes
	MaxQuality    int
	MinQuality    int
	QualityStep   int
	OptimizeLevel int
}

// Outcome classifies the terminal state of one compression job.
type Outcome string

const (
	// OutcomeMetTarget means some quality level produced output within the ceiling.
	OutcomeMetTarget Outcome = "met_target"
	// OutcomeBestEffort means the ceiling was never met and the smallest
	// observed quality level was re-run to produce the final output.
	OutcomeBestEffort Outcome = "best_effort"
	// OutcomeToolUnavailable means the external tool is not installed.
	OutcomeToolUnavailable Outcome = "tool_unavailable"
	// OutcomeExhausted means no quality level ever produced usable output.
	OutcomeExhausted Outcome = "exhausted"
)

// Result describes the result of one compression job.
type Result struct {
	InputPath    string
	OutputPath   string
	Outcome      Outcome
	FinalQuality int
	OutputSize   int64
	Attempts     int
	StartedAt    time.Time
	FinishedAt   time.Time
	Error        error
}

// Success reports whether the job produced a final output file.
// Best-effort output counts as success even though the target was missed.
func (r Result) Success() bool {
	return r.Outcome == OutcomeMetTarget || r.Outcome == OutcomeBestEffort
}

// Sentinel errors for the job-level failure modes.
var (
	// ErrToolUnavailable indicates the external compression command is
	// missing from the runtime environment.
	ErrToolUnavailable = errors.New("compression tool not found in PATH")
	// ErrExhausted indicates no quality level produced usable output.
	ErrExhausted = errors.New("could not compress at any quality level")
)

// Compressor defines the interface for size-targeted PDF compression.
type Compressor interface {
	// Compress runs the descending quality search for a single job.
	// Failures are reported through the Result, never by panicking.
	Compress(ctx context.Context, job Job) Result
}
