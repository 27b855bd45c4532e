package config

import (
	"strings"
	"testing"
)

// TestDefaultConfigMatchesToolDefaults checks the shipped defaults.
func TestDefaultConfigMatchesToolDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TargetSizeMB != 1.5 {
		t.Fatalf("target size = %v, want 1.5", cfg.TargetSizeMB)
	}
	if cfg.Compression.Tool != "ocrmypdf" {
		t.Fatalf("tool = %q, want ocrmypdf", cfg.Compression.Tool)
	}
	if cfg.Compression.MaxQuality != 40 || cfg.Compression.MinQuality != 5 || cfg.Compression.QualityStep != 5 {
		t.Fatalf("quality bounds = %d/%d/%d, want 40/5/5",
			cfg.Compression.MaxQuality, cfg.Compression.MinQuality, cfg.Compression.QualityStep)
	}
	if cfg.Compression.OptimizeLevel != 3 {
		t.Fatalf("optimize level = %d, want 3", cfg.Compression.OptimizeLevel)
	}
	if cfg.Performance.WorkerThreads != 8 {
		t.Fatalf("workers = %d, want 8", cfg.Performance.WorkerThreads)
	}
}

// TestTargetSizeBytes checks MB to byte conversion.
func TestTargetSizeBytes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetSizeMB = 1.5
	if got := cfg.TargetSizeBytes(); got != 1572864 {
		t.Fatalf("target bytes = %d, want 1572864", got)
	}
}

// TestValidateNormalizesZeroValues checks defaulting during validation.
func TestValidateNormalizesZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Performance.WorkerThreads = -1
	cfg.Performance.ProgressInterval = 0
	cfg.Compression.FailureLogPath = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Performance.WorkerThreads != 8 {
		t.Fatalf("workers = %d, want 8 after normalization", cfg.Performance.WorkerThreads)
	}
	if cfg.Performance.ProgressInterval != 100 {
		t.Fatalf("progress interval = %d, want 100 after normalization", cfg.Performance.ProgressInterval)
	}
	if cfg.Compression.FailureLogPath != "failures.log" {
		t.Fatalf("failure log path = %q, want failures.log", cfg.Compression.FailureLogPath)
	}
}

// TestValidateRejectsBadQualityBounds checks min > max is refused.
func TestValidateRejectsBadQualityBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Compression.MinQuality = 50
	cfg.Compression.MaxQuality = 40

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for min_quality > max_quality")
	}
	if !strings.Contains(err.Error(), "min_quality") {
		t.Fatalf("error = %v, want mention of min_quality", err)
	}
}

// TestValidateRejectsBadTargetSize checks non-positive target refusal.
func TestValidateRejectsBadTargetSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetSizeMB = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero target_size_mb")
	}
}

// TestValidateRejectsBadLogLevel checks log level validation.
func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "shout"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

// TestValidateRejectsBadOptimizeLevel checks the optimize range.
func TestValidateRejectsBadOptimizeLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Compression.OptimizeLevel = 4

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for optimize_level out of range")
	}
}
