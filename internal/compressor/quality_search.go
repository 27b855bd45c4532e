package compressor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Default quality search bounds, applied when a Job leaves them zero.
const (
	DefaultMaxQuality    = 40
	DefaultMinQuality    = 5
	DefaultQualityStep   = 5
	DefaultOptimizeLevel = 3
)

// QualitySearchCompressor compresses a PDF below a target size by invoking
// the external tool at decreasing JPEG quality levels. The first quality
// level whose output fits the ceiling wins; if none fits, the quality that
// produced the smallest output is re-run once as a best-effort fallback.
type QualitySearchCompressor struct {
	tool    string
	logger  *logrus.Logger
	failLog *FailureLog
	runner  commandRunner
	stat    func(name string) (os.FileInfo, error)
	remove  func(name string) error
	rename  func(oldpath, newpath string) error
}

// NewQualitySearchCompressor constructs the production compressor.
func NewQualitySearchCompressor(tool string, logger *logrus.Logger, failLog *FailureLog) *QualitySearchCompressor {
	return &QualitySearchCompressor{
		tool:    tool,
		logger:  logger,
		failLog: failLog,
		runner:  &execRunner{},
		stat:    os.Stat,
		remove:  os.Remove,
		rename:  os.Rename,
	}
}

// Compress runs the descending quality search for a single job.
func (c *QualitySearchCompressor) Compress(ctx context.Context, job Job) Result {
	job = withDefaults(job)
	result := Result{
		InputPath:  job.InputPath,
		OutputPath: job.OutputPath,
		StartedAt:  time.Now(),
	}

	tempOutput := job.OutputPath + ".temp.pdf"

	bestQuality := -1
	var minSize int64 = -1
	quality := job.MaxQuality

	for quality >= job.MinQuality {
		args := buildToolArgs(job.OptimizeLevel, quality, job.InputPath, tempOutput)
		cmdResult, runErr := c.runner.Run(ctx, c.tool, args...)
		result.Attempts++

		if runErr != nil {
			c.removeIfExists(tempOutput)

			if isNotFound(runErr) {
				// Environment misconfiguration, no point trying lower qualities.
				c.logger.WithField("tool", c.tool).Error("Compression tool not found in PATH")
				result.Outcome = OutcomeToolUnavailable
				result.Error = fmt.Errorf("%w: %s", ErrToolUnavailable, c.tool)
				result.FinishedAt = time.Now()
				return result
			}

			c.logger.WithFields(logrus.Fields{
				"file":    job.InputPath,
				"quality": quality,
				"exit":    cmdResult.ExitCode,
				"stderr":  cmdResult.Stderr,
			}).Warnf("Compression attempt failed at quality %d", quality)
			quality -= job.QualityStep
			continue
		}

		info, err := c.stat(tempOutput)
		if err != nil {
			// Tool exited 0 but left no output; treat like a failed attempt.
			c.logger.WithField("file", job.InputPath).
				Warnf("Tool succeeded at quality %d but output is missing: %v", quality, err)
			quality -= job.QualityStep
			continue
		}
		size := info.Size()

		if size <= job.TargetSize {
			if err := c.rename(tempOutput, job.OutputPath); err != nil {
				c.removeIfExists(tempOutput)
				result.Outcome = OutcomeExhausted
				result.Error = fmt.Errorf("move output into place: %w", err)
				result.FinishedAt = time.Now()
				return result
			}
			c.logger.WithFields(logrus.Fields{
				"file":    job.InputPath,
				"quality": quality,
				"size":    size,
			}).Debug("Target size met")
			result.Outcome = OutcomeMetTarget
			result.FinalQuality = quality
			result.OutputSize = size
			result.FinishedAt = time.Now()
			return result
		}

		// Track the quality that produced the smallest output so far.
		// Output size is not strictly monotonic in quality, so the minimum
		// is memoized rather than assumed to lie at the lowest quality.
		if minSize < 0 || size < minSize {
			minSize = size
			bestQuality = quality
		}
		c.removeIfExists(tempOutput)
		quality -= job.QualityStep
	}

	if bestQuality == -1 {
		c.logger.WithField("file", job.InputPath).
			Error("Could not compress at any quality level")
		result.Outcome = OutcomeExhausted
		result.Error = ErrExhausted
		result.FinishedAt = time.Now()
		return result
	}

	return c.bestEffort(ctx, job, bestQuality, result)
}

// bestEffort re-runs the tool once at the remembered best quality, writing
// directly to the final output path. The earlier temp file for that quality
// was already discarded, so this is a full re-invocation.
func (c *QualitySearchCompressor) bestEffort(ctx context.Context, job Job, bestQuality int, result Result) Result {
	c.logger.WithFields(logrus.Fields{
		"file":    job.InputPath,
		"quality": bestQuality,
	}).Infof("Target size not met. Generating best possible output with quality %d", bestQuality)

	args := buildToolArgs(job.OptimizeLevel, bestQuality, job.InputPath, job.OutputPath)
	cmdResult, runErr := c.runner.Run(ctx, c.tool, args...)
	result.Attempts++

	if runErr != nil {
		if isNotFound(runErr) {
			result.Outcome = OutcomeToolUnavailable
			result.Error = fmt.Errorf("%w: %s", ErrToolUnavailable, c.tool)
		} else {
			c.logger.WithFields(logrus.Fields{
				"file":   job.InputPath,
				"stderr": cmdResult.Stderr,
			}).Error("Best-effort invocation failed")
			result.Outcome = OutcomeExhausted
			result.Error = fmt.Errorf("best-effort invocation at quality %d failed: %w", bestQuality, runErr)
		}
		result.FinishedAt = time.Now()
		return result
	}

	var achievedSize int64
	if info, err := c.stat(job.OutputPath); err == nil {
		achievedSize = info.Size()
	}

	targetMB := float64(job.TargetSize) / 1024 / 1024
	if c.failLog != nil {
		if err := c.failLog.AppendBestEffort(job.InputPath, achievedSize, targetMB); err != nil {
			c.logger.WithField("file", job.InputPath).
				Warnf("Could not append to failure log: %v", err)
		}
	}

	result.Outcome = OutcomeBestEffort
	result.FinalQuality = bestQuality
	result.OutputSize = achievedSize
	result.FinishedAt = time.Now()
	return result
}

// removeIfExists deletes a temp file, ignoring the already-gone case.
func (c *QualitySearchCompressor) removeIfExists(path string) {
	if err := c.remove(path); err != nil && !os.IsNotExist(err) {
		c.logger.Warnf("Could not remove temp file %s: %v", path, err)
	}
}

// withDefaults fills zero-valued search parameters.
func withDefaults(job Job) Job {
	if job.MaxQuality == 0 {
		job.MaxQuality = DefaultMaxQuality
	}
	if job.MinQuality == 0 {
		job.MinQuality = DefaultMinQuality
	}
	if job.QualityStep == 0 {
		job.QualityStep = DefaultQualityStep
	}
	if job.OptimizeLevel == 0 {
		job.OptimizeLevel = DefaultOptimizeLevel
	}
	return job
}

// buildToolArgs builds the fixed CLI argument shape for one invocation.
func buildToolArgs(optimizeLevel, quality int, inputPath, outputPath string) []string {
	return []string{
		"--optimize", strconv.Itoa(optimizeLevel),
		"--jpeg-quality", strconv.Itoa(quality),
		inputPath,
		outputPath,
	}
}

// NewQualitySearchCompressorForTests constructs a compressor with
// injectable dependencies.
func NewQualitySearchCompressorForTests(
	tool string,
	logger *logrus.Logger,
	failLog *FailureLog,
	runner commandRunner,
	stat func(name string) (os.FileInfo, error),
	remove func(name string) error,
	rename func(oldpath, newpath string) error,
) *QualitySearchCompressor {
	return &QualitySearchCompressor{
		tool:    tool,
		logger:  logger,
		failLog: failLog,
		runner:  runner,
		stat:    stat,
		remove:  remove,
		rename:  rename,
	}
}
