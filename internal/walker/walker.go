package walker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pdf-squeeze-go/internal/compressor"
	"pdf-squeeze-go/internal/config"
	"pdf-squeeze-go/internal/statistics"

	"github.com/sirupsen/logrus"
)

// pdfExtension is the only input file type discovered under the source root.
const pdfExtension = ".pdf"

// ProgressFunc receives each finished job as it completes.
type ProgressFunc func(result compressor.Result)

// BatchWalker discovers PDFs under a source root, mirrors their paths under
// a destination root, and dispatches stale files to a bounded worker pool.
type BatchWalker struct {
	config     *config.Config
	logger     *logrus.Logger
	stats      *statistics.Statistics
	compressor compressor.Compressor
	workers    int

	onProgress ProgressFunc
}

// FileInfo contains information about a discovered input file.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Summary holds the four batch result counts.
type Summary struct {
	TotalFound int64
	Processed  int64
	Failed     int64
	Skipped    int64
}

// NewBatchWalker returns a new BatchWalker.
func NewBatchWalker(
	cfg *config.Config,
	logger *logrus.Logger,
	stats *statistics.Statistics,
	comp compressor.Compressor,
) *BatchWalker {
	return NewBatchWalkerWithProgress(cfg, logger, stats, comp, nil)
}

// NewBatchWalkerWithProgress additionally wires a per-completion callback,
// used by the web monitor to stream live results.
func NewBatchWalkerWithProgress(
	cfg *config.Config,
	logger *logrus.Logger,
	stats *statistics.Statistics,
	comp compressor.Compressor,
	onProgress ProgressFunc,
) *BatchWalker {
	workers := cfg.Performance.WorkerThreads
	if workers <= 0 {
		workers = 8
	}
	return &BatchWalker{
		config:     cfg,
		logger:     logger,
		stats:      stats,
		compressor: comp,
		workers:    workers,
		onProgress: onProgress,
	}
}

// Run processes every stale PDF under the source root and returns the
// final summary. Individual job failures never abort the batch.
func (bw *BatchWalker) Run(ctx context.Context) (Summary, error) {
	bw.logger.Info("Starting batch compression process")

	if !config.IsValidSourcePath(bw.config.SourceDirectory) {
		return Summary{}, fmt.Errorf("source directory does not exist: %s", bw.config.SourceDirectory)
	}

	files, err := bw.discoverFiles()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to discover files: %w", err)
	}

	bw.logger.Infof("Found %d PDF files to process", len(files))
	bw.stats.SetFilesFound(int64(len(files)))

	if len(files) == 0 {
		bw.stats.Finalize()
		return bw.summary(), nil
	}

	jobs := bw.buildJobs(files)

	if bw.config.Security.DryRun {
		bw.logger.Info("Running in dry-run mode - no files will be compressed")
		bw.dryRunProcess(jobs)
		bw.stats.Finalize()
		return bw.summary(), nil
	}

	bw.processJobs(ctx, jobs)
	bw.stats.Finalize()

	summary := bw.summary()
	bw.logger.WithFields(logrus.Fields{
		"total":     summary.TotalFound,
		"processed": summary.Processed,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
	}).Info("Batch compression completed")
	return summary, nil
}

// discoverFiles eagerly enumerates every PDF under the source root. The
// full list is materialized so the total can be reported up front.
func (bw *BatchWalker) discoverFiles() ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.Walk(bw.config.SourceDirectory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			bw.logger.Warnf("Error accessing path %s: %v", path, err)
			return nil
		}

		if info.IsDir() {
			return nil
		}

		if strings.ToLower(filepath.Ext(path)) != pdfExtension {
			return nil
		}

		files = append(files, FileInfo{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})

		if bw.config.Security.MaxFilesPerRun > 0 && len(files) >= bw.config.Security.MaxFilesPerRun {
			bw.logger.Infof("Reached maximum files limit (%d), stopping discovery", bw.config.Security.MaxFilesPerRun)
			return filepath.SkipAll
		}

		return nil
	})

	return files, err
}

// buildJobs computes mirrored output paths and filters out files whose
// output is already up to date. Staleness is mtime-based: an output at
// least as new as its input is never regenerated.
func (bw *BatchWalker) buildJobs(files []FileInfo) []compressor.Job {
	jobs := make([]compressor.Job, 0, len(files))

	for _, file := range files {
		outputPath, err := bw.outputPathFor(file.Path)
		if err != nil {
			bw.logger.Errorf("Could not compute output path for %s: %v", file.Path, err)
			bw.stats.IncrementFailed()
			bw.stats.AddError(file.Path, "path_generation", err.Error())
			continue
		}

		if outInfo, err := os.Stat(outputPath); err == nil && !outInfo.ModTime().Before(file.ModTime) {
			bw.logger.Debugf("Skipping up-to-date file: %s", file.Path)
			bw.stats.IncrementSkipped()
			continue
		}

		jobs = append(jobs, compressor.Job{
			InputPath:     file.Path,
			OutputPath:    outputPath,
			TargetSize:    bw.config.TargetSizeBytes(),
			MaxQuality:    bw.config.Compression.MaxQuality,
			MinQuality:    bw.config.Compression.MinQuality,
			QualityStep:   bw.config.Compression.QualityStep,
			OptimizeLevel: bw.config.Compression.OptimizeLevel,
		})
	}

	return jobs
}

// outputPathFor re-roots an input path from the source tree into the
// destination tree, preserving the relative directory structure.
func (bw *BatchWalker) outputPathFor(inputPath string) (string, error) {
	rel, err := filepath.Rel(bw.config.SourceDirectory, inputPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(bw.config.DestinationDirectory, rel), nil
}

// processJobs runs all jobs through the bounded worker pool.
func (bw *BatchWalker) processJobs(ctx context.Context, jobs []compressor.Job) {
	var wg sync.WaitGroup
	jobChan := make(chan compressor.Job, bw.workers)

	for i := 0; i < bw.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bw.worker(ctx, jobChan)
		}()
	}

	go func() {
		defer close(jobChan)
		for _, job := range jobs {
			select {
			case jobChan <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
}

// worker processes jobs from the channel.
func (bw *BatchWalker) worker(ctx context.Context, jobChan <-chan compressor.Job) {
	for job := range jobChan {
		bw.processJob(ctx, job)
		bw.reportProgress()
	}
}

// processJob runs one job end to end. Orchestration failures are contained
// here: they are logged, counted as failed, and never reach other tasks.
func (bw *BatchWalker) processJob(ctx context.Context, job compressor.Job) {
	defer func() {
		if r := recover(); r != nil {
			bw.logger.Errorf("Error processing %s: %v", job.InputPath, r)
			bw.stats.IncrementFailed()
			bw.stats.AddError(job.InputPath, "orchestration", fmt.Sprintf("%v", r))
		}
	}()

	bw.logger.Debugf("Processing %s -> %s", job.InputPath, job.OutputPath)

	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0755); err != nil {
		bw.logger.Errorf("Could not create directory for %s: %v", job.OutputPath, err)
		bw.stats.IncrementFailed()
		bw.stats.AddError(job.InputPath, "directory_creation", err.Error())
		return
	}

	// A prior partial run or concurrent producer may have filled the
	// output in since discovery; treat it as done.
	if _, err := os.Stat(job.OutputPath); err == nil {
		bw.logger.Infof("Skipping %s - output already exists", job.InputPath)
		bw.stats.IncrementProcessed()
		bw.emit(compressor.Result{
			InputPath:  job.InputPath,
			OutputPath: job.OutputPath,
			Outcome:    compressor.OutcomeMetTarget,
		})
		return
	}

	result := bw.compressor.Compress(ctx, job)
	bw.recordResult(job, result)
	bw.emit(result)
}

// recordResult folds one compression result into the batch counters.
func (bw *BatchWalker) recordResult(job compressor.Job, result compressor.Result) {
	bw.stats.AddAttempts(int64(result.Attempts))

	if result.Success() {
		bw.stats.IncrementProcessed()
		if result.Outcome == compressor.OutcomeBestEffort {
			bw.stats.IncrementBestEffort()
		} else {
			bw.stats.IncrementFullSuccesses()
		}
		if inInfo, err := os.Stat(job.InputPath); err == nil {
			bw.stats.AddBytesIn(inInfo.Size())
		}
		bw.stats.AddBytesOut(result.OutputSize)
		bw.logger.Infof("Compressed %s -> %s (quality %d, %d bytes)",
			job.InputPath, job.OutputPath, result.FinalQuality, result.OutputSize)
		return
	}

	bw.stats.IncrementFailed()
	switch result.Outcome {
	case compressor.OutcomeToolUnavailable:
		bw.stats.IncrementToolUnavailable()
	case compressor.OutcomeExhausted:
		bw.stats.IncrementExhausted()
	}
	errMsg := "unknown failure"
	if result.Error != nil {
		errMsg = result.Error.Error()
	}
	bw.logger.Errorf("Failed to compress %s: %s", job.InputPath, errMsg)
	bw.stats.AddError(job.InputPath, "compression", errMsg)
}

// reportProgress logs a progress line every N completions.
func (bw *BatchWalker) reportProgress() {
	if !bw.config.Performance.ShowProgress {
		return
	}
	interval := int64(bw.config.Performance.ProgressInterval)
	completed := bw.stats.CompletedCount()
	if interval > 0 && completed > 0 && completed%interval == 0 {
		bw.logger.Infof("Progress: %d/%d processed", completed, bw.stats.GetSnapshot().TotalFilesFound)
	}
}

// emit forwards a completion to the progress callback when configured.
func (bw *BatchWalker) emit(result compressor.Result) {
	if bw.onProgress != nil {
		bw.onProgress(result)
	}
}

// dryRunProcess logs what the batch would do without invoking the tool.
func (bw *BatchWalker) dryRunProcess(jobs []compressor.Job) {
	for _, job := range jobs {
		bw.logger.Infof("DRY-RUN: Would compress %s -> %s (target %.2f MB)",
			job.InputPath, job.OutputPath, float64(job.TargetSize)/1024/1024)
		bw.stats.IncrementProcessed()
	}
}

// summary builds the final four-count summary from the statistics.
func (bw *BatchWalker) summary() Summary {
	snap := bw.stats.GetSnapshot()
	return Summary{
		TotalFound: snap.TotalFilesFound,
		Processed:  snap.FilesProcessed,
		Failed:     snap.FilesFailed,
		Skipped:    snap.FilesSkipped,
	}
}
