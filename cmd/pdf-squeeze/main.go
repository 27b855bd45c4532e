package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-squeeze-go/internal/compressor"
	"pdf-squeeze-go/internal/config"
	"pdf-squeeze-go/internal/diagnostics"
	"pdf-squeeze-go/internal/inspector"
	"pdf-squeeze-go/internal/logger"
	"pdf-squeeze-go/internal/statistics"
	"pdf-squeeze-go/internal/walker"
	"pdf-squeeze-go/internal/web"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	sourceDir    string
	destDir      string
	targetSizeMB float64
	workerCount  int
	dryRun       bool
	verbose      bool
	quiet        bool
	port         int
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "pdf-squeeze",
	Short: "Batch-compress PDF files below a target size",
	Long: `pdf-squeeze compresses every PDF under a source directory below a
target size ceiling, mirroring the directory structure into a destination
tree. Compression is delegated to ocrmypdf, invoked at decreasing JPEG
quality levels until the output fits the ceiling; when no quality level
fits, the best-observed quality is kept as a logged best-effort result.

Features:
- Descending quality search with best-effort fallback
- Mirrors source tree layout under the destination
- Skips outputs already up to date (mtime based)
- Bounded parallel worker pool
- Dry-run mode for safe testing
- Comprehensive logging and statistics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(args)
	},
}

// scanCmd enumerates source files and reports counts without compressing.
var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "Scan the source tree and show what would be compressed",
	Long: `Scan the specified directory (or the configured source directory)
and report how many PDF files would be compressed or skipped, without
invoking the compression tool. Useful for estimating a batch before
running it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(args)
	},
}

// checkCmd verifies the runtime environment.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the compression tool and directories are usable",
	Long: `Runs environment diagnostics: verifies the external compression
tool is on PATH, the source directory is readable, and the destination
directory is writable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck()
	},
}

// inspectCmd prints PDF metadata for a specific file.
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show metadata for a specific PDF file",
	Long: `Prints document metadata (page count, producer, creation date)
for a PDF file using exiftool. This is useful for debugging files that
fail to compress.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(args[0])
	},
}

// serveCmd starts the monitoring server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the batch monitoring server",
	Long: `Starts an HTTP server exposing batch compression control and
status. The API allows you to:
- Start a batch against any source/destination pair
- Poll running statistics
- Stream per-file completions over WebSocket

Endpoints are served at http://localhost:<port> (default: 8080)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	rootCmd.Flags().StringVar(&sourceDir, "source", "", "source directory containing PDF files")
	rootCmd.Flags().StringVar(&destDir, "dest", "", "destination directory for compressed output")
	rootCmd.Flags().Float64Var(&targetSizeMB, "target-size", 0, "target size ceiling in MB (default 1.5)")
	rootCmd.Flags().IntVar(&workerCount, "workers", 0, "number of parallel workers (default 8)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "simulate compression without invoking the tool")

	scanCmd.Flags().StringVar(&destDir, "dest", "", "destination directory for compressed output")

	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the monitor server on")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
}

// initConfig loads configuration file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.pdf-squeeze")
		viper.AddConfigPath("/etc/pdf-squeeze")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// runBatch executes the main batch compression logic.
func runBatch(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if dryRun {
		cfg.Security.DryRun = true
	}

	log := setupLogger(cfg)
	stats := statistics.NewStatistics()

	failLog := compressor.NewFailureLog(cfg.Compression.FailureLogPath)
	comp := compressor.NewQualitySearchCompressor(cfg.Compression.Tool, log, failLog)
	bw := walker.NewBatchWalker(cfg, log, stats, comp)

	summary, err := bw.Run(context.Background())
	if err != nil {
		return fmt.Errorf("batch compression failed: %w", err)
	}

	if !quiet {
		fmt.Println("\n" + stats.GetSummary())
		if summary.Failed > 0 {
			fmt.Println("\n" + stats.GetErrorSummary())
		}
	}

	return nil
}

// runScan enumerates the source tree and prints statistics.
func runScan(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Security.DryRun = true

	fmt.Fprintf(os.Stderr, "Scanning directory: %s\n", cfg.SourceDirectory)

	log := setupLogger(cfg)
	stats := statistics.NewStatistics()

	failLog := compressor.NewFailureLog(cfg.Compression.FailureLogPath)
	comp := compressor.NewQualitySearchCompressor(cfg.Compression.Tool, log, failLog)
	bw := walker.NewBatchWalker(cfg, log, stats, comp)

	if _, err := bw.Run(context.Background()); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if !quiet {
		fmt.Println("\n==================================================")
		fmt.Println("SCAN RESULTS")
		fmt.Println("==================================================")
		fmt.Println("\n" + stats.GetSummary())
	}

	return nil
}

// runCheck runs environment diagnostics and prints the report.
func runCheck() error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if sourceDir != "" {
		cfg.SourceDirectory = sourceDir
	}
	if destDir != "" {
		cfg.DestinationDirectory = destDir
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(cfg.Compression.Tool, cfg.SourceDirectory, cfg.DestinationDirectory)

	for _, item := range report.Items {
		status := "PASS"
		if item.Status == diagnostics.StatusFail {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s: %s\n", status, item.Name, item.Message)
		if item.Hint != "" {
			fmt.Printf("       hint: %s\n", item.Hint)
		}
	}

	if report.HasFailures {
		return fmt.Errorf("environment check failed")
	}
	fmt.Println("\nAll checks passed")
	return nil
}

// runInspect prints metadata for a single PDF file.
func runInspect(filePath string) error {
	if !fileExists(filePath) {
		return fmt.Errorf("file does not exist: %s", filePath)
	}

	fmt.Printf("Inspecting: %s\n", filePath)

	log := logrus.New()
	insp := inspector.NewExiftoolInspector(log)
	meta, err := insp.Inspect(filePath)
	if err != nil {
		fmt.Printf("Error reading metadata: %v\n", err)
		return nil
	}

	fmt.Printf("Size:        %.2f MB\n", float64(meta.FileSize)/1024/1024)
	if meta.PageCount > 0 {
		fmt.Printf("Pages:       %d\n", meta.PageCount)
	}
	if meta.Producer != "" {
		fmt.Printf("Producer:    %s\n", meta.Producer)
	}
	if meta.Creator != "" {
		fmt.Printf("Creator:     %s\n", meta.Creator)
	}
	if meta.Title != "" {
		fmt.Printf("Title:       %s\n", meta.Title)
	}
	if meta.CreateDate != "" {
		fmt.Printf("Created:     %s\n", meta.CreateDate)
	}

	return nil
}

// runServe starts the monitor server and handles graceful shutdown.
func runServe() error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CONFIG LOAD ERROR: %v\n", err)
		cfg = config.DefaultConfig()
		cfg.Security.DryRun = true
	}

	log := setupLogger(cfg)
	server := web.NewServer(cfg, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	fmt.Printf("pdf-squeeze monitor started on http://localhost:%d\n", port)
	fmt.Printf("Press Ctrl+C to stop the server\n\n")

	<-sigChan
	fmt.Println("\nShutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	fmt.Println("Server stopped gracefully")
	return nil
}

// loadConfig loads configuration and applies CLI overrides.
func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if sourceDir != "" {
		cfg.SourceDirectory = sourceDir
	}
	if destDir != "" {
		cfg.DestinationDirectory = destDir
	}
	if targetSizeMB > 0 {
		cfg.TargetSizeMB = targetSizeMB
	}
	if workerCount > 0 {
		cfg.Performance.WorkerThreads = workerCount
	}

	if cfg.SourceDirectory == "" && len(args) > 0 {
		cfg.SourceDirectory = args[0]
	}
	if cfg.DestinationDirectory == "" && len(args) > 1 {
		cfg.DestinationDirectory = args[1]
	}

	if cfg.SourceDirectory == "" {
		return nil, fmt.Errorf("source directory is required (--source flag or config)")
	}
	if cfg.DestinationDirectory == "" {
		return nil, fmt.Errorf("destination directory is required (--dest flag or config)")
	}

	if !dirExists(cfg.SourceDirectory) {
		return nil, fmt.Errorf("source directory does not exist: %s", cfg.SourceDirectory)
	}

	return cfg, nil
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggerCfg := logger.LoggerConfig{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		Console:    !quiet,
	}

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// fileExists returns true if the given path exists and is a file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// dirExists returns true if the given path exists and is a directory.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
