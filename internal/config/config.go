package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the main configuration structure
type Config struct {
	SourceDirectory      string            `mapstructure:"source_directory" validate:"required"`
	DestinationDirectory string            `mapstructure:"destination_directory" validate:"required"`
	TargetSizeMB         float64           `mapstructure:"target_size_mb"`
	Compression          CompressionConfig `mapstructure:"compression"`
	Performance          PerformanceConfig `mapstructure:"performance"`
	Security             SecurityConfig    `mapstructure:"security"`
	Logging              LoggingConfig     `mapstructure:"logging"`
}

// CompressionConfig contains settings for the external compression tool
type CompressionConfig struct {
	Tool           string `mapstructure:"tool"`
	OptimizeLevel  int    `mapstructure:"optimize_level"`
	MaxQuality     int    `mapstructure:"max_quality"`
	MinQuality     int    `mapstructure:"min_quality"`
	QualityStep    int    `mapstructure:"quality_step"`
	FailureLogPath string `mapstructure:"failure_log_path"`
}

// PerformanceConfig contains performance tuning settings
type PerformanceConfig struct {
	WorkerThreads    int  `mapstructure:"worker_threads"`
	ProgressInterval int  `mapstructure:"progress_interval"`
	ShowProgress     bool `mapstructure:"show_progress"`
}

// SecurityConfig contains safety settings
type SecurityConfig struct {
	DryRun         bool `mapstructure:"dry_run"`
	MaxFilesPerRun int  `mapstructure:"max_files_per_run"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		TargetSizeMB: 1.5,
		Compression: CompressionConfig{
			Tool:           "ocrmypdf",
			OptimizeLevel:  3,
			MaxQuality:     40,
			MinQuality:     5,
			QualityStep:    5,
			FailureLogPath: "failures.log",
		},
		Performance: PerformanceConfig{
			WorkerThreads:    8,
			ProgressInterval: 100,
			ShowProgress:     true,
		},
		Security: SecurityConfig{
			DryRun:         false,
			MaxFilesPerRun: 0, // 0 means no limit
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "pdf-squeeze.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		// Look for config file in current directory and home directory
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.pdf-squeeze")
		viper.AddConfigPath("/etc/pdf-squeeze")
	}

	// Enable environment variable support
	viper.SetEnvPrefix("PDF_SQUEEZE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	// Unmarshal config
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate and normalize config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.TargetSizeMB <= 0 {
		return fmt.Errorf("target_size_mb must be positive, got %v", c.TargetSizeMB)
	}

	if c.Compression.Tool == "" {
		c.Compression.Tool = "ocrmypdf"
	}

	if c.Compression.MaxQuality <= 0 {
		c.Compression.MaxQuality = 40
	}
	if c.Compression.MinQuality <= 0 {
		c.Compression.MinQuality = 5
	}
	if c.Compression.QualityStep <= 0 {
		c.Compression.QualityStep = 5
	}
	if c.Compression.MinQuality > c.Compression.MaxQuality {
		return fmt.Errorf("min_quality (%d) must not exceed max_quality (%d)",
			c.Compression.MinQuality, c.Compression.MaxQuality)
	}
	if c.Compression.OptimizeLevel < 0 || c.Compression.OptimizeLevel > 3 {
		return fmt.Errorf("optimize_level must be between 0 and 3, got %d", c.Compression.OptimizeLevel)
	}
	if c.Compression.FailureLogPath == "" {
		c.Compression.FailureLogPath = "failures.log"
	}

	// Validate performance settings
	if c.Performance.WorkerThreads <= 0 {
		c.Performance.WorkerThreads = 8
	}
	if c.Performance.ProgressInterval <= 0 {
		c.Performance.ProgressInterval = 100
	}

	// Validate logging settings
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

// TargetSizeBytes returns the target size ceiling in bytes.
func (c *Config) TargetSizeBytes() int64 {
	return int64(c.TargetSizeMB * 1024 * 1024)
}

// IsValidSourcePath reports whether the given source directory exists.
func IsValidSourcePath(path string) bool {
	if path == "" {
		return false
	}

	expandedPath := os.ExpandEnv(path)
	if strings.HasPrefix(expandedPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return false
		}
		expandedPath = filepath.Join(home, expandedPath[1:])
	}

	stat, err := os.Stat(expandedPath)
	return err == nil && stat.IsDir()
}
