package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
)

// Status classifies a single diagnostic check result.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Item is one diagnostic check result.
type Item struct {
	ID      string
	Name    string
	Status  Status
	Message string
	Hint    string
}

// Report is the combined outcome of all startup checks.
type Report struct {
	HasFailures bool
	Items       []Item
}

// Checker validates the external tool and required filesystem paths.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all environment checks for one batch configuration.
func (c *Checker) Run(tool, sourceDir, destDir string) Report {
	items := []Item{
		c.checkTool(tool),
		c.checkSourceDir(sourceDir),
		c.checkDestDir(destDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == StatusFail {
			hasFailures = true
			break
		}
	}

	return Report{
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies the compression executable is on PATH.
func (c *Checker) checkTool(name string) Item {
	path, err := c.lookPath(name)
	if err != nil {
		return Item{
			ID:      "tool_" + name,
			Name:    name,
			Status:  StatusFail,
			Message: fmt.Sprintf("Tool not found in PATH: %s", name),
			Hint:    "Install it and ensure the binary is available on PATH before starting a batch.",
		}
	}

	return Item{
		ID:      "tool_" + name,
		Name:    name,
		Status:  StatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkSourceDir validates the configured source root.
func (c *Checker) checkSourceDir(sourceDir string) Item {
	item := Item{
		ID:   "source_dir",
		Name: "Source directory",
	}

	if sourceDir == "" {
		item.Status = StatusFail
		item.Message = "Source directory is empty."
		item.Hint = "Set a source directory containing PDF files."
		return item
	}

	info, err := c.stat(sourceDir)
	if err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Source directory does not exist: %s", sourceDir)
		return item
	}
	if !info.IsDir() {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Source path is not a directory: %s", sourceDir)
		return item
	}

	item.Status = StatusPass
	item.Message = fmt.Sprintf("Readable directory: %s", sourceDir)
	return item
}

// checkDestDir validates destination directory existence and write access.
func (c *Checker) checkDestDir(destDir string) Item {
	item := Item{
		ID:   "dest_dir",
		Name: "Destination directory",
	}

	if destDir == "" {
		item.Status = StatusFail
		item.Message = "Destination directory is empty."
		item.Hint = "Set a destination directory where compressed PDFs can be written."
		return item
	}

	if err := c.mkdirAll(destDir, 0o755); err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Cannot create destination directory: %s", destDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(destDir, ".write-check-*")
	if err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Destination directory is not writable: %s", destDir)
		item.Hint = "Choose a writable directory for compressed output."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = StatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", destDir)
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
