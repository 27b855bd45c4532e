package inspector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/barasher/go-exiftool"
	"github.com/sirupsen/logrus"
)

// Metadata holds the document properties read from a PDF file.
type Metadata struct {
	Path       string
	FileSize   int64
	PageCount  int
	Producer   string
	Creator    string
	Title      string
	CreateDate string
}

// CacheStats contains cache statistics for an inspector.
type CacheStats struct {
	Hits         int64
	Misses       int64
	TotalQueries int64
	HitRate      float64
}

// Inspector defines the interface for PDF metadata extraction.
type Inspector interface {
	// Inspect returns document metadata for a PDF file.
	Inspect(filePath string) (*Metadata, error)
	// SupportsFile reports whether the file can be inspected.
	SupportsFile(filePath string) bool
}

// ExiftoolInspector reads PDF metadata through the exiftool binary.
// Results are cached keyed by path, size, and modification time.
type ExiftoolInspector struct {
	logger *logrus.Logger
	cache  *sync.Map
	stats  CacheStats
	mutex  sync.RWMutex
}

// NewExiftoolInspector returns a new ExiftoolInspector.
func NewExiftoolInspector(logger *logrus.Logger) *ExiftoolInspector {
	return &ExiftoolInspector{
		logger: logger,
		cache:  &sync.Map{},
	}
}

// Inspect returns document metadata for a PDF file.
func (i *ExiftoolInspector) Inspect(filePath string) (*Metadata, error) {
	if !i.SupportsFile(filePath) {
		return nil, fmt.Errorf("file type not supported by inspector: %s", filePath)
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if cached := i.getCached(filePath, fileInfo); cached != nil {
		i.incrementCacheHits()
		return cached, nil
	}
	i.incrementCacheMisses()

	meta, err := i.extractWithExiftool(filePath)
	if err != nil {
		return nil, err
	}
	meta.FileSize = fileInfo.Size()

	i.cacheMeta(filePath, fileInfo, meta)
	return meta, nil
}

// SupportsFile reports whether the file is supported by this inspector.
func (i *ExiftoolInspector) SupportsFile(filePath string) bool {
	return strings.ToLower(filepath.Ext(filePath)) == ".pdf"
}

// ClearCache removes all entries from the internal cache and resets statistics.
func (i *ExiftoolInspector) ClearCache() {
	i.cache = &sync.Map{}
	i.mutex.Lock()
	i.stats = CacheStats{}
	i.mutex.Unlock()
}

// GetCacheStats returns cache statistics for this inspector.
func (i *ExiftoolInspector) GetCacheStats() CacheStats {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	stats := i.stats
	if stats.TotalQueries > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.TotalQueries)
	}
	return stats
}

// extractWithExiftool reads metadata using the barasher/go-exiftool library.
func (i *ExiftoolInspector) extractWithExiftool(filePath string) (*Metadata, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("failed to start exiftool: %w", err)
	}
	defer et.Close()

	files := et.ExtractMetadata(filePath)
	if len(files) == 0 {
		return nil, fmt.Errorf("exiftool returned no metadata for %s", filePath)
	}
	if files[0].Err != nil {
		return nil, fmt.Errorf("exiftool extraction failed: %w", files[0].Err)
	}

	fields := files[0].Fields
	meta := &Metadata{
		Path:       filePath,
		Producer:   stringField(fields, "Producer"),
		Creator:    stringField(fields, "Creator"),
		Title:      stringField(fields, "Title"),
		CreateDate: stringField(fields, "CreateDate"),
	}
	if pages, err := files[0].GetInt("PageCount"); err == nil {
		meta.PageCount = int(pages)
	}

	i.logger.Debugf("Extracted metadata for %s: %d pages, producer %q",
		filePath, meta.PageCount, meta.Producer)
	return meta, nil
}

// stringField returns a metadata field as a string, or "" when absent.
func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// getCacheKey returns a cache key for the given file path and file info.
func (i *ExiftoolInspector) getCacheKey(filePath string, fileInfo os.FileInfo) string {
	return fmt.Sprintf("%s:%d:%d", filePath, fileInfo.Size(), fileInfo.ModTime().Unix())
}

// getCached returns the cached metadata for the file, or nil if not found.
func (i *ExiftoolInspector) getCached(filePath string, fileInfo os.FileInfo) *Metadata {
	key := i.getCacheKey(filePath, fileInfo)
	if value, ok := i.cache.Load(key); ok {
		if meta, ok := value.(Metadata); ok {
			return &meta
		}
	}
	return nil
}

// cacheMeta stores metadata in the cache for the given file path and file info.
func (i *ExiftoolInspector) cacheMeta(filePath string, fileInfo os.FileInfo, meta *Metadata) {
	if meta == nil {
		return
	}
	key := i.getCacheKey(filePath, fileInfo)
	i.cache.Store(key, *meta)
}

// incrementCacheHits increments the cache hit counter.
func (i *ExiftoolInspector) incrementCacheHits() {
	i.mutex.Lock()
	i.stats.Hits++
	i.stats.TotalQueries++
	i.mutex.Unlock()
}

// incrementCacheMisses increments the cache miss counter.
func (i *ExiftoolInspector) incrementCacheMisses() {
	i.mutex.Lock()
	i.stats.Misses++
	i.stats.TotalQueries++
	i.mutex.Unlock()
}
