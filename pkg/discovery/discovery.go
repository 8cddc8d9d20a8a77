// Package discovery finds log sheet and works exports on disk and serves
// them as an offline data source.
//
// An export is a .json or .jsonl file whose name starts with "logsheets" or
// "works". Files are looked up in each configured directory and in its
// immediate subdirectories, so dated export folders are picked up too.
//
// Example usage:
//
//	d := discovery.New([]string{"~/royalty-exports"}, logger.Default())
//	files, err := d.Discover()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range files {
//	    fmt.Printf("%s export: %s\n", f.Kind, f.Path)
//	}
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Logger defines the logging interface used by the discovery package.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Kind is the content of an export file.
type Kind string

// Export kinds, named after the file name prefix.
const (
	KindLogSheets Kind = "logsheets"
	KindWorks     Kind = "works"
)

// ExportFile is a discovered export.
type ExportFile struct {
	Kind Kind

	// Path is the path to the export file.
	Path string

	// Dir is the directory containing the file.
	Dir string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime int64 // Unix timestamp
}

// Discoverer finds export files.
type Discoverer interface {
	// Discover scans every configured directory. Missing directories are
	// skipped with a warning.
	//
	// Files are returned oldest first, so later exports override earlier
	// ones when merged.
	Discover() ([]ExportFile, error)

	// DiscoverDir scans a single directory.
	//
	// Returns ErrDirNotFound if dir does not exist.
	DiscoverDir(dir string) ([]ExportFile, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	dirs   []string
	logger Logger
}

// New creates a Discoverer over dirs.
func New(dirs []string, logger Logger) Discoverer {
	return &discoverer{
		dirs:   dirs,
		logger: logger,
	}
}

// Discover implements Discoverer.Discover.
func (d *discoverer) Discover() ([]ExportFile, error) {
	var all []ExportFile

	for _, dir := range d.dirs {
		files, err := d.DiscoverDir(dir)
		if err != nil {
			if errors.Is(err, ErrDirNotFound) {
				d.logger.Warn("export directory not found, skipping", "path", expandHome(dir))
				continue
			}
			return nil, err
		}

		all = append(all, files...)
	}

	sortFiles(all)

	d.logger.Debug("discovery complete", "total_exports", len(all))
	return all, nil
}

// DiscoverDir implements Discoverer.DiscoverDir.
func (d *discoverer) DiscoverDir(dir string) ([]ExportFile, error) {
	expanded := expandHome(dir)

	info, err := os.Stat(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirNotFound, expanded)
		}
		return nil, fmt.Errorf("failed to stat directory %s: %w", expanded, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirNotFound, expanded)
	}

	files, err := d.scanDir(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", expanded, err)
	}

	entries, err := os.ReadDir(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", expanded, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		sub := filepath.Join(expanded, entry.Name())
		subFiles, err := d.scanDir(sub)
		if err != nil {
			d.logger.Warn("failed to scan export subdirectory",
				"path", sub,
				"error", err)
			continue
		}
		files = append(files, subFiles...)
	}

	sortFiles(files)
	return files, nil
}

// scanDir lists the export files directly inside dir.
func (d *discoverer) scanDir(dir string) ([]ExportFile, error) {
	files := make([]ExportFile, 0, 4)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		kind, ok := classify(entry.Name())
		if !ok {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			d.logger.Warn("failed to get file info",
				"path", path,
				"error", err)
			continue
		}

		files = append(files, ExportFile{
			Kind:    kind,
			Path:    path,
			Dir:     dir,
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
		})
	}

	d.logger.Debug("scanned export directory",
		"path", dir,
		"exports_found", len(files))

	return files, nil
}

// classify maps a file name to its export kind.
func classify(name string) (Kind, bool) {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, ".json") && !strings.HasSuffix(lower, ".jsonl") {
		return "", false
	}

	switch {
	case strings.HasPrefix(lower, string(KindLogSheets)):
		return KindLogSheets, true
	case strings.HasPrefix(lower, string(KindWorks)):
		return KindWorks, true
	default:
		return "", false
	}
}

// sortFiles orders files oldest first, then by path.
func sortFiles(files []ExportFile) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime != files[j].ModTime {
			return files[i].ModTime < files[j].ModTime
		}
		return files[i].Path < files[j].Path
	})
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
