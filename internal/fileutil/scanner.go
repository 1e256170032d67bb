package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// ImageExtensions lists the extensions of images that can be decoded.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif"}

// ScanOptions configures folder scanning
type ScanOptions struct {
	// Pattern is a regex matched against file names without extension
	Pattern string
	// Extensions restricts files to these extensions, ImageExtensions if empty
	Extensions []string
	// Recursive descends into subfolders
	Recursive bool
	// ExcludeDirs lists folder names to skip when recursive
	ExcludeDirs []string
	// MaxDepth limits recursion (0 = unlimited, 1 = scanned folder only)
	MaxDepth int
}

// ScanResult contains the files found by a scan
type ScanResult struct {
	// Files are sorted and joined to the scanned folder
	Files []string
	// Errors are entries that could not be read; the scan went on without them
	Errors []error
}

// ScanDirectory lists the files of dir matching opts.
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	var pattern *regexp.Regexp
	if opts.Pattern != "" {
		if pattern, err = regexp.Compile(opts.Pattern); err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
	}

	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = ImageExtensions
	}
	extMap := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[strings.ToLower(ext)] = true
	}

	result := &ScanResult{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}
		if path == dir {
			return nil
		}

		if d.IsDir() {
			if !opts.Recursive || strings.HasPrefix(d.Name(), ".") || slices.Contains(opts.ExcludeDirs, d.Name()) {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 {
				rel, _ := filepath.Rel(dir, path)
				if strings.Count(rel, string(filepath.Separator))+1 >= opts.MaxDepth {
					return filepath.SkipDir
				}
			}
			return nil
		}

		name := d.Name()
		ext := filepath.Ext(name)
		if !extMap[strings.ToLower(ext)] {
			return nil
		}
		if pattern != nil && !pattern.MatchString(strings.TrimSuffix(name, ext)) {
			return nil
		}
		result.Files = append(result.Files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	slices.Sort(result.Files)
	return result, nil
}
