package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/checkcode/internal/utils"
)

// fileFilter selects files by base-name globs. Excludes win over includes;
// no includes means everything not excluded.
type fileFilter struct {
	include []string
	exclude []string
}

func (f fileFilter) allows(path string) bool {
	base := filepath.Base(path)
	if matchesAnyPattern(base, f.exclude) {
		return false
	}
	return len(f.include) == 0 || matchesAnyPattern(base, f.include)
}

// matchesAnyPattern reports whether name matches one of the glob patterns.
// Malformed patterns never match.
func matchesAnyPattern(name string, patterns []string) bool {
	name = filepath.Base(name)
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// discovery collects code images in argument order, each path once.
type discovery struct {
	filter    fileFilter
	recursive bool
	seen      map[string]bool
	files     []string
}

func (d *discovery) add(path string) {
	key := filepath.Clean(path)
	if d.seen[key] {
		return
	}
	d.seen[key] = true
	d.files = append(d.files, path)
}

// walk adds the supported images under root. Subdirectories are entered
// only when recursive.
func (d *discovery) walk(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case entry.IsDir() && path != root && !d.recursive:
			return filepath.SkipDir
		case entry.IsDir():
			return nil
		case utils.IsSupportedImage(path) && d.filter.allows(path):
			d.add(path)
		}
		return nil
	})
}

// discoverImageFiles expands files and directories into the list of images
// to verify. Explicit file arguments skip the extension check so that an
// unreadable file shows up as a failure in the report.
func discoverImageFiles(args []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	d := &discovery{
		filter:    fileFilter{include: includePatterns, exclude: excludePatterns},
		recursive: recursive,
		seen:      make(map[string]bool),
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if info.IsDir() {
			if err := d.walk(arg); err != nil {
				return nil, err
			}
			continue
		}
		if d.filter.allows(arg) {
			d.add(arg)
		}
	}
	return d.files, nil
}
