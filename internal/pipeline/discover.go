package pipeline

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Supported clip extensions (lowercase, with leading dot).
var clipExtensions = map[string]bool{
	".mp4": true,
	".avi": true,
	".mkv": true,
}

// IsClip reports whether path has a supported extension (case-insensitive).
func IsClip(path string) bool {
	return clipExtensions[strings.ToLower(filepath.Ext(path))]
}

// Discover walks root recursively and returns clip paths in walk order
// (lexical within each directory). Paths listed in exclude, typically the
// run's own output and its temporary sibling, are skipped.
func Discover(root string, exclude ...string) ([]string, error) {
	skip := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		if abs, err := filepath.Abs(p); err == nil {
			skip[abs] = true
		}
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsClip(path) {
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil && skip[abs] {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
