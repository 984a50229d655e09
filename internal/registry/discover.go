package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kamusis/tooldeck/internal/manifest"
)

// Discover scans root for metadata documents and returns their paths
// relative to root, slash separated and sorted. Hidden files and
// directories and the registry index are skipped.
func Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("cannot stat registry directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("registry path is not a directory: %s", root)
	}

	var out []string
	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if d.Name() == IndexFileName || !manifest.IsMetadataFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil {
		return nil, fmt.Errorf("cannot scan registry: %w", err)
	}
	sort.Strings(out)
	return out, nil
}
