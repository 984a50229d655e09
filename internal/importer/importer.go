// Package importer copies metadata documents from a directory into a
// registry, applying exclude filtering and MD5-based conflict resolution.
package importer

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kamusis/tooldeck/internal/demand"
	"github.com/kamusis/tooldeck/internal/manifest"
	"github.com/kamusis/tooldeck/internal/registry"
)

// conflictMarker separates a document name from the source tag in the
// name of a conflicting copy. The copy keeps no metadata extension, so
// the registry never indexes it.
const conflictMarker = ".conflict-"

// ConflictPair records a conflict found during import.
type ConflictPair struct {
	Original string // path of the document already in the registry
	Conflict string // path where the incoming version was stored
}

// Rejected is a source document that was not imported because it does
// not parse or validate.
type Rejected struct {
	Path string
	Errs []error
}

// Result is returned by ImportDir.
type Result struct {
	Conflicts []ConflictPair
	Rejected  []Rejected
	Imported  int // documents copied
	Skipped   int // identical duplicates skipped
}

// ImportDir copies the valid metadata documents under srcDir into the
// registry rooted at dstDir, keeping their relative paths. A document
// that differs from one already present is stored next to it as
// <name>.conflict-<source>.
func ImportDir(srcDir, dstDir, source string, excludes []string) (*Result, error) {
	result := &Result{}

	targets, err := registry.Discover(srcDir)
	if err != nil {
		return nil, err
	}

	for _, rel := range targets {
		if matchesExclude(rel, excludes) {
			continue
		}
		path := filepath.Join(srcDir, filepath.FromSlash(rel))

		if errs := check(path); len(errs) > 0 {
			result.Rejected = append(result.Rejected, Rejected{Path: rel, Errs: errs})
			continue
		}

		dst := filepath.Join(dstDir, filepath.FromSlash(rel))

		// ── MD5 conflict resolution ───────────────────────────────────────────
		if _, err := os.Stat(dst); err == nil {
			srcMD5, err := fileMD5(path)
			if err != nil {
				return result, fmt.Errorf("md5 %s: %w", path, err)
			}
			dstMD5, err := fileMD5(dst)
			if err != nil {
				return result, fmt.Errorf("md5 %s: %w", dst, err)
			}
			if srcMD5 == dstMD5 {
				result.Skipped++
				continue
			}
			conflictDst := ConflictPath(dst, source)
			if err := copyFile(path, conflictDst); err != nil {
				return result, fmt.Errorf("conflict copy %s → %s: %w", path, conflictDst, err)
			}
			result.Conflicts = append(result.Conflicts, ConflictPair{Original: dst, Conflict: conflictDst})
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return result, err
		}
		if err := copyFile(path, dst); err != nil {
			return result, fmt.Errorf("copy %s → %s: %w", path, dst, err)
		}
		result.Imported++
	}
	return result, nil
}

func check(path string) []error {
	doc, err := manifest.ReadFile(path)
	if err != nil {
		return []error{err}
	}
	var errs []error
	for _, ve := range demand.Validate(doc) {
		errs = append(errs, &ve)
	}
	return errs
}

// ConflictPath builds the name a conflicting copy of original is stored
// under. Dots and separators in source become dashes so the copy never
// ends in a metadata extension.
//
//	tools/cmake.yaml → tools/cmake.yaml.conflict-vendor
func ConflictPath(original, source string) string {
	tag := strings.Map(func(r rune) rune {
		if r == '.' || r == '/' || r == '\\' {
			return '-'
		}
		return r
	}, source)
	return original + conflictMarker + tag
}

// FindConflicts walks root and returns the slash-separated relative paths
// of conflict copies left by ImportDir.
func FindConflicts(root string) []string {
	var found []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if strings.Contains(d.Name(), conflictMarker) {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			found = append(found, filepath.ToSlash(rel))
		}
		return nil
	})
	return found
}

// matchesExclude reports whether relPath matches any of the given glob patterns.
func matchesExclude(relPath string, patterns []string) bool {
	name := filepath.Base(relPath)
	for _, pattern := range patterns {
		// Match against the full relative path AND just the basename.
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}

// fileMD5 returns the hex-encoded MD5 digest of the file at path.
func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// copyFile copies src to dst, preserving permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
