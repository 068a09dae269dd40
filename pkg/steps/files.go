package steps

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/systemstart/assetpipe/pkg/api"
)

// fileMatch is a file selected by a FileFilter.
type fileMatch struct {
	Path string // slash-separated, relative to the project directory
	Base string // static directory prefix of the include pattern that selected Path
}

// relTo returns the match's path relative to base, or to its own glob base
// when base is empty or does not contain the file.
func (m fileMatch) relTo(base string) string {
	for _, b := range []string{base, m.Base} {
		if b == "" {
			continue
		}
		b = path.Clean(b)
		if b == "." {
			return m.Path
		}
		if rel, ok := strings.CutPrefix(m.Path, b+"/"); ok {
			return rel
		}
	}
	return path.Base(m.Path)
}

// matchFiles expands include patterns in listed order. Matches of a single
// pattern are sorted; a file matched by several patterns keeps its first position.
func matchFiles(projectDir string, filter api.FileFilter) ([]fileMatch, error) {
	fsys := os.DirFS(projectDir)

	var (
		result []fileMatch
		seen   = make(map[string]bool)
	)
	for _, pattern := range filter.Include {
		pattern = path.Clean(filepath.ToSlash(pattern))
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		slices.Sort(matches)

		base, _ := doublestar.SplitPattern(pattern)
		for _, m := range matches {
			if seen[m] {
				continue
			}
			excluded, err := isExcluded(m, filter.Exclude)
			if err != nil {
				return nil, err
			}
			if excluded {
				continue
			}
			seen[m] = true
			result = append(result, fileMatch{Path: m, Base: base})
		}
	}
	return result, nil
}

func isExcluded(name string, exclude []string) (bool, error) {
	for _, pattern := range exclude {
		ok, err := doublestar.Match(path.Clean(filepath.ToSlash(pattern)), name)
		if err != nil {
			return false, fmt.Errorf("exclude %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func abs(projectDir, rel string) string {
	return filepath.Join(projectDir, filepath.FromSlash(rel))
}

// writeOutput writes data to a project-relative path, creating parent
// directories and overwriting any previous content.
func writeOutput(projectDir, rel string, data []byte, mode fs.FileMode) error {
	target := abs(projectDir, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("creating directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(target, data, mode); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	return nil
}

func copyFile(projectDir, src, dst string) error {
	srcPath := abs(projectDir, src)
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	info, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	return writeOutput(projectDir, dst, data, info.Mode().Perm())
}

// replaceExt swaps the extension of a slash path.
func replaceExt(p, ext string) string {
	return strings.TrimSuffix(p, path.Ext(p)) + ext
}
