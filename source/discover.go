package source

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
)

// Discover walks root and returns the paths of regular files whose base
// name matches pattern (glob syntax), in sorted order so that a pipeline
// run processes a directory's archives in a deterministic sequence.
func Discover(root, pattern string) ([]string, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("source: bad glob %q: %w", pattern, err)
	}

	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if g.Match(filepath.Base(path)) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source: discover %q: %w", root, err)
	}

	sort.Strings(out)
	return out, nil
}
