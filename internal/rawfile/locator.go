package rawfile

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// Candidate is one vendor acquisition unit, or a companion part of one, found
// on disk. Candidates are immutable once created.
type Candidate struct {
	Path      string       `json:"path"`
	Name      string       `json:"name"`
	Family    FormatFamily `json:"-"`
	Companion bool         `json:"companion"`
	Directory bool         `json:"directory"`
}

// Stem returns the candidate's name without its vendor suffix.
func (c Candidate) Stem() string {
	return Stem(c.Name)
}

// ScanResult partitions the candidates of one directory tree into primaries,
// which are converted, and companions, which are carried along only.
type ScanResult struct {
	Root       All
	Primaries  []Candidate
	Companions []Candidate
}

// All is the full ordered candidate set.
type All []Candidate

// Paths returns the candidate paths in order.
func (a All) Paths() []string {
	paths := make([]string, len(a))
	for i, c := range a {
		paths[i] = c.Path
	}
	return paths
}

// Scan recursively enumerates root, classifies every entry and retains the
// vendor acquisition candidates in lexicographic path order. Directory-based
// acquisitions (.d folders) are treated as a single unit; their contents are
// not descended into.
func Scan(root string) (*ScanResult, error) {
	var all []Candidate

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		family, ok := Resolve(d.Name(), d.IsDir())
		if !ok {
			return nil
		}

		all = append(all, Candidate{
			Path:      path,
			Name:      d.Name(),
			Family:    family,
			Companion: IsCompanion(d.Name()),
			Directory: d.IsDir(),
		})

		if d.IsDir() {
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	// Manifest reproducibility depends on candidates being ordered by full path.
	sort.Slice(all, func(i, j int) bool { return all[i].Path < all[j].Path })

	result := &ScanResult{Root: all}
	for _, c := range all {
		if c.Companion {
			result.Companions = append(result.Companions, c)
		} else {
			result.Primaries = append(result.Primaries, c)
		}
	}
	return result, nil
}
