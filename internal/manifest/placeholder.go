package manifest

import (
	"fmt"
	"os"
	"path/filepath"
)

const placeholderReadme = `raw_empty/ contains placeholder files to satisfy downstream tooling
that expects a RAW presence. These are NOT real vendor files.
`

// PlaceholderEntry maps one acquisition file to its placeholder.
type PlaceholderEntry struct {
	Raw         string `json:"raw"`
	Placeholder string `json:"placeholder"`
}

// CreatePlaceholders writes one zero-byte <name>.empty file into dir for
// every acquisition path. Creation is additive-only: an existing placeholder
// is never overwritten, so re-runs cannot corrupt earlier artifacts. The
// accompanying manifest lists every pair, pre-existing ones included, and a
// README states that placeholders carry no acquisition data. Returns the
// number of newly created placeholders.
func CreatePlaceholders(dir string, rawPaths []string) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create placeholder directory %s: %w", dir, err)
	}

	entries := make([]PlaceholderEntry, 0, len(rawPaths))
	created := 0
	for _, raw := range rawPaths {
		placeholder := filepath.Join(dir, filepath.Base(raw)+".empty")
		entries = append(entries, PlaceholderEntry{Raw: raw, Placeholder: placeholder})

		if _, err := os.Stat(placeholder); err == nil {
			continue
		}
		if err := os.WriteFile(placeholder, nil, 0644); err != nil {
			return created, fmt.Errorf("failed to create placeholder %s: %w", placeholder, err)
		}
		created++
	}

	readmePath := filepath.Join(dir, "README.txt")
	if _, err := os.Stat(readmePath); os.IsNotExist(err) {
		if err := os.WriteFile(readmePath, []byte(placeholderReadme), 0644); err != nil {
			return created, fmt.Errorf("failed to write %s: %w", readmePath, err)
		}
	}

	if err := WriteJSON(filepath.Join(dir, "raw_empty_manifest.json"), entries); err != nil {
		return created, err
	}
	return created, nil
}
