package rawfile

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create parent directory: %v", err)
	}
	if err := os.WriteFile(path, []byte("payload"), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestScanPartitionsPrimariesAndCompanions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "run_a.wiff"))
	writeFile(t, filepath.Join(root, "run_a.wiff.scan"))
	writeFile(t, filepath.Join(root, "sample_01.raw"))
	writeFile(t, filepath.Join(root, "notes.txt"))

	result, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	if len(result.Root) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(result.Root))
	}
	if len(result.Primaries) != 2 {
		t.Errorf("expected 2 primaries, got %d", len(result.Primaries))
	}
	if len(result.Companions) != 1 {
		t.Errorf("expected 1 companion, got %d", len(result.Companions))
	}
	if result.Companions[0].Name != "run_a.wiff.scan" {
		t.Errorf("expected companion run_a.wiff.scan, got %s", result.Companions[0].Name)
	}
}

func TestScanRecursesSubdirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "batch1", "sample_01.raw"))
	writeFile(t, filepath.Join(root, "batch2", "sample_02.raw"))

	result, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(result.Primaries) != 2 {
		t.Fatalf("expected 2 primaries across subdirectories, got %d", len(result.Primaries))
	}
}

func TestScanTreatsBrukerFolderAsSingleUnit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "run_c.d", "analysis.baf"))
	writeFile(t, filepath.Join(root, "run_c.d", "inner.raw"))

	result, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	if len(result.Root) != 1 {
		t.Fatalf("expected the .d folder to be one candidate, got %d: %v", len(result.Root), result.Root)
	}
	c := result.Primaries[0]
	if !c.Directory {
		t.Error("expected .d candidate to be flagged as a directory format")
	}
	if c.Family != FamilyBrukerD {
		t.Errorf("expected FamilyBrukerD, got %v", c.Family)
	}
}

func TestScanReturnsLexicographicOrder(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"zeta.raw", "alpha.raw", "mid.raw"} {
		writeFile(t, filepath.Join(root, name))
	}

	result, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	paths := result.Root.Paths()
	if !sort.StringsAreSorted(paths) {
		t.Errorf("expected lexicographically sorted paths, got %v", paths)
	}
}

func TestScanMissingRoot(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Fatal("expected error scanning a missing root")
	}
}
