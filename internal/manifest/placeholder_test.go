package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreatePlaceholders(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "raw_empty")
	raws := []string{"/data/raw/sample_01.raw", "/data/raw/run_a.wiff"}

	created, err := CreatePlaceholders(dir, raws)
	if err != nil {
		t.Fatalf("CreatePlaceholders returned error: %v", err)
	}
	if created != 2 {
		t.Errorf("expected 2 placeholders, got %d", created)
	}

	for _, name := range []string{"sample_01.raw.empty", "run_a.wiff.empty"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("expected placeholder %s: %v", name, err)
			continue
		}
		if info.Size() != 0 {
			t.Errorf("placeholder %s must be empty, has %d bytes", name, info.Size())
		}
	}

	readme, err := os.ReadFile(filepath.Join(dir, "README.txt"))
	if err != nil {
		t.Fatalf("expected README: %v", err)
	}
	if !strings.Contains(string(readme), "NOT real vendor files") {
		t.Errorf("unexpected README content: %s", readme)
	}

	data, err := os.ReadFile(filepath.Join(dir, "raw_empty_manifest.json"))
	if err != nil {
		t.Fatalf("expected placeholder manifest: %v", err)
	}
	for _, key := range []string{`"raw"`, `"placeholder"`, "sample_01.raw.empty"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in placeholder manifest, got:\n%s", key, data)
		}
	}
}

func TestCreatePlaceholdersNeverOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "raw_empty")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	existing := filepath.Join(dir, "sample_01.raw.empty")
	if err := os.WriteFile(existing, []byte("survivor"), 0644); err != nil {
		t.Fatalf("failed to seed placeholder: %v", err)
	}

	created, err := CreatePlaceholders(dir, []string{"/data/raw/sample_01.raw", "/data/raw/sample_02.raw"})
	if err != nil {
		t.Fatalf("CreatePlaceholders returned error: %v", err)
	}
	if created != 1 {
		t.Errorf("expected 1 new placeholder, got %d", created)
	}

	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatalf("failed to read placeholder: %v", err)
	}
	if string(data) != "survivor" {
		t.Error("existing placeholder must never be overwritten")
	}

	manifest, err := os.ReadFile(filepath.Join(dir, "raw_empty_manifest.json"))
	if err != nil {
		t.Fatalf("expected placeholder manifest: %v", err)
	}
	if !strings.Contains(string(manifest), "sample_01.raw.empty") ||
		!strings.Contains(string(manifest), "sample_02.raw.empty") {
		t.Errorf("manifest must list every pair, got:\n%s", manifest)
	}
}

func TestCreatePlaceholdersIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "raw_empty")
	raws := []string{"/data/raw/sample_01.raw"}

	if _, err := CreatePlaceholders(dir, raws); err != nil {
		t.Fatalf("first run returned error: %v", err)
	}
	created, err := CreatePlaceholders(dir, raws)
	if err != nil {
		t.Fatalf("second run returned error: %v", err)
	}
	if created != 0 {
		t.Errorf("re-run must create nothing, got %d", created)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list dir: %v", err)
	}
	// placeholder + README + manifest
	if len(entries) != 3 {
		t.Errorf("re-run must not duplicate artifacts, dir has %d entries", len(entries))
	}
}
