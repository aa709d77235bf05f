package manifest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleRecord(input string) ConversionRecord {
	return ConversionRecord{
		Input:     input,
		MS1:       "/out/triada/ms1/sample_01.ms1.mzML",
		MS2:       "/out/triada/ms2/sample_01.ms2.mzML",
		MS1Size:   1024,
		MS2Size:   2048,
		MS1SHA256: strings.Repeat("a", 64),
		MS2SHA256: strings.Repeat("b", 64),
	}
}

func TestBuilderAccumulates(t *testing.T) {
	builder := NewBuilder("PXD000001")
	builder.AddConversion(sampleRecord("/raw/sample_01.raw"))
	builder.AddConversion(sampleRecord("/raw/sample_02.raw"))
	builder.AddError("/raw/sample_03.raw", errors.New("conversion timed out"))

	converted, failed := builder.Counts()
	if converted != 2 || failed != 1 {
		t.Errorf("Counts() = (%d, %d), expected (2, 1)", converted, failed)
	}

	manifest := builder.Build()
	if manifest.TotalConverted != 2 || manifest.TotalErrors != 1 {
		t.Errorf("totals = (%d, %d), expected (2, 1)", manifest.TotalConverted, manifest.TotalErrors)
	}
	if manifest.Errors[0].Error != "conversion timed out" {
		t.Errorf("unexpected error entry %q", manifest.Errors[0].Error)
	}
}

func TestWriteManifestKeys(t *testing.T) {
	builder := NewBuilder("PXD000001")
	builder.AddConversion(sampleRecord("/raw/sample_01.raw"))

	path := filepath.Join(t.TempDir(), "conversion_manifest.json")
	if err := builder.Write(path); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	content := string(data)
	for _, key := range []string{
		`"pxd"`, `"conversions"`, `"errors"`,
		`"total_converted"`, `"total_errors"`,
		`"input"`, `"ms1"`, `"ms2"`, `"ms1_size"`, `"ms2_size"`,
		`"ms1_sha256"`, `"ms2_sha256"`,
	} {
		if !strings.Contains(content, key) {
			t.Errorf("expected key %s in manifest, got:\n%s", key, content)
		}
	}
}

func TestWriteManifestIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	paths := [2]string{
		filepath.Join(dir, "first.json"),
		filepath.Join(dir, "second.json"),
	}
	var contents [2][]byte

	// Two builders fed the same records must write identical bytes, so a
	// re-run over completed outputs never churns the manifest.
	for i, path := range paths {
		builder := NewBuilder("PXD000001")
		builder.AddConversion(sampleRecord("/raw/sample_01.raw"))
		builder.AddError("/raw/sample_02.raw", errors.New("conversion timed out"))
		if err := builder.Write(path); err != nil {
			t.Fatalf("Write returned error: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read manifest: %v", err)
		}
		contents[i] = data
	}

	if !bytes.Equal(contents[0], contents[1]) {
		t.Errorf("manifests differ:\n%s\nvs\n%s", contents[0], contents[1])
	}
}

func TestWriteEmptyManifestUsesArrays(t *testing.T) {
	builder := NewBuilder("PXD000002")

	path := filepath.Join(t.TempDir(), "conversion_manifest.json")
	if err := builder.Write(path); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	if strings.Contains(string(data), "null") {
		t.Errorf("empty collections must serialize as arrays, got:\n%s", data)
	}
}

func TestWriteJSONLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.json")
	if err := WriteJSON(path, map[string]int{"a": 1}); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected artifact at %s: %v", path, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file must not survive a successful write")
	}
}

func TestWriteDownloadReportDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "download_report.json")
	report := DownloadReport{PXD: "PXD000003", Downloader: "skipped"}
	if err := WriteDownloadReport(path, report); err != nil {
		t.Fatalf("WriteDownloadReport returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	content := string(data)
	for _, key := range []string{`"pxd"`, `"downloader"`, `"raw_count"`, `"raw_files"`, `"pair_problems"`} {
		if !strings.Contains(content, key) {
			t.Errorf("expected key %s in report, got:\n%s", key, content)
		}
	}
	if strings.Contains(content, "null") {
		t.Errorf("empty collections must serialize as arrays, got:\n%s", content)
	}
}
