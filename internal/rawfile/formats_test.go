package rawfile

import (
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		entry    string
		isDir    bool
		expected FormatFamily
		ok       bool
	}{
		{"thermo raw", "sample_01.raw", false, FamilyThermoRaw, true},
		{"thermo raw uppercase", "SAMPLE_01.RAW", false, FamilyThermoRaw, true},
		{"wiff primary", "run_a.wiff", false, FamilyWiff, true},
		{"wiff2 primary", "run_a.wiff2", false, FamilyWiff2, true},
		{"wiff companion", "run_a.wiff.scan", false, FamilyWiffScan, true},
		{"wiff2 companion", "run_a.wiff2.scan", false, FamilyWiff2Scan, true},
		{"mixed case companion", "Run_A.Wiff.Scan", false, FamilyWiffScan, true},
		{"bruker directory", "run_a.d", true, FamilyBrukerD, true},
		{"bruker suffix on plain file", "run_a.d", false, FamilyUnknown, false},
		{"raw suffix on directory", "sample_01.raw", true, FamilyUnknown, false},
		{"unrelated file", "notes.txt", false, FamilyUnknown, false},
		{"mzml output", "sample_01.mzML", false, FamilyUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			family, ok := Resolve(tt.entry, tt.isDir)
			if ok != tt.ok {
				t.Fatalf("Resolve(%q, %v) ok = %v, expected %v", tt.entry, tt.isDir, ok, tt.ok)
			}
			if family != tt.expected {
				t.Errorf("Resolve(%q, %v) = %v, expected %v", tt.entry, tt.isDir, family, tt.expected)
			}
		})
	}
}

func TestResolveTwoPartSuffixesShadowSinglePart(t *testing.T) {
	// A name ending in .wiff.scan also ends in .scan's prefix .wiff; the
	// longest suffix must win or the companion would be converted as a primary.
	family, ok := Resolve("20240115_plasma.wiff.scan", false)
	if !ok {
		t.Fatal("expected .wiff.scan to be a candidate")
	}
	if family == FamilyWiff {
		t.Fatal("two-part .wiff.scan was classified as single-part .wiff")
	}
	if family != FamilyWiffScan {
		t.Errorf("expected FamilyWiffScan, got %v", family)
	}

	family, ok = Resolve("20240115_plasma.wiff2.scan", false)
	if !ok {
		t.Fatal("expected .wiff2.scan to be a candidate")
	}
	if family != FamilyWiff2Scan {
		t.Errorf("expected FamilyWiff2Scan, got %v", family)
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"sample_01.raw", "sample_01"},
		{"run_a.wiff", "run_a"},
		{"run_a.wiff.scan", "run_a"},
		{"run_a.wiff2.scan", "run_a"},
		{"run_a.d", "run_a"},
		{"no_known_suffix.txt", "no_known_suffix.txt"},
		{"archive.raw.raw", "archive.raw"},
	}

	for _, tt := range tests {
		if got := Stem(tt.input); got != tt.expected {
			t.Errorf("Stem(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestIsCompanion(t *testing.T) {
	if !IsCompanion("run_a.wiff.scan") {
		t.Error("expected .wiff.scan to be a companion")
	}
	if !IsCompanion("RUN_A.WIFF2.SCAN") {
		t.Error("expected .wiff2.scan to be a companion regardless of case")
	}
	if IsCompanion("run_a.wiff") {
		t.Error(".wiff primary must not be a companion")
	}
	if IsCompanion("sample_01.raw") {
		t.Error(".raw must not be a companion")
	}
}

func TestRequiresCompanion(t *testing.T) {
	suffix, ok := RequiresCompanion(FamilyWiff)
	if !ok || suffix != ".wiff.scan" {
		t.Errorf("FamilyWiff companion = (%q, %v), expected (.wiff.scan, true)", suffix, ok)
	}

	suffix, ok = RequiresCompanion(FamilyWiff2)
	if !ok || suffix != ".wiff2.scan" {
		t.Errorf("FamilyWiff2 companion = (%q, %v), expected (.wiff2.scan, true)", suffix, ok)
	}

	for _, family := range []FormatFamily{FamilyThermoRaw, FamilyBrukerD, FamilyWiffScan, FamilyWiff2Scan} {
		if _, ok := RequiresCompanion(family); ok {
			t.Errorf("family %v must not require a companion", family)
		}
	}
}
