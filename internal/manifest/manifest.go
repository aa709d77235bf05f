package manifest

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ConversionRecord describes one completed conversion: the source acquisition
// file and both derived outputs with their sizes and digests. A record exists
// only for conversions whose outputs were verified non-empty.
type ConversionRecord struct {
	Input     string `json:"input"`
	MS1       string `json:"ms1"`
	MS2       string `json:"ms2"`
	MS1Size   int64  `json:"ms1_size"`
	MS2Size   int64  `json:"ms2_size"`
	MS1SHA256 string `json:"ms1_sha256"`
	MS2SHA256 string `json:"ms2_sha256"`
}

// ErrorEntry describes one failed conversion.
type ErrorEntry struct {
	Input string `json:"input"`
	Error string `json:"error"`
}

// Manifest is the provenance record of one dataset run. Its content is a
// function of the outputs alone, so a re-run over completed outputs writes
// byte-identical JSON.
type Manifest struct {
	PXD            string             `json:"pxd"`
	Conversions    []ConversionRecord `json:"conversions"`
	Errors         []ErrorEntry       `json:"errors"`
	TotalConverted int                `json:"total_converted"`
	TotalErrors    int                `json:"total_errors"`
}

// DownloadReport records which backend populated the raw directory and what
// it found there.
type DownloadReport struct {
	PXD          string   `json:"pxd"`
	Downloader   string   `json:"downloader"`
	RawCount     int      `json:"raw_count"`
	RawFiles     []string `json:"raw_files"`
	PairProblems []string `json:"pair_problems"`
}

// Builder accumulates conversion records and error entries during a run. The
// manifest is written once, at the end, never mutated in place.
type Builder struct {
	pxd         string
	conversions []ConversionRecord
	errors      []ErrorEntry
}

// NewBuilder creates a builder for one dataset run.
func NewBuilder(pxd string) *Builder {
	return &Builder{pxd: pxd}
}

// AddConversion appends a completed conversion.
func (b *Builder) AddConversion(record ConversionRecord) {
	b.conversions = append(b.conversions, record)
}

// AddError appends a failed conversion.
func (b *Builder) AddError(input string, err error) {
	b.errors = append(b.errors, ErrorEntry{Input: input, Error: err.Error()})
}

// Counts returns the number of conversions and errors accumulated so far.
func (b *Builder) Counts() (converted, failed int) {
	return len(b.conversions), len(b.errors)
}

// Build assembles the manifest. Empty collections serialize as [] rather
// than null.
func (b *Builder) Build() Manifest {
	conversions := b.conversions
	if conversions == nil {
		conversions = []ConversionRecord{}
	}
	errs := b.errors
	if errs == nil {
		errs = []ErrorEntry{}
	}
	return Manifest{
		PXD:            b.pxd,
		Conversions:    conversions,
		Errors:         errs,
		TotalConverted: len(conversions),
		TotalErrors:    len(errs),
	}
}

// Write serializes the manifest atomically to path.
func (b *Builder) Write(path string) error {
	manifest := b.Build()
	return WriteJSON(path, manifest)
}

// WriteDownloadReport serializes the report atomically to path.
func WriteDownloadReport(path string, report DownloadReport) error {
	if report.RawFiles == nil {
		report.RawFiles = []string{}
	}
	if report.PairProblems == nil {
		report.PairProblems = []string{}
	}
	return WriteJSON(path, report)
}

// WriteJSON writes v as indented JSON via a temp file and rename, so readers
// never observe a partially written artifact.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}
