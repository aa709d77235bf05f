package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	defaultExtractBinary  = "xtract_xml"
	defaultExtractTimeout = 300
)

// ExtractorOptions configure the external per-scan record extractor.
type ExtractorOptions struct {
	Binary         string `json:"binary"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults applies default values for unset fields.
func (o *ExtractorOptions) SetDefaults() {
	if o.Binary == "" {
		o.Binary = defaultExtractBinary
	}
	if o.TimeoutSeconds == 0 {
		o.TimeoutSeconds = defaultExtractTimeout
	}
}

// Validate checks the options for correctness.
func (o *ExtractorOptions) Validate() error {
	if o.Binary == "" {
		return fmt.Errorf("binary cannot be empty")
	}
	if o.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", o.TimeoutSeconds)
	}
	return nil
}

// Extractor wraps the external extractor that turns an mzML file into
// per-scan .ms1 and .ms2 record files. It carries the same idempotency and
// verification contract as the conversion engine.
type Extractor struct {
	opts   ExtractorOptions
	outDir string
	logger *slog.Logger
}

// NewExtractor creates an extractor writing into outDir, creating it if
// needed.
func NewExtractor(opts ExtractorOptions, outDir string, logger *slog.Logger) (*Extractor, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extractor options: %w", err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", outDir, err)
	}
	return &Extractor{opts: opts, outDir: outDir, logger: logger}, nil
}

// CheckBinary verifies the extractor binary can be located.
func (x *Extractor) CheckBinary() error {
	if _, err := exec.LookPath(x.opts.Binary); err != nil {
		return fmt.Errorf("extractor binary not found: %w", err)
	}
	return nil
}

// Extract runs the extractor on one mzML file. It reports whether an
// invocation actually happened; an input whose .ms1 output already exists
// non-empty is skipped.
func (x *Extractor) Extract(ctx context.Context, mzmlPath string) (bool, error) {
	stem := mzmlStem(filepath.Base(mzmlPath))
	ms1Out := filepath.Join(x.outDir, stem+".ms1")

	if _, ok := nonEmptyFile(ms1Out); ok {
		x.logger.Info("Records already extracted, skipping.", "input", mzmlPath)
		return false, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(x.opts.TimeoutSeconds)*time.Second)
	defer cancel()

	x.logger.Info("Invoking record extractor.", "input", mzmlPath)
	cmd := commandContext(runCtx, x.opts.Binary, "-ms", "-o", x.outDir, mzmlPath)
	// The extractor resolves its auxiliary files relative to its own location.
	if dir := filepath.Dir(x.opts.Binary); dir != "." {
		cmd.Dir = dir
	}
	output, runErr := cmd.CombinedOutput()

	if runCtx.Err() == context.DeadlineExceeded {
		return false, fmt.Errorf("extraction of %s timed out after %ds", mzmlPath, x.opts.TimeoutSeconds)
	}
	if runErr != nil {
		return false, fmt.Errorf("extraction of %s failed: %v\n%s",
			mzmlPath, runErr, tailLines(output, logTailLines))
	}
	if _, ok := nonEmptyFile(ms1Out); !ok {
		return false, fmt.Errorf("extraction produced no or empty output %s", ms1Out)
	}
	return true, nil
}

// RenameFragmentOutputs normalizes extractor fragment files that carry extra
// name parts, e.g. sample.HCD.FTMS.ms2 becomes sample.ms2. A stale target
// left by an interrupted run is replaced.
func (x *Extractor) RenameFragmentOutputs() (int, error) {
	entries, err := filepath.Glob(filepath.Join(x.outDir, "*.ms2"))
	if err != nil {
		return 0, fmt.Errorf("failed to list fragment outputs: %w", err)
	}

	renamed := 0
	for _, path := range entries {
		base := filepath.Base(path)
		if strings.Count(base, ".") <= 1 {
			continue
		}
		stem := base[:strings.Index(base, ".")]
		target := filepath.Join(x.outDir, stem+".ms2")
		if _, err := os.Stat(target); err == nil {
			if err := os.Remove(target); err != nil {
				return renamed, fmt.Errorf("failed to replace %s: %w", target, err)
			}
		}
		if err := os.Rename(path, target); err != nil {
			return renamed, fmt.Errorf("failed to rename %s: %w", path, err)
		}
		renamed++
	}
	return renamed, nil
}

// Cleanup removes the .rawInfo and .xtract temp files the extractor leaves
// behind.
func (x *Extractor) Cleanup() (int, error) {
	removed := 0
	for _, pattern := range []string{"*.rawInfo", "*.xtract"} {
		entries, err := filepath.Glob(filepath.Join(x.outDir, pattern))
		if err != nil {
			return removed, fmt.Errorf("failed to list temp files: %w", err)
		}
		for _, path := range entries {
			if err := os.Remove(path); err != nil {
				return removed, fmt.Errorf("failed to remove %s: %w", path, err)
			}
			removed++
		}
	}
	return removed, nil
}

// CreateRawPlaceholders writes an empty .raw file into rawDataDir for every
// extracted .ms1 record. Existing placeholders are never touched.
func (x *Extractor) CreateRawPlaceholders(rawDataDir string) (int, error) {
	if err := os.MkdirAll(rawDataDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory %s: %w", rawDataDir, err)
	}
	entries, err := filepath.Glob(filepath.Join(x.outDir, "*.ms1"))
	if err != nil {
		return 0, fmt.Errorf("failed to list record files: %w", err)
	}
	sort.Strings(entries)

	created := 0
	for _, path := range entries {
		stem := strings.TrimSuffix(filepath.Base(path), ".ms1")
		placeholder := filepath.Join(rawDataDir, stem+".raw")
		if _, err := os.Stat(placeholder); err == nil {
			continue
		}
		if err := os.WriteFile(placeholder, nil, 0644); err != nil {
			return created, fmt.Errorf("failed to create placeholder %s: %w", placeholder, err)
		}
		created++
	}
	return created, nil
}

// mzmlStem strips the mzML suffix, gzipped or not.
func mzmlStem(name string) string {
	for _, suffix := range []string{".mzML.gz", ".mzml.gz", ".mzML", ".mzml"} {
		if strings.HasSuffix(name, suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}
