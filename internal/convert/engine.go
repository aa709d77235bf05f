package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pxdflow/pxdflow/internal/rawfile"
)

var commandContext = exec.CommandContext

const (
	defaultConvertBinary  = "msconvert"
	defaultBitDepth       = 64
	defaultConvertTimeout = 600

	// Number of trailing output lines surfaced in a failure message. The full
	// stream is always in the log file.
	logTailLines = 20
)

// Options configure the external conversion engine.
type Options struct {
	Binary         string `json:"binary"`
	Centroid       string `json:"centroid"`
	Gzip           bool   `json:"gzip"`
	BitDepth       int    `json:"bit_depth"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults applies default values for unset fields.
func (o *Options) SetDefaults() {
	if o.Binary == "" {
		o.Binary = defaultConvertBinary
	}
	if o.Centroid == "" {
		o.Centroid = "none"
	}
	if o.BitDepth == 0 {
		o.BitDepth = defaultBitDepth
	}
	if o.TimeoutSeconds == 0 {
		o.TimeoutSeconds = defaultConvertTimeout
	}
}

// Validate checks the options for correctness.
func (o *Options) Validate() error {
	if o.Binary == "" {
		return fmt.Errorf("binary cannot be empty")
	}
	switch o.Centroid {
	case "none", "vendor", "cwt":
	default:
		return fmt.Errorf("centroid must be none, vendor or cwt, got %q", o.Centroid)
	}
	if o.BitDepth != 32 && o.BitDepth != 64 {
		return fmt.Errorf("bit depth must be 32 or 64, got %d", o.BitDepth)
	}
	if o.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", o.TimeoutSeconds)
	}
	return nil
}

// RoleOutput describes one derived output of a conversion.
type RoleOutput struct {
	Path    string
	Size    int64
	SHA256  string
	Skipped bool
}

// Result holds both derived outputs of one acquisition file.
type Result struct {
	Input string
	MS1   RoleOutput
	MS2   RoleOutput
}

// Engine converts vendor acquisition files into per-level mzML outputs by
// invoking the external conversion binary once per role. Outputs land in
// fixed per-role directories with names derived from the input's stem, which
// makes re-runs idempotent.
type Engine struct {
	opts   Options
	ms1Dir string
	ms2Dir string
	logDir string
	logger *slog.Logger
}

// NewEngine creates an engine writing into the given per-role and log
// directories, creating them if needed.
func NewEngine(opts Options, ms1Dir, ms2Dir, logDir string, logger *slog.Logger) (*Engine, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid conversion options: %w", err)
	}
	for _, dir := range []string{ms1Dir, ms2Dir, logDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &Engine{
		opts:   opts,
		ms1Dir: ms1Dir,
		ms2Dir: ms2Dir,
		logDir: logDir,
		logger: logger,
	}, nil
}

// CheckBinary verifies the conversion binary can be located. A missing binary
// is a fatal condition and callers should abort the run before any work.
func (e *Engine) CheckBinary() error {
	if _, err := exec.LookPath(e.opts.Binary); err != nil {
		return fmt.Errorf("conversion binary not found: %w", err)
	}
	return nil
}

// Convert produces the ms1 and ms2 outputs for one primary acquisition file.
// A role whose output already exists non-empty is skipped and reported as
// already successful. Any role failure aborts the remaining roles for this
// input; the caller isolates the failure and continues with the next file.
func (e *Engine) Convert(ctx context.Context, inputPath string) (*Result, error) {
	stem := rawfile.Stem(filepath.Base(inputPath))
	result := &Result{Input: inputPath}

	roles := []struct {
		tag    string
		filter string
		dir    string
		out    *RoleOutput
	}{
		{"ms1", "msLevel 1", e.ms1Dir, &result.MS1},
		{"ms2", "msLevel 2-", e.ms2Dir, &result.MS2},
	}

	for _, role := range roles {
		out, err := e.convertRole(ctx, inputPath, stem, role.tag, role.filter, role.dir)
		if err != nil {
			return nil, err
		}
		*role.out = out
	}
	return result, nil
}

func (e *Engine) convertRole(ctx context.Context, input, stem, tag, levelFilter, outDir string) (RoleOutput, error) {
	outName := stem + "." + tag + e.outputSuffix()
	outPath := filepath.Join(outDir, outName)
	logPath := filepath.Join(e.logDir, stem+"."+tag+".msconvert.log")

	if size, ok := nonEmptyFile(outPath); ok {
		e.logger.Info("Output already present, skipping conversion.",
			"role", tag, "output", outPath)
		digest, err := SHA256File(outPath)
		if err != nil {
			return RoleOutput{}, fmt.Errorf("failed to digest existing output %s: %w", outPath, err)
		}
		return RoleOutput{Path: outPath, Size: size, SHA256: digest, Skipped: true}, nil
	}

	args := []string{input, "--mzML", fmt.Sprintf("--%d", e.opts.BitDepth), "-o", outDir, "--outfile", outName}
	if e.opts.Gzip {
		args = append(args, "--gzip")
	}
	// Centroiding filters must precede the level filter; the engine applies
	// filter stages in the order given.
	for _, f := range append(e.prefixFilters(), levelFilter) {
		args = append(args, "--filter", f)
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(e.opts.TimeoutSeconds)*time.Second)
	defer cancel()

	e.logger.Info("Invoking conversion engine.", "role", tag, "input", input)
	cmd := commandContext(runCtx, e.opts.Binary, args...)
	output, runErr := cmd.CombinedOutput()

	if writeErr := os.WriteFile(logPath, output, 0644); writeErr != nil {
		e.logger.Warn("Failed to write conversion log.", "path", logPath, "error", writeErr)
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return RoleOutput{}, fmt.Errorf("%s conversion of %s timed out after %ds (log: %s)",
			tag, input, e.opts.TimeoutSeconds, logPath)
	}
	if runErr != nil {
		return RoleOutput{}, fmt.Errorf("%s conversion of %s failed: %v (log: %s)\n%s",
			tag, input, runErr, logPath, tailLines(output, logTailLines))
	}

	size, ok := nonEmptyFile(outPath)
	if !ok {
		return RoleOutput{}, fmt.Errorf("%s conversion produced no or empty output %s (log: %s)",
			tag, outPath, logPath)
	}
	digest, err := SHA256File(outPath)
	if err != nil {
		return RoleOutput{}, fmt.Errorf("failed to digest output %s: %w", outPath, err)
	}
	return RoleOutput{Path: outPath, Size: size, SHA256: digest}, nil
}

func (e *Engine) outputSuffix() string {
	if e.opts.Gzip {
		return ".mzML.gz"
	}
	return ".mzML"
}

func (e *Engine) prefixFilters() []string {
	switch e.opts.Centroid {
	case "vendor":
		return []string{"peakPicking vendor msLevel=1-", "metadataFixer"}
	case "cwt":
		return []string{"peakPicking cwt msLevel=1-", "metadataFixer"}
	default:
		return nil
	}
}

// nonEmptyFile reports whether path exists as a regular file with content.
func nonEmptyFile(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return 0, false
	}
	return info.Size(), true
}

// tailLines returns the last n lines of a command's combined output.
func tailLines(output []byte, n int) string {
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
