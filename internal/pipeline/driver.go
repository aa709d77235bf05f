package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"

	"github.com/pxdflow/pxdflow/internal/convert"
	"github.com/pxdflow/pxdflow/internal/manifest"
	"github.com/pxdflow/pxdflow/internal/rawfile"
	"github.com/pxdflow/pxdflow/internal/state"
)

// Pipeline stages, persisted to the stage file as the run progresses.
const (
	StageScanning       = "Scanning"
	StageDownloading    = "Downloading"
	StagePairValidating = "PairValidating"
	StageConverting     = "Converting"
	StageFinalizing     = "Finalizing"
	StageDone           = "Done"
	StageFailed         = "Failed"
)

// Dataset verdicts.
const (
	VerdictComplete   = "complete"
	VerdictIncomplete = "incomplete"
)

// Downloader populates a local directory with an accession's files and
// reports which backend did the work.
type Downloader interface {
	Run(ctx context.Context, accession, destDir string) (string, error)
}

// Converter produces the per-level outputs for one acquisition file.
type Converter interface {
	CheckBinary() error
	Convert(ctx context.Context, inputPath string) (*convert.Result, error)
}

// Config carries the explicit settings for a pipeline run. There are no
// process-wide defaults; the caller constructs one Config and hands it over.
type Config struct {
	OutputRoot   string
	DownloadOnly bool
	Convert      convert.Options
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.OutputRoot == "" {
		return fmt.Errorf("output root cannot be empty")
	}
	c.Convert.SetDefaults()
	if err := c.Convert.Validate(); err != nil {
		return fmt.Errorf("invalid conversion options: %w", err)
	}
	return nil
}

// DatasetResult summarizes one dataset run.
type DatasetResult struct {
	PXD          string
	Verdict      string
	Downloader   string
	Converted    int
	Errors       int
	PairProblems []string
	ManifestPath string
}

// Driver sequences one dataset through the pipeline stages. Item-level
// conversion failures are recorded in the manifest and never abort the batch;
// only conditions the run cannot recover from (no download backend left, a
// missing conversion binary, an unwritable output root) surface as errors.
type Driver struct {
	cfg        Config
	downloader Downloader
	logger     *slog.Logger

	// Swapped in tests.
	newConverter func(ms1Dir, ms2Dir, logDir string) (Converter, error)
}

// NewDriver constructs a driver. A nil downloader means the raw directory is
// expected to be pre-populated (convert-only mode).
func NewDriver(cfg Config, downloader Downloader, logger *slog.Logger) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{
		cfg:        cfg,
		downloader: downloader,
		logger:     logger,
	}
	d.newConverter = func(ms1Dir, ms2Dir, logDir string) (Converter, error) {
		return convert.NewEngine(cfg.Convert, ms1Dir, ms2Dir, logDir, logger)
	}
	return d, nil
}

// Run processes one accession end to end and returns its verdict.
func (d *Driver) Run(ctx context.Context, pxd string) (*DatasetResult, error) {
	root := filepath.Join(d.cfg.OutputRoot, pxd)
	logger := d.logger.With("pxd", pxd, "run_id", uuid.NewString())

	mgr, err := state.NewManager(root, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output root for %s: %w", pxd, err)
	}
	defer mgr.Close()

	if prev, err := mgr.ReadStage(); err != nil {
		logger.Warn("Could not read persisted stage.", "error", err)
	} else if prev != "" {
		logger.Info("Found earlier run of this dataset.", "previous_stage", prev)
	}

	result, err := d.runStages(ctx, mgr, root, pxd, logger)
	if err != nil {
		d.setStage(mgr, StageFailed, logger)
		return nil, err
	}
	d.setStage(mgr, StageDone, logger)
	return result, nil
}

func (d *Driver) runStages(ctx context.Context, mgr *state.Manager, root, pxd string, logger *slog.Logger) (*DatasetResult, error) {
	rawDir := filepath.Join(root, "raw")
	result := &DatasetResult{PXD: pxd, Downloader: "skipped"}

	d.setStage(mgr, StageScanning, logger)

	if d.downloader != nil {
		d.setStage(mgr, StageDownloading, logger)
		tag, err := d.downloader.Run(ctx, pxd, rawDir)
		if err != nil {
			return nil, fmt.Errorf("download of %s failed: %w", pxd, err)
		}
		result.Downloader = tag
	}

	scan, err := rawfile.Scan(rawDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan raw directory for %s: %w", pxd, err)
	}
	logger.Info("Scanned raw directory.",
		"candidates", len(scan.Root), "primaries", len(scan.Primaries))

	d.setStage(mgr, StagePairValidating, logger)
	result.PairProblems = rawfile.ValidatePairs(scan.Root)
	for _, problem := range result.PairProblems {
		logger.Warn("Pair validation problem.", "problem", problem)
	}

	report := manifest.DownloadReport{
		PXD:          pxd,
		Downloader:   result.Downloader,
		RawCount:     len(scan.Root),
		RawFiles:     scan.Root.Paths(),
		PairProblems: result.PairProblems,
	}
	if err := manifest.WriteDownloadReport(filepath.Join(root, "download_report.json"), report); err != nil {
		return nil, err
	}

	// Placeholders mark which raw files were present, companions included,
	// so they are written even when conversion is skipped.
	if _, err := manifest.CreatePlaceholders(filepath.Join(root, "raw_empty"), scan.Root.Paths()); err != nil {
		return nil, err
	}

	if d.cfg.DownloadOnly {
		result.Verdict = VerdictComplete
		return result, nil
	}

	d.setStage(mgr, StageConverting, logger)
	builder, durations, err := d.convertAll(ctx, root, pxd, scan.Primaries, logger)
	if err != nil {
		return nil, err
	}

	d.setStage(mgr, StageFinalizing, logger)

	manifestPath := filepath.Join(root, "conversion_manifest.json")
	if err := builder.Write(manifestPath); err != nil {
		return nil, err
	}
	result.ManifestPath = manifestPath
	result.Converted, result.Errors = builder.Counts()

	if durations.TotalCount() > 0 {
		logger.Info("Conversion durations.",
			"p50_ms", durations.ValueAtQuantile(50),
			"p95_ms", durations.ValueAtQuantile(95),
			"max_ms", durations.Max())
	}

	result.Verdict = VerdictIncomplete
	if result.Converted == len(scan.Primaries) {
		result.Verdict = VerdictComplete
	}
	return result, nil
}

func (d *Driver) convertAll(ctx context.Context, root, pxd string, primaries []rawfile.Candidate, logger *slog.Logger) (*manifest.Builder, *hdrhistogram.Histogram, error) {
	converter, err := d.newConverter(
		filepath.Join(root, "triada", "ms1"),
		filepath.Join(root, "triada", "ms2"),
		filepath.Join(root, "logs"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up conversion for %s: %w", pxd, err)
	}
	if err := converter.CheckBinary(); err != nil {
		return nil, nil, err
	}

	builder := manifest.NewBuilder(pxd)
	durations := hdrhistogram.New(1, 3_600_000, 3)

	for i, candidate := range primaries {
		logger.Info("Converting acquisition file.",
			"file", candidate.Name, "progress", fmt.Sprintf("%d/%d", i+1, len(primaries)))

		start := time.Now()
		res, err := converter.Convert(ctx, candidate.Path)
		if err != nil {
			logger.Warn("Conversion failed, continuing with next file.",
				"file", candidate.Name, "error", err)
			builder.AddError(candidate.Path, err)
			continue
		}
		if recErr := durations.RecordValue(time.Since(start).Milliseconds()); recErr != nil {
			logger.Warn("Failed to record conversion duration.", "error", recErr)
		}
		builder.AddConversion(manifest.ConversionRecord{
			Input:     res.Input,
			MS1:       res.MS1.Path,
			MS2:       res.MS2.Path,
			MS1Size:   res.MS1.Size,
			MS2Size:   res.MS2.Size,
			MS1SHA256: res.MS1.SHA256,
			MS2SHA256: res.MS2.SHA256,
		})
	}
	return builder, durations, nil
}

func (d *Driver) setStage(mgr *state.Manager, stage string, logger *slog.Logger) {
	if err := mgr.WriteStage(stage); err != nil {
		logger.Warn("Failed to persist pipeline stage.", "stage", stage, "error", err)
		return
	}
	logger.Info("Entering stage.", "stage", stage)
}
