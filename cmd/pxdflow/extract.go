package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pxdflow/pxdflow/internal/convert"
	"github.com/pxdflow/pxdflow/internal/logging"
)

var (
	extractInDir    string
	extractOutDir   string
	extractRawDir   string
	xtractPath      string
	extractTimeout  int
	extractLogLevel string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract per-scan .ms1/.ms2 records from mzML files",
	Long: `Run the external per-scan extractor over a directory of mzML files,
producing .ms1 and .ms2 record files, normalizing fragment output names and
creating empty .raw placeholders for downstream tooling.

Already-extracted inputs are skipped, so an interrupted batch can be re-run
safely. Failures of individual files are logged and do not stop the batch.

Examples:
  pxdflow extract --in /data/pxd/PXD046034/triada/ms2 --out /data/pxd/PXD046034/ms1_ms2
  pxdflow extract --in mzML/ --out MS1_MS2/ --raw-data RawData/ --xtract /opt/xtract_xml`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractInDir, "in", "", "Directory of mzML input files (required)")
	extractCmd.Flags().StringVar(&extractOutDir, "out", "", "Directory for .ms1/.ms2 record files (required)")
	extractCmd.Flags().StringVar(&extractRawDir, "raw-data", "", "Directory for empty .raw placeholders (optional)")
	extractCmd.Flags().StringVar(&xtractPath, "xtract", "xtract_xml", "Path to the extractor binary")
	extractCmd.Flags().IntVar(&extractTimeout, "timeout", 300, "Per-invocation extraction timeout in seconds")
	extractCmd.Flags().StringVar(&extractLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	extractCmd.MarkFlagRequired("in")
	extractCmd.MarkFlagRequired("out")
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger, logFile := logging.New(extractOutDir, "", extractLogLevel)
	if logFile != nil {
		defer logFile.Close()
	}

	extractor, err := convert.NewExtractor(convert.ExtractorOptions{
		Binary:         xtractPath,
		TimeoutSeconds: extractTimeout,
	}, extractOutDir, logger)
	if err != nil {
		return err
	}
	if err := extractor.CheckBinary(); err != nil {
		return err
	}

	var inputs []string
	for _, pattern := range []string{"*.mzML", "*.mzML.gz"} {
		matches, err := filepath.Glob(filepath.Join(extractInDir, pattern))
		if err != nil {
			return fmt.Errorf("could not list %s: %v", extractInDir, err)
		}
		inputs = append(inputs, matches...)
	}
	sort.Strings(inputs)

	if len(inputs) == 0 {
		return fmt.Errorf("no mzML files found in %s", extractInDir)
	}

	extracted, skipped, failed := 0, 0, 0
	for i, input := range inputs {
		logger.Info("Extracting records.",
			"file", filepath.Base(input), "progress", fmt.Sprintf("%d/%d", i+1, len(inputs)))

		ran, err := extractor.Extract(cmd.Context(), input)
		switch {
		case err != nil:
			logger.Warn("Extraction failed, continuing with next file.",
				"file", filepath.Base(input), "error", err)
			failed++
		case ran:
			extracted++
		default:
			skipped++
		}
	}

	renamed, err := extractor.RenameFragmentOutputs()
	if err != nil {
		return err
	}

	removed, err := extractor.Cleanup()
	if err != nil {
		return err
	}

	placeholders := 0
	if extractRawDir != "" {
		placeholders, err = extractor.CreateRawPlaceholders(extractRawDir)
		if err != nil {
			return err
		}
	}

	fmt.Printf("\nExtracted: %d  Skipped: %d  Failed: %d\n", extracted, skipped, failed)
	fmt.Printf("Renamed %d fragment file(s), removed %d temp file(s)", renamed, removed)
	if extractRawDir != "" {
		fmt.Printf(", created %d placeholder(s)", placeholders)
	}
	fmt.Println()

	if failed > 0 {
		logger.Warn("Some files failed extraction.", "failed", failed)
	}
	return nil
}
