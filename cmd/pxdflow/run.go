package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pxdflow/pxdflow/internal/config"
	"github.com/pxdflow/pxdflow/internal/convert"
	"github.com/pxdflow/pxdflow/internal/download"
	"github.com/pxdflow/pxdflow/internal/logging"
	"github.com/pxdflow/pxdflow/internal/pipeline"
)

var (
	outputRoot      string
	endpointName    string
	endpointsFile   string
	protocol        string
	noChecksum      bool
	retryLimit      int
	downloadTimeout int
	proxyURL        string
	msconvertPath   string
	centroidMode    string
	gzipOutput      bool
	bitDepth        int
	convertTimeout  int
	downloadOnly    bool
	convertOnly     bool
	logLevel        string
	configFile      string
)

var runCmd = &cobra.Command{
	Use:   "run <PXD...>",
	Short: "Download and convert ProteomeXchange datasets",
	Long: `Run the full pipeline for one or more ProteomeXchange accessions: download
the vendor acquisition files, validate companion pairs, convert every primary
file into MS1-only and MS2-only mzML outputs and write the provenance
manifests.

Datasets are processed one at a time. Conversion failures of individual files
are recorded in the manifest and do not stop the batch; the command exits
non-zero only when a dataset hits a fatal condition (no download backend left,
missing conversion binary, unwritable output root).

Examples:
  # Single accession
  pxdflow run PXD046034 --out /data/pxd

  # Several accessions with vendor centroiding and gzipped output
  pxdflow run PXD046034 PXD046035 --out /data/pxd --centroid vendor --gzip

  # Re-run after an interruption; completed outputs are skipped
  pxdflow run PXD046034 --out /data/pxd

  # Convert a pre-populated raw/ directory without downloading
  pxdflow run PXD046034 --out /data/pxd --convert-only

  # Download only, through a SOCKS5 proxy
  pxdflow run PXD046034 --out /data/pxd --download-only --proxy socks5://localhost:1080`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&outputRoot, "out", "o", "", "Output root directory (required)")
	runCmd.Flags().StringVar(&endpointName, "endpoint", "pride", "Repository endpoint name")
	runCmd.Flags().StringVar(&endpointsFile, "endpoints-file", "", "Endpoint registry override file")
	runCmd.Flags().StringVar(&protocol, "protocol", "ftp", "Primary download protocol (ftp, aspera, globus, s3)")
	runCmd.Flags().BoolVar(&noChecksum, "no-checksum", false, "Disable checksum verification of downloads")
	runCmd.Flags().IntVar(&retryLimit, "retries", 3, "Download retry limit")
	runCmd.Flags().IntVar(&downloadTimeout, "download-timeout", 1800, "Per-transfer timeout in seconds")
	runCmd.Flags().StringVar(&proxyURL, "proxy", "", "Proxy URL (http://, https:// or socks5://)")
	runCmd.Flags().StringVar(&msconvertPath, "msconvert", "msconvert", "Path to the msconvert binary")
	runCmd.Flags().StringVar(&centroidMode, "centroid", "none", "Centroiding mode (none, vendor, cwt)")
	runCmd.Flags().BoolVar(&gzipOutput, "gzip", false, "Gzip mzML output")
	runCmd.Flags().IntVar(&bitDepth, "bit-depth", 64, "Binary encoding precision (32 or 64)")
	runCmd.Flags().IntVar(&convertTimeout, "timeout", 600, "Per-invocation conversion timeout in seconds")
	runCmd.Flags().BoolVar(&downloadOnly, "download-only", false, "Only download; skip conversion")
	runCmd.Flags().BoolVar(&convertOnly, "convert-only", false, "Skip download; convert existing raw/ files")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
}

func runRun(cmd *cobra.Command, args []string) error {
	cliConfig, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %v", err)
	}

	// Command line flags take precedence.
	if cmd.Flags().Changed("out") {
		cliConfig.Out = outputRoot
	}
	if cmd.Flags().Changed("endpoint") {
		cliConfig.Endpoint = endpointName
	}
	if cmd.Flags().Changed("endpoints-file") {
		cliConfig.EndpointsFile = endpointsFile
	}
	if cmd.Flags().Changed("protocol") {
		cliConfig.Protocol = protocol
	}
	if cmd.Flags().Changed("no-checksum") {
		cliConfig.NoChecksum = noChecksum
	}
	if cmd.Flags().Changed("retries") {
		cliConfig.RetryLimit = retryLimit
	}
	if cmd.Flags().Changed("download-timeout") {
		cliConfig.DownloadTimeout = downloadTimeout
	}
	if cmd.Flags().Changed("proxy") {
		cliConfig.ProxyURL = proxyURL
	}
	if cmd.Flags().Changed("msconvert") {
		cliConfig.Msconvert = msconvertPath
	}
	if cmd.Flags().Changed("centroid") {
		cliConfig.Centroid = centroidMode
	}
	if cmd.Flags().Changed("gzip") {
		cliConfig.Gzip = gzipOutput
	}
	if cmd.Flags().Changed("bit-depth") {
		cliConfig.BitDepth = bitDepth
	}
	if cmd.Flags().Changed("timeout") {
		cliConfig.ConvertTimeout = convertTimeout
	}
	if cmd.Flags().Changed("download-only") {
		cliConfig.DownloadOnly = downloadOnly
	}
	if cmd.Flags().Changed("convert-only") {
		cliConfig.ConvertOnly = convertOnly
	}
	if cmd.Flags().Changed("log-level") {
		cliConfig.LogLevel = logLevel
	}

	if err := cliConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	if err := os.MkdirAll(cliConfig.Out, 0755); err != nil {
		return fmt.Errorf("could not create output root %s: %v", cliConfig.Out, err)
	}

	logger, logFile := logging.New(cliConfig.Out, "pxdflow.log", cliConfig.LogLevel)
	if logFile != nil {
		defer logFile.Close()
	}

	var downloader pipeline.Downloader
	if !cliConfig.ConvertOnly {
		downloader, err = buildDownloader(cmd, cliConfig, logger)
		if err != nil {
			return err
		}
	}

	driver, err := pipeline.NewDriver(pipeline.Config{
		OutputRoot:   cliConfig.Out,
		DownloadOnly: cliConfig.DownloadOnly,
		Convert: convert.Options{
			Binary:         cliConfig.Msconvert,
			Centroid:       cliConfig.Centroid,
			Gzip:           cliConfig.Gzip,
			BitDepth:       cliConfig.BitDepth,
			TimeoutSeconds: cliConfig.ConvertTimeout,
		},
	}, downloader, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	verdicts := make(map[string]*pipeline.DatasetResult, len(args))
	var failed []string

	for _, pxd := range args {
		pxd = strings.TrimSpace(pxd)
		logger.Info("Processing dataset.", "pxd", pxd)

		result, err := driver.Run(ctx, pxd)
		if err != nil {
			logger.Error("Dataset failed.", "pxd", pxd, "error", err)
			failed = append(failed, pxd)
			continue
		}
		verdicts[pxd] = result
		logger.Info("Dataset finished.",
			"pxd", pxd,
			"verdict", result.Verdict,
			"downloader", result.Downloader,
			"converted", result.Converted,
			"errors", result.Errors)
	}

	fmt.Println()
	for _, pxd := range args {
		pxd = strings.TrimSpace(pxd)
		if result, ok := verdicts[pxd]; ok {
			fmt.Printf("  %s: %s (%d converted, %d errors)\n",
				pxd, result.Verdict, result.Converted, result.Errors)
		} else {
			fmt.Printf("  %s: failed\n", pxd)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d dataset(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

func buildDownloader(cmd *cobra.Command, cliConfig *CLIConfig, logger *slog.Logger) (pipeline.Downloader, error) {
	endpoint, err := config.Select(cliConfig.Endpoint, cliConfig.EndpointsFile)
	if err != nil {
		return nil, err
	}
	if err := endpoint.Validate(); err != nil {
		return nil, err
	}

	logDir := filepath.Join(cliConfig.Out, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create log directory %s: %v", logDir, err)
	}

	downloadConfig := download.Config{
		Protocol:       cliConfig.Protocol,
		VerifyChecksum: !cliConfig.NoChecksum,
		RetryLimit:     cliConfig.RetryLimit,
		TimeoutSeconds: cliConfig.DownloadTimeout,
		ProxyURL:       cliConfig.ProxyURL,
		LogDir:         logDir,
	}
	downloadConfig.SetDefaults()
	if err := downloadConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid download configuration: %v", err)
	}

	primary, err := download.NewPrideBackend(endpoint.APIBase, downloadConfig, logger)
	if err != nil {
		return nil, err
	}

	store, err := download.NewAWSObjectStore(cmd.Context(), endpoint.S3Region)
	if err != nil {
		return nil, err
	}
	secondary := download.NewMirrorBackend(store, endpoint.S3Bucket, endpoint.S3Prefix, downloadConfig, logger)

	return download.NewOrchestrator(primary, secondary, logger), nil
}
