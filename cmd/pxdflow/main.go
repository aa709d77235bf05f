package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"
	commit  = "dev"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "pxdflow",
	Short: "ProteomeXchange acquisition conversion pipeline",
	Long: `pxdflow downloads vendor mass-spectrometry acquisition files for
ProteomeXchange accessions and converts them into MS1-only and MS2-only mzML
outputs with a full provenance record.

Features:
  - Classifies Sciex (.wiff/.wiff2 + .scan), Thermo (.raw) and Bruker (.d) layouts
  - Validates two-part vendor formats for missing companion files
  - Downloads via the PRIDE REST API with an open-data S3 mirror fallback
  - Idempotent conversion: completed outputs are never redone on re-runs
  - Per-file fault isolation with a JSON conversion manifest
  - Per-scan record extraction into .ms1/.ms2 files

Examples:
  pxdflow run PXD046034 --out /data/pxd
  pxdflow run PXD046034 PXD046035 --out /data/pxd --centroid vendor --gzip
  pxdflow run PXD046034 --out /data/pxd --convert-only
  pxdflow info /data/pxd/PXD046034/raw
  pxdflow extract --in /data/pxd/PXD046034/triada/ms2 --out /data/pxd/PXD046034/ms1_ms2
  pxdflow version`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pxdflow v%s\n", version)
		fmt.Println("Use 'pxdflow --help' for available commands")
		fmt.Println("Use 'pxdflow run --help' for pipeline options")
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
