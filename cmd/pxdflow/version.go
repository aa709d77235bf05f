package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display detailed version information including build details and runtime information.`,
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("pxdflow\n")
	fmt.Printf("=======\n\n")

	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", commit)
	fmt.Printf("Build Date: %s\n", date)
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)

	fmt.Printf("\nFeatures:\n")
	fmt.Printf("  ✓ Sciex, Thermo and Bruker acquisition layouts\n")
	fmt.Printf("  ✓ Companion pair validation for two-part formats\n")
	fmt.Printf("  ✓ PRIDE REST download with S3 mirror fallback\n")
	fmt.Printf("  ✓ Idempotent, resumable batch conversion\n")
	fmt.Printf("  ✓ Per-file fault isolation and JSON manifests\n")
	fmt.Printf("  ✓ Per-scan .ms1/.ms2 record extraction\n")
}
