package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pxdflow/pxdflow/internal/rawfile"
)

var infoCmd = &cobra.Command{
	Use:   "info <directory>",
	Short: "Inspect a raw directory without converting",
	Long: `Scan a directory of vendor acquisition files and report every recognized
candidate, its format family and any missing companion files. No files are
modified.

Examples:
  pxdflow info /data/pxd/PXD046034/raw`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	scan, err := rawfile.Scan(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Directory: %s\n", args[0])
	fmt.Printf("===========\n\n")

	if len(scan.Root) == 0 {
		fmt.Println("No vendor acquisition files found.")
		return nil
	}

	fmt.Printf("Candidates (%d):\n", len(scan.Root))
	for _, c := range scan.Root {
		kind := "primary"
		if c.Companion {
			kind = "companion"
		}
		if c.Directory {
			kind += " (directory)"
		}
		fmt.Printf("  %-40s %-12s %s\n", c.Name, c.Family, kind)
	}

	fmt.Printf("\nPrimaries:  %d\n", len(scan.Primaries))
	fmt.Printf("Companions: %d\n", len(scan.Companions))

	problems := rawfile.ValidatePairs(scan.Root)
	if len(problems) == 0 {
		fmt.Println("Pairing:    OK")
		return nil
	}

	fmt.Printf("\nPair problems (%d):\n", len(problems))
	for _, p := range problems {
		fmt.Printf("  %s\n", p)
	}
	return nil
}
