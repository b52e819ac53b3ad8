package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is the release version stamped at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "pcaptcha",
	Short: "pCAPTCHA is a spatial proof-of-work CAPTCHA service",
	Long: `A CAPTCHA service that asks humans to drag a puzzle piece onto a
hidden target region and issues signed proof tokens for correct placements.
Complete documentation is available at https://github.com/dmaher/pcaptcha`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
