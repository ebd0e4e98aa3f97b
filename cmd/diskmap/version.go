package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigreer/diskmap/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the diskmap version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("diskmap %s\n", version.Version)
	},
}
