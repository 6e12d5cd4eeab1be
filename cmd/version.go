// Package cmd /*
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var Version = "dev" // ビルド時に設定される

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "バージョン情報を表示",
	Long:  `スケジューラのバージョン情報を表示します。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", AppName, Version)
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
