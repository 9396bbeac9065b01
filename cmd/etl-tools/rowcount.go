package main

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rowCountCmd)
}

var rowCountCmd = &cobra.Command{
	Use:   "rowcount file-name.parquet",
	Short: "Prints the count of rows in the Parquet file",
	Args:  exactlyOneFile,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runner.RowCount(os.Stdout, args[0])
	},
}
