package main

import (
	"os"

	"etl-tools/internal/app"

	"github.com/spf13/cobra"
)

var (
	recordCount  *int
	headColumns  *string
	headLogLevel *string
)

func init() {
	recordCount = headCmd.Flags().IntP("records", "n", 5, "The number of records to show")
	headColumns = headCmd.Flags().String("columns", "", "Comma separated list of columns to show, in order")
	headLogLevel = headCmd.Flags().String("loglevel", "", "Logging level (none, error, warn, info, debug)")
	rootCmd.AddCommand(headCmd)
}

var headCmd = &cobra.Command{
	Use:   "head file-name.parquet",
	Short: "Prints the first n records of the Parquet file",
	Args:  exactlyOneFile,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runner.Head(os.Stdout, args[0], *recordCount, app.SplitColumns(*headColumns), *headLogLevel)
	},
}
