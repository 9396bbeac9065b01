package main

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(schemaCmd)
}

var schemaCmd = &cobra.Command{
	Use:   "schema file-name.parquet",
	Short: "Prints the column names and types of the Parquet file",
	Args:  exactlyOneFile,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runner.Schema(os.Stdout, args[0])
	},
}
