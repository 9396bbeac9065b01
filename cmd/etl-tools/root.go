package main

import (
	"etl-tools/internal/app"

	"github.com/spf13/cobra"
)

var runner = app.NewAppRunner()

var rootCmd = &cobra.Command{
	Use:   "etl-tools",
	Short: "etl-tools converts CSV, Excel and PostgreSQL sources to Parquet and inspects Parquet files",
	Long: `etl-tools converts CSV, Excel and PostgreSQL sources to Parquet and inspects Parquet files.

Environment Variables:
  DB_CREDENTIALS   PostgreSQL connection string (used if --db is not set)
  Any VAR          Can be used in config paths/connection strings via $VAR/${VAR} or %VAR%`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exactlyOneFile validates the single file argument of the inspection commands.
func exactlyOneFile(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return app.ErrMissingArgs
	}
	return nil
}
