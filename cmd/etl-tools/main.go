package main

import (
	"errors"
	"fmt"
	"os"

	"etl-tools/internal/app"
)

// main is the entry point for the etl-tools application.
func main() {
	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}
	if errors.Is(err, app.ErrUsage) || errors.Is(err, app.ErrConfigNotFound) || errors.Is(err, app.ErrMissingArgs) {
		fmt.Fprintln(os.Stderr, "")
		_ = cmd.Usage()
	}
	fmt.Fprintf(os.Stderr, "Application execution failed: %v\n", err)
	os.Exit(1)
}
