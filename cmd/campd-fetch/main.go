// Command campd-fetch downloads regulatory emissions, facility-attribute,
// and allowance datasets from the CAMPD API and writes them as CSV files.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
