// Command portalgpt asks LLM backends for structured JSON, serves that as an
// HTTP API, and exports CKAN portal metadata for ingestion.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
