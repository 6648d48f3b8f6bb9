// Command tvdemo-catalog lists the finalized .tvd files in a directory with
// their header metadata, the Go-idiomatic analogue of the teacher's
// replay_catalog tool repurposed for the binary TVD1 format.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"trinity/tvdemo/internal/catalog"
)

func main() {
	dir := flag.String("dir", ".", "directory containing finalized .tvd files")
	jsonFlag := flag.Bool("json", false, "emit JSON instead of human-readable output")
	flag.Parse()

	entries, err := catalog.New(*dir).List()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	for _, e := range entries {
		fmt.Printf("%s (%s, %dms)\n", e.Path, e.MapName, e.DurationMs)
		fmt.Printf("  recorded: %s\n", e.Timestamp)
		fmt.Printf("  size: %d bytes\n", e.SizeBytes)
	}
}
