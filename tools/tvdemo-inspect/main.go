// Command tvdemo-inspect dumps frame-by-frame metadata for a .tvd file
// without driving a renderer: serverTime, live entity/player counts, and
// configstring/command counts per frame. The Go-idiomatic analogue of the
// teacher's replay_player tool, repurposed for the binary TVD1 format.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"trinity/tvdemo/internal/replay"
)

type frameSummary struct {
	ServerTime int32 `json:"server_time_ms"`
	Entities   int   `json:"entities"`
	Players    int   `json:"players"`
	CSChanges  int   `json:"cs_changes"`
	Commands   int   `json:"commands"`
}

func main() {
	path := flag.String("path", "", "path to a .tvd file")
	jsonFlag := flag.Bool("json", false, "emit JSON instead of human-readable output")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "path flag is required")
		os.Exit(1)
	}

	dec, err := replay.Open(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
	defer dec.Close()

	header := dec.Header()
	fmt.Printf("map: %s\n", header.MapName)
	fmt.Printf("recorded: %s\n", header.Timestamp)
	fmt.Printf("duration: %dms\n", dec.DurationMs())

	var summaries []frameSummary
	for {
		frame, err := dec.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintln(os.Stderr, "error reading frame:", err)
			os.Exit(3)
		}
		summaries = append(summaries, frameSummary{
			ServerTime: frame.ServerTime,
			Entities:   dec.Running().EntityCount(),
			Players:    dec.Running().PlayerCount(),
			CSChanges:  len(frame.CSChanges),
			Commands:   len(frame.Commands),
		})
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summaries); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	for i, s := range summaries {
		fmt.Printf("frame %d: t=%dms entities=%d players=%d cs=%d cmds=%d\n",
			i, s.ServerTime, s.Entities, s.Players, s.CSChanges, s.Commands)
	}
}
