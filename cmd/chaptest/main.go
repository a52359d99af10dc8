// Package main provides a tool to check how a description parses into chapters.
//
// Usage:
//
//	go run ./cmd/chaptest description.txt
//	pbpaste | go run ./cmd/chaptest -v
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Loxed/youtube-video-tracker/internal/chapters"
	"github.com/Loxed/youtube-video-tracker/internal/page"
)

var verbose = flag.Bool("v", false, "Show every timestamp candidate, including rejected ones")

func main() {
	flag.Parse()

	var (
		input []byte
		err   error
	)
	if flag.NArg() > 0 {
		input, err = os.ReadFile(flag.Arg(0))
	} else {
		input, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	text := page.DescriptionText(string(input))

	if *verbose {
		fmt.Println("Candidates:")
		for c := range chapters.Candidates(text) {
			status := "ok"
			if !c.Accepted {
				status = "rejected"
			}
			fmt.Printf("  line %-4d %-10s %-9s %q\n", c.Line+1, c.Match.Display(), status, c.Title)
		}
		fmt.Println()
	}

	parsed := chapters.Extract(text)
	fmt.Printf("Chapters: %d\n", len(parsed))
	for i, ch := range parsed {
		duration := "?"
		if ch.Duration != nil {
			duration = chapters.FormatClock(float64(*ch.Duration))
		}
		fmt.Printf("  [%d] %-9s %-8s %s\n", i, ch.Timestamp, duration, ch.Title)
	}

	analysis := chapters.AnalyzeChapters(parsed)
	if analysis.NeedsUpdate {
		fmt.Printf("\n%d of %d titles look like placeholders\n", analysis.GenericCount, analysis.Total)
	}
}
