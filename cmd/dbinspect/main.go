// Package main provides a tool to inspect the course store.
//
// Usage:
//
//	go run ./cmd/dbinspect -data-path ~/VideoTracker/data
//	go run ./cmd/dbinspect -store badger -json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/Loxed/youtube-video-tracker/internal/chapters"
	"github.com/Loxed/youtube-video-tracker/internal/config"
	"github.com/Loxed/youtube-video-tracker/internal/store"
	"github.com/Loxed/youtube-video-tracker/internal/store/sqlite"
)

func main() {
	args := os.Args[1:]
	asJSON := false
	for i, a := range args {
		if a == "-json" || a == "--json" {
			asJSON = true
			args = append(args[:i:i], args[i+1:]...)
			break
		}
	}

	cfg, err := config.Load(args)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)

	var courses store.CourseStore
	switch cfg.Store.Backend {
	case config.BackendBadger:
		courses, err = store.New(cfg.StorePath(), logger)
	default:
		courses, err = sqlite.Open(cfg.StorePath(), logger)
	}
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer courses.Close()

	all, err := courses.ListCourses(context.Background())
	if err != nil {
		log.Fatalf("Failed to list courses: %v", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(all); err != nil {
			log.Fatalf("Failed to encode courses: %v", err)
		}
		return
	}

	fmt.Println("=== Course Store Inspection ===")
	fmt.Printf("Backend: %s (%s)\n\n", cfg.Store.Backend, cfg.StorePath())

	totalChapters := 0
	withoutChapters := 0
	manual := 0
	for _, c := range all {
		totalChapters += len(c.Chapters)
		if len(c.Chapters) == 0 {
			withoutChapters++
		}
		if c.ManualChapters != nil {
			manual++
		}

		fmt.Printf("%-14s %3d/%-3d chapters  %5.1f%%  %3d sessions  %9s watched  %s\n",
			c.VideoID,
			c.CompletedCount(), len(c.Chapters),
			c.ProgressPercent(),
			c.Sessions,
			chapters.FormatClock(c.TotalWatchTime),
			c.Title,
		)
	}

	fmt.Println()
	fmt.Printf("Courses: %d\n", len(all))
	fmt.Printf("Chapters: %d\n", totalChapters)
	fmt.Printf("Courses without chapters: %d\n", withoutChapters)
	fmt.Printf("Courses with imported chapters: %d\n", manual)
}
