// Package main provides a tool to seed the course store with sample courses.
//
// It adds a few courses and plays through part of each one so progress,
// sort orders and the stale-course cleanup have data to work with.
//
// Usage:
//
//	go run ./cmd/seed -data-path /tmp/tracker
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"os"

	"github.com/Loxed/youtube-video-tracker/internal/config"
	domainerrors "github.com/Loxed/youtube-video-tracker/internal/errors"
	"github.com/Loxed/youtube-video-tracker/internal/logger"
	"github.com/Loxed/youtube-video-tracker/internal/ratelimit"
	"github.com/Loxed/youtube-video-tracker/internal/service"
	"github.com/Loxed/youtube-video-tracker/internal/store"
	"github.com/Loxed/youtube-video-tracker/internal/store/sqlite"
)

type sampleCourse struct {
	videoID     string
	title       string
	description string
	length      float64
}

var samples = []sampleCourse{
	{
		videoID: "seedGoBasics",
		title:   "Go Programming Full Course",
		description: `Everything you need to start writing Go.

0:00 Introduction
4:12 Installing Go
11:30 Variables and Types
25:45 Functions
41:02 Structs and Methods
58:10 Interfaces
1:15:33 Goroutines and Channels`,
		length: 5400,
	},
	{
		videoID: "seedK8sIntro",
		title:   "Kubernetes Crash Course",
		description: `Timestamps
[00:00] Welcome
[03:20] Pods
[14:05] Deployments
[27:40] Services and Networking
[39:15] ConfigMaps and Secrets`,
		length: 3000,
	},
	{
		videoID: "seedSQLDeep",
		title:   "SQL Indexing Deep Dive",
		description: `Chapter 1: Why indexes matter 0:00
Chapter 2: B-trees explained 6:45
Chapter 3: Composite indexes 19:20
Chapter 4: Reading query plans 33:10`,
		length: 2900,
	},
	{
		videoID:     "seedNoChaps",
		title:       "Live Coding Session",
		description: "Unedited stream, no timestamps yet.",
		length:      7200,
	},
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := os.MkdirAll(cfg.Data.BasePath, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	fmt.Printf("Opening %s store at: %s\n", cfg.Store.Backend, cfg.StorePath())

	discard := logger.Discard().Logger

	var courses store.CourseStore
	switch cfg.Store.Backend {
	case config.BackendBadger:
		courses, err = store.New(cfg.StorePath(), discard)
	default:
		courses, err = sqlite.Open(cfg.StorePath(), discard)
	}
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer courses.Close()

	ctx := context.Background()
	events := store.NewNoopEmitter()
	ticks := ratelimit.New(1000, 1000)
	defer ticks.Stop()

	courseService := service.NewCourseService(courses, nil, events, discard)
	playback := service.NewPlaybackService(courses, events, ticks, discard)
	courseService.SetCourseObserver(playback)

	for _, sample := range samples {
		res, err := courseService.AddCourse(ctx, service.AddCourseRequest{
			VideoID:     sample.videoID,
			Title:       sample.title,
			Description: sample.description,
		})
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			fmt.Printf("  %s already tracked, skipping\n", sample.videoID)
			continue
		}
		if err != nil {
			log.Fatalf("Failed to add %s: %v", sample.videoID, err)
		}

		fmt.Printf("  added %s (%d chapters)\n", sample.videoID, len(res.Course.Chapters))
		if res.NeedsManualImport {
			continue
		}

		if err := watchPart(ctx, playback, sample); err != nil {
			log.Fatalf("Failed to play %s: %v", sample.videoID, err)
		}
	}

	if err := playback.Shutdown(ctx); err != nil {
		log.Fatalf("Failed to flush sessions: %v", err)
	}

	fmt.Println("Done")
}

// watchPart plays a random share of the video in ten second steps.
func watchPart(ctx context.Context, playback *service.PlaybackService, sample sampleCourse) error {
	st, err := playback.Open(ctx, sample.videoID)
	if err != nil {
		return err
	}
	defer func() { _ = playback.Close(ctx, st.SessionID) }()

	if _, err := playback.Metadata(ctx, st.SessionID, sample.length); err != nil {
		return err
	}

	until := sample.length * (0.2 + 0.7*rand.Float64())
	for pos := 0.0; pos < until; pos += 10 {
		if _, err := playback.Position(ctx, st.SessionID, pos); err != nil {
			return err
		}
	}

	fmt.Printf("    watched %.0f of %.0f seconds\n", until, sample.length)
	return nil
}
