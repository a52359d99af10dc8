package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Loxed/youtube-video-tracker/internal/logger"
)

// importedSuffix is appended to inbox files once their chapters are stored.
const importedSuffix = ".imported"

// ChapterImporter stores chapters parsed from pasted text for a video.
type ChapterImporter interface {
	ImportInboxFile(ctx context.Context, videoID, text string) (int, error)
}

// Inbox imports chapter lists dropped into a directory as <videoID>.txt.
// Imported files are renamed with an ".imported" suffix; failed files stay
// in place so they can be fixed and saved again.
type Inbox struct {
	dir      string
	importer ChapterImporter
	logger   *slog.Logger
	settle   time.Duration
}

// NewInbox creates an inbox over dir, creating the directory if needed.
func NewInbox(dir string, importer ChapterImporter, logger *slog.Logger, settle time.Duration) (*Inbox, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox directory: %w", err)
	}
	return &Inbox{
		dir:      dir,
		importer: importer,
		logger:   logger.With("component", "inbox"),
		settle:   settle,
	}, nil
}

// Run imports files already in the inbox, then watches for new ones until
// ctx is cancelled.
func (in *Inbox) Run(ctx context.Context) error {
	w, err := New(in.logger, Options{
		SettleDelay: in.settle,
		Extensions:  []string{".txt"},
	})
	if err != nil {
		return err
	}
	defer w.Stop() //nolint:errcheck // best effort on shutdown

	if err := w.Watch(in.dir); err != nil {
		return fmt.Errorf("watch inbox: %w", err)
	}
	go w.Start(ctx) //nolint:errcheck // returns when ctx is done

	in.ProcessExisting(ctx)
	in.logger.Info("inbox watching", "path", in.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events():
			if !ok {
				return nil
			}
			if event.Type == EventAdded {
				in.Process(ctx, event.Path)
			}
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			in.logger.Warn("inbox watcher error", logger.Err(err))
		}
	}
}

// ProcessExisting imports every pending .txt file in the inbox.
func (in *Inbox) ProcessExisting(ctx context.Context) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		in.logger.Warn("failed to read inbox", logger.Err(err))
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		in.Process(ctx, filepath.Join(in.dir, e.Name()))
	}
}

// Process imports one inbox file. It reports whether the import succeeded.
func (in *Inbox) Process(ctx context.Context, path string) bool {
	base := filepath.Base(path)
	videoID := strings.TrimSuffix(base, filepath.Ext(base))
	log := logger.WithVideo(in.logger, videoID).With("file", base)

	if videoID == "" {
		log.Warn("inbox file has no video ID")
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("failed to read inbox file", logger.Err(err))
		return false
	}

	count, err := in.importer.ImportInboxFile(ctx, videoID, string(data))
	if err != nil {
		log.Warn("inbox import failed", logger.Err(err))
		return false
	}

	if err := os.Rename(path, path+importedSuffix); err != nil {
		log.Warn("failed to mark inbox file imported", logger.Err(err))
	}
	log.Info("inbox file imported", "chapters", count)
	return true
}
