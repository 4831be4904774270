package scheduler

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"videoInsight/storage"
)

// Cleaner removes videos past the retention window, with everything derived
// from them: transcript, summaries, vectors, chat history, and on-disk
// artifacts.
type Cleaner struct {
	Videos        storage.VideoStore
	Segments      storage.SegmentStore
	Summaries     storage.SummaryStore
	Index         storage.VectorIndex
	Chat          storage.ChatStore
	DataRoot      string
	RetentionDays int

	cron *cron.Cron
}

// Start schedules the daily sweep and returns the cron handle so the caller
// can stop it on shutdown.
func (c *Cleaner) Start() *cron.Cron {
	c.cron = cron.New()
	c.cron.AddFunc("@daily", func() {
		n, err := c.RunOnce(context.Background())
		if err != nil {
			log.Printf("cleanup: sweep failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("cleanup: removed %d expired videos", n)
		}
	})
	c.cron.Start()
	return c.cron
}

// RunOnce deletes everything older than the retention window and reports how
// many videos were removed.
func (c *Cleaner) RunOnce(ctx context.Context) (int, error) {
	days := c.RetentionDays
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	expired, err := c.Videos.ListOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, v := range expired {
		if err := c.Index.Invalidate(ctx, v.ID); err != nil {
			log.Printf("cleanup: invalidate index for video %s: %v", v.ID, err)
			continue
		}
		if err := c.Summaries.Delete(ctx, v.ID); err != nil {
			log.Printf("cleanup: delete summaries for video %s: %v", v.ID, err)
			continue
		}
		if err := c.Segments.Delete(ctx, v.ID); err != nil {
			log.Printf("cleanup: delete transcript for video %s: %v", v.ID, err)
			continue
		}
		if err := c.Chat.DeleteVideo(ctx, v.ID); err != nil {
			log.Printf("cleanup: delete chat for video %s: %v", v.ID, err)
			continue
		}
		if err := c.Videos.Delete(ctx, v.ID); err != nil {
			log.Printf("cleanup: delete video %s: %v", v.ID, err)
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.DataRoot, v.ID)); err != nil {
			log.Printf("cleanup: remove artifacts for video %s: %v", v.ID, err)
		}
		removed++
	}
	return removed, nil
}
