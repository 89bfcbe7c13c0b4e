package tasks

import (
	"context"

	"github.com/lysyi3m/crowd-list/app/feed"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Example usage:
//
//	scheduler := NewScheduler(configCache, pipeline, interval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewIngestFilingsTask(watchConfig, pipeline))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type FeedFetcher interface {
	Run(ctx context.Context, feedURL string) ([]feed.Entry, error)
}

type DocumentExtractor interface {
	Run(ctx context.Context, docURL string) (*feed.Offering, error)
}

// OfferingEnricher adds optional data to an extracted offering. It must not
// fail the record.
type OfferingEnricher interface {
	Run(ctx context.Context, offering *feed.Offering)
}

var (
	_ FeedFetcher       = (*feed.Fetcher)(nil)
	_ DocumentExtractor = (*feed.DocumentExtractor)(nil)
	_ OfferingEnricher  = (*feed.Summarizer)(nil)
)
