package saver

import (
	"context"

	"redditsaver/internal/downloader"
	"redditsaver/pkg/reddit"
)

// RecordFetcher produces the saved records of one run
type RecordFetcher interface {
	FetchSaved(ctx context.Context) ([]*reddit.SavedRecord, error)
}

// RecordSaver persists the media of one record
type RecordSaver interface {
	Save(ctx context.Context, rec *reddit.SavedRecord, baseDir string) (*downloader.Outcome, error)
}
