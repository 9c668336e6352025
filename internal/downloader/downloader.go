package downloader

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"redditsaver/pkg/logger"
	"redditsaver/pkg/ratelimit"
	"redditsaver/pkg/reddit"
)

// Reasons recorded on a skipped Outcome
const (
	ReasonSelfText     = "self post"
	ReasonNoFallback   = "video has no fallback url"
	ReasonUnsupported  = "unsupported link"
	ReasonEmptyGallery = "gallery has no downloadable items"
)

// MediaClient opens a media URL for reading
type MediaClient interface {
	OpenMedia(ctx context.Context, mediaURL string) (io.ReadCloser, error)
}

// FileStore is where downloaded bytes end up
type FileStore interface {
	SubredditDir(baseDir, subreddit string) (string, error)
	WriteFile(path string, r io.Reader) (int64, error)
}

// Outcome describes what Save did for one record
type Outcome struct {
	RecordID  string
	Subreddit string
	Kind      reddit.MediaKind
	Files     []string
	Bytes     int64
	Skipped   bool
	Reason    string
	Duration  time.Duration
}

// Downloader persists the media of saved records, one transfer at a time
type Downloader struct {
	client  MediaClient
	store   FileStore
	limiter ratelimit.Limiter
	logger  logger.Logger
}

// New creates a downloader. limiter may be nil to leave media requests
// unthrottled.
func New(client MediaClient, store FileStore, limiter ratelimit.Limiter, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{
		client:  client,
		store:   store,
		limiter: limiter,
		logger:  log.WithField("component", "downloader"),
	}
}

// Save writes the media of rec below baseDir/<subreddit>/. Self posts,
// unsupported links and videos without a fallback URL are skipped without
// touching the network. The first failed transfer ends the record and is
// returned together with the files written before it.
func (d *Downloader) Save(ctx context.Context, rec *reddit.SavedRecord, baseDir string) (*Outcome, error) {
	start := time.Now()
	media := rec.Media
	if media == nil {
		media = reddit.Classify(rec)
	}

	out := &Outcome{RecordID: rec.ID, Subreddit: rec.Subreddit, Kind: media.Kind()}
	defer func() { out.Duration = time.Since(start) }()

	dir, err := d.store.SubredditDir(baseDir, rec.Subreddit)
	if err != nil {
		return out, err
	}

	log := d.logger.WithFields(map[string]interface{}{
		"record_id": rec.ID,
		"subreddit": rec.Subreddit,
		"kind":      string(media.Kind()),
	})

	switch m := media.(type) {
	case reddit.SelfText:
		log.Info(fmt.Sprintf("%s is self post, skipping", rec.ID))
		return skip(out, ReasonSelfText), nil

	case reddit.Gallery:
		if len(m.Items) == 0 {
			log.Debug("Gallery has no downloadable items")
			return skip(out, ReasonEmptyGallery), nil
		}
		for _, item := range m.Items {
			name := fmt.Sprintf("%s_gallery_%d.%s", rec.ID, item.Index, item.Ext)
			if err := d.fetchInto(ctx, out, item.URL, filepath.Join(dir, name)); err != nil {
				return out, err
			}
		}

	case reddit.Video:
		if m.FallbackURL == "" {
			log.Debug("Hosted video has no fallback URL")
			return skip(out, ReasonNoFallback), nil
		}
		if err := d.fetchInto(ctx, out, m.FallbackURL, filepath.Join(dir, rec.ID+".mp4")); err != nil {
			return out, err
		}

	case reddit.Image:
		if err := d.fetchInto(ctx, out, m.URL, filepath.Join(dir, rec.ID+"."+m.Ext)); err != nil {
			return out, err
		}

	default:
		log.WithField("url", rec.URL).Debug("Link is not downloadable media")
		return skip(out, ReasonUnsupported), nil
	}

	log.WithField("files", len(out.Files)).Info(fmt.Sprintf("Downloaded: %s", rec.ID))
	return out, nil
}

func skip(out *Outcome, reason string) *Outcome {
	out.Skipped = true
	out.Reason = reason
	return out
}

func (d *Downloader) fetchInto(ctx context.Context, out *Outcome, mediaURL, path string) error {
	n, err := d.DownloadBytes(ctx, mediaURL, path)
	if err != nil {
		return err
	}
	out.Files = append(out.Files, path)
	out.Bytes += n
	return nil
}

// DownloadBytes GETs mediaURL and writes a 2xx body to path, replacing any
// existing file. On a non-2xx status nothing is written.
func (d *Downloader) DownloadBytes(ctx context.Context, mediaURL, path string) (int64, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	body, err := d.client.OpenMedia(ctx, mediaURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	n, err := d.store.WriteFile(path, body)
	if err != nil {
		return n, err
	}

	d.logger.DebugWithFields("Media written", map[string]interface{}{
		"url":  mediaURL,
		"path": path,
		"size": n,
	})
	return n, nil
}
