package saver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"redditsaver/internal/downloader"
	"redditsaver/pkg/config"
	apperrors "redditsaver/pkg/errors"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/ratelimit"
	"redditsaver/pkg/reddit"
	"redditsaver/pkg/storage"
)

// Options controls a run
type Options struct {
	OutputDir string

	// ContinueOnError records a failed record and moves on instead of
	// aborting the batch.
	ContinueOnError bool

	// OnRecord, if set, is called after every record with its outcome
	OnRecord func(out *downloader.Outcome, err error)
}

// Failure is one record that could not be saved
type Failure struct {
	RecordID string
	Err      error
}

// Summary describes what a run did
type Summary struct {
	RunID     string
	Records   int
	Processed int
	Files     int
	Bytes     int64
	ByKind    map[reddit.MediaKind]int
	Skipped   map[string]int
	Failures  []Failure
	Exhausted bool
	Duration  time.Duration
}

// SkippedTotal returns the number of skipped records across all reasons
func (s *Summary) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Kinds returns the media kinds seen, sorted by name
func (s *Summary) Kinds() []reddit.MediaKind {
	kinds := make([]reddit.MediaKind, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Saver fetches saved records and hands each one to the downloader in order
type Saver struct {
	fetcher RecordFetcher
	saver   RecordSaver
	opts    Options
	logger  logger.Logger
}

// NewWithComponents creates a Saver from already built parts
func NewWithComponents(fetcher RecordFetcher, rs RecordSaver, opts Options, log logger.Logger) *Saver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Saver{fetcher: fetcher, saver: rs, opts: opts, logger: log}
}

// New wires the Reddit client, quota limiter, fetcher, storage and
// downloader from cfg and obtains an access token.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Saver, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if !cfg.HasCredentials() {
		return nil, errors.New("reddit client id, client secret, username and password are required")
	}

	client := reddit.NewClient(cfg.Download.Timeout, cfg.Reddit.UserAgent, log)
	if cfg.Reddit.APIBaseURL != "" {
		client.SetBaseURL(cfg.Reddit.APIBaseURL)
	}
	if cfg.Reddit.TokenURL != "" {
		client.SetTokenURL(cfg.Reddit.TokenURL)
	}

	err := client.Authenticate(ctx, reddit.Credentials{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		Username:     cfg.Reddit.Username,
		Password:     cfg.Reddit.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	store, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.DirMode(), cfg.FileMode())
	if err != nil {
		return nil, err
	}

	quota := ratelimit.NewQuotaLimiter(ratelimit.WithLogger(log.WithField("component", "ratelimit")))
	fetcher := reddit.NewFetcher(client, quota, reddit.FetcherOptions{
		BaseURL:   client.BaseURL(),
		Username:  cfg.Reddit.Username,
		PageSize:  cfg.Download.PageSize,
		Limit:     cfg.Download.Limit,
		Exhausted: reddit.ParseExhaustedPolicy(cfg.Download.ExhaustedPolicy),
	}, log)

	var mediaLimiter ratelimit.Limiter
	if bucket := ratelimit.NewPerMinute(cfg.Download.MediaRequestsPerMinute); bucket != nil {
		mediaLimiter = bucket
	}
	dl := downloader.New(client, store, mediaLimiter, log)

	return NewWithComponents(fetcher, dl, Options{
		OutputDir:       cfg.Output.BaseDirectory,
		ContinueOnError: cfg.Download.ContinueOnError,
	}, log), nil
}

// SetOnRecord installs a per-record callback
func (s *Saver) SetOnRecord(fn func(out *downloader.Outcome, err error)) {
	s.opts.OnRecord = fn
}

// Run fetches the saved listing and saves every record in server order.
//
// With ContinueOnError unset the first failure ends the run and is returned
// with the partial summary. With it set every failure is collected and the
// joined error is returned once all records were attempted. A listing that
// ran out early under the error policy is downloaded anyway and reported
// through ErrListingExhausted.
func (s *Saver) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		RunID:   uuid.NewString(),
		ByKind:  map[reddit.MediaKind]int{},
		Skipped: map[string]int{},
	}
	defer func() { summary.Duration = time.Since(start) }()

	log := s.logger.WithField("run_id", summary.RunID)
	log.WithFields(map[string]interface{}{
		"output_dir":        s.opts.OutputDir,
		"continue_on_error": s.opts.ContinueOnError,
	}).Info("Run started")

	records, err := s.fetcher.FetchSaved(ctx)
	var exhaustedErr error
	switch {
	case errors.Is(err, apperrors.ErrListingExhausted):
		summary.Exhausted = true
		exhaustedErr = err
	case err != nil:
		log.WithError(err).Error("Fetching saved items failed")
		return summary, err
	}
	summary.Records = len(records)
	log.WithField("records", len(records)).Info("Fetched saved records")

	var errs []error
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		out, err := s.saver.Save(ctx, rec, s.opts.OutputDir)
		s.record(log, summary, rec, out, err)
		if s.opts.OnRecord != nil {
			s.opts.OnRecord(out, err)
		}

		if err != nil {
			wrapped := fmt.Errorf("saving record %s: %w", rec.ID, err)
			if !s.opts.ContinueOnError {
				log.WithError(wrapped).Error("Run aborted")
				return summary, wrapped
			}
			log.WithError(wrapped).Warn("Record failed, continuing")
			errs = append(errs, wrapped)
		}
	}

	log.WithFields(map[string]interface{}{
		"processed": summary.Processed,
		"files":     summary.Files,
		"skipped":   summary.SkippedTotal(),
		"failed":    len(summary.Failures),
	}).Info("Run finished")

	if exhaustedErr != nil {
		errs = append(errs, exhaustedErr)
	}
	return summary, errors.Join(errs...)
}

func (s *Saver) record(log logger.Logger, summary *Summary, rec *reddit.SavedRecord, out *downloader.Outcome, err error) {
	summary.Processed++
	if out != nil {
		summary.ByKind[out.Kind]++
		summary.Files += len(out.Files)
		summary.Bytes += out.Bytes
		if out.Skipped {
			summary.Skipped[out.Reason]++
		}
	}
	if err != nil {
		summary.Failures = append(summary.Failures, Failure{RecordID: rec.ID, Err: err})
	}

	files := 0
	kind := ""
	if out != nil {
		files = len(out.Files)
		kind = string(out.Kind)
	}
	logger.LogDownload(log, rec.Subreddit, rec.ID, kind, files, err)
}
