package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs a completed HTTP exchange at a level derived from the status
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogDownload logs the outcome of saving one record's media
func LogDownload(l Logger, subreddit, recordID, kind string, files int, err error) {
	entry := l.WithFields(map[string]interface{}{
		"subreddit": subreddit,
		"record_id": recordID,
		"kind":      kind,
		"files":     files,
	})

	switch {
	case err != nil:
		entry.WithError(err).Error("Download failed")
	case files > 0:
		entry.Info("Download completed")
	default:
		entry.Debug("Download skipped")
	}
}

// LogRateLimit logs a wait imposed by the server quota
func LogRateLimit(l Logger, remaining int, wait time.Duration) {
	l.WithFields(map[string]interface{}{
		"remaining": remaining,
		"wait":      wait,
		"action":    "rate_limited",
	}).Warn("Rate limit quota exhausted, waiting for reset")
}

// LogFetchProgress logs listing pagination progress
func LogFetchProgress(l Logger, username string, fetched, limit int) {
	l.WithFields(map[string]interface{}{
		"username": username,
		"fetched":  fetched,
		"limit":    limit,
	}).Debug("Fetch progress")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
