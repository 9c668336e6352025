// Package logger provides the structured logging interface used across
// redditsaver.
//
// It wraps zerolog with a small API: leveled methods, bound fields through
// WithField/WithFields/WithError, and one-shot fields through the
// *WithFields methods. Console output is colored; when a log file is
// configured, JSON lines are appended to it as well.
//
//	log := logger.GetLogger().WithField("component", "fetcher")
//	log.InfoWithFields("Page fetched", map[string]interface{}{
//	    "children": 25,
//	    "after":    "t3_abc123",
//	})
//
// Tests use NewNopLogger, or NewTestLogger to assert on captured messages.
package logger
