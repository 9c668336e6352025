package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// StatusTracker counts per-record results during a run and renders a one
// line progress bar.
type StatusTracker struct {
	mu        sync.Mutex
	total     int
	processed int
	files     int
	skipped   int
	failed    int
	startTime time.Time
	now       func() time.Time
}

// NewStatusTracker creates a tracker expecting total records
func NewStatusTracker(total int) *StatusTracker {
	return &StatusTracker{total: total, startTime: time.Now(), now: time.Now}
}

// SetTotal changes the expected number of records once it is known
func (st *StatusTracker) SetTotal(total int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.total = total
}

// Observe records the result of one record
func (st *StatusTracker) Observe(files int, skipped bool, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.processed++
	st.files += files
	switch {
	case err != nil:
		st.failed++
	case skipped:
		st.skipped++
	}
}

// Counts returns processed records, files written, skipped and failed records
func (st *StatusTracker) Counts() (processed, files, skipped, failed int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.processed, st.files, st.skipped, st.failed
}

// Bar returns the progress bar for processed/total
func (st *StatusTracker) Bar() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	filled := 0
	if st.total > 0 {
		filled = st.processed * barWidth / st.total
	}
	if filled > barWidth {
		filled = barWidth
	}

	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, st.processed, st.total)
}

// Elapsed returns the time since the tracker was created
func (st *StatusTracker) Elapsed() time.Duration {
	return st.now().Sub(st.startTime)
}

// PrintProgress redraws the progress line on w
func (st *StatusTracker) PrintProgress(w io.Writer) {
	_, files, skipped, failed := st.Counts()
	fmt.Fprintf(w, "\r%s %s files: %d skipped: %d failed: %d",
		Green("[SAVING]"), st.Bar(), files, skipped, failed)
}
