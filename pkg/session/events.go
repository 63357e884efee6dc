package session

import "github.com/bucketdiver/bucketdiver/pkg/dto"

// Event is one message on a listing run's event stream. Events arrive in
// strict emission order; the stream is closed when the run reaches a
// terminal state. A cancelled run emits nothing after the cancel point.
type Event interface {
	sessionEvent()
}

// PageReady reports one fetched page, surfaced before the next gateway call
// so the consumer can render partial progress.
type PageReady struct {
	Records           []dto.ObjectRecord
	PageNumber        int
	RecordsInPage     int
	TotalRecordsSoFar int
	IsLastPage        bool
}

// RetryAttempt reports a failed gateway call that consumed one attempt of
// the retry budget. The run waits out the backoff and reconnects after it.
type RetryAttempt struct {
	Attempt      int
	MaxAttempts  int
	ErrorMessage string
}

// MaxRetriesExceeded is the terminal failure of a run whose retry budget is
// exhausted.
type MaxRetriesExceeded struct {
	TotalAttempts int
	FinalError    string
}

// Completed carries the full in-run record set and the run statistics.
type Completed struct {
	AllRecords     []dto.ObjectRecord
	PagesProcessed int
	TotalFound     int
	StoppedAtLimit bool
}

// Progress is an advisory status message for display.
type Progress struct {
	Text string
}

func (PageReady) sessionEvent()          {}
func (RetryAttempt) sessionEvent()       {}
func (MaxRetriesExceeded) sessionEvent() {}
func (Completed) sessionEvent()          {}
func (Progress) sessionEvent()           {}
