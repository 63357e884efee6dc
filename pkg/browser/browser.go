// Package browser orchestrates listing sessions for one logical connection:
// it starts bounded runs, consumes their event streams in order, maintains
// the accumulator and page view, and exposes the load-more affordance.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/bucketdiver/bucketdiver/pkg/config"
	"github.com/bucketdiver/bucketdiver/pkg/dto"
	"github.com/bucketdiver/bucketdiver/pkg/pageview"
	"github.com/bucketdiver/bucketdiver/pkg/results"
	"github.com/bucketdiver/bucketdiver/pkg/session"
)

// LoadMorePageBatch is the page batch size of the load-more heuristic: the
// affordance shows when the processed page count is a positive multiple of
// this value and every page was full. A proxy for "the store likely has
// more", not a guarantee.
const LoadMorePageBatch = 10

var (
	// ErrSessionActive is returned when a run is still in flight; at most
	// one listing session is active per connection.
	ErrSessionActive = errors.New("a listing session is already active")

	// ErrUnknownSession is returned for a handle that does not identify
	// the current session.
	ErrUnknownSession = errors.New("unknown session handle")

	// ErrNoCompletedRun is returned when load-more is requested before an
	// initial run completed.
	ErrNoCompletedRun = errors.New("no completed listing run to extend")
)

// Snapshotter persists the record set of a completed run. Optional.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, bucket string, records []dto.ObjectRecord, stats session.RunStats) error
}

// Status is the consumer-facing summary of the current or last run.
type Status struct {
	SessionID         string `json:"sessionId,omitempty"`
	State             string `json:"state"`
	Message           string `json:"message,omitempty"`
	LastError         string `json:"lastError,omitempty"`
	RetryAttempt      int    `json:"retryAttempt,omitempty"`
	MaxAttempts       int    `json:"maxAttempts,omitempty"`
	TotalAttempts     int    `json:"totalAttempts,omitempty"`
	PagesProcessed    int    `json:"pagesProcessed"`
	TotalObjects      int    `json:"totalObjects"`
	StoppedAtLimit    bool   `json:"stoppedAtLimit"`
	LoadMoreAvailable bool   `json:"loadMoreAvailable"`
}

// Browser owns the accumulator and page view of one connection and runs at
// most one listing session at a time against its gateway.
type Browser struct {
	cfg         config.Config
	gateway     session.PageFetcher
	bucket      string
	snapshotter Snapshotter
	log         *slog.Logger

	acc  *results.Accumulator
	view *pageview.View

	mu          sync.Mutex
	active      *session.Session
	activeID    uuid.UUID
	activeDone  chan struct{}
	lastStats   session.RunStats
	hasRunStats bool
	runMaxPages int
	status      Status
}

// New creates a browser over the given gateway.
func New(cfg config.Config, gateway session.PageFetcher, bucket string) *Browser {
	acc := results.New()
	return &Browser{
		cfg:     cfg,
		gateway: gateway,
		bucket:  bucket,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		acc:     acc,
		view:    pageview.New(acc, cfg.View.PageSize),
		status:  Status{State: session.StateIdle.String()},
	}
}

// SetLogger sets the logger.
func (b *Browser) SetLogger(log *slog.Logger) {
	b.log = log
}

// SetSnapshotter installs an optional snapshot sink for completed runs.
func (b *Browser) SetSnapshotter(s Snapshotter) {
	b.snapshotter = s
}

// View returns the page view over the accumulated records.
func (b *Browser) View() *pageview.View {
	return b.view
}

// Count returns the number of accumulated records.
func (b *Browser) Count() int {
	return b.acc.Count()
}

// StartListing begins the initial bounded run and returns its handle.
// Fails with ErrSessionActive while a previous run is still in flight.
func (b *Browser) StartListing(ctx context.Context, maxPages, maxRetries int) (uuid.UUID, error) {
	if maxPages <= 0 {
		maxPages = b.cfg.Listing.MaxPages
	}
	if maxRetries <= 0 {
		maxRetries = b.cfg.Listing.MaxRetries
	}
	return b.startRun(ctx, maxPages, maxRetries, false)
}

// Cancel requests cooperative cancellation of the identified session.
// Partial results already accumulated stay visible; there is no rollback.
func (b *Browser) Cancel(handle uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil || b.activeID != handle {
		return ErrUnknownSession
	}
	b.log.Info("Cancelling listing session", slog.String("session", handle.String()))
	b.active.Cancel()
	return nil
}

// LoadMore starts a superseding run with a larger page budget. The new run
// re-enumerates from the beginning; its completed record set replaces the
// accumulator wholesale. additionalPageBatch <= 0 uses LoadMorePageBatch.
func (b *Browser) LoadMore(ctx context.Context, handle uuid.UUID, additionalPageBatch int) (uuid.UUID, error) {
	b.mu.Lock()
	if b.activeID != handle {
		b.mu.Unlock()
		return uuid.Nil, ErrUnknownSession
	}
	if !b.hasRunStats {
		b.mu.Unlock()
		return uuid.Nil, ErrNoCompletedRun
	}
	if additionalPageBatch <= 0 {
		additionalPageBatch = LoadMorePageBatch
	}
	maxPages := b.runMaxPages + additionalPageBatch
	maxRetries := b.lastStats.MaxAttempts
	b.mu.Unlock()

	return b.startRun(ctx, maxPages, maxRetries, true)
}

// Refresh re-enumerates the bucket with the last run's budgets, replacing
// the accumulated set wholesale on completion. Used by the background
// refresh job. A refresh is skipped while a session is active.
func (b *Browser) Refresh(ctx context.Context) error {
	b.mu.Lock()
	maxPages := b.runMaxPages
	if maxPages == 0 {
		maxPages = b.cfg.Listing.MaxPages
	}
	b.mu.Unlock()

	_, err := b.startRun(ctx, maxPages, b.cfg.Listing.MaxRetries, true)
	return err
}

// Status returns the latest run status.
func (b *Browser) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// LoadMoreAvailable reports the load-more heuristic over the last completed
// run: a positive multiple of LoadMorePageBatch pages processed, all full.
func (b *Browser) LoadMoreAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadMoreAvailableLocked()
}

func (b *Browser) loadMoreAvailableLocked() bool {
	if !b.hasRunStats {
		return false
	}
	s := b.lastStats
	return s.PagesProcessed > 0 &&
		s.PagesProcessed%LoadMorePageBatch == 0 &&
		s.AllPagesFull
}

// Done returns a channel closed when the current run's event stream is
// drained. Returns a closed channel when no run is active.
func (b *Browser) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activeDone == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return b.activeDone
}

// startRun launches a session and its consumer goroutine.
func (b *Browser) startRun(ctx context.Context, maxPages, maxRetries int, superseding bool) (uuid.UUID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active != nil && !terminal(b.active.State()) {
		return uuid.Nil, ErrSessionActive
	}
	// The session can be terminal while its consumer is still draining
	// events or saving a snapshot; admitting a new run before the consumer
	// returns would put two writers on the accumulator and the status.
	if b.activeDone != nil {
		select {
		case <-b.activeDone:
		default:
			return uuid.Nil, ErrSessionActive
		}
	}

	s := session.New(b.gateway, maxPages, maxRetries, b.cfg.Listing.PageCapacity).
		WithRateLimit(b.cfg.Listing.RateLimit)
	s.SetLogger(b.log)

	id := uuid.New()
	done := make(chan struct{})
	b.active = s
	b.activeID = id
	b.activeDone = done
	b.runMaxPages = maxPages
	b.status = Status{
		SessionID:         id.String(),
		State:             session.StateConnecting.String(),
		LoadMoreAvailable: b.loadMoreAvailableLocked(),
	}

	b.log.Info("Starting listing session",
		slog.String("session", id.String()),
		slog.String("bucket", b.bucket),
		slog.Int("maxPages", maxPages),
		slog.Int("maxRetries", maxRetries),
		slog.Bool("superseding", superseding))

	s.Start(ctx)
	go b.consume(s, superseding, done)
	return id, nil
}

// consume drains one session's event stream in arrival order. It is the
// single writer of the accumulator while its run is active.
func (b *Browser) consume(s *session.Session, superseding bool, done chan struct{}) {
	defer close(done)

	for ev := range s.Events() {
		switch e := ev.(type) {
		case session.Progress:
			b.setStatus(func(st *Status) { st.Message = e.Text })

		case session.PageReady:
			// A superseding run replaces wholesale on completion;
			// appending its pages early would double-count.
			if !superseding {
				b.acc.Append(e.Records)
			}
			b.view.Recompute()
			b.setStatus(func(st *Status) {
				st.State = session.StateListingPage.String()
				st.PagesProcessed = e.PageNumber
				st.TotalObjects = e.TotalRecordsSoFar
				st.Message = fmt.Sprintf("Listed %d objects so far", e.TotalRecordsSoFar)
			})

		case session.RetryAttempt:
			b.setStatus(func(st *Status) {
				st.State = session.StateRetrying.String()
				st.RetryAttempt = e.Attempt
				st.MaxAttempts = e.MaxAttempts
				st.Message = fmt.Sprintf("Retry %d/%d: %s", e.Attempt, e.MaxAttempts, e.ErrorMessage)
			})

		case session.MaxRetriesExceeded:
			b.setStatus(func(st *Status) {
				st.State = session.StateFailed.String()
				st.LastError = e.FinalError
				st.TotalAttempts = e.TotalAttempts
				st.Message = fmt.Sprintf("Failed after %d attempts: %s", e.TotalAttempts, e.FinalError)
			})

		case session.Completed:
			if superseding {
				b.acc.ReplaceAll(e.AllRecords)
			}
			b.view.Recompute()

			stats := s.Stats()
			b.mu.Lock()
			b.lastStats = stats
			b.hasRunStats = true
			b.status.State = session.StateCompleted.String()
			b.status.PagesProcessed = e.PagesProcessed
			b.status.TotalObjects = e.TotalFound
			b.status.StoppedAtLimit = e.StoppedAtLimit
			b.status.LoadMoreAvailable = b.loadMoreAvailableLocked()
			b.status.Message = fmt.Sprintf("Found %d objects", e.TotalFound)
			b.mu.Unlock()

			b.saveSnapshot(e.AllRecords, stats)
		}
	}

	// Terminal state of a cancelled run arrives without events.
	b.setStatus(func(st *Status) {
		st.State = s.State().String()
	})
}

// saveSnapshot feeds the optional catalog off the hot path of the consumer.
func (b *Browser) saveSnapshot(records []dto.ObjectRecord, stats session.RunStats) {
	if b.snapshotter == nil {
		return
	}
	if err := b.snapshotter.SaveSnapshot(context.Background(), b.bucket, records, stats); err != nil {
		b.log.Error("Failed to save run snapshot", slog.String("error", err.Error()))
	}
}

func (b *Browser) setStatus(update func(*Status)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	update(&b.status)
}

func terminal(st session.State) bool {
	switch st {
	case session.StateCompleted, session.StateCancelled, session.StateFailed:
		return true
	default:
		return false
	}
}
