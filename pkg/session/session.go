// Package session runs one bounded bucket enumeration: repeated gateway
// calls up to a page budget, a fixed retry/backoff policy, cooperative
// cancellation, and an ordered event stream toward the consumer.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/bucketdiver/bucketdiver/pkg/dto"
	"github.com/bucketdiver/bucketdiver/pkg/store"
)

// Retry policy of a listing run. All failure kinds consume one attempt;
// the backoff is polled so a cancel request interrupts the wait promptly.
const (
	RetryBackoff       = 2 * time.Second
	CancelPollInterval = 100 * time.Millisecond
)

// eventBuffer decouples the run goroutine from the consumer without
// reordering: a single sender keeps the stream strictly ordered.
const eventBuffer = 32

// PageFetcher is the gateway contract the run pulls pages from.
type PageFetcher interface {
	FetchPage(ctx context.Context, continuationToken string) (dto.Page, error)
}

// State is the position of a run in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateListingPage
	StateRetrying
	StateCompleted
	StateCancelled
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateListingPage:
		return "listing-page"
	case StateRetrying:
		return "retrying"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RunStats are the attributes of one bounded enumeration attempt. They are
// valid once the run reaches a terminal state.
type RunStats struct {
	MaxPages       int
	PagesProcessed int
	TotalFound     int
	StoppedAtLimit bool
	// AllPagesFull is true when every processed page held exactly the
	// gateway page capacity. Feeds the load-more heuristic.
	AllPagesFull bool
	Attempt      int
	MaxAttempts  int
}

// Session is one bounded listing run. Safe for single use only.
type Session struct {
	fetcher      PageFetcher
	maxPages     int
	maxAttempts  int
	pageCapacity int
	limiter      *rate.Limiter
	log          *slog.Logger

	backoff      time.Duration
	pollInterval time.Duration

	events    chan Event
	cancelled atomic.Bool
	state     atomic.Int32

	mu        sync.Mutex
	cancelRun context.CancelFunc
	stats     RunStats
}

// New creates a run with the given page and retry budgets. pageCapacity is
// the number of records a full gateway page holds.
func New(fetcher PageFetcher, maxPages, maxRetries, pageCapacity int) *Session {
	return &Session{
		fetcher:      fetcher,
		maxPages:     maxPages,
		maxAttempts:  maxRetries,
		pageCapacity: pageCapacity,
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		backoff:      RetryBackoff,
		pollInterval: CancelPollInterval,
		events:       make(chan Event, eventBuffer),
	}
}

// WithRateLimit caps gateway calls per second. Zero leaves the run
// unlimited. Returns the session for chaining.
func (s *Session) WithRateLimit(perSecond float64) *Session {
	if perSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return s
}

// SetLogger sets the logger.
func (s *Session) SetLogger(log *slog.Logger) {
	s.log = log
}

// Events returns the ordered event stream of the run. Closed at terminal
// state.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Stats returns the run statistics. Meaningful once the run terminated.
func (s *Session) Stats() RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Start launches the run goroutine. Call at most once.
func (s *Session) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelRun = cancel
	s.mu.Unlock()
	go s.run(runCtx)
}

// Cancel requests cooperative cancellation. Safe to call from any
// goroutine, before or after Start. The run stops within one poll interval
// of the backoff wait, or as soon as the in-flight gateway call aborts,
// and emits no further events.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
	s.mu.Lock()
	cancel := s.cancelRun
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// run drives the state machine until a terminal state.
func (s *Session) run(ctx context.Context) {
	defer close(s.events)

	if s.cancelled.Load() {
		s.terminate(StateCancelled)
		return
	}

	s.setState(StateConnecting)
	s.emit(Progress{Text: "Connecting to object store..."})

	attempt := 1
	pagesProcessed := 0
	totalSoFar := 0
	allFull := true
	var token string
	var all []dto.ObjectRecord

	for {
		// Cancellation check before starting the next gateway call.
		if s.cancelled.Load() {
			s.terminate(StateCancelled)
			return
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				s.terminate(StateCancelled)
				return
			}
		}

		s.setState(StateListingPage)
		page, err := s.fetcher.FetchPage(ctx, token)
		if err != nil {
			if s.cancelled.Load() || ctx.Err() != nil {
				s.terminate(StateCancelled)
				return
			}

			msg := store.UserMessage(err)
			if attempt < s.maxAttempts {
				s.log.Warn("Listing page failed, retrying",
					slog.Int("attempt", attempt),
					slog.Int("maxAttempts", s.maxAttempts),
					slog.String("error", err.Error()))
				s.emit(RetryAttempt{Attempt: attempt, MaxAttempts: s.maxAttempts, ErrorMessage: msg})
				s.setState(StateRetrying)
				if !s.waitBackoff(ctx) {
					s.terminate(StateCancelled)
					return
				}
				attempt++
				s.setState(StateConnecting)
				continue
			}

			s.log.Error("Listing failed, retries exhausted",
				slog.Int("totalAttempts", attempt),
				slog.String("error", err.Error()))
			s.recordStats(pagesProcessed, totalSoFar, false, allFull, attempt)
			s.emit(MaxRetriesExceeded{TotalAttempts: attempt, FinalError: msg})
			s.setState(StateFailed)
			return
		}

		// Cancellation check before appending the just-fetched page.
		if s.cancelled.Load() {
			s.terminate(StateCancelled)
			return
		}

		pagesProcessed++
		if len(page.Records) != s.pageCapacity {
			allFull = false
		}
		all = append(all, page.Records...)
		totalSoFar += len(page.Records)

		isLast := !page.HasMore || pagesProcessed == s.maxPages
		if len(page.Records) > 0 {
			s.emit(PageReady{
				Records:           page.Records,
				PageNumber:        pagesProcessed,
				RecordsInPage:     len(page.Records),
				TotalRecordsSoFar: totalSoFar,
				IsLastPage:        isLast,
			})
		}

		if isLast {
			stoppedAtLimit := pagesProcessed == s.maxPages && page.HasMore
			s.recordStats(pagesProcessed, totalSoFar, stoppedAtLimit, allFull, attempt)
			s.emit(Progress{Text: fmt.Sprintf("Found %d objects", totalSoFar)})
			s.emit(Completed{
				AllRecords:     all,
				PagesProcessed: pagesProcessed,
				TotalFound:     totalSoFar,
				StoppedAtLimit: stoppedAtLimit,
			})
			s.setState(StateCompleted)
			return
		}
		token = page.NextToken
	}
}

// waitBackoff waits out the fixed backoff, polling the cancellation flag on
// every tick. Returns false when the wait was interrupted.
func (s *Session) waitBackoff(ctx context.Context) bool {
	deadline := time.Now().Add(s.backoff)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if s.cancelled.Load() {
			return false
		}
		if !time.Now().Before(deadline) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// terminate moves to a terminal state without emitting events.
func (s *Session) terminate(st State) {
	s.log.Debug("Listing run terminated", slog.String("state", st.String()))
	s.setState(st)
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

func (s *Session) recordStats(pages, total int, stoppedAtLimit, allFull bool, attempt int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = RunStats{
		MaxPages:       s.maxPages,
		PagesProcessed: pages,
		TotalFound:     total,
		StoppedAtLimit: stoppedAtLimit,
		AllPagesFull:   allFull && pages > 0,
		Attempt:        attempt,
		MaxAttempts:    s.maxAttempts,
	}
}

// emit delivers an event in order. The buffered channel lets the run stay
// ahead of the consumer without reordering; a full buffer applies
// backpressure to the run, never to the consumer.
func (s *Session) emit(ev Event) {
	s.events <- ev
}
