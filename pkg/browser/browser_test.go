package browser

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bucketdiver/bucketdiver/pkg/config"
	"github.com/bucketdiver/bucketdiver/pkg/dto"
	"github.com/bucketdiver/bucketdiver/pkg/session"
)

// scriptedGateway serves a fixed object set in pages of pageSize records.
// block stalls every call; blockAfter stalls calls after the first N.
type scriptedGateway struct {
	objects    []dto.ObjectRecord
	pageSize   int
	block      bool
	blockAfter int

	calls int
}

func (g *scriptedGateway) FetchPage(ctx context.Context, token string) (dto.Page, error) {
	g.calls++
	if g.block || (g.blockAfter > 0 && g.calls > g.blockAfter) {
		<-ctx.Done()
		return dto.Page{}, ctx.Err()
	}

	start := 0
	if token != "" {
		// Tokens are decimal offsets in this fake.
		for i := range token {
			start = start*10 + int(token[i]-'0')
		}
	}
	end := min(start+g.pageSize, len(g.objects))

	page := dto.Page{Records: g.objects[start:end]}
	if end < len(g.objects) {
		page.HasMore = true
		page.NextToken = itoa(end)
	}
	return page, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	return string(buf)
}

func objects(n int) []dto.ObjectRecord {
	out := make([]dto.ObjectRecord, n)
	for i := range out {
		out[i] = dto.ObjectRecord{Key: "k" + itoa(i)}
	}
	return out
}

func testConfig(pageCapacity int) config.Config {
	return config.Config{
		Listing: config.ListingConfig{
			MaxPages:     10,
			MaxRetries:   3,
			PageCapacity: pageCapacity,
		},
		View: config.ViewConfig{PageSize: 100},
	}
}

func waitDone(t *testing.T, b *Browser) {
	t.Helper()
	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the run to finish")
	}
}

func TestBrowser_InitialRunAccumulates(t *testing.T) {
	g := &scriptedGateway{objects: objects(5), pageSize: 2}
	b := New(testConfig(2), g, "test-bucket")

	_, err := b.StartListing(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("StartListing failed: %v", err)
	}
	waitDone(t, b)

	if got := b.Count(); got != 5 {
		t.Errorf("Expected 5 accumulated records, got %d", got)
	}
	st := b.Status()
	if st.State != "completed" {
		t.Errorf("Expected completed state, got %q", st.State)
	}
	if st.TotalObjects != 5 || st.PagesProcessed != 3 {
		t.Errorf("Expected 5 objects over 3 pages, got %d over %d",
			st.TotalObjects, st.PagesProcessed)
	}
	if st.StoppedAtLimit {
		t.Error("Expected stoppedAtLimit=false when enumeration finished")
	}
}

func TestBrowser_SingleActiveSession(t *testing.T) {
	g := &scriptedGateway{block: true}
	b := New(testConfig(2), g, "test-bucket")

	handle, err := b.StartListing(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("StartListing failed: %v", err)
	}

	if _, err := b.StartListing(context.Background(), 10, 3); err != ErrSessionActive {
		t.Errorf("Expected ErrSessionActive, got %v", err)
	}

	if err := b.Cancel(handle); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	waitDone(t, b)

	if st := b.Status(); st.State != "cancelled" {
		t.Errorf("Expected cancelled state, got %q", st.State)
	}
}

func TestBrowser_CancelUnknownHandle(t *testing.T) {
	b := New(testConfig(2), &scriptedGateway{}, "test-bucket")
	if err := b.Cancel(uuid.New()); err != ErrUnknownSession {
		t.Errorf("Expected ErrUnknownSession, got %v", err)
	}
}

func TestBrowser_LoadMoreReplacesWholesale(t *testing.T) {
	// 25 objects in pages of 2: the initial 10-page run sees 20 of them,
	// every page full, so the load-more affordance shows.
	g := &scriptedGateway{objects: objects(25), pageSize: 2}
	b := New(testConfig(2), g, "test-bucket")

	handle, err := b.StartListing(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("StartListing failed: %v", err)
	}
	waitDone(t, b)

	if got := b.Count(); got != 20 {
		t.Fatalf("Expected 20 records after the initial run, got %d", got)
	}
	if !b.LoadMoreAvailable() {
		t.Fatal("Expected the load-more affordance after 10 full pages")
	}

	newHandle, err := b.LoadMore(context.Background(), handle, LoadMorePageBatch)
	if err != nil {
		t.Fatalf("LoadMore failed: %v", err)
	}
	if newHandle == handle {
		t.Error("Expected a fresh handle for the superseding run")
	}
	waitDone(t, b)

	// The superseding run re-enumerates everything; the accumulator holds
	// its total, not the sum of both runs.
	if got := b.Count(); got != 25 {
		t.Errorf("Expected 25 records after the superseding run, got %d", got)
	}
	if b.LoadMoreAvailable() {
		t.Error("Expected no load-more affordance after a partial final page")
	}
}

func TestBrowser_LoadMoreHeuristicHidesOnPartialPages(t *testing.T) {
	// 19 objects in pages of 2: ten pages processed but the last is short.
	g := &scriptedGateway{objects: objects(19), pageSize: 2}
	b := New(testConfig(2), g, "test-bucket")

	_, err := b.StartListing(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("StartListing failed: %v", err)
	}
	waitDone(t, b)

	if b.LoadMoreAvailable() {
		t.Error("Expected no load-more affordance when a page was not full")
	}
}

func TestBrowser_LoadMoreUnknownHandle(t *testing.T) {
	g := &scriptedGateway{objects: objects(4), pageSize: 2}
	b := New(testConfig(2), g, "test-bucket")

	_, err := b.StartListing(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("StartListing failed: %v", err)
	}
	waitDone(t, b)

	if _, err := b.LoadMore(context.Background(), uuid.New(), 10); err != ErrUnknownSession {
		t.Errorf("Expected ErrUnknownSession, got %v", err)
	}
}

func TestBrowser_CancelKeepsPartialResults(t *testing.T) {
	// First page served, second call stalls until cancelled.
	g := &scriptedGateway{objects: objects(6), pageSize: 2, blockAfter: 1}
	b := New(testConfig(2), g, "test-bucket")

	handle, err := b.StartListing(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("StartListing failed: %v", err)
	}

	// Wait for the consumer to append the first page, then cancel mid-run.
	deadline := time.Now().Add(2 * time.Second)
	for b.Count() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for the first page, count=%d", b.Count())
		}
		time.Sleep(2 * time.Millisecond)
	}
	if err := b.Cancel(handle); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	waitDone(t, b)

	// Cancellation has no rollback: the first page stays visible.
	if st := b.Status(); st.State != "cancelled" {
		t.Errorf("Expected cancelled state, got %q", st.State)
	}
	if got := b.Count(); got != 2 {
		t.Errorf("Expected partial results to stay visible, got %d", got)
	}
	if got := len(b.View().CurrentPageRecords()); got != 2 {
		t.Errorf("Expected the view to serve 2 records, got %d", got)
	}
}

// gatedSnapshotter stalls SaveSnapshot until released, so the consumer
// goroutine can be held past its session's terminal state.
type gatedSnapshotter struct {
	entered chan struct{}
	release chan struct{}
}

func newGatedSnapshotter() *gatedSnapshotter {
	return &gatedSnapshotter{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (s *gatedSnapshotter) SaveSnapshot(_ context.Context, _ string, _ []dto.ObjectRecord, _ session.RunStats) error {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
	return nil
}

func TestBrowser_NoNewRunWhileConsumerDraining(t *testing.T) {
	g := &scriptedGateway{objects: objects(2), pageSize: 2}
	b := New(testConfig(2), g, "test-bucket")
	snap := newGatedSnapshotter()
	b.SetSnapshotter(snap)

	_, err := b.StartListing(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("StartListing failed: %v", err)
	}

	// The session is terminal but its consumer is parked in the snapshot
	// save; a new run must be refused until the consumer returns.
	select {
	case <-snap.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the snapshot save to start")
	}
	if _, err := b.StartListing(context.Background(), 10, 3); err != ErrSessionActive {
		t.Fatalf("Expected ErrSessionActive while the consumer drains, got %v", err)
	}

	close(snap.release)
	waitDone(t, b)

	// With the old consumer fully retired, the next run proceeds and owns
	// the status.
	g.calls = 0
	if _, err := b.StartListing(context.Background(), 10, 3); err != nil {
		t.Fatalf("StartListing after drain failed: %v", err)
	}
	waitDone(t, b)

	st := b.Status()
	if st.State != "completed" {
		t.Errorf("Expected completed state from the second run, got %q", st.State)
	}
	if st.TotalObjects != 2 {
		t.Errorf("Expected 2 objects from the second run, got %d", st.TotalObjects)
	}
}

func TestBrowser_RefreshSupersedes(t *testing.T) {
	g := &scriptedGateway{objects: objects(4), pageSize: 2}
	b := New(testConfig(2), g, "test-bucket")

	_, err := b.StartListing(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("StartListing failed: %v", err)
	}
	waitDone(t, b)

	// The store shrank between runs; refresh replaces, never appends.
	g.objects = objects(3)
	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	waitDone(t, b)

	if got := b.Count(); got != 3 {
		t.Errorf("Expected the refreshed set of 3 records, got %d", got)
	}
}
