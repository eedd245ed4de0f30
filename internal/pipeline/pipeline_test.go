package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"reefcast/internal/openmeteo"
	"reefcast/internal/types"
)

// ============================================================
// Mock Implementations
// ============================================================

// mockFetcher serves a fixed-size batch per location and fails the
// locations listed in failKeys. Safe for concurrent use.
type mockFetcher struct {
	mu         sync.Mutex
	samples    int
	failKeys   map[string]error
	fetchCalls []string // location keys in call order
}

func newMockFetcher(samplesPerBatch int) *mockFetcher {
	return &mockFetcher{
		samples:  samplesPerBatch,
		failKeys: make(map[string]error),
	}
}

func (m *mockFetcher) failFor(key string, err error) {
	m.failKeys[key] = err
}

func (m *mockFetcher) Fetch(_ context.Context, loc types.Location, horizonDays int) (*types.ForecastBatch, error) {
	m.mu.Lock()
	m.fetchCalls = append(m.fetchCalls, loc.Key())
	m.mu.Unlock()

	if err, ok := m.failKeys[loc.Key()]; ok {
		return nil, err
	}

	samples := make([]types.ForecastSample, m.samples)
	base := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	for i := range samples {
		h := 0.4
		samples[i] = types.ForecastSample{
			Location:   loc,
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
			WaveHeight: &h,
		}
	}
	_ = horizonDays
	return &types.ForecastBatch{Location: loc, Samples: samples}, nil
}

type storeCall struct {
	key     string
	scored  bool
	samples int
	scores  int // samples carrying a non-nil score
}

// mockStore records ReplaceWindow calls and fails the locations listed
// in failKeys. Safe for concurrent use.
type mockStore struct {
	mu       sync.Mutex
	failKeys map[string]error
	calls    []storeCall
}

func newMockStore() *mockStore {
	return &mockStore{failKeys: make(map[string]error)}
}

func (m *mockStore) failFor(key string, err error) {
	m.failKeys[key] = err
}

func (m *mockStore) ReplaceWindow(_ context.Context, batch *types.ForecastBatch, scored bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failKeys[batch.Location.Key()]; ok {
		return 0, err
	}

	call := storeCall{
		key:     batch.Location.Key(),
		scored:  scored,
		samples: len(batch.Samples),
	}
	for _, s := range batch.Samples {
		if s.SuitabilityScore != nil {
			call.scores++
		}
	}
	m.calls = append(m.calls, call)
	return len(batch.Samples), nil
}

// fixedClock returns a constant time plus one second per call, so every
// run reports a deterministic positive execution time.
type fixedClock struct {
	mu    sync.Mutex
	t     time.Time
	calls int
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.t.Add(time.Duration(c.calls-1) * time.Second)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testSites(n int) []types.Site {
	out := make([]types.Site, n)
	for i := range out {
		out[i] = types.Site{Location: types.Location{
			Lat: 18.0 + float64(i)*0.01,
			Lng: -66.0,
		}}
	}
	return out
}

func newTestIngestor(t *testing.T, cfg IngestorConfig) *Ingestor {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = testLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = &fixedClock{t: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)}
	}
	if cfg.SleepFn == nil {
		cfg.SleepFn = func(time.Duration) {}
	}
	ing, err := NewIngestor(cfg)
	if err != nil {
		t.Fatalf("NewIngestor failed: %v", err)
	}
	return ing
}

// ============================================================
// Tests
// ============================================================

func TestNewIngestor_RequiresCollaborators(t *testing.T) {
	_, err := NewIngestor(IngestorConfig{Store: newMockStore()})
	if err == nil {
		t.Fatal("expected error for missing fetcher")
	}
	var appErr *types.AppError
	if !asAppError(err, &appErr) || appErr.Code != types.ErrCodeConfigurationMissing {
		t.Errorf("expected configuration error, got %v", err)
	}

	_, err = NewIngestor(IngestorConfig{Fetcher: newMockFetcher(1)})
	if err == nil {
		t.Fatal("expected error for missing store")
	}
}

func asAppError(err error, target **types.AppError) bool {
	e, ok := err.(*types.AppError)
	if ok {
		*target = e
	}
	return ok
}

func TestRun_AllLocationsSucceed(t *testing.T) {
	fetcher := newMockFetcher(168)
	store := newMockStore()
	ing := newTestIngestor(t, IngestorConfig{Fetcher: fetcher, Store: store})

	summary, err := ing.Run(context.Background(), testSites(3))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.LocationsUpdated != 3 {
		t.Errorf("expected 3 updated, got %d", summary.LocationsUpdated)
	}
	if summary.LocationsFailed != 0 {
		t.Errorf("expected 0 failed, got %d", summary.LocationsFailed)
	}
	if want := 3 * openmeteo.CallsPerFetch; summary.APICalls != want {
		t.Errorf("expected %d api calls, got %d", want, summary.APICalls)
	}
	if summary.ExecutionTimeSeconds <= 0 {
		t.Errorf("expected positive execution time, got %f", summary.ExecutionTimeSeconds)
	}
	if len(store.calls) != 3 {
		t.Errorf("expected 3 store calls, got %d", len(store.calls))
	}
}

func TestRun_FetchFailureIsIsolated(t *testing.T) {
	fetcher := newMockFetcher(24)
	store := newMockStore()
	sites := testSites(3)
	fetcher.failFor(sites[1].Key(),
		types.NewAppError(types.ErrCodeProviderUnavailable, "upstream down", nil))

	ing := newTestIngestor(t, IngestorConfig{Fetcher: fetcher, Store: store})
	summary, err := ing.Run(context.Background(), sites)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.LocationsUpdated != 2 || summary.LocationsFailed != 1 {
		t.Errorf("expected 2 updated / 1 failed, got %d / %d",
			summary.LocationsUpdated, summary.LocationsFailed)
	}
	// The fetch was attempted, so its upstream calls still count.
	if want := 3 * openmeteo.CallsPerFetch; summary.APICalls != want {
		t.Errorf("expected %d api calls, got %d", want, summary.APICalls)
	}
	if len(store.calls) != 2 {
		t.Errorf("failed location must not reach the store, got %d calls", len(store.calls))
	}
}

func TestRun_StoreFailureIsIsolated(t *testing.T) {
	fetcher := newMockFetcher(24)
	store := newMockStore()
	sites := testSites(3)
	store.failFor(sites[0].Key(),
		types.NewAppError(types.ErrCodePersistenceInsert, "insert failed", nil))

	ing := newTestIngestor(t, IngestorConfig{Fetcher: fetcher, Store: store})
	summary, err := ing.Run(context.Background(), sites)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.LocationsUpdated != 2 || summary.LocationsFailed != 1 {
		t.Errorf("expected 2 updated / 1 failed, got %d / %d",
			summary.LocationsUpdated, summary.LocationsFailed)
	}
}

func TestRun_GroupsPauseBetweenNotAfter(t *testing.T) {
	fetcher := newMockFetcher(1)
	store := newMockStore()

	var pauses []time.Duration
	ing := newTestIngestor(t, IngestorConfig{
		Fetcher:    fetcher,
		Store:      store,
		GroupSize:  15,
		GroupPause: time.Second,
		SleepFn:    func(d time.Duration) { pauses = append(pauses, d) },
	})

	// 38 sites at group size 15 is 3 groups, so exactly 2 pauses.
	summary, err := ing.Run(context.Background(), testSites(38))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(pauses) != 2 {
		t.Fatalf("expected 2 inter-group pauses, got %d", len(pauses))
	}
	for _, d := range pauses {
		if d != time.Second {
			t.Errorf("expected 1s pause, got %v", d)
		}
	}
	if summary.LocationsUpdated != 38 {
		t.Errorf("expected 38 updated, got %d", summary.LocationsUpdated)
	}
}

func TestRun_SingleGroupHasNoPause(t *testing.T) {
	var pauses int
	ing := newTestIngestor(t, IngestorConfig{
		Fetcher:    newMockFetcher(1),
		Store:      newMockStore(),
		GroupSize:  15,
		GroupPause: time.Second,
		SleepFn:    func(time.Duration) { pauses++ },
	})

	if _, err := ing.Run(context.Background(), testSites(8)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if pauses != 0 {
		t.Errorf("expected no pauses for a single group, got %d", pauses)
	}
}

func TestRun_ScoredSitesGetScores(t *testing.T) {
	fetcher := newMockFetcher(24)
	store := newMockStore()

	scorerCalls := 0
	ing := newTestIngestor(t, IngestorConfig{
		Fetcher: fetcher,
		Store:   store,
		Scorer: func(s *types.ForecastSample) int {
			scorerCalls++
			return 42
		},
	})

	sites := []types.Site{
		{Location: types.Location{Lat: 18.35, Lng: -67.26, Name: "Steps Beach", Region: "west"}, Scored: true},
		{Location: types.Location{Lat: 18.0, Lng: -66.0}},
	}

	summary, err := ing.Run(context.Background(), sites)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if scorerCalls != 24 {
		t.Errorf("expected 24 scorer calls (scored site only), got %d", scorerCalls)
	}
	if summary.ScoredUpdated != 1 {
		t.Errorf("expected 1 scored update, got %d", summary.ScoredUpdated)
	}
	if summary.LocationsUpdated != 2 {
		t.Errorf("expected 2 total updates, got %d", summary.LocationsUpdated)
	}

	for _, call := range store.calls {
		if call.key == "Steps Beach" {
			if !call.scored {
				t.Error("scored site must target the scored store")
			}
			if call.scores != 24 {
				t.Errorf("expected every sample scored, got %d of %d", call.scores, call.samples)
			}
		} else if call.scored || call.scores != 0 {
			t.Errorf("plain site must not be scored: %+v", call)
		}
	}
}

func TestRun_ScoredFailureCountsSeparately(t *testing.T) {
	fetcher := newMockFetcher(24)
	store := newMockStore()
	fetcher.failFor("Steps Beach",
		types.NewAppError(types.ErrCodeProviderRateLimited, "rate limited", nil))

	ing := newTestIngestor(t, IngestorConfig{Fetcher: fetcher, Store: store})
	sites := []types.Site{
		{Location: types.Location{Lat: 18.35, Lng: -67.26, Name: "Steps Beach", Region: "west"}, Scored: true},
	}

	summary, err := ing.Run(context.Background(), sites)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.ScoredFailed != 1 || summary.LocationsFailed != 1 {
		t.Errorf("expected scored failure counted in both counters, got %+v", summary)
	}
}

func TestRun_ContextCancelledBetweenGroups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fetcher := newMockFetcher(1)
	store := newMockStore()
	ing := newTestIngestor(t, IngestorConfig{
		Fetcher:    fetcher,
		Store:      store,
		GroupSize:  2,
		GroupPause: time.Millisecond,
		SleepFn:    func(time.Duration) { cancel() }, // cancel during the pause
	})

	summary, err := ing.Run(ctx, testSites(6))
	if err == nil {
		t.Fatal("expected context error")
	}
	// The first group completed before the cancellation.
	if summary.LocationsUpdated != 2 {
		t.Errorf("expected 2 updated before abort, got %d", summary.LocationsUpdated)
	}
	if len(fetcher.fetchCalls) != 2 {
		t.Errorf("expected fetches for the first group only, got %d", len(fetcher.fetchCalls))
	}
}

func TestRun_EmptySiteSet(t *testing.T) {
	ing := newTestIngestor(t, IngestorConfig{
		Fetcher: newMockFetcher(1),
		Store:   newMockStore(),
	})
	summary, err := ing.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.LocationsUpdated != 0 || summary.APICalls != 0 {
		t.Errorf("expected empty summary, got %+v", summary)
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n, size int
		want    []int // group lengths
	}{
		{0, 15, nil},
		{1, 15, []int{1}},
		{15, 15, []int{15}},
		{16, 15, []int{15, 1}},
		{38, 15, []int{15, 15, 8}},
	}
	for _, tt := range tests {
		groups := partition(testSites(tt.n), tt.size)
		if len(groups) != len(tt.want) {
			t.Errorf("partition(%d, %d): expected %d groups, got %d",
				tt.n, tt.size, len(tt.want), len(groups))
			continue
		}
		for i, g := range groups {
			if len(g) != tt.want[i] {
				t.Errorf("partition(%d, %d): group %d has %d sites, want %d",
					tt.n, tt.size, i, len(g), tt.want[i])
			}
		}
	}
}

func TestRun_ErrorLogIncludesLocation(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	fetcher := newMockFetcher(1)
	store := newMockStore()
	sites := testSites(1)
	fetcher.failFor(sites[0].Key(),
		types.NewAppError(types.ErrCodeProviderUnavailable, "down", nil))

	ing := newTestIngestor(t, IngestorConfig{Fetcher: fetcher, Store: store, Logger: logger})
	if _, err := ing.Run(context.Background(), sites); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "forecast fetch failed") || !strings.Contains(out, `"lat"`) {
		t.Errorf("expected per-location error log with coordinates, got: %s", out)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
